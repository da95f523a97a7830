package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somnicart/internal/domain"
	"somnicart/internal/storefront"
)

type stubStorefront struct {
	result storefront.CartCreateResult
	err    error
	calls  int
	lines  []domain.LineRequest
}

func (s *stubStorefront) CartCreate(_ context.Context, lines []domain.LineRequest) (storefront.CartCreateResult, error) {
	s.calls++
	s.lines = lines
	return s.result, s.err
}

type stubRecorder struct{ outcomes []string }

func (r *stubRecorder) RecordCheckout(outcome string) { r.outcomes = append(r.outcomes, outcome) }

func TestCreateCheckoutSessionAppendsChannel(t *testing.T) {
	sf := &stubStorefront{result: storefront.CartCreateResult{
		CartID:      "gid://shopify/Cart/c1",
		CheckoutURL: "https://shop.example.com/cart/c/c1?key=abc",
	}}
	rec := &stubRecorder{}
	svc := New(sf, rec, nil)

	session, err := svc.CreateCheckoutSession(context.Background(), []domain.LineRequest{{VariantID: "v1", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/cart/c/c1?channel=online_store&key=abc", session.URL)
	assert.Equal(t, "gid://shopify/Cart/c1", session.CartID)
	assert.Equal(t, []domain.LineRequest{{VariantID: "v1", Quantity: 2}}, sf.lines)
	assert.Equal(t, []string{"ok"}, rec.outcomes)
}

func TestCreateCheckoutSessionRejectsBadInputLocally(t *testing.T) {
	cases := map[string][]domain.LineRequest{
		"empty":         nil,
		"zero quantity": {{VariantID: "v1", Quantity: 0}},
		"blank variant": {{VariantID: "  ", Quantity: 1}},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			sf := &stubStorefront{}
			rec := &stubRecorder{}
			_, err := New(sf, rec, nil).CreateCheckoutSession(context.Background(), lines)
			assert.ErrorIs(t, err, domain.ErrValidationFailed)
			assert.Zero(t, sf.calls)
			assert.Equal(t, []string{"validation_failed"}, rec.outcomes)
		})
	}
}

func TestCreateCheckoutSessionJoinsUserErrors(t *testing.T) {
	sf := &stubStorefront{result: storefront.CartCreateResult{UserErrors: []storefront.UserError{
		{Message: "Variant v1 is sold out"},
		{Message: "Quantity exceeds stock"},
	}}}
	_, err := New(sf, nil, nil).CreateCheckoutSession(context.Background(), []domain.LineRequest{{VariantID: "v1", Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Equal(t, "Variant v1 is sold out, Quantity exceeds stock", domain.ErrorMessage(err))
}

func TestCreateCheckoutSessionWithoutURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/path"} {
		sf := &stubStorefront{result: storefront.CartCreateResult{CartID: "c1", CheckoutURL: raw}}
		_, err := New(sf, nil, nil).CreateCheckoutSession(context.Background(), []domain.LineRequest{{VariantID: "v1", Quantity: 1}})
		assert.ErrorIs(t, err, domain.ErrIntegration, raw)
	}
}

func TestCreateCheckoutSessionPassesGatewayErrors(t *testing.T) {
	upstream := domain.NewCheckoutError(domain.ErrUpstreamUnavailable, "billing")
	sf := &stubStorefront{err: upstream}
	rec := &stubRecorder{}
	_, err := New(sf, rec, nil).CreateCheckoutSession(context.Background(), []domain.LineRequest{{VariantID: "v1", Quantity: 1}})
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Equal(t, []string{"upstream_unavailable"}, rec.outcomes)
}

func TestPresentation(t *testing.T) {
	path, msg := Presentation(domain.NewCheckoutError(domain.ErrValidationFailed, "Variant v1 is sold out"))
	assert.Equal(t, PathUnavailableItem, path)
	assert.Equal(t, "Variant v1 is sold out", msg)

	path, _ = Presentation(domain.ErrValidationFailed)
	assert.Equal(t, PathUnavailableItem, path)

	path, _ = Presentation(domain.NewCheckoutError(domain.ErrUpstreamUnavailable, "billing"))
	assert.Equal(t, PathContactSupport, path)

	path, _ = Presentation(domain.NewCheckoutError(domain.ErrIntegration, "bad"))
	assert.Equal(t, PathContactSupport, path)

	path, _ = Presentation(domain.NewCheckoutError(domain.ErrNetwork, "timeout"))
	assert.Equal(t, PathRetry, path)

	path, _ = Presentation(errors.New("boom"))
	assert.Equal(t, PathRetry, path)
}
