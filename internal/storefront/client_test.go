package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somnicart/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Endpoint: srv.URL, AccessToken: "tok"}, srv.Client(), nil)
}

func TestCartCreateSendsLines(t *testing.T) {
	var got graphQLRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Shopify-Storefront-Access-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":{"cartCreate":{"cart":{"id":"gid://shopify/Cart/1","checkoutUrl":"https://shop.example/cart/c/1"},"userErrors":[]}}}`))
	})

	res, err := client.CartCreate(context.Background(), []domain.LineRequest{{VariantID: "gid://v/1", Quantity: 2}})

	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Cart/1", res.CartID)
	assert.Equal(t, "https://shop.example/cart/c/1", res.CheckoutURL)
	input := got.Variables["input"].(map[string]any)
	lines := input["lines"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "gid://v/1", lines[0].(map[string]any)["merchandiseId"])
	assert.Equal(t, 2.0, lines[0].(map[string]any)["quantity"])
}

func TestCartCreateUserErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"cartCreate":{"cart":null,"userErrors":[{"field":["lines"],"message":"sold out"}]}}}`))
	})

	res, err := client.CartCreate(context.Background(), []domain.LineRequest{{VariantID: "v", Quantity: 1}})

	require.NoError(t, err)
	require.Len(t, res.UserErrors, 1)
	assert.Equal(t, "sold out", res.UserErrors[0].Message)
	assert.Empty(t, res.CheckoutURL)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusPaymentRequired, domain.ErrUpstreamUnavailable},
		{http.StatusBadGateway, domain.ErrNetwork},
		{http.StatusTooManyRequests, domain.ErrNetwork},
		{http.StatusUnauthorized, domain.ErrIntegration},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.CartCreate(context.Background(), []domain.LineRequest{{VariantID: "v", Quantity: 1}})
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestGraphQLErrorsAreIntegrationErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"bad field"},{"message":"worse"}]}`))
	})

	_, err := client.Products(context.Background(), 10, "")

	require.ErrorIs(t, err, domain.ErrIntegration)
	assert.Equal(t, "Error calling Shopify: bad field, worse", domain.ErrorMessage(err))
}

func TestProductByHandle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"productByHandle":{"id":"p1","title":"AirSense 11","handle":"airsense-11",
"images":{"edges":[{"node":{"url":"https://cdn/img.png"}}]},
"variants":{"edges":[{"node":{"id":"v1","title":"Default","availableForSale":true,"price":{"amount":"1049.00","currencyCode":"USD"},"selectedOptions":[{"name":"Size","value":"Standard"}]}}]}}}}`))
	})

	p, err := client.ProductByHandle(context.Background(), "airsense-11")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/img.png", p.ImageURL)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "1049", p.Variants[0].Price.Amount.String())
	assert.Equal(t, "Standard", p.Variants[0].SelectedOptions[0].Value)
}

func TestProductByHandleMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"productByHandle":null}}`))
	})

	_, err := client.ProductByHandle(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
