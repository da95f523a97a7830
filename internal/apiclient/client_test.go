package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somnicart/internal/domain"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", nil)
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080", nil)
	assert.Error(t, err)
}

func TestFetchAbsentRecord(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/carts/u%201", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","message":"not found"}`))
	})

	_, found, err := c.Fetch(context.Background(), "u 1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFetchBare404IsIntegrationError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/wrong-prefix", nil)
	require.NoError(t, err)

	_, found, err := c.Fetch(context.Background(), "u1")
	assert.False(t, found)
	assert.ErrorIs(t, err, domain.ErrIntegration)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchRecord(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"userId":"u1","lines":[{"variantId":"v1","quantity":1,"price":{"amount":"1049.00","currencyCode":"USD"}}],"remoteCartHandle":"c1"}`))
	})

	rec, found, err := c.Fetch(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, "v1", rec.Lines[0].VariantID)
	assert.Equal(t, "1049", rec.Lines[0].UnitPrice.Amount.String())
	require.NotNil(t, rec.RemoteCartHandle)
	assert.Equal(t, "c1", *rec.RemoteCartHandle)
}

func TestFetchServerErrorIsNetwork(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, _, err := c.Fetch(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	srv.Close()

	err = c.Save(context.Background(), "u1", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestSaveSendsFullRecord(t *testing.T) {
	var body map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = w.Write([]byte(`{"userId":"u1","lines":[]}`))
	})

	handle := "c1"
	err := c.Save(context.Background(), "u1", []domain.CartLine{{VariantID: "v1", Quantity: 2}}, &handle)
	require.NoError(t, err)
	assert.Equal(t, "c1", body["remoteCartHandle"])
	assert.Len(t, body["lines"], 1)
}

func TestSaveEmptyCartSendsEmptyArray(t *testing.T) {
	var raw []byte
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	})
	require.NoError(t, c.Save(context.Background(), "u1", nil, nil))
	assert.JSONEq(t, `{"lines":[],"remoteCartHandle":null}`, string(raw))
}

func TestCheckoutErrorEnvelopeRoundTrip(t *testing.T) {
	cases := []struct {
		status int
		code   string
		kind   error
	}{
		{http.StatusBadRequest, "validation_failed", domain.ErrValidationFailed},
		{http.StatusPaymentRequired, "upstream_unavailable", domain.ErrUpstreamUnavailable},
		{http.StatusBadGateway, "integration_error", domain.ErrIntegration},
		{http.StatusServiceUnavailable, "network_error", domain.ErrNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"code": tc.code, "message": "shopper message"})
			})
			_, err := c.CreateCheckoutSession(context.Background(), []domain.LineRequest{{VariantID: "v1", Quantity: 1}})
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, "shopper message", domain.ErrorMessage(err))
		})
	}
}

func TestCheckoutSuccess(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/checkout", r.URL.Path)
		var req struct {
			Items []domain.LineRequest `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []domain.LineRequest{{VariantID: "v1", Quantity: 3}}, req.Items)
		_, _ = w.Write([]byte(`{"checkoutUrl":"https://shop.example.com/c","cartId":"c1"}`))
	})

	session, err := c.CreateCheckoutSession(context.Background(), []domain.LineRequest{{VariantID: "v1", Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/c", session.URL)
	assert.Equal(t, "c1", session.CartID)
}

func TestRateLimitedCheckoutIsNetwork(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":"rate_limit_exceeded"}`))
	})
	_, err := c.CreateCheckoutSession(context.Background(), []domain.LineRequest{{VariantID: "v1", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestProducts(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products":
			assert.Equal(t, "5", r.URL.Query().Get("first"))
			_, _ = w.Write([]byte(`{"products":[{"id":"p1","handle":"mattress"}]}`))
		case "/api/products/mattress":
			_, _ = w.Write([]byte(`{"id":"p1","handle":"mattress","variants":[{"id":"v1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"not_found"}`))
		}
	})

	list, err := c.Products(context.Background(), 5, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	p, err := c.ProductByHandle(context.Background(), "mattress")
	require.NoError(t, err)
	assert.Equal(t, "v1", p.Variants[0].ID)

	_, err = c.ProductByHandle(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
