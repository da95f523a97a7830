// Package apiclient is the device-side client of the cart API. It implements
// the remote cart gateway used by the synchronizer and the checkout gateway
// used by the cart store.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"somnicart/internal/domain"
)

const maxErrorBody = 64 << 10

type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the API rooted at baseURL. A nil httpClient gets a
// 10s timeout; callers bound individual calls with their context.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q is not absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: httpClient}, nil
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Fetch reports found=false when the backend answers with a not_found
// envelope for userID.
func (c *Client) Fetch(ctx context.Context, userID string) (domain.RemoteCartRecord, bool, error) {
	var rec domain.RemoteCartRecord
	err := c.do(ctx, http.MethodGet, c.cartPath(userID), nil, &rec)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RemoteCartRecord{}, false, nil
	}
	if err != nil {
		return domain.RemoteCartRecord{}, false, err
	}
	rec.Lines = domain.CloneLines(rec.Lines)
	return rec, true, nil
}

// Save replaces userID's record with lines and handle.
func (c *Client) Save(ctx context.Context, userID string, lines []domain.CartLine, handle *string) error {
	body := struct {
		Lines            []domain.CartLine `json:"lines"`
		RemoteCartHandle *string           `json:"remoteCartHandle"`
	}{Lines: domain.CloneLines(lines), RemoteCartHandle: handle}
	return c.do(ctx, http.MethodPut, c.cartPath(userID), body, nil)
}

func (c *Client) CreateCheckoutSession(ctx context.Context, lines []domain.LineRequest) (domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	body := struct {
		Items []domain.LineRequest `json:"items"`
	}{Items: lines}
	if err := c.do(ctx, http.MethodPost, "/api/checkout", body, &session); err != nil {
		return domain.CheckoutSession{}, err
	}
	return session, nil
}

func (c *Client) Products(ctx context.Context, first int, query string) ([]domain.Product, error) {
	q := url.Values{}
	if first > 0 {
		q.Set("first", strconv.Itoa(first))
	}
	if query != "" {
		q.Set("query", query)
	}
	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) ProductByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(handle), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) cartPath(userID string) string {
	return "/api/carts/" + url.PathEscape(userID)
}

// do sends one request. Transport failures map to ErrNetwork; error envelopes
// are decoded back into the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewCheckoutError(domain.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewCheckoutError(domain.ErrIntegration, "undecodable api response")
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if kind := domain.ErrorFromCode(env.Code); kind != nil {
			return domain.NewCheckoutError(kind, env.Message)
		}
	}
	// Only the envelope says not_found: a bare 404 means the route itself is
	// missing, which is a misconfigured base URL rather than an absent record.
	msg := fmt.Sprintf("api status %d", resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return domain.NewCheckoutError(domain.ErrUpstreamUnavailable, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return domain.NewCheckoutError(domain.ErrValidationFailed, msg)
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewCheckoutError(domain.ErrNetwork, msg)
	default:
		return domain.NewCheckoutError(domain.ErrIntegration, msg)
	}
}
