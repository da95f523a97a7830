package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"somnicart/internal/domain"
)

const billingMessage = "Shopify API access requires an active Shopify billing plan."

// Config describes how to reach the Storefront API.
type Config struct {
	Domain      string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	// Endpoint overrides the URL derived from Domain and APIVersion.
	Endpoint string
}

// LatencyRecorder observes Storefront call latency.
type LatencyRecorder interface {
	RecordStorefrontLatency(d time.Duration)
}

// Client talks to the commerce backend's Storefront GraphQL API.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	latency  LatencyRecorder
}

func New(cfg Config, httpClient *http.Client, latency LatencyRecorder) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", cfg.Domain, cfg.APIVersion)
	}
	return &Client{endpoint: endpoint, token: cfg.AccessToken, http: httpClient, latency: latency}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do posts a GraphQL document and decodes data into out. HTTP 402 maps to
// ErrUpstreamUnavailable, transport failures and 5xx to ErrNetwork, GraphQL
// errors and undecodable bodies to ErrIntegration.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if vars == nil {
		vars = map[string]any{}
	}
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode storefront request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build storefront request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.latency != nil {
		c.latency.RecordStorefrontLatency(time.Since(start))
	}
	if err != nil {
		return domain.NewCheckoutError(domain.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return domain.NewCheckoutError(domain.ErrUpstreamUnavailable, billingMessage)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewCheckoutError(domain.ErrNetwork, fmt.Sprintf("storefront status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.NewCheckoutError(domain.ErrIntegration, fmt.Sprintf("storefront status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewCheckoutError(domain.ErrNetwork, err.Error())
	}
	var gr graphQLResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return domain.NewCheckoutError(domain.ErrIntegration, "undecodable storefront response")
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return domain.NewCheckoutError(domain.ErrIntegration, "Error calling Shopify: "+strings.Join(msgs, ", "))
	}
	if out == nil {
		return nil
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return domain.NewCheckoutError(domain.ErrIntegration, "empty storefront response")
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return domain.NewCheckoutError(domain.ErrIntegration, "unexpected storefront payload")
	}
	return nil
}
