// Package resolver owns the identity-provider network contract.
//
// Ownership boundary:
// - attribution snapshot fetch per device
// - attribution payload -> endpoint resolution
//
// Caching, fallback, and expiry policy live with the orchestrator; this
// package only performs the request/response calls.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davren/igniter/internal/attribution"
)

// Provider is the narrow identity/attribution contract the orchestrator
// consumes. Both calls are single attempts; a fresh attempt only occurs
// on the next full boot.
type Provider interface {
	Attribution(ctx context.Context, deviceID string) (attribution.Map, error)
	ResolveEndpoint(ctx context.Context, payload attribution.Map) (string, error)
}

// Client talks to the identity provider over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a provider client with a request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type attributionResponse struct {
	Attribution attribution.Map `json:"attribution"`
}

type resolveResponse struct {
	Endpoint string `json:"endpoint"`
}

// Attribution fetches the provider's attribution snapshot for a device.
func (c *Client) Attribution(ctx context.Context, deviceID string) (attribution.Map, error) {
	q := url.Values{}
	q.Set("device_id", deviceID)
	u := fmt.Sprintf("%s/v1/attribution?%s", c.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	out, err := doJSON[attributionResponse](c, req)
	if err != nil {
		return nil, err
	}
	return out.Attribution, nil
}

// ResolveEndpoint turns a consolidated attribution payload into the
// target endpoint.
func (c *Client) ResolveEndpoint(ctx context.Context, payload attribution.Map) (string, error) {
	body, err := json.Marshal(map[string]any{"attribution": payload})
	if err != nil {
		return "", err
	}
	u := c.BaseURL + "/v1/resolve"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	out, err := doJSON[resolveResponse](c, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Endpoint) == "" {
		return "", fmt.Errorf("resolver: empty endpoint in response")
	}
	return out.Endpoint, nil
}

func doJSON[T any](c *Client, req *http.Request) (*T, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("resolver: http %d: %v", resp.StatusCode, errBody)
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
