// Package gate owns the remote activation-permission check.
//
// Ownership boundary:
// - yes/no gate contract consumed once per boot
// - HTTP client against the configured gate endpoint
//
// Failure handling is fail-closed: callers treat any error as a denial.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Validator answers whether activation is currently permitted remotely.
type Validator interface {
	Validate(ctx context.Context) (bool, error)
}

// Client queries a gate service over HTTP.
type Client struct {
	BaseURL    string
	GateKey    string
	HTTPClient *http.Client
}

// NewClient builds a gate client with a request timeout.
func NewClient(baseURL, gateKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		GateKey:    gateKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Validate asks the gate whether activation may proceed. Any transport,
// decode, or non-2xx outcome surfaces as an error the caller must treat
// as denial.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	u := fmt.Sprintf("%s/gates/%s/status", c.BaseURL, url.PathEscape(c.GateKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("gate: http %d", resp.StatusCode)
	}
	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Status == "allowed", nil
}
