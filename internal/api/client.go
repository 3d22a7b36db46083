package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wgwatch/internal/model"
)

// Client is a thin HTTP client for a running wgwatch instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g. http://host:port).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Report fetches the latest report. A placeholder report served with 503 is
// returned as is, so callers can render it.
func (c *Client) Report(ctx context.Context) (model.Report, error) {
	var resp model.Report
	if err := c.getJSON(ctx, ReportPath, &resp, http.StatusServiceUnavailable); err != nil {
		return resp, err
	}
	return resp, nil
}

// Peer fetches one peer of the latest report by public key.
func (c *Client) Peer(ctx context.Context, publicKey string) (PeerResponse, error) {
	var resp PeerResponse
	if err := c.getJSON(ctx, PeerPath+url.PathEscape(publicKey), &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Health fetches the failure streak. An unhealthy instance is not an error.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	if err := c.getJSON(ctx, HealthPath, &resp, http.StatusServiceUnavailable); err != nil {
		return resp, err
	}
	return resp, nil
}

// getJSON decodes 2xx bodies and bodies of the extra accepted statuses.
func (c *Client) getJSON(ctx context.Context, path string, out any, accept ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if (res.StatusCode < 200 || res.StatusCode >= 300) && !accepted(res.StatusCode, accept) {
		body, _ := io.ReadAll(res.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	decoder := json.NewDecoder(res.Body)
	return decoder.Decode(out)
}

func accepted(code int, accept []int) bool {
	for _, a := range accept {
		if a == code {
			return true
		}
	}
	return false
}
