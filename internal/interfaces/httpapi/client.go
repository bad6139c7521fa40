package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"pagesmith.dev/engine/internal/application/router"
)

// Client sends requests to a running engine server.
type Client struct {
	baseURL     string
	client      *http.Client
	maxResponse int64
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxResponse: maxResponseBytes,
	}
}

// Dispatch sends req and returns the server's response. Request failures
// reported by the server come back in Response.Error; the returned error is
// reserved for transport problems.
func (c *Client) Dispatch(ctx context.Context, req router.Request) (router.Response, error) {
	body, err := router.EncodeRequest(req)
	if err != nil {
		return router.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return router.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return router.Response{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
	if err != nil {
		return router.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > c.maxResponse {
		return router.Response{}, fmt.Errorf("response exceeds %d bytes", c.maxResponse)
	}

	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "application/json" {
		return router.Response{}, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out router.Response
	if err := json.Unmarshal(data, &out); err != nil {
		return router.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}
