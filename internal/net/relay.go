package net

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"

	"FormulaBoard/internal/errs"
)

// CopyRequest is the body of POST /copy.
type CopyRequest struct {
	Latex *string `json:"latex"`
}

// CopyResponse is every answer of the relay listener.
type CopyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RelayClient pushes recognized text to a relay listener.
type RelayClient struct {
	httpClient *http.Client
}

func NewRelayClient(httpClient *http.Client) *RelayClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RelayClient{httpClient: httpClient}
}

// RelayURL is http://host:port/copy.
func RelayURL(host, port string) string {
	return "http://" + net.JoinHostPort(host, port) + "/copy"
}

// Push sends latex once. A non-2xx answer is an *errs.RemoteError, a failed
// call an *errs.TransportError.
func (c *RelayClient) Push(ctx context.Context, host, port, latex string) error {
	url := RelayURL(host, port)
	body, err := json.Marshal(CopyRequest{Latex: &latex})
	if err != nil {
		return fmt.Errorf("failed to marshal relay request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &errs.TransportError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errs.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		var out CopyResponse
		if json.Unmarshal(raw, &out) == nil && out.Message != "" {
			msg = out.Message
		}
		return &errs.RemoteError{Status: resp.StatusCode, Message: msg}
	}
	log.Printf("[RELAY] Pushed %d chars to %s", len(latex), url)
	return nil
}
