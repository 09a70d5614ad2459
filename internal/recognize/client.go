package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"FormulaBoard/internal/errs"
)

// Image is the part of a capture the client needs.
type Image interface {
	DataURI() string
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client using httpClient, or http.DefaultClient when nil.
// No timeout is added; the transport's own limits apply.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// Validate reports the first blank required field.
func (cfg Config) Validate() error {
	switch {
	case strings.TrimSpace(cfg.APIKey) == "":
		return &errs.ConfigMissingError{Field: "api_key"}
	case strings.TrimSpace(cfg.Endpoint) == "":
		return &errs.ConfigMissingError{Field: "endpoint"}
	case strings.TrimSpace(cfg.Model) == "":
		return &errs.ConfigMissingError{Field: "model"}
	}
	return nil
}

// Recognize sends the image with the configured instruction and returns the
// model's text exactly as received.
func (c *Client) Recognize(ctx context.Context, img Image, cfg Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	start := time.Now()

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: &cfg.Instruction},
				{Type: "image_url", ImageURL: &imageURL{URL: img.DataURI(), Detail: "high"}},
			},
		}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", &errs.TransportError{URL: cfg.Endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &errs.TransportError{URL: cfg.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errs.TransportError{URL: cfg.Endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "unknown error"
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		log.Printf("[RECOGNIZE] %s answered %d after %v", cfg.Endpoint, resp.StatusCode, time.Since(start).Round(time.Millisecond))
		return "", &errs.RemoteError{Status: resp.StatusCode, Message: msg}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &errs.MalformedResponseError{Reason: "response is not JSON", Err: err}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", &errs.MalformedResponseError{Reason: "no content at choices[0].message.content"}
	}

	content := out.Choices[0].Message.Content
	log.Printf("[RECOGNIZE] Received %d chars from %s in %v", len(content), cfg.Model, time.Since(start).Round(time.Millisecond))
	return content, nil
}
