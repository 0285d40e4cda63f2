// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"

	// anthropicVersion pins the wire format independently of the URL.
	anthropicVersion = "2023-06-01"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the upstream API.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes upstream errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeAPIKey
	ErrTypeConnection
	ErrTypeAPIStatus
	ErrTypeStreamRead
)

// ErrNoAPIKey is returned when no credential is configured.
var ErrNoAPIKey = &ClientError{Type: ErrTypeAPIKey, Message: "API key is not set"}

// =============================================================================
// CLIENT
// =============================================================================

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	// BaseURL is the API base (default: https://api.anthropic.com/v1)
	BaseURL string

	// APIKey authenticates requests via the x-api-key header.
	APIKey string

	// MaxTokens caps the response length (default: 1024)
	MaxTokens int

	// Timeout bounds buffered requests. Streaming requests ignore it
	// and rely on the caller's context.
	Timeout time.Duration
}

// Client talks to the Anthropic Messages API.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	streaming  *http.Client
}

// NewClient creates a client with the given configuration (nil for defaults).
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		streaming:  &http.Client{},
	}
}

// post sends one Messages API request and returns the open response.
// The caller owns resp.Body.
func (c *Client) post(ctx context.Context, client *http.Client, req messagesRequest) (*http.Response, error) {
	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &ClientError{
			Type:    ErrTypeAPIStatus,
			Message: "API error: " + statusDetail(resp),
		}
	}
	return resp, nil
}

// Complete sends a buffered (non-streaming) request for a single user
// message and returns the concatenated text content with token usage.
func (c *Client) Complete(ctx context.Context, model, message string) (*Completion, error) {
	resp, err := c.post(ctx, c.httpClient, messagesRequest{
		Model:     model,
		MaxTokens: c.config.MaxTokens,
		Messages:  []Message{{Role: "user", Content: message}},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ClientError{Type: ErrTypeStreamRead, Message: "failed to decode response", Cause: err}
	}

	var text bytes.Buffer
	for _, block := range payload.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Completion{
		Text: text.String(),
		Usage: Usage{
			InputTokens:  payload.Usage.InputTokens,
			OutputTokens: payload.Usage.OutputTokens,
		},
	}, nil
}

// IsAPIStatus reports whether err is an upstream non-success status.
func IsAPIStatus(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrTypeAPIStatus
}

// statusDetail extracts the error message from a non-success response,
// falling back to the status line.
func statusDetail(resp *http.Response) string {
	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return resp.Status
}
