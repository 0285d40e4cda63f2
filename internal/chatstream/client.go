// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat stream client.
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

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeServerStatus
	ErrTypeStreamRead
	ErrTypeTimeout
)

// ErrEmptyMessage is returned when the message is empty after trimming.
// Callers normally treat empty submissions as a no-op before reaching
// the client; this guards direct API use.
var ErrEmptyMessage = &ClientError{Type: ErrTypeUnknown, Message: "message is empty"}

// IsServerStatus reports whether err is a non-success response status.
func IsServerStatus(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrTypeServerStatus
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat stream client.
type ClientConfig struct {
	// BaseURL is the proxy base URL (default: http://127.0.0.1:8600)
	BaseURL string

	// StreamTimeout bounds the wait for response headers. The body read
	// itself has no deadline; a slow stream is cancelled via context.
	StreamTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       "http://127.0.0.1:8600",
		StreamTimeout: 10 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Request carries one chat submission. It is immutable once sent.
type Request struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

// TextFunc receives decoded text fragments in arrival order.
type TextFunc func(text string)

// Client consumes the proxy's plain-text streaming endpoint.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a client with the given configuration (nil for defaults).
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8600"
	}
	if config.StreamTimeout == 0 {
		config.StreamTimeout = 10 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: http.DefaultTransport,
			Timeout:   0, // streaming; header wait bounded via context
		},
	}
}

// BaseURL returns the configured proxy base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Stream sends one request and delivers decoded response text to callback
// as it arrives. It returns when the stream ends, classifying failures as
// connection, status, or read errors. Chunks are delivered sequentially
// from the calling goroutine, never reordered or dropped.
func (c *Client) Stream(ctx context.Context, req Request, callback TextFunc) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}

	body, err := json.Marshal(req)
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	// StreamTimeout bounds the wait for response headers only. The
	// request context stays live for the body read, so the timer is
	// stopped as soon as Do returns.
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	timer := time.AfterFunc(c.config.StreamTimeout, cancel)

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.config.BaseURL+"/chat/stream", bytes.NewReader(body))
	if err != nil {
		timer.Stop()
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	timer.Stop()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) ||
			(reqCtx.Err() != nil && ctx.Err() == nil) {
			return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeServerStatus,
			Message: "chat stream failed: " + statusDetail(resp),
		}
	}

	decoder := NewDecoder()
	chunk := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			if text := decoder.Write(chunk[:n]); text != "" {
				callback(text)
			}
		}
		if err == io.EOF {
			if text := decoder.Flush(); text != "" {
				callback(text)
			}
			return nil
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return &ClientError{Type: ErrTypeTimeout, Message: "stream interrupted", Cause: err}
			}
			return &ClientError{Type: ErrTypeStreamRead, Message: "stream read failed", Cause: err}
		}
	}
}

// statusDetail extracts the error detail from a non-success response,
// falling back to the status line. The proxy reports errors as
// {"detail": "..."} JSON.
func statusDetail(resp *http.Response) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return resp.Status
}
