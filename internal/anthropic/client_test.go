// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// sseHandler replays a canned Messages API event stream.
func sseHandler(t *testing.T, events []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !req.Stream {
			t.Error("expected stream=true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, ev := range events {
			w.Write([]byte(ev))
			flusher.Flush()
		}
	}
}

func TestStreamDeltasAndUsage(t *testing.T) {
	events := []string{
		"event: message_start\n" +
			`data: {"type":"message_start","message":{"usage":{"input_tokens":12,"output_tokens":1}}}` + "\n\n",
		"event: content_block_start\n" +
			`data: {"type":"content_block_start","index":0}` + "\n\n",
		"event: content_block_delta\n" +
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}` + "\n\n",
		"event: ping\n" + `data: {"type":"ping"}` + "\n\n",
		"event: content_block_delta\n" +
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":", world"}}` + "\n\n",
		"event: content_block_stop\n" +
			`data: {"type":"content_block_stop","index":0}` + "\n\n",
		"event: message_delta\n" +
			`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":7}}` + "\n\n",
		"event: message_stop\n" + `data: {"type":"message_stop"}` + "\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, events))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "test-key"})

	var got strings.Builder
	usage, err := client.Stream(context.Background(), "claude-haiku-4-5-20251001", "hi", func(delta string) {
		got.WriteString(delta)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if got.String() != "Hello, world" {
		t.Errorf("text = %q, want %q", got.String(), "Hello, world")
	}
	if usage.InputTokens != 12 || usage.OutputTokens != 7 {
		t.Errorf("usage = %+v, want 12/7", usage)
	}
}

func TestStreamErrorEvent(t *testing.T) {
	events := []string{
		"event: error\n" +
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}` + "\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, events))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "test-key"})
	_, err := client.Stream(context.Background(), "m", "hi", func(string) {})
	if !IsAPIStatus(err) {
		t.Fatalf("expected API status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Overloaded") {
		t.Errorf("error should carry upstream message: %v", err)
	}
}

func TestStreamMissingAPIKey(t *testing.T) {
	client := NewClient(&ClientConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Stream(context.Background(), "m", "hi", func(string) {
		t.Error("no deltas expected")
	})
	if err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestStreamNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]string{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "bad"})
	_, err := client.Stream(context.Background(), "m", "hi", func(string) {})
	if !IsAPIStatus(err) || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Stream {
			t.Error("expected buffered request")
		}
		if req.MaxTokens <= 0 {
			t.Error("max_tokens must be set")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "Buffered "},
				{"type": "text", "text": "answer"},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 4, "output_tokens": 9},
		})
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, APIKey: "test-key"})
	completion, err := client.Complete(context.Background(), "claude-sonnet-4-6", "hi")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completion.Text != "Buffered answer" {
		t.Errorf("Text = %q", completion.Text)
	}
	if completion.Usage.InputTokens != 4 || completion.Usage.OutputTokens != 9 {
		t.Errorf("Usage = %+v", completion.Usage)
	}
}
