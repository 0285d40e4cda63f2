// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thomasmphan/inference-proxy/internal/config"
	"github.com/thomasmphan/inference-proxy/internal/pricing"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeUpstream imitates the Messages API: SSE for streaming requests,
// JSON for buffered ones. Responses echo a fixed completion.
func fakeUpstream(t *testing.T, text string, inputTokens, outputTokens int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad upstream request: %v", err)
		}

		if !req.Stream {
			json.NewEncoder(w).Encode(map[string]any{
				"content":     []map[string]string{{"type": "text", "text": text}},
				"stop_reason": "end_turn",
				"usage":       map[string]int{"input_tokens": inputTokens, "output_tokens": outputTokens},
			})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "event: message_start\ndata: %s\n\n",
			fmt.Sprintf(`{"type":"message_start","message":{"usage":{"input_tokens":%d,"output_tokens":1}}}`, inputTokens))
		// Emit the completion in two deltas to exercise flushing.
		half := len(text) / 2
		for _, piece := range []string{text[:half], text[half:]} {
			data, _ := json.Marshal(map[string]any{
				"type":  "content_block_delta",
				"delta": map[string]string{"type": "text_delta", "text": piece},
			})
			fmt.Fprintf(w, "event: content_block_delta\ndata: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprintf(w, "event: message_delta\ndata: %s\n\n",
			fmt.Sprintf(`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":%d}}`, outputTokens))
		fmt.Fprintf(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
		flusher.Flush()
	}))
}

// newTestProxy builds a proxy wired to the given upstream URL.
func newTestProxy(t *testing.T, upstreamURL string, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	t.Setenv("PROXY_TEST_KEY", "sk-test")

	cfg := config.Default()
	cfg.Upstream.BaseURL = upstreamURL
	cfg.Upstream.APIKeyEnv = "PROXY_TEST_KEY"
	if mutate != nil {
		mutate(cfg)
	}

	srv := httptest.NewServer(NewServer(cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, url, path, message, model string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(ChatRequest{Message: message, Model: model})
	resp, err := http.Post(url+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func detailOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("response is not a detail payload: %v", err)
	}
	return payload.Detail
}

// =============================================================================
// STREAMING ENDPOINT TESTS
// =============================================================================

func TestChatStreamBodyAndTrailer(t *testing.T) {
	upstream := fakeUpstream(t, "Hello, world", 12, 7)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	resp := postChat(t, proxy.URL, "/chat/stream", "hi", "haiku")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS on the first request", got)
	}

	raw, _ := io.ReadAll(resp.Body)
	body, trailer, found := strings.Cut(string(raw), "\n\n")
	if !found {
		t.Fatalf("no cost trailer in response: %q", raw)
	}
	if body != "Hello, world" {
		t.Errorf("body = %q, want %q", body, "Hello, world")
	}

	summary, ok := pricing.ParseSummary(trailer)
	if !ok {
		t.Fatalf("trailer does not parse as a usage summary: %q", trailer)
	}
	if summary.InputTokens != 12 || summary.OutputTokens != 7 {
		t.Errorf("summary = %+v, want 12/7", summary)
	}
}

func TestChatStreamCacheHitReplaysBodyOnly(t *testing.T) {
	upstream := fakeUpstream(t, "cached answer", 3, 5)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	first := postChat(t, proxy.URL, "/chat/stream", "same question", "haiku")
	io.ReadAll(first.Body)
	first.Body.Close()

	second := postChat(t, proxy.URL, "/chat/stream", "same question", "haiku")
	defer second.Body.Close()

	if second.Header.Get("X-Cache") != "HIT" {
		t.Error("expected X-Cache: HIT on the second identical request")
	}
	raw, _ := io.ReadAll(second.Body)
	if string(raw) != "cached answer" {
		t.Errorf("cache hit body = %q, want body without trailer", raw)
	}
}

func TestChatStreamUnknownModel(t *testing.T) {
	upstream := fakeUpstream(t, "x", 1, 1)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	resp := postChat(t, proxy.URL, "/chat/stream", "hi", "gpt-4")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	detail := detailOf(t, resp)
	if !strings.Contains(detail, "Unknown model 'gpt-4'") {
		t.Errorf("detail = %q", detail)
	}
	if !strings.Contains(detail, "haiku") {
		t.Errorf("detail should list valid aliases: %q", detail)
	}
}

func TestChatStreamEmptyMessage(t *testing.T) {
	upstream := fakeUpstream(t, "x", 1, 1)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	resp := postChat(t, proxy.URL, "/chat/stream", "   ", "haiku")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatStreamUpstreamDown(t *testing.T) {
	proxy := newTestProxy(t, "http://127.0.0.1:1", nil)

	resp := postChat(t, proxy.URL, "/chat/stream", "hi", "haiku")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if detail := detailOf(t, resp); detail != "Upstream API error" {
		t.Errorf("detail = %q", detail)
	}
}

// =============================================================================
// BUFFERED ENDPOINT TESTS
// =============================================================================

func TestChatBufferedAndCached(t *testing.T) {
	upstream := fakeUpstream(t, "Buffered answer", 4, 9)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	resp := postChat(t, proxy.URL, "/chat", "question", "sonnet")
	defer resp.Body.Close()

	var payload ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if payload.Response != "Buffered answer" || payload.Cached {
		t.Errorf("unexpected response: %+v", payload)
	}
	if payload.Usage.InputTokens != 4 || payload.Usage.OutputTokens != 9 {
		t.Errorf("unexpected usage: %+v", payload)
	}
	if payload.Model != "sonnet" {
		t.Errorf("Model = %q, want the requested alias", payload.Model)
	}

	second := postChat(t, proxy.URL, "/chat", "question", "sonnet")
	defer second.Body.Close()

	var cached ChatResponse
	json.NewDecoder(second.Body).Decode(&cached)
	if !cached.Cached {
		t.Error("second identical request should be served from cache")
	}
	if cached.Response != payload.Response {
		t.Errorf("cached body mismatch: %q", cached.Response)
	}
}

func TestChatResponseWireFormat(t *testing.T) {
	upstream := fakeUpstream(t, "answer", 4, 9)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	resp := postChat(t, proxy.URL, "/chat", "question", "")
	defer resp.Body.Close()

	// Token counts live in a nested usage object and the cost field
	// carries the _usd suffix.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	for _, field := range []string{"response", "model", "usage", "estimated_cost_usd", "cached"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing field %q in %v", field, raw)
		}
	}
	for _, field := range []string{"input_tokens", "output_tokens", "estimated_cost"} {
		if _, ok := raw[field]; ok {
			t.Errorf("unexpected top-level field %q", field)
		}
	}

	var usage ChatUsage
	if err := json.Unmarshal(raw["usage"], &usage); err != nil {
		t.Fatalf("bad usage object: %v", err)
	}
	if usage.InputTokens != 4 || usage.OutputTokens != 9 {
		t.Errorf("usage = %+v", usage)
	}

	// An omitted model field falls back to the default alias, and the
	// alias, not the resolved ID, is echoed.
	var model string
	json.Unmarshal(raw["model"], &model)
	if model != "haiku" {
		t.Errorf("model = %q, want haiku", model)
	}
}

// =============================================================================
// METADATA ENDPOINT TESTS
// =============================================================================

func TestModelsEndpoint(t *testing.T) {
	upstream := fakeUpstream(t, "x", 1, 1)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	resp, err := http.Get(proxy.URL + "/models")
	if err != nil {
		t.Fatalf("GET /models failed: %v", err)
	}
	defer resp.Body.Close()

	// The models element type is a plain alias string.
	var payload struct {
		Models  []string `json:"models"`
		Default string   `json:"default"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if payload.Default != "haiku" {
		t.Errorf("Default = %q", payload.Default)
	}
	if len(payload.Models) != 2 || payload.Models[0] != "haiku" || payload.Models[1] != "sonnet" {
		t.Errorf("Models = %v, want [haiku sonnet]", payload.Models)
	}
}

func TestHealthEndpoint(t *testing.T) {
	upstream := fakeUpstream(t, "x", 1, 1)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	resp, err := http.Get(proxy.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if health.Status != "ok" || !health.UpstreamConfigured {
		t.Errorf("unexpected health: %+v", health)
	}
	if !health.CacheEnabled {
		t.Error("cache should be enabled by default")
	}
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestBearerAuth(t *testing.T) {
	upstream := fakeUpstream(t, "x", 1, 1)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, func(cfg *config.Config) {
		cfg.Server.AuthToken = "secret-token"
	})

	resp, err := http.Get(proxy.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, proxy.URL+"/health", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", resp.StatusCode)
	}
}

func TestBearerAuthHashed(t *testing.T) {
	hash, err := HashToken("hunter2")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}

	cfg := &AuthConfig{TokenHash: hash}
	if !cfg.ValidateBearerToken("hunter2") {
		t.Error("correct token rejected")
	}
	if cfg.ValidateBearerToken("wrong") {
		t.Error("wrong token accepted")
	}
	if cfg.ValidateBearerToken("") {
		t.Error("empty token accepted")
	}
}

func TestRateLimit(t *testing.T) {
	upstream := fakeUpstream(t, "x", 1, 1)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, func(cfg *config.Config) {
		cfg.Server.RateLimitPerSec = 0.001
		cfg.Server.RateBurst = 1
	})

	first, err := http.Get(proxy.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first request: status = %d", first.StatusCode)
	}

	second, err := http.Get(proxy.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", second.StatusCode)
	}
}

func TestCacheClear(t *testing.T) {
	upstream := fakeUpstream(t, "answer", 1, 1)
	defer upstream.Close()
	proxy := newTestProxy(t, upstream.URL, nil)

	warm := postChat(t, proxy.URL, "/chat", "q", "haiku")
	io.ReadAll(warm.Body)
	warm.Body.Close()

	resp, err := http.Post(proxy.URL+"/cache/clear", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /cache/clear failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	after := postChat(t, proxy.URL, "/chat", "q", "haiku")
	defer after.Body.Close()
	var payload ChatResponse
	json.NewDecoder(after.Body).Decode(&payload)
	if payload.Cached {
		t.Error("request after clear should not be a cache hit")
	}
}
