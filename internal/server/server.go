// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP proxy in front of the Anthropic API.
//
// Endpoints:
//   - POST /chat/stream - Stream a chat response as plain text with a cost trailer
//   - POST /chat        - Buffered chat response as JSON
//   - GET  /models      - List model aliases and their resolved IDs
//   - GET  /health      - Health check
//   - GET  /stats       - Usage statistics
//   - POST /cache/clear - Clear the response cache
//
// Streamed responses end with a usage summary separated from the body by a
// blank line: "\n\n[input tokens: N, output tokens: N, estimated cost: $C]".
// Cache hits replay the body only, with X-Cache: HIT and no trailer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thomasmphan/inference-proxy/internal/anthropic"
	"github.com/thomasmphan/inference-proxy/internal/cache"
	"github.com/thomasmphan/inference-proxy/internal/config"
	"github.com/thomasmphan/inference-proxy/internal/pricing"
	"github.com/thomasmphan/inference-proxy/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxMessageLength is the maximum message length to prevent abuse.
	MaxMessageLength = 100000

	// Version is the server version.
	Version = "0.3.0"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks server usage statistics.
type ServerStats struct {
	TotalRequests   int64
	CacheHits       int64
	UpstreamErrors  int64
	StartTime       time.Time
	totalCostMicros int64 // Cost in millionths of a dollar, for atomic adds
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// RecordRequest records a completed request.
func (s *ServerStats) RecordRequest(cached bool, costUSD float64) {
	atomic.AddInt64(&s.TotalRequests, 1)
	if cached {
		atomic.AddInt64(&s.CacheHits, 1)
	}
	atomic.AddInt64(&s.totalCostMicros, int64(costUSD*1e6))
}

// RecordUpstreamError records a failed upstream call.
func (s *ServerStats) RecordUpstreamError() {
	atomic.AddInt64(&s.UpstreamErrors, 1)
}

// TotalCostUSD returns the accumulated cost in dollars.
func (s *ServerStats) TotalCostUSD() float64 {
	return float64(atomic.LoadInt64(&s.totalCostMicros)) / 1e6
}

// Uptime returns the server uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP proxy server.
type Server struct {
	cfg    *config.Config
	router *http.ServeMux
	server *http.Server

	upstream *anthropic.Client
	pricing  *pricing.Table
	cache    *cache.ResponseCache
	usage    *telemetry.Store
	stats    *ServerStats

	mu sync.RWMutex
}

// NewServer creates a proxy server from the given configuration.
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:    cfg,
		router: http.NewServeMux(),
		upstream: anthropic.NewClient(&anthropic.ClientConfig{
			BaseURL:   cfg.Upstream.BaseURL,
			APIKey:    cfg.APIKey(),
			MaxTokens: cfg.Upstream.MaxTokens,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSecs) * time.Second,
		}),
		pricing: pricing.NewTable(),
		stats:   NewServerStats(),
	}
	if cfg.Cache.Enabled {
		s.cache = cache.New(cfg.Cache.MaxEntries)
	}

	s.setupRoutes()
	return s
}

// WithUpstream sets a custom upstream client.
func (s *Server) WithUpstream(client *anthropic.Client) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upstream = client
	return s
}

// WithPricing sets a custom pricing table.
func (s *Server) WithPricing(table *pricing.Table) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pricing = table
	return s
}

// WithTelemetry sets the usage store. Nil disables recording.
func (s *Server) WithTelemetry(store *telemetry.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = store
	return s
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /chat/stream", s.handleChatStream)
	s.router.HandleFunc("POST /chat", s.handleChat)
	s.router.HandleFunc("GET /models", s.handleModels)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
	s.router.HandleFunc("POST /cache/clear", s.handleCacheClear)
}

// ============================================================================
// REQUEST TYPES
// ============================================================================

// ChatRequest is one chat submission.
type ChatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

// ChatUsage is the token usage block of a buffered response.
type ChatUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResponse is the buffered /chat response. Model echoes the
// requested alias, not the resolved model ID.
type ChatResponse struct {
	Response         string    `json:"response"`
	Model            string    `json:"model"`
	Usage            ChatUsage `json:"usage"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd"`
	Cached           bool      `json:"cached"`
}

// parseChatRequest decodes and validates the request body. On failure it
// has already written the error response and returns false.
func (s *Server) parseChatRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			s.writeDetail(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", s.cfg.Server.MaxBodyBytes))
			return req, "", false
		}
		log.Printf("BAD_REQUEST | error=%v", err)
		s.writeDetail(w, http.StatusBadRequest, "Invalid request format")
		return req, "", false
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeDetail(w, http.StatusBadRequest, "Message must not be empty")
		return req, "", false
	}
	if len(req.Message) > MaxMessageLength {
		s.writeDetail(w, http.StatusBadRequest,
			fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return req, "", false
	}

	model := req.Model
	if model == "" {
		model = s.cfg.DefaultModel
	}
	modelID, ok := s.pricing.Resolve(model)
	if !ok {
		s.writeDetail(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown model '%s'. Valid options: %s", model, strings.Join(s.pricing.Aliases(), ", ")))
		return req, "", false
	}
	// Responses echo the alias, so keep the defaulted value.
	req.Model = model
	return req, modelID, true
}

// ============================================================================
// STREAMING CHAT HANDLER
// ============================================================================

// handleChatStream handles POST /chat/stream. The response body is plain
// text: the model output streamed as it arrives, then a blank line and the
// usage summary. Cache hits replay the stored body without a summary.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, modelID, ok := s.parseChatRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeDetail(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	start := time.Now()

	// Cache hit: replay the body only. The stored response cost nothing
	// to serve, so no usage summary is appended.
	if entry, hit := s.lookupCache(req.Message, modelID); hit {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Cache", "HIT")
		fmt.Fprint(w, entry.Body)
		flusher.Flush()

		s.finishRequest(r.Context(), req, modelID, entry.Body, anthropic.Usage{}, 0, true, time.Since(start))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("X-Accel-Buffering", "no")

	var body strings.Builder
	wrote := false
	usage, err := s.upstream.Stream(r.Context(), modelID, req.Message, func(delta string) {
		body.WriteString(delta)
		fmt.Fprint(w, delta)
		flusher.Flush()
		wrote = true
	})
	if err != nil {
		s.stats.RecordUpstreamError()
		log.Printf("UPSTREAM_ERROR | model=%s error=%v", modelID, err)
		if !wrote {
			s.writeDetail(w, http.StatusServiceUnavailable, "Upstream API error")
		}
		// Headers are gone once the body started; the truncated stream
		// is all the client gets.
		return
	}

	cost := s.pricing.EstimateCost(modelID, usage.InputTokens, usage.OutputTokens)
	fmt.Fprint(w, "\n\n"+pricing.FormatSummary(usage.InputTokens, usage.OutputTokens, cost))
	flusher.Flush()

	s.storeCache(req.Message, modelID, body.String(), usage, cost)
	s.finishRequest(r.Context(), req, modelID, body.String(), usage, cost, false, time.Since(start))
}

// ============================================================================
// BUFFERED CHAT HANDLER
// ============================================================================

// handleChat handles POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, modelID, ok := s.parseChatRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()

	if entry, hit := s.lookupCache(req.Message, modelID); hit {
		w.Header().Set("X-Cache", "HIT")
		s.writeJSON(w, http.StatusOK, ChatResponse{
			Response: entry.Body,
			Model:    req.Model,
			Usage: ChatUsage{
				InputTokens:  entry.InputTokens,
				OutputTokens: entry.OutputTokens,
			},
			EstimatedCostUSD: entry.CostUSD,
			Cached:           true,
		})
		s.finishRequest(r.Context(), req, modelID, entry.Body, anthropic.Usage{}, 0, true, time.Since(start))
		return
	}

	completion, err := s.upstream.Complete(r.Context(), modelID, req.Message)
	if err != nil {
		s.stats.RecordUpstreamError()
		log.Printf("UPSTREAM_ERROR | model=%s error=%v", modelID, err)
		s.writeDetail(w, http.StatusServiceUnavailable, "Upstream API error")
		return
	}

	cost := s.pricing.EstimateCost(modelID, completion.Usage.InputTokens, completion.Usage.OutputTokens)
	s.writeJSON(w, http.StatusOK, ChatResponse{
		Response: completion.Text,
		Model:    req.Model,
		Usage: ChatUsage{
			InputTokens:  completion.Usage.InputTokens,
			OutputTokens: completion.Usage.OutputTokens,
		},
		EstimatedCostUSD: cost,
		Cached:           false,
	})

	s.storeCache(req.Message, modelID, completion.Text, completion.Usage, cost)
	s.finishRequest(r.Context(), req, modelID, completion.Text, completion.Usage, cost, false, time.Since(start))
}

// ============================================================================
// CACHE AND TELEMETRY PLUMBING
// ============================================================================

func (s *Server) lookupCache(message, modelID string) (*cache.Entry, bool) {
	s.mu.RLock()
	rc := s.cache
	s.mu.RUnlock()
	if rc == nil {
		return nil, false
	}
	entry, hit := rc.Get(message, modelID)
	if hit {
		log.Printf("CACHE_HIT | model=%s", modelID)
	}
	return entry, hit
}

func (s *Server) storeCache(message, modelID, body string, usage anthropic.Usage, cost float64) {
	s.mu.RLock()
	rc := s.cache
	s.mu.RUnlock()
	if rc == nil || body == "" {
		return
	}
	rc.Put(message, modelID, body, usage.InputTokens, usage.OutputTokens, cost)
}

// finishRequest records stats and telemetry for a completed request.
func (s *Server) finishRequest(ctx context.Context, req ChatRequest, modelID, body string, usage anthropic.Usage, cost float64, cached bool, elapsed time.Duration) {
	s.stats.RecordRequest(cached, cost)
	log.Printf("REQUEST_COMPLETE | model=%s cached=%t in=%d out=%d cost=$%.6f latency=%dms",
		modelID, cached, usage.InputTokens, usage.OutputTokens, cost, elapsed.Milliseconds())

	s.mu.RLock()
	store := s.usage
	s.mu.RUnlock()
	if store == nil {
		return
	}
	err := store.Record(context.WithoutCancel(ctx), telemetry.Record{
		Model:        modelID,
		Prompt:       req.Message,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      cost,
		Cached:       cached,
		Duration:     elapsed,
	})
	if err != nil {
		log.Printf("TELEMETRY_ERROR | error=%v", err)
	}
}

// ============================================================================
// MODELS HANDLER
// ============================================================================

// ModelsResponse is the /models response. Models is the list of
// selectable aliases; clients resolve rates and IDs locally.
type ModelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// handleModels handles GET /models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ModelsResponse{
		Models:  s.pricing.Aliases(),
		Default: s.cfg.DefaultModel,
	})
}

// ============================================================================
// HEALTH AND STATS HANDLERS
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status             string  `json:"status"`
	Version            string  `json:"version"`
	UpstreamConfigured bool    `json:"upstream_configured"`
	CacheEnabled       bool    `json:"cache_enabled"`
	CacheEntries       int     `json:"cache_entries"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:             "ok",
		Version:            Version,
		UpstreamConfigured: s.cfg.APIKey() != "",
	}
	if !health.UpstreamConfigured {
		health.Status = "degraded"
	}

	s.mu.RLock()
	rc := s.cache
	s.mu.RUnlock()
	if rc != nil {
		stats := rc.Stats()
		health.CacheEnabled = true
		health.CacheEntries = stats.EntryCount
		health.CacheHitRate = stats.HitRate
	}

	s.writeJSON(w, http.StatusOK, health)
}

// StatsResponse represents the usage statistics response.
type StatsResponse struct {
	TotalRequests  int64   `json:"total_requests"`
	CacheHits      int64   `json:"cache_hits"`
	UpstreamErrors int64   `json:"upstream_errors"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests:  atomic.LoadInt64(&s.stats.TotalRequests),
		CacheHits:      atomic.LoadInt64(&s.stats.CacheHits),
		UpstreamErrors: atomic.LoadInt64(&s.stats.UpstreamErrors),
		TotalCostUSD:   s.stats.TotalCostUSD(),
		UptimeSeconds:  int64(s.stats.Uptime().Seconds()),
	})
}

// handleCacheClear handles POST /cache/clear.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	rc := s.cache
	s.mu.RUnlock()

	if rc == nil {
		s.writeDetail(w, http.StatusConflict, "Cache is disabled")
		return
	}

	rc.Clear()
	log.Printf("CACHE_CLEARED | client_ip=%s", GetClientIP(r))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
	)(s.router)

	if s.cfg.Server.RateLimitPerSec > 0 {
		limiter := NewClientLimiter(s.cfg.Server.RateLimitPerSec, s.cfg.Server.RateBurst)
		handler = RateLimitMiddleware(limiter)(handler)
	}
	if auth := AuthConfigFrom(&s.cfg.Server); auth != nil {
		handler = AuthMiddleware(auth)(handler)
	}
	return handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	// Load pricing overrides and start watching for edits.
	if path := s.cfg.Server.PricingFile; path != "" {
		if err := s.pricing.Reload(path); err != nil {
			log.Printf("PRICING_LOAD_FAILED | path=%s error=%v", path, err)
		}
		go s.pricing.Watch(context.Background(), path)
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long enough for slow streams
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", s.cfg.Server.ListenAddr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error response as {"detail": message}, which is
// the shape the chat clients parse.
func (s *Server) writeDetail(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"detail": message})
}
