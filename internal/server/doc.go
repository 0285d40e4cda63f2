// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP proxy in front of the Anthropic API.
//
// The proxy exposes a minimal chat surface for local clients: a plain-text
// streaming endpoint that appends a usage summary after the response body,
// a buffered JSON endpoint, model listing, health, and stats. Identical
// submissions are served from an in-memory response cache.
//
// # Endpoints
//
//   - POST /chat/stream - Stream a chat response with a trailing cost summary
//   - POST /chat        - Buffered chat response as JSON
//   - GET  /models      - List model aliases and their resolved IDs
//   - GET  /health      - Health check
//   - GET  /stats       - Usage statistics
//   - POST /cache/clear - Clear the response cache
//
// # Middleware
//
// Requests pass through panic recovery, security headers, request logging
// with short request IDs, optional per-IP rate limiting, and optional
// bearer token auth (plaintext constant-time compare or bcrypt hash).
//
// # Key Types
//
//   - Server: HTTP server wiring upstream client, pricing, cache, telemetry
//   - ChatRequest: one chat submission (message + model alias)
//   - ServerStats: request counters and accumulated cost
//
// # Usage
//
//	srv := server.NewServer(cfg).WithTelemetry(store)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
package server
