// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-request token usage and cost locally.
//
// Every proxied request (streamed, buffered, or replayed from cache) is
// written to a SQLite database so usage and spend can be inspected later
// without any external service.
//
// # Key Types
//
//   - Store: SQLite-backed request log
//   - Record: one proxied request with tokens, cost, and timing
//   - Totals: aggregate counts for a time window
//
// # Usage
//
//	store, err := telemetry.Open(path)
//	defer store.Close()
//	store.Record(ctx, telemetry.Record{Model: model, CostUSD: cost})
package telemetry
