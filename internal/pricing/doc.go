// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pricing maps model aliases to upstream model IDs and computes
// per-request cost estimates from token usage.
//
// # Key Types
//
//   - Table: alias and rate lookup, optionally reloaded from a TOML file
//   - Rate: USD cost per million input/output tokens
//
// # Usage
//
//	table := pricing.NewTable()
//	id, ok := table.Resolve("haiku")
//	cost := table.EstimateCost(id, 1200, 340)
//	line := pricing.FormatSummary(1200, 340, cost)
//
// The summary line is the wire convention the streaming endpoint appends
// after the response body: two newlines, then a bracketed free-form tag.
package pricing
