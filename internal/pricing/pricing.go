// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pricing maps model aliases to upstream model IDs and computes
// per-request cost estimates from token usage.
package pricing

import (
	"math"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// RATES
// =============================================================================

// Rate is the USD cost per million tokens for a single model.
type Rate struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// defaultAliases maps the short names exposed by the API to upstream model IDs.
var defaultAliases = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-6",
}

// defaultRates holds the published per-million-token prices in USD.
var defaultRates = map[string]Rate{
	"claude-haiku-4-5-20251001": {Input: 0.80, Output: 4.00},
	"claude-sonnet-4-6":         {Input: 3.00, Output: 15.00},
}

// =============================================================================
// TABLE
// =============================================================================

// Table resolves model aliases and estimates request costs.
// It is safe for concurrent use; Reload swaps the maps atomically
// under the lock so in-flight lookups never see a partial update.
type Table struct {
	mu      sync.RWMutex
	aliases map[string]string
	rates   map[string]Rate
}

// NewTable creates a Table with the built-in aliases and rates.
func NewTable() *Table {
	return &Table{
		aliases: cloneAliases(defaultAliases),
		rates:   cloneRates(defaultRates),
	}
}

// Resolve maps an alias (e.g. "haiku") to the upstream model ID.
func (t *Table) Resolve(alias string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.aliases[alias]
	return id, ok
}

// Aliases returns the configured aliases in sorted order.
func (t *Table) Aliases() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.aliases))
	for alias := range t.aliases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// EstimateCost computes the USD cost for the given model ID and token counts,
// rounded to six decimal places. Unknown model IDs cost zero.
func (t *Table) EstimateCost(modelID string, inputTokens, outputTokens int) float64 {
	t.mu.RLock()
	rate, ok := t.rates[modelID]
	t.mu.RUnlock()

	if !ok {
		return 0
	}

	cost := float64(inputTokens)/1_000_000*rate.Input +
		float64(outputTokens)/1_000_000*rate.Output
	return math.Round(cost*1e6) / 1e6
}

// =============================================================================
// OVERRIDES
// =============================================================================

// overrideFile is the on-disk TOML shape for pricing overrides.
//
//	[aliases]
//	haiku = "claude-haiku-4-5-20251001"
//
//	[rates."claude-haiku-4-5-20251001"]
//	input = 0.80
//	output = 4.00
type overrideFile struct {
	Aliases map[string]string `toml:"aliases"`
	Rates   map[string]Rate   `toml:"rates"`
}

// Reload merges an override file on top of the built-in tables.
// Entries present in the file replace defaults; absent entries keep them.
func (t *Table) Reload(path string) error {
	var file overrideFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return err
	}

	aliases := cloneAliases(defaultAliases)
	for alias, id := range file.Aliases {
		aliases[alias] = id
	}
	rates := cloneRates(defaultRates)
	for id, rate := range file.Rates {
		rates[id] = rate
	}

	t.mu.Lock()
	t.aliases = aliases
	t.rates = rates
	t.mu.Unlock()
	return nil
}

func cloneAliases(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneRates(src map[string]Rate) map[string]Rate {
	dst := make(map[string]Rate, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
