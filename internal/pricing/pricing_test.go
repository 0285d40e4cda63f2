// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package pricing

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// TABLE TESTS
// =============================================================================

func TestResolveKnownAliases(t *testing.T) {
	table := NewTable()

	id, ok := table.Resolve("haiku")
	if !ok {
		t.Fatal("haiku alias should resolve")
	}
	if id != "claude-haiku-4-5-20251001" {
		t.Errorf("unexpected model ID for haiku: %s", id)
	}

	if _, ok := table.Resolve("gpt-4"); ok {
		t.Error("unknown alias should not resolve")
	}
}

func TestAliasesSorted(t *testing.T) {
	table := NewTable()

	aliases := table.Aliases()
	if len(aliases) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(aliases))
	}
	if aliases[0] != "haiku" || aliases[1] != "sonnet" {
		t.Errorf("aliases not sorted: %v", aliases)
	}
}

func TestEstimateCost(t *testing.T) {
	table := NewTable()

	// 1M input at $0.80 + 1M output at $4.00
	cost := table.EstimateCost("claude-haiku-4-5-20251001", 1_000_000, 1_000_000)
	if cost != 4.80 {
		t.Errorf("expected cost 4.80, got %v", cost)
	}

	// Small requests round to six decimal places.
	cost = table.EstimateCost("claude-sonnet-4-6", 100, 50)
	if cost != 0.00105 {
		t.Errorf("expected cost 0.00105, got %v", cost)
	}

	if cost := table.EstimateCost("unknown-model", 1000, 1000); cost != 0 {
		t.Errorf("unknown model should cost 0, got %v", cost)
	}
}

func TestReloadMergesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.toml")

	override := `
[aliases]
opus = "claude-opus-4"

[rates."claude-opus-4"]
input = 15.0
output = 75.0

[rates."claude-haiku-4-5-20251001"]
input = 1.0
output = 5.0
`
	if err := os.WriteFile(path, []byte(override), 0644); err != nil {
		t.Fatal(err)
	}

	table := NewTable()
	if err := table.Reload(path); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	// New alias added, defaults retained.
	if _, ok := table.Resolve("opus"); !ok {
		t.Error("opus alias should resolve after reload")
	}
	if _, ok := table.Resolve("sonnet"); !ok {
		t.Error("sonnet alias should survive reload")
	}

	// Overridden rate replaces the default.
	cost := table.EstimateCost("claude-haiku-4-5-20251001", 1_000_000, 0)
	if cost != 1.0 {
		t.Errorf("expected overridden input rate 1.0, got %v", cost)
	}
}

func TestReloadMissingFile(t *testing.T) {
	table := NewTable()
	if err := table.Reload(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing override file")
	}
}
