// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.Record(ctx, Record{
		Model:        "claude-haiku-4-5-20251001",
		Prompt:       "what is Go?",
		InputTokens:  4,
		OutputTokens: 120,
		CostUSD:      0.000483,
		Duration:     250 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	recs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}

	rec := recs[0]
	if rec.ID == "" {
		t.Error("ID should be filled in")
	}
	if rec.Model != "claude-haiku-4-5-20251001" || rec.OutputTokens != 120 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Cached {
		t.Error("Cached should be false")
	}
}

func TestPromptTruncatedAtHundredRunes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("é", 300)
	if err := store.Record(ctx, Record{Model: "m", Prompt: long}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	recs, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if got := len([]rune(recs[0].Prompt)); got != 100 {
		t.Errorf("stored prompt has %d runes, want 100", got)
	}
}

func TestTotalsSince(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := Record{Model: "m", Timestamp: time.Now().Add(-48 * time.Hour), CostUSD: 1.0, InputTokens: 10}
	recent := Record{Model: "m", CostUSD: 0.25, InputTokens: 5, OutputTokens: 7, Cached: true}
	for _, rec := range []Record{old, recent} {
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	totals, err := store.TotalsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("TotalsSince failed: %v", err)
	}
	if totals.Requests != 1 || totals.CacheHits != 1 {
		t.Errorf("unexpected totals: %+v", totals)
	}
	if totals.CostUSD != 0.25 || totals.InputTokens != 5 || totals.OutputTokens != 7 {
		t.Errorf("unexpected sums: %+v", totals)
	}

	all, err := store.TotalsSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("TotalsSince failed: %v", err)
	}
	if all.Requests != 2 {
		t.Errorf("all-time requests = %d, want 2", all.Requests)
	}
}
