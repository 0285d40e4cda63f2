// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import "testing"

func TestCacheExactMatch(t *testing.T) {
	rc := New(10)

	rc.Put("hello", "claude-haiku-4-5-20251001", "Hi there!", 3, 5, 0.000022)

	entry, ok := rc.Get("hello", "claude-haiku-4-5-20251001")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.Body != "Hi there!" || entry.InputTokens != 3 || entry.OutputTokens != 5 {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestCacheMissOnDifferentKey(t *testing.T) {
	rc := New(10)
	rc.Put("hello", "model-a", "response", 1, 1, 0)

	// Different message, different model, and near-miss message all miss.
	cases := []struct{ message, model string }{
		{"hello!", "model-a"},
		{"hello", "model-b"},
		{"Hello", "model-a"},
	}
	for _, c := range cases {
		if _, ok := rc.Get(c.message, c.model); ok {
			t.Errorf("unexpected hit for (%q, %q)", c.message, c.model)
		}
	}
}

func TestCacheLRUEviction(t *testing.T) {
	rc := New(2)

	rc.Put("a", "m", "ra", 1, 1, 0)
	rc.Put("b", "m", "rb", 1, 1, 0)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := rc.Get("a", "m"); !ok {
		t.Fatal("expected hit for a")
	}

	rc.Put("c", "m", "rc", 1, 1, 0)

	if _, ok := rc.Get("b", "m"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := rc.Get("a", "m"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := rc.Get("c", "m"); !ok {
		t.Error("c should be present")
	}
}

func TestCacheClearAndStats(t *testing.T) {
	rc := New(10)
	rc.Put("a", "m", "ra", 1, 1, 0)

	rc.Get("a", "m")       // hit
	rc.Get("missing", "m") // miss

	stats := rc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.EntryCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %f, want 0.5", stats.HitRate)
	}

	rc.Clear()
	if rc.Stats().EntryCount != 0 {
		t.Error("Clear left entries behind")
	}
	if _, ok := rc.Get("a", "m"); ok {
		t.Error("hit after Clear")
	}
}
