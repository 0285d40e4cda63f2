// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstream

import "testing"

// =============================================================================
// SPLIT TESTS
// =============================================================================

func TestSplitNoMarker(t *testing.T) {
	s := SplitResponse("hello world")
	if s.Body != "hello world" {
		t.Errorf("Body = %q, want %q", s.Body, "hello world")
	}
	if s.Cost != "" {
		t.Errorf("Cost = %q, want empty", s.Cost)
	}
	if s.HasCost() {
		t.Error("HasCost should be false without a marker")
	}
}

func TestSplitNoMarkerEveryPrefix(t *testing.T) {
	full := "hello world"
	for i := 0; i <= len(full); i++ {
		s := SplitResponse(full[:i])
		if s.Body != full[:i] || s.Cost != "" {
			t.Errorf("prefix %q: got body=%q cost=%q", full[:i], s.Body, s.Cost)
		}
	}
}

func TestSplitWithCostSummary(t *testing.T) {
	s := SplitResponse("hello\n\n[cost: 3 tokens]")
	if s.Body != "hello" {
		t.Errorf("Body = %q, want %q", s.Body, "hello")
	}
	if s.Cost != "[cost: 3 tokens]" {
		t.Errorf("Cost = %q, want %q", s.Cost, "[cost: 3 tokens]")
	}
}

func TestSplitTrimsCostWhitespace(t *testing.T) {
	s := SplitResponse("body\n\n[tag]\n")
	if s.Cost != "[tag]" {
		t.Errorf("Cost = %q, want %q", s.Cost, "[tag]")
	}
}

func TestSplitEarliestBoundaryWins(t *testing.T) {
	s := SplitResponse("a\n\n[x]\n\n[y]")
	if s.Body != "a" {
		t.Errorf("Body = %q, want %q", s.Body, "a")
	}
	// Everything from the first marker onward is cost, including the
	// later marker-like text embedded in it.
	if s.Cost != "[x]\n\n[y]" {
		t.Errorf("Cost = %q, want %q", s.Cost, "[x]\n\n[y]")
	}
}

func TestSplitDoubleNewlineWithoutBracket(t *testing.T) {
	s := SplitResponse("para one\n\npara two")
	if s.Body != "para one\n\npara two" || s.Cost != "" {
		t.Errorf("paragraph break should not split: body=%q cost=%q", s.Body, s.Cost)
	}

	// A later qualifying boundary still splits.
	s = SplitResponse("para one\n\npara two\n\n[usage]")
	if s.Body != "para one\n\npara two" || s.Cost != "[usage]" {
		t.Errorf("got body=%q cost=%q", s.Body, s.Cost)
	}
}

func TestSplitMarkerAtStart(t *testing.T) {
	// Empty prefix is a valid body.
	s := SplitResponse("\n\n[only cost]")
	if s.Body != "" || s.Cost != "[only cost]" {
		t.Errorf("got body=%q cost=%q", s.Body, s.Cost)
	}
}

func TestSplitChunkingIndependence(t *testing.T) {
	// The marker arrives split across two fragments; the scan runs over
	// the whole buffer each time, so the boundary is detected once both
	// halves have been appended.
	chunks := []string{"hel", "lo\n", "\n[cost: 3 ", "tokens]"}

	buf := NewBuffer()

	// Before any fragment of the bracket arrives, there is no cost region.
	buf.Append(chunks[0])
	buf.Append(chunks[1])
	if s := buf.Split(); s.HasCost() {
		t.Errorf("cost region before marker completes: %+v", s)
	}

	buf.Append(chunks[2])
	buf.Append(chunks[3])

	s := buf.Split()
	if s.Body != "hello" {
		t.Errorf("Body = %q, want %q", s.Body, "hello")
	}
	if s.Cost != "[cost: 3 tokens]" {
		t.Errorf("Cost = %q, want %q", s.Cost, "[cost: 3 tokens]")
	}
}
