// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package pricing

import "testing"

func TestFormatSummary(t *testing.T) {
	got := FormatSummary(1200, 340, 0.00105)
	want := "[input tokens: 1200, output tokens: 340, estimated cost: $0.00105]"
	if got != want {
		t.Errorf("FormatSummary = %q, want %q", got, want)
	}
}

func TestFormatSummaryStripsTrailingZeros(t *testing.T) {
	got := FormatSummary(0, 0, 0.5)
	want := "[input tokens: 0, output tokens: 0, estimated cost: $0.5]"
	if got != want {
		t.Errorf("FormatSummary = %q, want %q", got, want)
	}
}

func TestParseSummaryRoundTrip(t *testing.T) {
	line := FormatSummary(10, 5, 0.000033)

	s, ok := ParseSummary(line)
	if !ok {
		t.Fatalf("ParseSummary failed for %q", line)
	}
	if s.InputTokens != 10 || s.OutputTokens != 5 {
		t.Errorf("unexpected tokens: %+v", s)
	}
	if s.CostUSD != 0.000033 {
		t.Errorf("unexpected cost: %v", s.CostUSD)
	}
}

func TestParseSummaryRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not a tag",
		"[input tokens: x, output tokens: 5, estimated cost: $1]",
		"[free-form server note]",
	}
	for _, c := range cases {
		if _, ok := ParseSummary(c); ok {
			t.Errorf("ParseSummary(%q) should fail", c)
		}
	}
}
