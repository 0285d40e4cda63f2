// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package pricing

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// COST SUMMARY LINE
// =============================================================================

// SummarySeparator precedes the cost summary on the wire: the body text,
// two newlines, then a bracketed tag running to end of stream.
const SummarySeparator = "\n\n"

// Summary is the parsed form of the bracketed cost tag.
type Summary struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// FormatSummary renders the bracketed cost tag appended after the body.
// The cost is printed with trailing zeros stripped, matching values
// rounded to six decimal places (e.g. "$0.00042").
func FormatSummary(inputTokens, outputTokens int, costUSD float64) string {
	return fmt.Sprintf("[input tokens: %d, output tokens: %d, estimated cost: $%s]",
		inputTokens, outputTokens, formatCost(costUSD))
}

// ParseSummary extracts token counts and cost from a bracketed tag.
// The tag is free-form by convention; parsing is best-effort and returns
// false when the expected fields are missing.
func ParseSummary(tag string) (Summary, bool) {
	tag = strings.TrimSpace(tag)
	if !strings.HasPrefix(tag, "[") || !strings.HasSuffix(tag, "]") {
		return Summary{}, false
	}
	tag = tag[1 : len(tag)-1]

	var s Summary
	found := 0
	for _, field := range strings.Split(tag, ",") {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "input tokens":
			if n, err := strconv.Atoi(value); err == nil {
				s.InputTokens = n
				found++
			}
		case "output tokens":
			if n, err := strconv.Atoi(value); err == nil {
				s.OutputTokens = n
				found++
			}
		case "estimated cost":
			value = strings.TrimPrefix(value, "$")
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				s.CostUSD = f
				found++
			}
		}
	}

	return s, found == 3
}

// formatCost prints a USD amount without trailing zeros.
func formatCost(cost float64) string {
	return strconv.FormatFloat(cost, 'f', -1, 64)
}
