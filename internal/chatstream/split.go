// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstream

import "strings"

// =============================================================================
// DISPLAY SPLIT
// =============================================================================

// marker separates the body from the cost summary on the wire.
const marker = "\n\n["

// Split is the derived partition of an accumulated response.
type Split struct {
	// Body is everything before the cost boundary, or the whole buffer
	// when no boundary exists yet.
	Body string

	// Cost is the bracketed trailing segment with surrounding whitespace
	// trimmed, or "" when no boundary exists.
	Cost string
}

// HasCost reports whether a cost region has been detected.
func (s Split) HasCost() bool {
	return s.Cost != ""
}

// SplitResponse partitions text at the first occurrence of two consecutive
// newlines followed by "[". The scan always runs over the full text, so a
// marker split across stream chunks is found once both halves arrive, and
// any later marker-like text stays inside the cost region.
func SplitResponse(text string) Split {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return Split{Body: text}
	}
	return Split{
		Body: text[:idx],
		Cost: strings.TrimSpace(text[idx+2:]),
	}
}
