// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstream

import "strings"

// =============================================================================
// RESPONSE BUFFER
// =============================================================================

// Buffer accumulates decoded response text for a single request lifecycle.
// It is append-only between Reset calls and is mutated exclusively by the
// stream consumption loop, so it needs no locking.
type Buffer struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content strings.Builder
}

// NewBuffer creates an empty response buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds decoded text to the buffer.
func (b *Buffer) Append(text string) {
	b.content.WriteString(text)
}

// String returns the full accumulated text.
func (b *Buffer) String() string {
	return b.content.String()
}

// Len returns the accumulated length in bytes.
func (b *Buffer) Len() int {
	return b.content.Len()
}

// Split recomputes the display partition over the entire buffer.
func (b *Buffer) Split() Split {
	return SplitResponse(b.content.String())
}

// Reset discards the buffer at the start of a new request.
func (b *Buffer) Reset() {
	b.content.Reset()
}
