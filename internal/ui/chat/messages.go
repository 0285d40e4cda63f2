// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Bubble Tea message types for the chat view.
//
// Streaming messages carry the turn ID they belong to. The model drops
// messages whose ID does not match the active turn, which keeps a late
// chunk from a cancelled stream out of the next response.
package chat

import "time"

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that streaming has begun for a turn.
type StreamStartMsg struct {
	TurnID    string
	StartTime time.Time
}

// StreamTokenMsg delivers a chunk of decoded response text.
type StreamTokenMsg struct {
	TurnID  string
	Token   string
	IsFirst bool
}

// StreamCompleteMsg signals that the stream finished normally.
type StreamCompleteMsg struct {
	TurnID  string
	Elapsed time.Duration
}

// StreamErrorMsg signals that the stream failed.
type StreamErrorMsg struct {
	TurnID string
	Err    error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// statusExpiredMsg clears a temporary status line.
type statusExpiredMsg struct{}
