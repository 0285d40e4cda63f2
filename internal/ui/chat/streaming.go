// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// streaming.go - Bridges the streaming HTTP client to the Bubble Tea
// program.
//
// The runner owns the streaming goroutine. Chunks arrive on the
// client's callback and are forwarded to the program as messages, so
// all model mutation stays on the Bubble Tea loop.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thomasmphan/inference-proxy/internal/chatstream"
)

// MsgSender is the subset of tea.Program the runner needs. Tests
// substitute a recorder.
type MsgSender interface {
	Send(tea.Msg)
}

// StreamRunner executes streaming requests and feeds the results back
// to the program.
type StreamRunner struct {
	sender MsgSender
	client *chatstream.Client
}

// NewStreamRunner creates a runner for the given program and client.
func NewStreamRunner(sender MsgSender, client *chatstream.Client) *StreamRunner {
	return &StreamRunner{
		sender: sender,
		client: client,
	}
}

// SetSender attaches the message sink. The tea.Program only exists
// after the model is constructed, so the caller binds it late, before
// the program runs.
func (r *StreamRunner) SetSender(sender MsgSender) {
	r.sender = sender
}

// Start launches the stream for a turn in a new goroutine.
func (r *StreamRunner) Start(ctx context.Context, turnID, modelAlias, message string) {
	go r.run(ctx, turnID, modelAlias, message)
}

func (r *StreamRunner) run(ctx context.Context, turnID, modelAlias, message string) {
	start := time.Now()
	r.sender.Send(StreamStartMsg{
		TurnID:    turnID,
		StartTime: start,
	})

	isFirst := true
	err := r.client.Stream(ctx, chatstream.Request{
		Message: message,
		Model:   modelAlias,
	}, func(text string) {
		r.sender.Send(StreamTokenMsg{
			TurnID:  turnID,
			Token:   text,
			IsFirst: isFirst,
		})
		isFirst = false
	})

	if err != nil {
		r.sender.Send(StreamErrorMsg{
			TurnID: turnID,
			Err:    err,
		})
		return
	}

	r.sender.Send(StreamCompleteMsg{
		TurnID:  turnID,
		Elapsed: time.Since(start),
	})
}
