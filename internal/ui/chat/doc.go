// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the inferproxy chat TUI.
//
// The view is a Bubble Tea model with three regions: a scrollable
// conversation viewport, a one-line input, and a status bar. Each
// assistant reply accumulates in an append-only buffer that is re-split
// on every chunk into the response body and the trailing cost line, so
// the cost tag never flashes inside the body mid-stream.
//
// # Key Types
//
//   - Model: the Bubble Tea model, created with New
//   - Turn: one prompt/response exchange in the conversation
//   - StreamRunner: bridges the streaming HTTP client to the program
//
// # Usage
//
//	m := chat.New(cfg, modelAlias)
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	m.SetRunner(chat.NewStreamRunner(p, client))
//	p.Run()
package chat
