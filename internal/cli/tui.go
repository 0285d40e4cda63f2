// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Chat TUI command handler.
package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thomasmphan/inference-proxy/internal/config"
	"github.com/thomasmphan/inference-proxy/internal/ui/chat"
	"github.com/thomasmphan/inference-proxy/internal/ui/styles"
)

// HandleTUICommand handles the default TUI command.
func HandleTUICommand(args Args) error {
	if !IsTTY() {
		return fmt.Errorf("the TUI needs an interactive terminal; try 'inferproxy ask' or 'inferproxy chat'")
	}

	cfg := config.Global()
	model := args.Model
	if model == "" {
		model = cfg.DefaultModel
	}
	theme := styles.NewTheme(GetTerminalWidth(), 24, cfg.UI.Theme == "dark")
	client := newStreamClient(cfg, args)

	// The runner's sender is the program, which does not exist until
	// after the model is built. Bind it late.
	runner := chat.NewStreamRunner(nil, client)
	m := chat.New(theme, model)
	m.SetShowCost(cfg.UI.ShowCost)
	m.SetRunner(runner)

	p := tea.NewProgram(m, tea.WithAltScreen())
	runner.SetSender(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
