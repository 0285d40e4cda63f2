// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// Sends one question through the proxy and prints the answer. On a
// terminal the response is buffered and rendered as markdown with the
// cost line dimmed underneath; piped output streams through verbatim.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"

	"github.com/thomasmphan/inference-proxy/internal/chatstream"
	"github.com/thomasmphan/inference-proxy/internal/config"
	"github.com/thomasmphan/inference-proxy/internal/ui/styles"
)

// newMarkdownRenderer builds a glamour renderer sized to the terminal.
// Returns nil when rendering is unavailable; callers fall back to plain
// text.
func newMarkdownRenderer() *glamour.TermRenderer {
	width := GetTerminalWidth()
	if width > 100 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// HandleAskCommand handles "inferproxy ask".
func HandleAskCommand(args Args) error {
	if args.Query == "" {
		return fmt.Errorf("usage: inferproxy ask \"question\"")
	}

	cfg := config.Global()
	model := args.Model
	if model == "" {
		model = cfg.DefaultModel
	}
	client := newStreamClient(cfg, args)
	req := chatstream.Request{Message: args.Query, Model: model}

	rendered := !args.Plain && IsStdoutTTY()
	buf := chatstream.NewBuffer()

	err := client.Stream(context.Background(), req, func(text string) {
		buf.Append(text)
		if !rendered {
			fmt.Print(text)
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("Error: "+err.Error()))
		return err
	}

	if !rendered {
		fmt.Println()
		return nil
	}

	split := buf.Split()
	if renderer := newMarkdownRenderer(); renderer != nil {
		if out, renderErr := renderer.Render(split.Body); renderErr == nil {
			fmt.Print(out)
		} else {
			fmt.Println(split.Body)
		}
	} else {
		fmt.Println(split.Body)
	}

	if split.HasCost() && !args.Quiet && cfg.UI.ShowCost {
		fmt.Println(styles.Muted.Render(split.Cost))
	}
	return nil
}
