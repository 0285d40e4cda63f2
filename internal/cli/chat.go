// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-based chat command handler.
//
// A readline loop against the proxy for terminals where the full TUI is
// unwanted (ssh sessions, plain consoles). Responses stream to stdout
// as they arrive; the cost line of each reply feeds the session totals
// shown by /status.
package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasmphan/inference-proxy/internal/chatstream"
	"github.com/thomasmphan/inference-proxy/internal/config"
	"github.com/thomasmphan/inference-proxy/internal/pricing"
	"github.com/thomasmphan/inference-proxy/internal/ui/styles"
	"github.com/thomasmphan/inference-proxy/internal/util"
)

// historyFileName is stored under the config directory.
const historyFileName = "history"

// chatSession holds the state of one interactive chat loop.
type chatSession struct {
	client   *chatstream.Client
	pricing  *pricing.Table
	model    string
	plain    bool
	showCost bool

	// Session totals accumulated from cost lines.
	turns        int
	inputTokens  int
	outputTokens int
	costUSD      float64
}

// HandleChatCommand handles "inferproxy chat".
func HandleChatCommand(args Args) error {
	cfg := config.Global()

	model := args.Model
	if model == "" {
		model = cfg.DefaultModel
	}
	session := &chatSession{
		client:   newStreamClient(cfg, args),
		pricing:  pricing.NewTable(),
		model:    model,
		plain:    args.Plain || !ColorEnabled(),
		showCost: cfg.UI.ShowCost,
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := loadHistory(line)
	defer saveHistory(line, historyPath)

	if !args.Quiet {
		fmt.Printf("inferproxy chat (model: %s). Type /help for commands, /quit to exit.\n\n", session.model)
	}

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl-C or Ctrl-D ends the session.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := session.handleSlashCommand(input); quit {
				return nil
			}
			continue
		}

		session.send(input)
	}
}

// handleSlashCommand processes a /command line. Returns true to exit.
func (s *chatSession) handleSlashCommand(input string) bool {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/quit", "/exit", "/q":
		s.printStatus()
		return true

	case "/help", "/h":
		fmt.Println("Commands: /model [NAME], /status, /clear, /quit")

	case "/model", "/m":
		if len(fields) < 2 {
			fmt.Printf("Current model: %s (available: %s)\n",
				s.model, strings.Join(s.pricing.Aliases(), ", "))
			return false
		}
		alias := fields[1]
		if _, ok := s.pricing.Resolve(alias); !ok {
			fmt.Println(styles.Error.Render(fmt.Sprintf(
				"Unknown model '%s'. Valid options: %s",
				alias, strings.Join(s.pricing.Aliases(), ", "))))
			return false
		}
		s.model = alias
		fmt.Printf("Switched to model: %s\n", alias)

	case "/status":
		s.printStatus()

	case "/clear":
		// ANSI clear screen and home.
		fmt.Print("\033[2J\033[H")

	default:
		fmt.Printf("Unknown command: %s (try /help)\n", cmd)
	}
	return false
}

// send streams one message and prints the reply. The body prints live
// as chunks arrive; the cost summary is held back and rendered as its
// own dimmed line once the stream completes.
func (s *chatSession) send(message string) {
	printer := newStreamPrinter(os.Stdout)

	fmt.Println()
	err := s.client.Stream(context.Background(), chatstream.Request{
		Message: message,
		Model:   s.model,
	}, printer.Write)
	fmt.Println()
	if err != nil {
		fmt.Println(styles.Error.Render("Error: " + err.Error()))
		return
	}

	s.turns++
	split := printer.Split()
	if summary, ok := pricing.ParseSummary(split.Cost); ok {
		s.inputTokens += summary.InputTokens
		s.outputTokens += summary.OutputTokens
		s.costUSD += summary.CostUSD
	}
	if split.HasCost() && s.showCost {
		if s.plain {
			fmt.Println(split.Cost)
		} else {
			fmt.Println(styles.Muted.Render(split.Cost))
		}
	}
	fmt.Println()
}

// printStatus prints accumulated session totals.
func (s *chatSession) printStatus() {
	status := fmt.Sprintf("Session: %d turns, %d input tokens, %d output tokens, $%.4f",
		s.turns, s.inputTokens, s.outputTokens, s.costUSD)
	if s.plain {
		fmt.Println(status)
	} else {
		fmt.Println(styles.Muted.Render(status))
	}
}

// loadHistory reads the saved readline history, returning its path.
func loadHistory(line *liner.State) string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, historyFileName)
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return path
}

// saveHistory persists readline history back to disk. Best effort; a
// failed write loses history, not the session.
func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	var buf bytes.Buffer
	if _, err := line.WriteHistory(&buf); err != nil {
		return
	}
	_ = util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700)
}
