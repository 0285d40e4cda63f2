// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for inferproxy.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/thomasmphan/inference-proxy/internal/chatstream"
	"github.com/thomasmphan/inference-proxy/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdServe
	CmdStatus
	CmdHashToken
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model   string // Override default model alias
	BaseURL string // Override proxy base URL
	Quiet   bool   // Minimal output
	Plain   bool   // Disable markdown rendering and color

	// Command-specific
	Query string // Question text for ask
	Token string // Token for hash-token

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `inferproxy - streaming chat proxy for the Anthropic API

Usage:
  inferproxy                   Start chat TUI (default)
  inferproxy ask "question"    Ask a single question
  inferproxy chat              Interactive line-based chat
  inferproxy serve             Run the proxy server
  inferproxy status            Show proxy health and usage
  inferproxy hash-token TOKEN  Hash a token for auth_token_hash
  inferproxy version           Print version information

Global Flags:
  -m, --model NAME    Override default model alias (haiku, sonnet)
  --base-url URL      Override proxy base URL
  --plain             Disable markdown rendering and color
  -q, --quiet         Minimal output

Chat Commands (inside chat/TUI):
  /model [NAME]       Show or switch the model
  /status             Show session totals
  /clear              Clear the conversation display
  /quit               Exit

Configuration:
  ~/.inferproxy/config.toml   Settings (see config package)
  INFERPROXY_*                Environment overrides
  ANTHROPIC_API_KEY           Upstream credential (serve only)

Examples:
  inferproxy ask "What is a goroutine?"
  inferproxy ask -m sonnet "Review this design"
  inferproxy chat --plain
  INFERPROXY_LISTEN_ADDR=0.0.0.0:8600 inferproxy serve

Version: %s
`

// newStreamClient builds a proxy stream client from the configured
// endpoint and timeout, with the --base-url flag taking precedence.
func newStreamClient(cfg *config.Config, args Args) *chatstream.Client {
	baseURL := args.BaseURL
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}
	return chatstream.NewClient(&chatstream.ClientConfig{
		BaseURL:       baseURL,
		StreamTimeout: time.Duration(cfg.Client.TimeoutSecs) * time.Second,
	})
}

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("inferproxy version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseFrom(os.Args[1:])
}

// ParseFrom parses the given argument list.
func ParseFrom(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "ask":
		// Everything left is the question.
		args.Query = strings.TrimSpace(strings.Join(remaining, " "))
		return CmdAsk, args

	case "chat":
		return CmdChat, args

	case "serve", "server":
		return CmdServe, args

	case "status", "s":
		return CmdStatus, args

	case "hash-token":
		if len(remaining) > 0 {
			args.Token = remaining[0]
		}
		return CmdHashToken, args

	case "version", "--version", "-V":
		return CmdVersion, args

	case "help", "--help", "-h":
		return CmdHelp, args

	default:
		// Bare question: treat "inferproxy what is go" as ask.
		args.Query = strings.TrimSpace(strings.Join(append([]string{cmd}, remaining...), " "))
		return CmdAsk, args
	}
}

// parseGlobalFlags extracts global flags, returning the remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch arg := argv[i]; arg {
		case "-m", "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case "--base-url":
			if i+1 < len(argv) {
				i++
				args.BaseURL = argv[i]
			}
		case "-q", "--quiet":
			args.Quiet = true
		case "--plain", "--no-color":
			args.Plain = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, args
}
