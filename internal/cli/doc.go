// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and command handlers for
// inferproxy.
//
// Commands:
//   - (default)  Start the chat TUI
//   - ask        Ask a single question and print the answer
//   - chat       Interactive terminal chat (line-based, no TUI)
//   - serve      Run the proxy server
//   - status     Show proxy health and usage statistics
//   - hash-token Produce a bcrypt hash for server.auth_token_hash
//   - version    Print version information
//
// # Key Types
//
//   - Command: which command to execute
//   - Args: parsed flags and positional arguments
package cli
