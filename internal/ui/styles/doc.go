// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for inferproxy.
//
// # Key Types
//
//   - Theme: the full style set for the chat TUI, built with NewTheme
//   - Title, Muted, Error: package-level styles for plain CLI output
//
// Colors are lipgloss AdaptiveColor values so the same palette works on
// light and dark terminals. The TUI can pin the dark variant via the
// ui.theme config setting.
package styles
