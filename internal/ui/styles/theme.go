// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Package-level styles for plain CLI output. The TUI builds a full
// Theme instead.
var (
	// Title styles section headings.
	Title = lipgloss.NewStyle().Bold(true).Foreground(Cyan)

	// Muted styles cost lines and other secondary output.
	Muted = lipgloss.NewStyle().Foreground(TextMuted)

	// Error styles error messages.
	Error = lipgloss.NewStyle().Bold(true).Foreground(Rose)
)

// Theme holds the styled components for the chat TUI. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderModel lipgloss.Style

	// ==========================================================================
	// CONVERSATION STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Body           lipgloss.Style
	CostLine       lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	CharCount        lipgloss.Style
	CharCountWarning lipgloss.Style

	// ==========================================================================
	// STATUS STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	Streaming    lipgloss.Style
	ErrorLine    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a Theme sized to the given terminal dimensions.
// The forceDark flag pins the palette to the dark variant regardless of
// background detection; pass false to let lipgloss decide.
func NewTheme(width, height int, forceDark bool) *Theme {
	isDark := lipgloss.HasDarkBackground()
	if forceDark {
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
		Width:        width,
		Height:       height,
	}

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Width(width).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderModel = lipgloss.NewStyle().Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.CostLine = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Width(width - 2).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.CharCount = lipgloss.NewStyle().Foreground(TextMuted)
	t.CharCountWarning = lipgloss.NewStyle().Foreground(Amber)

	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Width(width).Padding(0, 1)
	t.Streaming = lipgloss.NewStyle().Foreground(Amber)
	t.ErrorLine = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	return t
}

// Resize updates the width-dependent styles after a terminal resize.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
	t.Header = t.Header.Width(width)
	t.InputContainer = t.InputContainer.Width(width - 2)
	t.StatusBar = t.StatusBar.Width(width)
}
