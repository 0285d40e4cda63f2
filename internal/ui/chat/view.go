// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Rendering for the chat view.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thomasmphan/inference-proxy/internal/ui/components"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.inputView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m Model) headerView() string {
	title := m.theme.HeaderTitle.Render("inferproxy")
	model := m.theme.HeaderModel.Render("model: " + m.modelAlias)
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(model) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Render(title + strings.Repeat(" ", gap) + model)
}

// refreshViewport rebuilds the conversation content. Called on every
// chunk; each turn's buffer is re-split so the cost line only ever
// appears below the body, never inside it.
func (m *Model) refreshViewport() {
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderTurn(t))
	}
	m.viewport.SetContent(b.String())
}

func (m *Model) renderTurn(t *Turn) string {
	var b strings.Builder

	b.WriteString(m.theme.UserLabel.Render("You"))
	b.WriteString("\n")
	b.WriteString(m.theme.Body.Render(t.Prompt))
	b.WriteString("\n\n")

	b.WriteString(m.theme.AssistantLabel.Render(t.Model))
	b.WriteString("\n")

	split := t.Split()
	if split.Body != "" {
		b.WriteString(components.RenderCodeBlocks(split.Body, m.width))
		b.WriteString("\n")
	}
	if t.Err != "" {
		b.WriteString(m.theme.ErrorLine.Render("Error: " + t.Err))
		b.WriteString("\n")
	}
	if split.HasCost() && m.showCost {
		b.WriteString(m.theme.CostLine.Render(split.Cost))
		b.WriteString("\n")
	}
	return b.String()
}

// inputView renders the prompt line with a rune count so long prompts
// show how close they are to the limit. The count turns amber once
// nine tenths of the limit is used.
func (m Model) inputView() string {
	prompt := m.theme.InputPrompt.Render("> ")
	used := len([]rune(m.input.Value()))
	countStyle := m.theme.CharCount
	if used >= maxInputRunes*9/10 {
		countStyle = m.theme.CharCountWarning
	}
	count := countStyle.Render(fmt.Sprintf("%d/%d", used, maxInputRunes))
	return m.theme.InputContainer.Render(prompt + m.input.View() + "  " + count)
}

func (m Model) statusView() string {
	var parts []string

	if m.state == StateStreaming {
		parts = append(parts, m.spinner.View()+m.theme.Streaming.Render(" streaming"))
	}
	if m.statusMsg != "" {
		parts = append(parts, m.statusMsg)
	}
	if m.lastError != "" {
		parts = append(parts, m.theme.ErrorLine.Render(m.lastError))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%s%s  %s%s  %s%s",
			m.theme.ShortcutKey.Render("enter"), m.theme.ShortcutDesc.Render(" send"),
			m.theme.ShortcutKey.Render("C-p"), m.theme.ShortcutDesc.Render(" model"),
			m.theme.ShortcutKey.Render("C-c"), m.theme.ShortcutDesc.Render(" quit")))
	}

	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
