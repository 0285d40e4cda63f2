// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// update.go - Message handling for the chat view.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thomasmphan/inference-proxy/internal/pricing"
)

// statusDuration is how long a temporary status line stays visible.
const statusDuration = 3 * time.Second

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamStartMsg:
		// The turn was created on submit; nothing to do beyond
		// recording the start time the runner observed.
		if t := m.activeTurn(msg.TurnID); t != nil {
			t.StartedAt = msg.StartTime
		}
		return m, nil

	case StreamTokenMsg:
		t := m.activeTurn(msg.TurnID)
		if t == nil {
			// Late chunk from a finished stream. Drop it.
			return m, nil
		}
		t.buf.Append(msg.Token)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case StreamCompleteMsg:
		t := m.activeTurn(msg.TurnID)
		if t == nil {
			return m, nil
		}
		t.Done = true
		t.Elapsed = msg.Elapsed
		m.finishTurn(t)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case StreamErrorMsg:
		t := m.activeTurn(msg.TurnID)
		if t == nil {
			return m, nil
		}
		t.Done = true
		t.Err = msg.Err.Error()
		m.lastError = msg.Err.Error()
		// Input unlocks on failure the same as on success.
		m.state = StateReady
		m.activeTurnID = ""
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case statusExpiredMsg:
		m.statusMsg = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// finishTurn folds a completed turn into the session totals and
// re-enables input.
func (m *Model) finishTurn(t *Turn) {
	m.state = StateReady
	m.activeTurnID = ""
	m.lastError = ""

	m.sessionTurns++
	split := t.Split()
	if summary, ok := pricing.ParseSummary(split.Cost); ok {
		m.sessionInput += summary.InputTokens
		m.sessionOutput += summary.OutputTokens
		m.sessionCost += summary.CostUSD
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Clear):
		m.clearConversation()
		return m, nil

	case key.Matches(msg, m.keyMap.CycleModel):
		if m.state == StateReady {
			m.cycleModel()
			m.setStatus("model: " + m.modelAlias)
			return m, m.statusTimer()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit submits the input line. Whitespace-only input is a
// no-op, and submission is disabled while a stream is active.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.handleCommand(text)
	}

	m.input.SetValue("")
	m.lastError = ""
	t := m.newTurn(text)
	m.state = StateStreaming
	m.refreshViewport()
	m.viewport.GotoBottom()

	if m.runner != nil {
		m.runner.Start(m.streamContext(), t.ID, t.Model, text)
	}
	return m, nil
}

// handleCommand processes a /command entered in the input line.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/clear", "/c":
		m.clearConversation()
		return m, nil

	case "/model", "/m":
		if len(fields) < 2 {
			m.setStatus(fmt.Sprintf("model: %s (available: %s)",
				m.modelAlias, strings.Join(m.pricing.Aliases(), ", ")))
			return m, m.statusTimer()
		}
		alias := fields[1]
		if _, ok := m.pricing.Resolve(alias); !ok {
			m.lastError = fmt.Sprintf("Unknown model '%s'. Valid options: %s",
				alias, strings.Join(m.pricing.Aliases(), ", "))
			return m, nil
		}
		m.modelAlias = alias
		m.setStatus("model: " + alias)
		return m, m.statusTimer()

	case "/status", "/s":
		m.setStatus(fmt.Sprintf("%d turns, %d in, %d out, $%.4f",
			m.sessionTurns, m.sessionInput, m.sessionOutput, m.sessionCost))
		return m, m.statusTimer()

	case "/help", "/h":
		m.setStatus("/model [NAME]  /status  /clear  /quit")
		return m, m.statusTimer()

	default:
		m.lastError = "Unknown command: " + fields[0]
		return m, nil
	}
}

// clearConversation drops all turns. Session totals survive; /status
// reports the whole session, not the visible screen.
func (m *Model) clearConversation() {
	if m.state == StateStreaming {
		return
	}
	m.turns = nil
	m.activeTurnID = ""
	m.lastError = ""
	m.refreshViewport()
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
}

func (m *Model) statusTimer() tea.Cmd {
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return statusExpiredMsg{}
	})
}

// resize recomputes layout after a terminal size change.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.Resize(width, height)

	// Header (2), input box (3), status bar (1).
	viewportHeight := height - 6
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = viewportHeight
	m.input.Width = width - 6
	m.ready = true
	m.refreshViewport()
	m.viewport.GotoBottom()
}
