// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - Bubble Tea model for the chat view.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/thomasmphan/inference-proxy/internal/chatstream"
	"github.com/thomasmphan/inference-proxy/internal/pricing"
	"github.com/thomasmphan/inference-proxy/internal/ui/styles"
)

// State represents the chat view's streaming state.
type State int

const (
	// StateReady accepts input and submits.
	StateReady State = iota
	// StateStreaming disables submission until the active turn ends.
	StateStreaming
)

// maxInputRunes bounds a single prompt. The proxy enforces its own
// limit server-side.
const maxInputRunes = 4096

// Turn is one prompt/response exchange. The response accumulates in an
// append-only buffer; Body and Cost come from re-splitting the whole
// buffer, never from slicing individual chunks.
type Turn struct {
	ID     string
	Prompt string
	Model  string

	buf  *chatstream.Buffer
	Done bool
	Err  string

	StartedAt time.Time
	Elapsed   time.Duration
}

// Split returns the turn's current body/cost split.
func (t *Turn) Split() chatstream.Split {
	return t.buf.Split()
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	state State
	theme *styles.Theme

	width  int
	height int

	// Conversation history, oldest first. The last entry is the
	// active turn while streaming.
	turns []*Turn

	// activeTurnID guards against late messages from finished or
	// cancelled streams.
	activeTurnID string

	modelAlias string
	pricing    *pricing.Table
	runner     *StreamRunner

	// Session totals accumulated from parsed cost lines.
	sessionTurns  int
	sessionInput  int
	sessionOutput int
	sessionCost   float64

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	lastError string
	statusMsg string

	showCost bool
	ready    bool
}

// New creates a chat model for the given model alias.
func New(theme *styles.Theme, modelAlias string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = maxInputRunes
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Streaming

	return Model{
		state:      StateReady,
		theme:      theme,
		modelAlias: modelAlias,
		pricing:    pricing.NewTable(),
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		keyMap:     DefaultKeyMap(),
		showCost:   true,
	}
}

// SetRunner attaches the stream runner. Must be called before the
// first submit; the program reference is only available after
// tea.NewProgram.
func (m *Model) SetRunner(r *StreamRunner) {
	m.runner = r
}

// SetShowCost controls whether per-turn cost lines render. Session
// totals keep accumulating either way.
func (m *Model) SetShowCost(show bool) {
	m.showCost = show
}

// ModelAlias returns the currently selected model alias.
func (m Model) ModelAlias() string {
	return m.modelAlias
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// newTurn appends a fresh turn for the given prompt and marks it
// active.
func (m *Model) newTurn(prompt string) *Turn {
	t := &Turn{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Model:     m.modelAlias,
		buf:       chatstream.NewBuffer(),
		StartedAt: time.Now(),
	}
	m.turns = append(m.turns, t)
	m.activeTurnID = t.ID
	return t
}

// activeTurn returns the turn matching id, or nil.
func (m *Model) activeTurn(id string) *Turn {
	if id != m.activeTurnID || len(m.turns) == 0 {
		return nil
	}
	last := m.turns[len(m.turns)-1]
	if last.ID != id {
		return nil
	}
	return last
}

// streamContext returns the context streams run under. Streams have no
// client-side deadline; the proxy bounds upstream time.
func (m *Model) streamContext() context.Context {
	return context.Background()
}

// cycleModel switches to the next model alias in the pricing table.
func (m *Model) cycleModel() {
	aliases := m.pricing.Aliases()
	if len(aliases) < 2 {
		return
	}
	for i, alias := range aliases {
		if alias == m.modelAlias {
			m.modelAlias = aliases[(i+1)%len(aliases)]
			return
		}
	}
	m.modelAlias = aliases[0]
}
