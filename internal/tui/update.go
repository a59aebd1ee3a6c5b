package tui

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/parley-chat/parley/internal/gemini"
	"github.com/parley-chat/parley/internal/store"
)

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo // Bubble Tea Update requires a type switch on all message types
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.composer.SetWidth(msg.Width)
		m.help.SetWidth(msg.Width)
		m.markdown.UpdateWidth(msg.Width)
		m.resizeViewport()
		m.rebuildViewportContent()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateThinking {
			m.rebuildViewportContent()
		}
		return m, cmd

	case streamStartedMsg:
		m.streamCancel = msg.cancel
		m.streamEvents = msg.events
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, listenForStream(msg.events)

	case streamTextMsg:
		m.state = StateStreaming
		m.output.WriteString(msg.text)
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, listenForStream(m.streamEvents)

	case streamDoneMsg:
		return m, m.finishStream()

	case streamErrorMsg:
		return m, m.failStream(msg.err)
	}

	// Everything else belongs to the composer: dictation messages,
	// textarea blink and paste, and unhandled keys.
	cmd := m.composer.Update(msg)
	m.resizeViewport()
	return m, cmd
}

// finishStream persists the assistant turn and returns to input state.
func (m *Model) finishStream() tea.Cmd {
	m.endStream()

	text := m.output.String()
	m.output.Reset()
	if text != "" {
		if _, err := m.store.AppendMessage(m.ctx, m.session.ID, store.RoleModel, text, 0); err != nil {
			m.logger.Error("persisting model message", "error", err)
		}
		m.addMessage(Message{Role: roleAssistant, Text: text})
		m.history = append(m.history, gemini.Message{Role: gemini.RoleModel, Text: text})
		m.trimHistory()
	} else {
		m.addMessage(Message{Role: roleSystem, Text: "(Empty response)"})
	}

	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m.composer.Focus()
}

// failStream discards the partial output and reports the error.
func (m *Model) failStream(err error) tea.Cmd {
	m.endStream()
	m.output.Reset()

	switch {
	case errors.Is(err, context.Canceled):
		m.addMessage(Message{Role: roleSystem, Text: "(Canceled)"})
	case errors.Is(err, context.DeadlineExceeded):
		m.addMessage(Message{Role: roleError, Text: "Response timeout. Try a simpler question."})
	default:
		m.addMessage(Message{Role: roleError, Text: err.Error()})
	}

	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m.composer.Focus()
}

// endStream releases stream resources and unblocks the composer.
func (m *Model) endStream() {
	m.state = StateInput
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
	m.streamEvents = nil
	m.composer.SetSending(false)
}

func (m *Model) cancelStream() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
}

// resizeViewport recomputes the viewport height from the composer's
// current height, which changes as the draft grows.
func (m *Model) resizeViewport() {
	if m.height <= 0 {
		return
	}
	fixed := separatorLines + m.composer.Height() + helpLines
	m.viewport.SetWidth(m.width)
	m.viewport.SetHeight(max(m.height-fixed, minViewport))
}

// cleanup cancels all work and returns the quit command.
func (m *Model) cleanup() tea.Cmd {
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}
	m.cancelStream()
	m.streamEvents = nil
	m.composer.Close()
	return tea.Quit
}
