package tui

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/parley-chat/parley/internal/attachment"
	"github.com/parley-chat/parley/internal/gemini"
	"github.com/parley-chat/parley/internal/store"
)

// streamBufferSize absorbs chunk bursts during render delays while
// keeping memory bounded.
const streamBufferSize = 100

// streamEvent is a discriminated union for all stream events. A single
// channel with a union type keeps the select logic simple and avoids
// multi-channel closure handling.
type streamEvent struct {
	// Exactly one of these fields is set per event
	text string // text chunk (when non-empty)
	err  error  // error (when non-nil)
	done bool   // true when the stream completed
}

// Stream message types for Bubble Tea.
type streamStartedMsg struct {
	events <-chan streamEvent
	cancel context.CancelFunc
}

type streamTextMsg struct {
	text string
}

type streamDoneMsg struct{}

type streamErrorMsg struct {
	err error
}

// Send implements composer.MessageSender. It persists the user turn,
// adds it to the transcript, and starts the streaming request.
func (m *Model) Send(text string, payloads []attachment.Payload) tea.Cmd {
	// History for this request must not include the new turn; the
	// request builder appends it.
	history := make([]gemini.Message, len(m.history))
	copy(history, m.history)

	if _, err := m.store.AppendMessage(m.ctx, m.session.ID, store.RoleUser, text, len(payloads)); err != nil {
		m.logger.Error("persisting user message", "error", err)
	}
	if m.session.Title == "" && text != "" {
		m.setSessionTitle(text)
	}

	m.addMessage(Message{Role: roleUser, Text: text, Attachments: len(payloads)})
	m.history = append(m.history, gemini.Message{Role: gemini.RoleUser, Text: text})
	m.trimHistory()

	m.state = StateThinking
	m.composer.SetSending(true)
	m.rebuildViewportContent()
	m.viewport.GotoBottom()

	return tea.Batch(
		m.spinner.Tick,
		m.startStream(gemini.Request{
			Model:   m.composer.SelectedModel(),
			History: history,
			Text:    text,
			Images:  payloads,
		}),
	)
}

// setSessionTitle derives a session title from the first user message.
func (m *Model) setSessionTitle(text string) {
	const maxTitle = 60
	title := text
	if r := []rune(title); len(r) > maxTitle {
		title = string(r[:maxTitle])
	}
	if err := m.store.SetSessionTitle(m.ctx, m.session.ID, title); err != nil {
		m.logger.Error("setting session title", "error", err)
		return
	}
	m.session.Title = title
}

// startStream creates a command that initiates streaming.
//
// Goroutine lifecycle: the spawned goroutine exits when the stream
// completes, errors, or the context is canceled. Channel closure
// signals completion.
func (m *Model) startStream(req gemini.Request) tea.Cmd {
	return func() tea.Msg {
		events := make(chan streamEvent, streamBufferSize)
		ctx, cancel := context.WithTimeout(m.ctx, streamTimeout)

		go func() {
			defer cancel()
			defer close(events)

			// Panic recovery to prevent TUI lockup
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("stream panic recovered", "panic", r)
					select {
					case events <- streamEvent{err: fmt.Errorf("stream panic: %v", r)}:
					default:
					}
				}
			}()

			for chunk, err := range m.client.Stream(ctx, req) {
				if err != nil {
					select {
					case events <- streamEvent{err: err}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case events <- streamEvent{text: chunk}:
				case <-ctx.Done():
					return
				}
			}

			// Iterator exhausted without error: the stream is complete.
			select {
			case events <- streamEvent{done: true}:
			case <-ctx.Done():
			}
		}()

		return streamStartedMsg{events: events, cancel: cancel}
	}
}

// listenForStream waits for the next stream event. Empty events are
// skipped via loop instead of recursion.
func listenForStream(events <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if events == nil {
			return nil
		}

		for {
			event, ok := <-events
			if !ok {
				return streamErrorMsg{err: fmt.Errorf("stream ended without completion signal")}
			}

			switch {
			case event.err != nil:
				return streamErrorMsg{err: event.err}
			case event.done:
				return streamDoneMsg{}
			case event.text != "":
				return streamTextMsg{text: event.text}
			default:
				continue
			}
		}
	}
}
