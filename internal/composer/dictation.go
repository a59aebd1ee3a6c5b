package composer

import (
	tea "charm.land/bubbletea/v2"

	"github.com/parley-chat/parley/internal/speech"
)

// DictationState is the dictation state machine: Idle is both the initial
// and the terminal state of every session.
type DictationState int

const (
	DictationIdle DictationState = iota
	DictationListening
)

// Dictation message types.
type dictationStartedMsg struct {
	session speech.Session
}

type dictationEventMsg struct {
	event speech.Event
}

type dictationStartFailedMsg struct {
	err error
}

// toggleDictation starts a session when Idle and stops the active one
// when Listening. The state guard lives here, not in key routing, so a
// second start can never race an active session.
func (c *Composer) toggleDictation() tea.Cmd {
	if c.recognizer == nil {
		return nil
	}

	if c.dictation == DictationListening {
		if c.session != nil {
			c.session.Stop()
		}
		return nil
	}

	// Guard against a start already in flight. session is nil until the
	// started message lands, so starting covers that window.
	if c.session != nil || c.starting {
		return nil
	}
	c.starting = true

	recognizer := c.recognizer
	ctx := c.ctx
	return func() tea.Msg {
		session, err := recognizer.Start(ctx)
		if err != nil {
			return dictationStartFailedMsg{err: err}
		}
		return dictationStartedMsg{session: session}
	}
}

func (c *Composer) handleDictationStarted(msg dictationStartedMsg) tea.Cmd {
	c.starting = false
	// A session delivered after Close raced the shutdown; a session
	// delivered while another is active raced the guard. Discard both.
	if c.closed || c.session != nil {
		msg.session.Abort()
		return nil
	}
	c.session = msg.session
	c.dictation = DictationListening
	return listenDictation(msg.session)
}

func (c *Composer) handleDictationEvent(msg dictationEventMsg) tea.Cmd {
	switch msg.event.Kind {
	case speech.EventFinal:
		c.appendTranscript(msg.event.Transcript)

	case speech.EventError:
		// Logged only; never surfaced into the draft.
		c.logger.Error("dictation error", "error", msg.event.Err)
		c.dictation = DictationIdle

	case speech.EventEnded:
		c.dictation = DictationIdle
		c.session = nil
		return nil
	}

	if c.session == nil {
		return nil
	}
	return listenDictation(c.session)
}

// listenDictation waits for the next session event. A closed channel maps
// to EventEnded so the state machine always returns to Idle.
func listenDictation(session speech.Session) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-session.Events()
		if !ok {
			return dictationEventMsg{event: speech.Event{Kind: speech.EventEnded}}
		}
		return dictationEventMsg{event: event}
	}
}

// appendTranscript inserts a final transcript at the end of the draft,
// separated by a single space when text is already present.
func (c *Composer) appendTranscript(transcript string) {
	if transcript == "" {
		return
	}
	text := c.input.Value()
	if text != "" {
		text += " "
	}
	c.input.SetValue(text + transcript)
	c.input.CursorEnd()
	c.syncLayout()
}
