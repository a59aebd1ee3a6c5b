package composer

import (
	"context"
	"errors"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/parley-chat/parley/internal/log"
	"github.com/parley-chat/parley/internal/speech"
)

// fakeSession replays a scripted event sequence, then closes.
type fakeSession struct {
	events  chan speech.Event
	stopped bool
	aborted bool
}

func newFakeSession(events ...speech.Event) *fakeSession {
	ch := make(chan speech.Event, len(events)+1)
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &fakeSession{events: ch}
}

func (s *fakeSession) Events() <-chan speech.Event { return s.events }
func (s *fakeSession) Stop()                       { s.stopped = true }
func (s *fakeSession) Abort()                      { s.aborted = true }

// fakeRecognizer returns scripted sessions and counts starts.
type fakeRecognizer struct {
	session  speech.Session
	startErr error
	starts   int
}

func (r *fakeRecognizer) Start(_ context.Context) (speech.Session, error) {
	r.starts++
	if r.startErr != nil {
		return nil, r.startErr
	}
	return r.session, nil
}

func newDictationComposer(t *testing.T, r speech.Recognizer) *Composer {
	t.Helper()
	c, err := New(context.Background(), Options{
		Sender:     &fakeSender{},
		Recognizer: r,
		StagingDir: t.TempDir(),
		Logger:     log.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// drive pumps commands back through Update until the sequence settles.
func drive(c *Composer, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		cmd = c.Update(msg)
	}
}

func TestDictation_IdleIsInitialState(t *testing.T) {
	c := newDictationComposer(t, &fakeRecognizer{})
	if c.dictation != DictationIdle {
		t.Errorf("initial dictation state = %v, want Idle", c.dictation)
	}
}

func TestDictation_AbsentCapabilityIsNoOp(t *testing.T) {
	c := newDictationComposer(t, nil)
	if cmd := c.toggleDictation(); cmd != nil {
		t.Error("toggle without capability should be a no-op")
	}
	if c.dictation != DictationIdle {
		t.Error("state must stay Idle without capability")
	}
}

func TestDictation_FinalTranscriptAppendedAndIdle(t *testing.T) {
	session := newFakeSession(
		speech.Event{Kind: speech.EventStarted},
		speech.Event{Kind: speech.EventFinal, Transcript: "dictated words"},
		speech.Event{Kind: speech.EventEnded},
	)
	c := newDictationComposer(t, &fakeRecognizer{session: session})
	c.SetValue("typed")

	drive(c, c.toggleDictation())

	if got := c.Value(); got != "typed dictated words" {
		t.Errorf("draft = %q, want transcript appended with space separator", got)
	}
	if c.dictation != DictationIdle {
		t.Errorf("state = %v after session end, want Idle", c.dictation)
	}
	if c.session != nil {
		t.Error("session reference not cleared")
	}
}

func TestDictation_TranscriptIntoEmptyDraftHasNoSeparator(t *testing.T) {
	session := newFakeSession(
		speech.Event{Kind: speech.EventStarted},
		speech.Event{Kind: speech.EventFinal, Transcript: "hello"},
		speech.Event{Kind: speech.EventEnded},
	)
	c := newDictationComposer(t, &fakeRecognizer{session: session})

	drive(c, c.toggleDictation())

	if got := c.Value(); got != "hello" {
		t.Errorf("draft = %q, want bare transcript", got)
	}
}

func TestDictation_ErrorReturnsToIdleWithoutDraftChange(t *testing.T) {
	session := newFakeSession(
		speech.Event{Kind: speech.EventStarted},
		speech.Event{Kind: speech.EventError, Err: errors.New("mic unavailable")},
		speech.Event{Kind: speech.EventEnded},
	)
	c := newDictationComposer(t, &fakeRecognizer{session: session})
	c.SetValue("untouched")

	drive(c, c.toggleDictation())

	if c.dictation != DictationIdle {
		t.Errorf("state = %v after error, want Idle", c.dictation)
	}
	if c.Value() != "untouched" {
		t.Errorf("error must not modify the draft, got %q", c.Value())
	}
}

func TestDictation_StartFailureStaysIdle(t *testing.T) {
	c := newDictationComposer(t, &fakeRecognizer{startErr: errors.New("no device")})

	drive(c, c.toggleDictation())

	if c.dictation != DictationIdle {
		t.Errorf("state = %v after start failure, want Idle", c.dictation)
	}
}

func TestDictation_ToggleWhileListeningStops(t *testing.T) {
	// Session with only a Started event pending: stays open so the
	// composer remains Listening when we toggle again.
	ch := make(chan speech.Event, 2)
	ch <- speech.Event{Kind: speech.EventStarted}
	session := &fakeSession{events: ch}
	rec := &fakeRecognizer{session: session}
	c := newDictationComposer(t, rec)

	startCmd := c.toggleDictation()
	msg := startCmd()
	listenCmd := c.Update(msg) // handleDictationStarted
	if c.dictation != DictationListening {
		t.Fatalf("state = %v after start, want Listening", c.dictation)
	}
	// Consume the Started event.
	c.Update(listenCmd())

	// Second toggle while Listening must stop, not start a new session.
	if cmd := c.toggleDictation(); cmd != nil {
		t.Error("toggle while Listening should return no start command")
	}
	if !session.stopped {
		t.Error("toggle while Listening should call Stop on the session")
	}
	if rec.starts != 1 {
		t.Errorf("recognizer started %d times, want 1 (double-start guard)", rec.starts)
	}
}

func TestDictation_InternalDoubleStartGuard(t *testing.T) {
	// Even before the Listening state lands, a pending session blocks a
	// second start.
	ch := make(chan speech.Event, 1)
	session := &fakeSession{events: ch}
	rec := &fakeRecognizer{session: session}
	c := newDictationComposer(t, rec)

	startCmd := c.toggleDictation()
	c.Update(startCmd()) // session now held

	if cmd := c.toggleDictation(); cmd == nil {
		// Listening: toggle means stop, which is the correct behavior.
		if rec.starts != 1 {
			t.Errorf("recognizer started %d times, want 1", rec.starts)
		}
	} else {
		t.Error("second toggle must not produce another start command")
	}
}

func TestDictation_RapidToggleStartsOneSession(t *testing.T) {
	// Two toggles land before the started message does; only the first
	// may reach the recognizer.
	ch := make(chan speech.Event, 1)
	session := &fakeSession{events: ch}
	rec := &fakeRecognizer{session: session}
	c := newDictationComposer(t, rec)

	first := c.toggleDictation()
	second := c.toggleDictation()

	if second != nil {
		t.Error("toggle with a start in flight must not produce a command")
	}
	c.Update(first())
	if rec.starts != 1 {
		t.Errorf("recognizer started %d times, want 1 (single active session)", rec.starts)
	}
	if c.dictation != DictationListening {
		t.Errorf("state = %v after start, want Listening", c.dictation)
	}
}

func TestDictation_StartFailureClearsInFlightGuard(t *testing.T) {
	rec := &fakeRecognizer{startErr: errors.New("no device")}
	c := newDictationComposer(t, rec)

	drive(c, c.toggleDictation())
	retry := c.toggleDictation()
	if retry == nil {
		t.Fatal("toggle after a failed start should produce a new start command")
	}
	drive(c, retry)
	if rec.starts != 2 {
		t.Errorf("recognizer started %d times, want 2", rec.starts)
	}
}

func TestDictation_StartedAfterCloseIsAborted(t *testing.T) {
	ch := make(chan speech.Event, 1)
	session := &fakeSession{events: ch}
	c := newDictationComposer(t, &fakeRecognizer{session: session})

	start := c.toggleDictation()
	c.Close()
	c.Update(start())

	if !session.aborted {
		t.Error("session delivered after Close must be aborted")
	}
	if c.dictation != DictationIdle {
		t.Errorf("state = %v after Close, want Idle", c.dictation)
	}
	if c.session != nil {
		t.Error("closed composer must not hold a session")
	}
}

func TestDictation_CloseAbortsActiveSession(t *testing.T) {
	ch := make(chan speech.Event, 1)
	session := &fakeSession{events: ch}
	c := newDictationComposer(t, &fakeRecognizer{session: session})

	c.Update(dictationStartedMsg{session: session})
	c.Close()

	if !session.aborted {
		t.Error("Close should abort the active dictation session")
	}
	if c.dictation != DictationIdle {
		t.Errorf("state = %v after Close, want Idle", c.dictation)
	}
}
