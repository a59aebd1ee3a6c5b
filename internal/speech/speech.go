// Package speech provides the optional voice dictation capability.
//
// The capability is resolved once at startup and injected into the
// composer; when no transcriber is available the composer receives nil
// and hides the dictation control entirely. Only final transcripts are
// delivered; interim results are not part of the interface.
package speech

import "context"

// EventKind discriminates dictation session events.
type EventKind int

const (
	// EventStarted signals the capture session is live.
	EventStarted EventKind = iota
	// EventFinal carries the final transcript, if any was produced.
	EventFinal
	// EventError signals the session failed. An EventEnded still follows.
	EventError
	// EventEnded signals the session is over; no further events follow.
	EventEnded
)

// Event is a single dictation lifecycle event.
// Exactly one of Transcript/Err is meaningful, keyed by Kind.
type Event struct {
	Kind       EventKind
	Transcript string
	Err        error
}

// Session is one active dictation capture.
//
// Events() yields Started, then at most one Final or Error, then Ended,
// after which the channel is closed. Stop and Abort are safe to call at
// any point and more than once.
type Session interface {
	// Events returns the event stream for this session.
	Events() <-chan Event

	// Stop ends capture and requests a final transcript.
	Stop()

	// Abort ends capture immediately, discarding any transcript.
	Abort()
}

// Recognizer starts dictation sessions. At most one session should be
// active at a time; the composer enforces this.
type Recognizer interface {
	Start(ctx context.Context) (Session, error)
}
