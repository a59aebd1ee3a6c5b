package speech

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/parley-chat/parley/internal/log"
)

// CommandRecognizer runs an external transcriber process per dictation
// session (for example a whisper CLI). The process captures microphone
// audio until it receives an interrupt, then prints the transcript to
// stdout and exits.
type CommandRecognizer struct {
	command string
	args    []string
	logger  log.Logger
}

// Detect resolves the dictation capability. Returns nil when no command
// is configured or the command is not on PATH; callers treat a nil
// Recognizer as "capability absent".
func Detect(command string, args []string, logger log.Logger) Recognizer {
	if command == "" {
		return nil
	}
	if _, err := exec.LookPath(command); err != nil {
		logger.Warn("speech command not found, dictation disabled",
			"command", command, "error", err)
		return nil
	}
	return &CommandRecognizer{command: command, args: args, logger: logger}
}

// Start launches the transcriber process and begins streaming events.
func (r *CommandRecognizer) Start(ctx context.Context) (Session, error) {
	cmd := exec.CommandContext(ctx, r.command, r.args...) // #nosec G204 -- command comes from the user's own config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s := &commandSession{
		cmd:    cmd,
		events: make(chan Event, 4),
		logger: r.logger,
	}

	// Started is queued before the waiter goroutine exists so it always
	// precedes the terminal events.
	s.events <- Event{Kind: EventStarted}
	go s.run(&stdout, &stderr)
	return s, nil
}

type commandSession struct {
	cmd    *exec.Cmd
	events chan Event
	logger log.Logger

	mu      sync.Mutex
	stopped bool
	aborted bool
}

func (s *commandSession) Events() <-chan Event {
	return s.events
}

// Stop interrupts the transcriber so it flushes its transcript and exits.
func (s *commandSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.aborted {
		return
	}
	s.stopped = true
	s.signal(os.Interrupt)
}

// Abort kills the transcriber; any transcript is discarded.
func (s *commandSession) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return
	}
	s.aborted = true
	s.signal(os.Kill)
}

// signal delivers sig to the process, ignoring delivery errors: the
// process may already have exited.
func (s *commandSession) signal(sig os.Signal) {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(sig)
	}
}

// run waits for the process to exit and emits the terminal events.
// The events channel is closed here and only here.
func (s *commandSession) run(stdout, stderr *bytes.Buffer) {
	defer close(s.events)

	err := s.cmd.Wait()

	s.mu.Lock()
	aborted := s.aborted
	stopped := s.stopped
	s.mu.Unlock()

	switch {
	case aborted:
		// Discard output; a kill makes Wait report an error, not a failure.
	case err != nil && !stopped:
		// Interrupt-triggered exits on Stop are expected; anything else is
		// a real failure. Logged, never surfaced into the draft.
		s.logger.Error("speech transcriber failed",
			"error", err, "stderr", strings.TrimSpace(stderr.String()))
		s.events <- Event{Kind: EventError, Err: err}
	default:
		if transcript := strings.TrimSpace(stdout.String()); transcript != "" {
			s.events <- Event{Kind: EventFinal, Transcript: transcript}
		}
	}

	s.events <- Event{Kind: EventEnded}
}
