// Package tui provides the Bubble Tea terminal interface for Parley.
package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"

	"github.com/parley-chat/parley/internal/composer"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/gemini"
	"github.com/parley-chat/parley/internal/log"
	"github.com/parley-chat/parley/internal/speech"
	"github.com/parley-chat/parley/internal/store"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput     State = iota // Awaiting user input
	StateThinking               // Request sent, no chunks yet
	StateStreaming              // Chunks arriving
)

// maxMessages bounds the display transcript.
const maxMessages = 200

// streamTimeout is the maximum time for a single stream.
const streamTimeout = 5 * time.Minute

// Message roles for display.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	helpLines      = 1
	minViewport    = 3
)

// Message is one transcript entry for display.
type Message struct {
	Role        string
	Text        string
	Attachments int // attachment count for user messages
}

// Options configures a Model.
type Options struct {
	Client     *gemini.Client
	Store      *store.Store
	Session    *store.Session
	Recognizer speech.Recognizer // nil = dictation unavailable
	Config     *config.Config
	Logger     log.Logger
}

// Model is the Bubble Tea model for the Parley chat interface. The
// message draft lives in an embedded Composer sub-model; this model
// owns the transcript, streaming, and persistence.
type Model struct {
	composer *composer.Composer

	// State
	state     State
	lastCtrlC time.Time

	// Transcript
	messages []Message
	output   strings.Builder // accumulating stream chunks
	viewBuf  strings.Builder
	viewport viewport.Model
	spinner  spinner.Model

	// Conversation history as API turns, bounded by historyLimit.
	history      []gemini.Message
	historyLimit int

	// Stream management. No WaitGroup: Bubble Tea's event loop is the
	// synchronization point, channel closure signals goroutine exit.
	streamCancel context.CancelFunc
	streamEvents <-chan streamEvent

	// Dependencies
	client  *gemini.Client
	store   *store.Store
	session *store.Session
	logger  log.Logger

	ctx       context.Context
	ctxCancel context.CancelFunc

	// Dimensions
	width  int
	height int

	help     help.Model
	keys     keyMap
	styles   Styles
	markdown *markdownRenderer
}

// New creates a Model and loads the session's recent history.
//
// ctx must be the same context passed to tea.WithContext so
// cancellation behaves consistently.
func New(ctx context.Context, opts Options) (*Model, error) {
	if opts.Client == nil {
		return nil, errors.New("tui.New: client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("tui.New: store is required")
	}
	if opts.Session == nil {
		return nil, errors.New("tui.New: session is required")
	}
	if opts.Config == nil {
		return nil, errors.New("tui.New: config is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)

	m := &Model{
		client:       opts.Client,
		store:        opts.Store,
		session:      opts.Session,
		logger:       logger,
		ctx:          ctx,
		ctxCancel:    cancel,
		historyLimit: opts.Config.HistoryLimit,
		help:         help.New(),
		keys:         newKeyMap(),
		styles:       DefaultStyles(),
		markdown:     newMarkdownRenderer(80),
		width:        80,
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m.spinner = sp

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{} // keys routed explicitly in handleKey
	m.viewport = vp

	modelID := opts.Session.ModelName
	if modelID == "" {
		modelID = opts.Config.ModelName
	}
	comp, err := composer.New(ctx, composer.Options{
		Sender:     m,
		Recognizer: opts.Recognizer,
		StagingDir: filepath.Join(opts.Config.DataDir, "staging"),
		ModelID:    modelID,
		Logger:     logger,
		Width:      80,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	m.composer = comp

	if err := m.loadHistory(ctx); err != nil {
		cancel()
		return nil, err
	}

	return m, nil
}

// loadHistory restores the session transcript from the store, both for
// display and as API turns for subsequent requests.
func (m *Model) loadHistory(ctx context.Context) error {
	msgs, err := m.store.Messages(ctx, m.session.ID, m.historyLimit)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		role := roleAssistant
		apiRole := gemini.RoleModel
		if msg.Role == store.RoleUser {
			role = roleUser
			apiRole = gemini.RoleUser
		}
		m.addMessage(Message{Role: role, Text: msg.Content, Attachments: msg.AttachmentCount})
		m.history = append(m.history, gemini.Message{Role: apiRole, Text: msg.Content})
	}
	return nil
}

// addMessage appends a transcript entry and enforces maxMessages.
func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// trimHistory keeps the most recent API turns within historyLimit.
func (m *Model) trimHistory() {
	if m.historyLimit > 0 && len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.composer.Init(),
	)
}
