// Package composer implements the message draft component: text and image
// attachments for the outgoing chat message, optional voice dictation,
// and the model selector.
//
// The composer owns the draft and nothing else. Sending is delegated to a
// MessageSender supplied by the caller; success and failure reporting,
// retries, and the in-flight flag all belong to the caller, which feeds
// the flag back in via SetSending.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"

	"github.com/parley-chat/parley/internal/attachment"
	"github.com/parley-chat/parley/internal/log"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/speech"
)

// MessageSender dispatches a finalized message. The returned command is
// handed straight to the Bubble Tea runtime; the composer never inspects
// the outcome.
type MessageSender interface {
	Send(text string, payloads []attachment.Payload) tea.Cmd
}

// maxStatusLen bounds the transient status line.
const maxStatusLen = 120

// Options configures a Composer.
type Options struct {
	Sender     MessageSender
	Recognizer speech.Recognizer // nil = dictation capability absent
	StagingDir string            // attachment staging directory
	ModelID    string            // initial model; registry fallback applies
	Logger     log.Logger
	Width      int
}

// Composer is the Bubble Tea sub-model for the message draft.
type Composer struct {
	input       textarea.Model
	attachments []*attachment.Attachment

	sender     MessageSender
	recognizer speech.Recognizer
	stagingDir string
	logger     log.Logger
	ctx        context.Context

	// sending mirrors the caller's in-flight flag; it is the sole
	// admission control against double-submit.
	sending  bool
	expanded bool
	closed   bool

	dictation DictationState
	session   speech.Session
	// starting covers the window between issuing the start command and
	// receiving dictationStartedMsg, when session is still nil.
	starting bool

	// inputHistory holds past submissions for up/down recall. histPos
	// equal to len(inputHistory) means not browsing; histStash keeps the
	// unsent draft while browsing.
	inputHistory []string
	histPos      int
	histStash    string

	selector selector
	modelID  string

	width  int
	status string

	styles Styles
}

// New creates a Composer. ctx bounds dictation sessions; it should be the
// context driving the surrounding program.
func New(ctx context.Context, opts Options) (*Composer, error) {
	if opts.Sender == nil {
		return nil, errors.New("composer.New: sender is required")
	}
	if opts.StagingDir == "" {
		return nil, errors.New("composer.New: staging dir is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}

	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.SetHeight(minInputHeight)
	ta.SetWidth(opts.Width)
	ta.ShowLineNumbers = false
	ta.Focus()

	return &Composer{
		input:      ta,
		sender:     opts.Sender,
		recognizer: opts.Recognizer,
		stagingDir: opts.StagingDir,
		logger:     opts.Logger,
		ctx:        ctx,
		modelID:    models.Lookup(opts.ModelID).ID,
		width:      opts.Width,
		styles:     DefaultStyles(),
	}, nil
}

// Init implements the component contract.
func (c *Composer) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, c.input.Focus())
}

// Update routes a message through the composer. The returned command may
// be nil.
func (c *Composer) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return c.handleKey(msg)

	case dictationStartedMsg:
		return c.handleDictationStarted(msg)

	case dictationEventMsg:
		return c.handleDictationEvent(msg)

	case dictationStartFailedMsg:
		// Logged, state stays Idle, nothing surfaced into the draft.
		c.logger.Error("dictation start failed", "error", msg.err)
		c.starting = false
		c.dictation = DictationIdle
		return nil
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	c.syncLayout()
	return cmd
}

// handleKey processes key input. Selector-open mode captures everything;
// otherwise composer-level chords run first and the rest falls through to
// the textarea.
func (c *Composer) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if c.selector.open {
		c.handleSelectorKey(msg)
		return nil
	}

	k := msg.Key()
	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'e':
			c.expanded = !c.expanded
			c.syncLayout()
			return nil
		case 'p':
			c.openSelector()
			return nil
		case 'v':
			return c.toggleDictation()
		}
	}

	if k.Code == tea.KeyEnter && k.Mod&tea.ModShift == 0 {
		return c.submit()
	}

	switch k.Code {
	case tea.KeyUp:
		if c.recallOlder() {
			return nil
		}
	case tea.KeyDown:
		if c.recallNewer() {
			return nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	c.histPos = len(c.inputHistory)
	c.status = ""
	c.syncLayout()
	return cmd
}

// submit is the send gate. No-op when the draft is empty (trimmed text
// and no attachments) or a send is already in flight. All attachments are
// encoded before anything is dispatched; one failed encode aborts the
// whole send and leaves the draft intact.
func (c *Composer) submit() tea.Cmd {
	text := strings.TrimSpace(c.input.Value())
	if text == "" && len(c.attachments) == 0 {
		return nil
	}
	if c.sending {
		return nil
	}

	payloads, err := c.encodeAll()
	if err != nil {
		c.logger.Error("attachment encoding failed, send aborted", "error", err)
		c.setStatus("attachment error: " + err.Error())
		return nil
	}

	cmd := c.sender.Send(text, payloads)
	c.recordSubmission(text)
	c.clearDraft()
	return cmd
}

// encodeAll produces payloads for every attachment, in order.
func (c *Composer) encodeAll() ([]attachment.Payload, error) {
	if len(c.attachments) == 0 {
		return nil, nil
	}
	payloads := make([]attachment.Payload, 0, len(c.attachments))
	for _, att := range c.attachments {
		p, err := att.Encode()
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// clearDraft resets text and releases every staged attachment. Draft text
// and attachments always clear together.
func (c *Composer) clearDraft() {
	c.input.Reset()
	for _, att := range c.attachments {
		att.Release()
	}
	c.attachments = nil
	c.expanded = false
	c.status = ""
	c.syncLayout()
}

// AddAttachments stages each path in order. Paths that fail to stage are
// reported on the status line and skipped; the rest are still added.
func (c *Composer) AddAttachments(paths ...string) {
	for _, path := range paths {
		att, err := attachment.Stage(c.stagingDir, path)
		if err != nil {
			c.logger.Warn("attachment rejected", "path", path, "error", err)
			c.setStatus("cannot attach: " + err.Error())
			continue
		}
		c.attachments = append(c.attachments, att)
	}
}

// RemoveAttachment removes and releases the attachment at index i.
// Out-of-range indices are silently ignored.
func (c *Composer) RemoveAttachment(i int) {
	if i < 0 || i >= len(c.attachments) {
		return
	}
	c.attachments[i].Release()
	c.attachments = append(c.attachments[:i], c.attachments[i+1:]...)
}

// SetSending mirrors the caller's in-flight flag into the send gate.
func (c *Composer) SetSending(sending bool) {
	c.sending = sending
}

// Sending reports the mirrored in-flight flag.
func (c *Composer) Sending() bool {
	return c.sending
}

// SetWidth resizes the input and recomputes layout.
func (c *Composer) SetWidth(w int) {
	if w <= 0 {
		return
	}
	c.width = w
	c.input.SetWidth(w)
	c.syncLayout()
}

// Value returns the current draft text.
func (c *Composer) Value() string {
	return c.input.Value()
}

// SetValue replaces the draft text.
func (c *Composer) SetValue(text string) {
	c.input.SetValue(text)
	c.input.CursorEnd()
	c.syncLayout()
}

// Empty reports whether the draft has neither text nor attachments.
func (c *Composer) Empty() bool {
	return strings.TrimSpace(c.input.Value()) == "" && len(c.attachments) == 0
}

// Attachments returns the staged attachments in draft order.
func (c *Composer) Attachments() []*attachment.Attachment {
	return c.attachments
}

// SelectedModel returns the current model id.
func (c *Composer) SelectedModel() string {
	return c.modelID
}

// Focus focuses the textarea.
func (c *Composer) Focus() tea.Cmd {
	return c.input.Focus()
}

// Close releases all draft resources and aborts any dictation session.
// Safe to call more than once.
func (c *Composer) Close() {
	c.closed = true
	for _, att := range c.attachments {
		att.Release()
	}
	c.attachments = nil
	if c.session != nil {
		c.session.Abort()
		c.session = nil
	}
	c.dictation = DictationIdle
}

// syncLayout recomputes the derived input height. Layout is a pure
// function of the draft text, width, and the expanded flag, recomputed
// on every change instead of stored.
func (c *Composer) syncLayout() {
	c.input.SetHeight(inputHeight(c.input.Value(), c.width, c.expanded))
}

// Height returns the total number of lines the composer view occupies,
// for the caller's viewport arithmetic.
func (c *Composer) Height() int {
	h := c.input.Height() + 1 // input + hint line
	if len(c.attachments) > 0 {
		h++
	}
	if c.status != "" {
		h++
	}
	if c.selector.open {
		h += c.selector.height()
	}
	return h
}

func (c *Composer) setStatus(s string) {
	if r := []rune(s); len(r) > maxStatusLen {
		s = string(r[:maxStatusLen])
	}
	c.status = s
}

// View renders the composer: optional selector overlay, attachment chips,
// the input, and a hint line.
func (c *Composer) View() string {
	var b strings.Builder

	if c.selector.open {
		b.WriteString(c.selectorView())
		b.WriteString("\n")
	}

	if len(c.attachments) > 0 {
		b.WriteString(c.attachmentsView())
		b.WriteString("\n")
	}

	b.WriteString(c.styles.Prompt.Render("> "))
	b.WriteString(c.input.View())
	b.WriteString("\n")

	if c.status != "" {
		b.WriteString(c.styles.Status.Render(c.status))
		b.WriteString("\n")
	}

	b.WriteString(c.hintView())
	return b.String()
}

// attachmentsView renders one chip per staged attachment.
func (c *Composer) attachmentsView() string {
	chips := make([]string, 0, len(c.attachments))
	for i, att := range c.attachments {
		label := fmt.Sprintf("[%d] %s (%s)", i+1, att.Name, humanSize(att.Size))
		chips = append(chips, c.styles.Chip.Render(label))
	}
	return strings.Join(chips, " ")
}

// hintView shows exactly one of the send hint or the model/dictation
// hints, chosen by whether the draft is non-empty.
func (c *Composer) hintView() string {
	if !c.Empty() {
		hint := "enter send"
		if showExpandHint(c.input.Value(), c.width, c.expanded) {
			hint += " • ctrl+e expand"
		}
		return c.styles.Hint.Render(hint)
	}

	hint := "ctrl+p model: " + models.DisplayName(c.modelID)
	if c.recognizer != nil {
		if c.dictation == DictationListening {
			hint += " • ctrl+v stop dictation ●"
		} else {
			hint += " • ctrl+v dictate"
		}
	}
	return c.styles.Hint.Render(hint)
}

// humanSize formats a byte count for the chip label.
func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
