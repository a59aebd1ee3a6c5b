package tui

import (
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash command constants.
const (
	cmdHelp   = "/help"
	cmdClear  = "/clear"
	cmdModel  = "/model"
	cmdAttach = "/attach"
	cmdDetach = "/detach"
	cmdExit   = "/exit"
	cmdQuit   = "/quit"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	Expand     key.Binding
	Model      key.Binding
	Dictate    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		Expand:     key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "expand")),
		Model:      key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "model")),
		Dictate:    key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "dictate")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

//nolint:gocyclo // Keyboard handler requires branching for all key combinations
func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			return m, m.cleanup()
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		// Slash commands are routed here before the composer can
		// treat Enter as a send.
		if k.Mod&tea.ModShift == 0 {
			if q := strings.TrimSpace(m.composer.Value()); strings.HasPrefix(q, "/") {
				return m.handleSlashCommand(q)
			}
		}

	case tea.KeyEscape:
		if m.state == StateStreaming || m.state == StateThinking {
			m.cancelStream()
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	// The composer owns everything else: typing, Enter submit, the
	// model selector, expand, and dictation shortcuts.
	cmd := m.composer.Update(msg)
	m.resizeViewport()
	return m, cmd
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second = quit
	if now.Sub(m.lastCtrlC) < time.Second {
		return m, m.cleanup()
	}
	m.lastCtrlC = now

	switch m.state {
	case StateInput:
		m.composer.SetValue("")
	case StateThinking, StateStreaming:
		m.cancelStream()
	}
	return m, nil
}

func (m *Model) handleSlashCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case cmdHelp:
		m.addMessage(Message{
			Role: roleSystem,
			Text: "Commands: /help, /clear, /model, /attach <path>, /detach <n>, /exit\n" +
				"Shortcuts:\n" +
				"  Enter: send    Shift+Enter: new line\n" +
				"  Ctrl+E: expand input    Ctrl+P: model selector    Ctrl+V: dictation\n" +
				"  Ctrl+C: cancel/clear    Ctrl+D: exit    PgUp/PgDn: scroll",
		})

	case cmdClear:
		m.messages = nil
		m.history = nil

	case cmdModel:
		m.composer.OpenSelector()

	case cmdAttach:
		if len(args) == 0 {
			m.addMessage(Message{Role: roleError, Text: "Usage: /attach <path> [path...]"})
			break
		}
		m.composer.AddAttachments(args...)

	case cmdDetach:
		if len(args) != 1 {
			m.addMessage(Message{Role: roleError, Text: "Usage: /detach <n>"})
			break
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			m.addMessage(Message{Role: roleError, Text: "Usage: /detach <n>"})
			break
		}
		m.composer.RemoveAttachment(n - 1)

	case cmdExit, cmdQuit:
		return m, m.cleanup()

	default:
		m.addMessage(Message{Role: roleError, Text: "Unknown command: " + cmd})
	}

	m.composer.SetValue("")
	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m, nil
}
