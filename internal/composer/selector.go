package composer

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/parley-chat/parley/internal/models"
)

// selector is the model dropdown state. While open it captures all key
// input; any key that is not navigation or selection closes it, the
// terminal analogue of a pointer-down outside the dropdown.
type selector struct {
	open   bool
	cursor int
}

func (s selector) height() int {
	return len(models.Registry) + 2 // entries + border
}

// OpenSelector opens the model dropdown, for callers outside the key
// handler such as a slash command.
func (c *Composer) OpenSelector() {
	c.openSelector()
}

// openSelector opens the dropdown with the cursor on the current model.
func (c *Composer) openSelector() {
	c.selector.open = true
	c.selector.cursor = 0
	for i, m := range models.Registry {
		if m.ID == c.modelID {
			c.selector.cursor = i
			break
		}
	}
}

func (c *Composer) handleSelectorKey(msg tea.KeyPressMsg) {
	switch msg.Key().Code {
	case tea.KeyUp:
		if c.selector.cursor > 0 {
			c.selector.cursor--
		}
	case tea.KeyDown:
		if c.selector.cursor < len(models.Registry)-1 {
			c.selector.cursor++
		}
	case tea.KeyEnter:
		c.modelID = models.Registry[c.selector.cursor].ID
		c.selector.open = false
	default:
		// Escape or any other key: close without selecting.
		c.selector.open = false
	}
}

// selectorView renders the dropdown listing the registry in declaration
// order, marking the cursor row and the currently selected model.
func (c *Composer) selectorView() string {
	var b strings.Builder
	for i, m := range models.Registry {
		line := "  "
		if i == c.selector.cursor {
			line = "▸ "
		}
		line += m.Name
		if m.ID == c.modelID {
			line += " ✓"
		}
		if i == c.selector.cursor {
			b.WriteString(c.styles.SelectorActive.Render(line))
		} else {
			b.WriteString(c.styles.SelectorItem.Render(line))
		}
		if i < len(models.Registry)-1 {
			b.WriteString("\n")
		}
	}
	return c.styles.SelectorBox.Render(b.String())
}
