package composer

import "strings"

// maxInputHistory bounds the recall stack.
const maxInputHistory = 50

// recordSubmission pushes a sent draft onto the recall stack and leaves
// browsing mode. Consecutive duplicates collapse into one entry.
func (c *Composer) recordSubmission(text string) {
	if text == "" {
		c.histPos = len(c.inputHistory)
		return
	}
	if n := len(c.inputHistory); n == 0 || c.inputHistory[n-1] != text {
		c.inputHistory = append(c.inputHistory, text)
		if len(c.inputHistory) > maxInputHistory {
			c.inputHistory = c.inputHistory[len(c.inputHistory)-maxInputHistory:]
		}
	}
	c.histPos = len(c.inputHistory)
}

// recallOlder replaces the draft with the previous submission. Recall
// only engages on a single-line draft so up never hijacks cursor
// movement in a multi-line draft. Returns whether the key was consumed.
func (c *Composer) recallOlder() bool {
	if len(c.inputHistory) == 0 || strings.Contains(c.input.Value(), "\n") {
		return false
	}
	if c.histPos == 0 {
		// Already at the oldest entry.
		return true
	}
	if c.histPos == len(c.inputHistory) {
		c.histStash = c.input.Value()
	}
	c.histPos--
	c.setRecalled(c.inputHistory[c.histPos])
	return true
}

// recallNewer walks back toward the stashed unsent draft.
func (c *Composer) recallNewer() bool {
	if c.histPos >= len(c.inputHistory) {
		return false
	}
	c.histPos++
	if c.histPos == len(c.inputHistory) {
		c.setRecalled(c.histStash)
	} else {
		c.setRecalled(c.inputHistory[c.histPos])
	}
	return true
}

func (c *Composer) setRecalled(text string) {
	c.input.SetValue(text)
	c.input.CursorEnd()
	c.syncLayout()
}
