package composer

import "strings"

// Input height bounds. Content grows the input up to maxInputHeight;
// expanding pins it to expandedHeight regardless of content.
const (
	minInputHeight = 1
	maxInputHeight = 5
	expandedHeight = 10

	// expandThreshold is the estimated line count above which the expand
	// hint is surfaced.
	expandThreshold = 2
)

// estimateLines approximates how many terminal lines text occupies when
// soft-wrapped at width. This is a presentation heuristic, not an exact
// wrap computation: it counts runes, not grapheme clusters, and ignores
// wide characters. Good enough to size the input and decide whether the
// expand hint is worth showing.
func estimateLines(text string, width int) int {
	if width <= 0 {
		width = 80
	}
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		n := len([]rune(line))
		if n == 0 {
			lines++
			continue
		}
		lines += (n + width - 1) / width
	}
	if lines < 1 {
		lines = 1
	}
	return lines
}

// inputHeight derives the textarea height from the draft text, evaluated
// in order: expanded wins, then empty text collapses to the minimum, then
// content height capped at the maximum.
func inputHeight(text string, width int, expanded bool) int {
	if expanded {
		return expandedHeight
	}
	if strings.TrimSpace(text) == "" {
		return minInputHeight
	}
	return min(estimateLines(text, width), maxInputHeight)
}

// showExpandHint reports whether the expand affordance should be shown:
// always while expanded, otherwise once the draft is estimated to span
// more than expandThreshold lines.
func showExpandHint(text string, width int, expanded bool) bool {
	if expanded {
		return true
	}
	return estimateLines(text, width) > expandThreshold
}
