package composer

import "charm.land/lipgloss/v2"

// Styles contains the lipgloss styles for the composer.
type Styles struct {
	Prompt         lipgloss.Style
	Chip           lipgloss.Style
	Status         lipgloss.Style
	Hint           lipgloss.Style
	SelectorBox    lipgloss.Style
	SelectorItem   lipgloss.Style
	SelectorActive lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Prompt:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Chip:           lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("237")),
		Status:         lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Hint:           lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		SelectorBox:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		SelectorItem:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		SelectorActive: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	}
}
