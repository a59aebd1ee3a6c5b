package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Accent color for the Parley banner and headers.
const accentColor = "#5FAFFF"

// PARLEY ASCII art banner.
var parleyArt = []string{
	"  ██████╗  █████╗ ██████╗ ██╗     ███████╗██╗   ██╗",
	"  ██╔══██╗██╔══██╗██╔══██╗██║     ██╔════╝╚██╗ ██╔╝",
	"  ██████╔╝███████║██████╔╝██║     █████╗   ╚████╔╝ ",
	"  ██╔═══╝ ██╔══██║██╔══██╗██║     ██╔══╝    ╚██╔╝  ",
	"  ██║     ██║  ██║██║  ██║███████╗███████╗   ██║   ",
	"  ╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝   ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the styled ASCII art banner.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range parleyArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips lists getting started hints shown under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Type a message and press Enter to send",
	"  • /attach <path> adds an image to the next message",
	"  • Ctrl+P switches models, Ctrl+V dictates when configured",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
}

// RenderWelcomeTips returns the styled welcome tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
