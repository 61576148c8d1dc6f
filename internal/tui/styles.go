package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorBrand  = lipgloss.Color("63")  // Ethereum indigo
	ColorBorder = lipgloss.Color("238") // Subtle border

	ColorMuted  = lipgloss.Color("241") // Labels, static text
	ColorNormal = lipgloss.Color("252") // Paragraphs
	ColorBright = lipgloss.Color("255") // Dynamic values, emphasis
	ColorAccent = lipgloss.Color("99")  // Action keys

	ColorWarning = lipgloss.Color("220")
	ColorDanger  = lipgloss.Color("196")
	ColorInfo    = lipgloss.Color("75")
)

// Text styles
var (
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	TextNormal  = lipgloss.NewStyle().Foreground(ColorNormal)
	TextBright  = lipgloss.NewStyle().Foreground(ColorBright)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	TextDanger  = lipgloss.NewStyle().Foreground(ColorDanger)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)

	// TextAction for keys/buttons
	TextAction = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			Background(ColorBrand).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1).
			MarginLeft(2)
)

// KeyHint creates a keyboard hint like "[k] action"
func KeyHint(key, action string) string {
	return TextAction.Render("["+key+"]") + " " + TextMuted.Render(action)
}

// KeyHints joins multiple key hints
func KeyHints(hints ...string) string {
	return strings.Join(hints, "  ")
}

func box(border lipgloss.Color, heading lipgloss.Style, title, message string, width int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if width > 0 {
		style = style.Width(width)
	}

	content := heading.Bold(true).Render(title)
	if message != "" {
		content += "\n" + TextNormal.Render(message)
	}
	return style.Render(content)
}

// InfoBox renders a result in an outlined box.
func InfoBox(title, message string, width int) string {
	return box(ColorInfo, TextInfo, "ℹ "+title, message, width)
}

// ErrorBox renders a recoverable failure.
func ErrorBox(title, message string, width int) string {
	return box(ColorDanger, TextDanger, "✗ "+title, message, width)
}

// splitTitle uses the first line of text as the box title.
func splitTitle(text string) (string, string) {
	title, rest, _ := strings.Cut(text, "\n")
	return title, rest
}
