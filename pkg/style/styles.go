// Package style centralizes terminal styling for demigrate's user-facing
// output. Styles degrade to plain text when stdout is not a terminal.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette
var (
	HeadingColor = lipgloss.Color("12")
	SuccessColor = lipgloss.Color("10")
	WarningColor = lipgloss.Color("11")
	ErrorColor   = lipgloss.Color("9")
	MutedColor   = lipgloss.Color("8")
	PathColor    = lipgloss.Color("14")
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(HeadingColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	PathStyle = lipgloss.NewStyle().
			Foreground(PathColor).
			Italic(true)
)

// Indicators
var (
	SuccessIndicator = SuccessStyle.Render("✓")
	ErrorIndicator   = ErrorStyle.Render("✗")
	WarningIndicator = WarningStyle.Render("!")
	InfoIndicator    = MutedStyle.Render("•")
)

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Bold returns the string in bold when the terminal supports it.
func Bold(s string) string {
	if !IsTerminal() {
		return s
	}
	return lipgloss.NewStyle().Bold(true).Render(s)
}

// Indent pads the string by level indentation steps.
func Indent(s string, level int) string {
	return lipgloss.NewStyle().PaddingLeft(level * 2).Render(s)
}

func init() {
	// Fall back to unstyled output when piped or when the terminal
	// advertises no color support.
	if !IsTerminal() || termenv.ColorProfile() == termenv.Ascii {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
