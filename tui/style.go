package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	styleUserInput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	stylePersona = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	stylePending = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleUnread = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)
)
