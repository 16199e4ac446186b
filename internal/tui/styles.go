package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/signcap/internal/classifier"
)

var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for hints and key help
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	StyleHighlight = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	// Box style for bordered containers
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(1, 2)

	// AlertBox frames a message that needs acknowledging
	StyleAlertBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(1, 2)
)

// SeverityStyle maps a confidence band to the result box color.
func SeverityStyle(s classifier.Severity) lipgloss.Style {
	color := ColorSuccess
	switch s {
	case classifier.Warning:
		color = ColorWarning
	case classifier.Critical:
		color = ColorError
	}
	return StyleBox.BorderForeground(color).Foreground(color)
}

const logoASCII = `
     _                            
 ___(_) __ _ _ __   ___ __ _ _ __  
/ __| |/ _` + "`" + ` | '_ \ / __/ _` + "`" + ` | '_ \ 
\__ \ | (_| | | | | (_| (_| | |_) |
|___/_|\__, |_| |_|\___\__,_| .__/ 
       |___/                |_|    `

// Logo returns the signcap ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
