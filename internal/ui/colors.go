// Package ui holds the shared terminal palette and symbols for status
// output around the dashboard. Nothing here is used inside the report
// block itself, which must stay plain fixed-width text.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette using ANSI color codes for terminal compatibility.

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// Styles shared by the CLI and the supervisor's status lines.
var (
	StyleError  = lipgloss.NewStyle().Foreground(ColorError)
	StyleStatus = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted  = lipgloss.NewStyle().Foreground(ColorMuted)
)
