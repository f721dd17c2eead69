package tui

import "github.com/charmbracelet/lipgloss"

// hum brand colors
var (
	colorViolet  = lipgloss.Color("#A78BFA")
	colorIndigo  = lipgloss.Color("#7C6FDE")
	colorDimGray = lipgloss.Color("#555555")
	colorGreen   = lipgloss.Color("#50C878")
	colorRed     = lipgloss.Color("#FF6B6B")
	colorYellow  = lipgloss.Color("#E8C547")
	colorCyan    = lipgloss.Color("#88C0D0")
	colorWhite   = lipgloss.Color("#E6E6E6")
	colorSubtle  = lipgloss.Color("#888888")
)

var (
	// Panel borders
	inputBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorViolet).
			Padding(0, 1)

	menuBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorIndigo).
			Padding(1, 2)

	statusBar = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Padding(0, 1)

	// Text styles
	titleStyle = lipgloss.NewStyle().
			Foreground(colorViolet).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	userStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	toolCallStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	toolResultStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	successStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	cancelStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Italic(true)
)
