package formatters

import "github.com/charmbracelet/lipgloss"

// Palette using ANSI colors for broad terminal compatibility.
var (
	primary   = lipgloss.Color("4")   // Blue
	secondary = lipgloss.Color("245") // Light gray
	success   = lipgloss.Color("2")   // Green
	highlight = lipgloss.Color("12")  // Bright blue
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	labelStyle = lipgloss.NewStyle().
			Foreground(secondary).
			Width(labelWidth)

	shapeStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	totalStyle = lipgloss.NewStyle().
			Foreground(success).
			Bold(true)
)

const labelWidth = 10
