package feed

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan   = lipgloss.Color("36")  // Teal - titles, pinned
	colorYellow = lipgloss.Color("220") // Amber - tags
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - borders, help
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleMeta  = lipgloss.NewStyle().Foreground(colorGray)
	styleTag   = lipgloss.NewStyle().Foreground(colorYellow)
	stylePin   = lipgloss.NewStyle().Foreground(colorCyan)
	styleDim   = lipgloss.NewStyle().Foreground(colorDim)
	styleError = lipgloss.NewStyle().Foreground(colorRed)

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1).
			MarginBottom(1)

	styleHeader = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorCyan).
			Padding(0, 1).
			MarginBottom(1)
)

// columnGap is the number of blank cells between columns.
const columnGap = 1
