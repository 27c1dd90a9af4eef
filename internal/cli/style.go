package cli

import "github.com/charmbracelet/lipgloss"

var okStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#04B575"))

var failStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FF4672"))

var dimStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#767676"))
