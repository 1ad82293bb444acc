package termview

import "github.com/charmbracelet/lipgloss"

var (
	dayStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	relStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")) // gray, readable on dark terminals

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			PaddingLeft(2)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))

	contentStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Width(84)

	metaStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(lipgloss.Color("240"))

	audioStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("120"))
)
