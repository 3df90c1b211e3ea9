package cmd

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	sectionStyle = lipgloss.NewStyle().MarginTop(1).Bold(true).Underline(true)
)

// field renders "label: value" with a dimmed, fixed-width label.
func field(label, value string) string {
	return labelStyle.Width(14).Render(label+":") + " " + value
}
