package cli

import "github.com/charmbracelet/lipgloss"

// Output styles. Colour is dropped automatically when stdout is not a terminal.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498DB"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Width(14)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F39C12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

// field renders one "label value" line.
func field(label, value string) string {
	return labelStyle.Render(label) + value
}
