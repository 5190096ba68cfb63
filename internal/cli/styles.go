package cli

import "github.com/charmbracelet/lipgloss"

var (
	OKStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	WarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// Swatch renders a small block in the habit's color, or a blank when the
// habit has none.
func Swatch(color *string) string {
	if color == nil || *color == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(*color)).Render("■")
}
