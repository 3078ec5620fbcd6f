package render

import "github.com/charmbracelet/lipgloss"

var (
	ColorUser      = lipgloss.Color("#6b93b5")
	ColorAssistant = lipgloss.Color("#93b56b")
	ColorError     = lipgloss.Color("#d95f5f")
	ColorMuted     = lipgloss.Color("#5c5044")
	ColorWarning   = lipgloss.Color("#f5b761")
)

// Styles defines the lipgloss styles for the chat view
type Styles struct {
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Body           lipgloss.Style
	Error          lipgloss.Style
	Muted          lipgloss.Style
	Spinner        lipgloss.Style
	CodeFence      lipgloss.Style
}

// DefaultStyles returns the default chat view styling
func DefaultStyles() Styles {
	return Styles{
		UserLabel:      lipgloss.NewStyle().Foreground(ColorUser).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(ColorAssistant).Bold(true),
		Body:           lipgloss.NewStyle(),
		Error:          lipgloss.NewStyle().Foreground(ColorError),
		Muted:          lipgloss.NewStyle().Foreground(ColorMuted),
		Spinner:        lipgloss.NewStyle().Foreground(ColorWarning),
		CodeFence:      lipgloss.NewStyle().Foreground(ColorMuted),
	}
}
