package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#3B82F6")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	warnColor    = lipgloss.Color("#EAB308")
	textColor    = lipgloss.Color("#E5E7EB")
	mutedColor   = lipgloss.Color("#6B7280")
)

// Styles holds the lipgloss styles used across the TUI.
type Styles struct {
	StatusBar        lipgloss.Style
	Border           lipgloss.Style
	InputPrompt      lipgloss.Style
	AssistantMessage lipgloss.Style
	Thinking         lipgloss.Style
	StepSuccess      lipgloss.Style
	StepError        lipgloss.Style
	StepSkipped      lipgloss.Style
	Help             lipgloss.Style
	HelpKey          lipgloss.Style
	HelpDesc         lipgloss.Style
}

// DefaultStyles returns the default style set.
func DefaultStyles() Styles {
	return Styles{
		StatusBar: lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1),
		InputPrompt: lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true),
		AssistantMessage: lipgloss.NewStyle().
			PaddingLeft(1),
		Thinking: lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true),
		StepSuccess: lipgloss.NewStyle().Foreground(successColor),
		StepError:   lipgloss.NewStyle().Foreground(errorColor),
		StepSkipped: lipgloss.NewStyle().Foreground(warnColor),
		Help:        lipgloss.NewStyle().PaddingLeft(1),
		HelpKey:     lipgloss.NewStyle().Foreground(primaryColor).Bold(true),
		HelpDesc:    lipgloss.NewStyle().Foreground(mutedColor),
	}
}
