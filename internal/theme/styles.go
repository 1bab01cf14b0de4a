package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/itory/itory/internal/domain"
)

// Main UI styles
var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(1, 0)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(1, 0)
)

// Header styles
var (
	AppNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	TaglineStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	VersionStyle = lipgloss.NewStyle().
			Foreground(ColorVersion)
)

// Stage view styles
var (
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	LinkStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Underline(true)

	QuestionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHighlight)

	StoryStyle = lipgloss.NewStyle().
			Foreground(ColorNormal).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().
	Foreground(ColorSpinner)

// Error style
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorError).
	Bold(true)

// PhaseStyle returns the style used to render a state of the given phase
func PhaseStyle(phase domain.Phase) lipgloss.Style {
	var color Color
	switch phase {
	case domain.PhaseAwaitingIntroGeneration, domain.PhaseChoiceSubmittedPolling, domain.PhaseAwaitingFinalize:
		color = ColorPolling
	case domain.PhaseIntroReady, domain.PhaseStageReady, domain.PhaseFinalizeComplete:
		color = ColorReady
	case domain.PhaseFailed:
		color = ColorFailed
	case domain.PhaseAwaitingChoice, domain.PhaseAllStagesComplete:
		color = ColorWaiting
	default:
		color = ColorMuted
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}
