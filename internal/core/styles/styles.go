// Package styles provides shared lipgloss styles for CLI and TUI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Active palette colors. Set by SetTheme.
var (
	CurrentPalette Palette

	ColorPrimary    lipgloss.Color
	ColorSecondary  lipgloss.Color
	ColorForeground lipgloss.Color
	ColorMuted      lipgloss.Color
	ColorBackground lipgloss.Color
	ColorSurface    lipgloss.Color
	ColorSuccess    lipgloss.Color
	ColorWarning    lipgloss.Color
	ColorError      lipgloss.Color
)

// Style exports.
var (
	// CLI styles.
	HeaderStyle  lipgloss.Style
	TitleStyle   lipgloss.Style
	MutedStyle   lipgloss.Style
	DividerStyle lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	LinkStyle    lipgloss.Style

	// Commit feed.
	DayHeaderStyle lipgloss.Style
	DateStyle      lipgloss.Style
	SHAStyle       lipgloss.Style
	RepoStyle      lipgloss.Style
	TimeStyle      lipgloss.Style

	// Score cards for optimize, audit and showcase.
	CardStyle      lipgloss.Style
	CardLabelStyle lipgloss.Style
	CardValueStyle lipgloss.Style
	BadgeStyle     lipgloss.Style

	// Job progress view.
	StepDoneStyle    lipgloss.Style
	StepActiveStyle  lipgloss.Style
	StepPendingStyle lipgloss.Style
)

// ColorPool is used for deterministic color hashing of repository names.
var ColorPool []lipgloss.Color

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	ColorPrimary = p.Primary
	ColorSecondary = p.Secondary
	ColorForeground = p.Foreground
	ColorMuted = p.Muted
	ColorBackground = p.Background
	ColorSurface = p.Surface
	ColorSuccess = p.Success
	ColorWarning = p.Warning
	ColorError = p.Error

	HeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	TitleStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		Bold(true)
	MutedStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	DividerStyle = lipgloss.NewStyle().
		Foreground(ColorSurface)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	LinkStyle = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Underline(true)

	DayHeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		MarginTop(1)
	DateStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Italic(true)
	SHAStyle = lipgloss.NewStyle().
		Foreground(ColorWarning)
	RepoStyle = lipgloss.NewStyle().
		Foreground(ColorSecondary)
	TimeStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSurface).
		Padding(0, 2)
	CardLabelStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	CardValueStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		Bold(true)
	BadgeStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(ColorSurface).
		Foreground(ColorForeground)

	StepDoneStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	StepActiveStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	StepPendingStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	ColorPool = []lipgloss.Color{
		ColorPrimary,
		ColorSecondary,
		ColorSuccess,
		ColorWarning,
		ColorError,
	}
}

// SetThemeByName activates a built-in theme. It reports false and leaves the
// current theme in place when name is unknown.
func SetThemeByName(name string) bool {
	p, ok := GetPalette(name)
	if !ok {
		return false
	}
	SetTheme(p)
	return true
}

// ColorForString returns a deterministic color for a given string.
// The same string always produces the same color.
func ColorForString(s string) lipgloss.Color {
	var hash uint32
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}
	return ColorPool[hash%uint32(len(ColorPool))]
}

// ScoreColor blends from the error color at 0 to the success color at 100.
// Scores outside [0, 100] are clamped.
func ScoreColor(score float64) lipgloss.Color {
	low, err := colorful.Hex(string(ColorError))
	if err != nil {
		return ColorForeground
	}
	high, err := colorful.Hex(string(ColorSuccess))
	if err != nil {
		return ColorForeground
	}

	t := min(max(score/100, 0), 1)
	return lipgloss.Color(low.BlendLab(high, t).Clamped().Hex())
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
