package styles

import (
	"maps"
	"slices"

	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of semantic colors every style is derived from.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme is used when the config names no theme.
const DefaultTheme = "tokyo-night"

// hexPalette builds a Palette from hex strings in field order.
func hexPalette(primary, secondary, fg, muted, bg, surface, success, warning, errc string) Palette {
	return Palette{
		Primary:    lipgloss.Color(primary),
		Secondary:  lipgloss.Color(secondary),
		Foreground: lipgloss.Color(fg),
		Muted:      lipgloss.Color(muted),
		Background: lipgloss.Color(bg),
		Surface:    lipgloss.Color(surface),
		Success:    lipgloss.Color(success),
		Warning:    lipgloss.Color(warning),
		Error:      lipgloss.Color(errc),
	}
}

var themes = map[string]Palette{
	//                         primary    secondary  fg         muted      bg         surface    success    warning    error
	"tokyo-night": hexPalette("#7aa2f7", "#7dcfff", "#c0caf5", "#565f89", "#1a1b26", "#3b4261", "#9ece6a", "#e0af68", "#f7768e"),
	"gruvbox":     hexPalette("#83a598", "#8ec07c", "#ebdbb2", "#665c54", "#282828", "#3c3836", "#b8bb26", "#fabd2f", "#fb4934"),
	"catppuccin":  hexPalette("#89b4fa", "#94e2d5", "#cdd6f4", "#6c7086", "#1e1e2e", "#313244", "#a6e3a1", "#f9e2af", "#f38ba8"),
	"nord":        hexPalette("#88c0d0", "#81a1c1", "#d8dee9", "#4c566a", "#2e3440", "#3b4252", "#a3be8c", "#ebcb8b", "#bf616a"),
	"dracula":     hexPalette("#bd93f9", "#8be9fd", "#f8f8f2", "#6272a4", "#282a36", "#44475a", "#50fa7b", "#f1fa8c", "#ff5555"),
}

// ThemeNames returns the built-in theme names in sorted order.
func ThemeNames() []string {
	return slices.Sorted(maps.Keys(themes))
}

// GetPalette looks up a built-in theme.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

func hexRef(c lipgloss.Color) *string {
	if c == "" {
		return nil
	}
	s := string(c)
	return &s
}

// GlamourStyle adapts glamour's dark style to the active palette. Code blocks
// keep glamour's syntax colors.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig

	fg, muted := hexRef(ColorForeground), hexRef(ColorMuted)
	primary, secondary := hexRef(ColorPrimary), hexRef(ColorSecondary)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg
	cfg.Table.Color = fg

	cfg.Heading.Color = primary
	for _, h := range []*glamouransi.StyleBlock{&cfg.H2, &cfg.H3, &cfg.H4, &cfg.H5, &cfg.H6} {
		h.Color = primary
	}
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = hexRef(ColorSurface)

	cfg.Item.Color = fg
	cfg.Enumeration.Color = secondary
	cfg.Strong.Color = primary
	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary
	cfg.Code.Color = secondary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	return cfg
}
