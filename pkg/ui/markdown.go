package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// MarkdownRenderer renders NFT descriptions. It keeps the glamour renderer
// around and only rebuilds it when the wrap width changes.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	useTheme bool
	theme    *Theme
}

// NewMarkdownRenderer creates a renderer using glamour's stock style for
// the terminal background.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width}
	mr.rebuild()
	return mr
}

// NewMarkdownRendererWithTheme creates a renderer whose colors follow theme.
func NewMarkdownRendererWithTheme(width int, theme Theme) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width, useTheme: true, theme: &theme}
	mr.rebuild()
	return mr
}

// Render renders markdown. Without a renderer the input is returned as is.
func (mr *MarkdownRenderer) Render(markdown string) (string, error) {
	if mr.renderer == nil {
		return markdown, nil
	}
	return mr.renderer.Render(markdown)
}

// SetWidth changes the wrap width. Non-positive widths are ignored.
func (mr *MarkdownRenderer) SetWidth(width int) {
	if width <= 0 || width == mr.width {
		return
	}
	mr.width = width
	mr.rebuild()
}

// SetWidthWithTheme changes the wrap width and switches to theme colors.
func (mr *MarkdownRenderer) SetWidthWithTheme(width int, theme Theme) {
	if width > 0 {
		mr.width = width
	}
	mr.useTheme = true
	mr.theme = &theme
	mr.rebuild()
}

// IsDarkMode reports whether the terminal has a dark background.
func (mr *MarkdownRenderer) IsDarkMode() bool {
	if mr.theme != nil && mr.theme.Renderer != nil {
		return mr.theme.Renderer.HasDarkBackground()
	}
	return lipgloss.HasDarkBackground()
}

func (mr *MarkdownRenderer) rebuild() {
	dark := mr.IsDarkMode()
	var cfg ansi.StyleConfig
	switch {
	case mr.useTheme && mr.theme != nil:
		cfg = buildStyleFromTheme(*mr.theme, dark)
	case dark:
		cfg = styles.DarkStyleConfig
	default:
		cfg = styles.LightStyleConfig
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(cfg),
		glamour.WithWordWrap(mr.width),
	)
	if err != nil {
		mr.renderer = nil
		return
	}
	mr.renderer = r
}

// buildStyleFromTheme starts from glamour's stock style and recolors the
// parts a description typically uses.
func buildStyleFromTheme(theme Theme, dark bool) ansi.StyleConfig {
	cfg := styles.LightStyleConfig
	if dark {
		cfg = styles.DarkStyleConfig
	}
	cfg.Document.Color = strPtr(extractHex(theme.Text, dark))
	cfg.H1.Color = strPtr(extractHex(theme.Primary, dark))
	cfg.H2.Color = strPtr(extractHex(theme.Primary, dark))
	cfg.Link.Color = strPtr(extractHex(theme.Secondary, dark))
	cfg.Code.Color = strPtr(extractHex(theme.Highlight, dark))
	return cfg
}

func extractHex(c lipgloss.AdaptiveColor, dark bool) string {
	if dark {
		return c.Dark
	}
	return c.Light
}

func strPtr(s string) *string { return &s }
