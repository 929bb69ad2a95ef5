package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/xxxsen/bmark/internal/model"
)

// Styles holds the lipgloss styles of the board screen.
type Styles struct {
	App        lipgloss.Style
	Header     lipgloss.Style
	Muted      lipgloss.Style
	Card       lipgloss.Style
	CardActive lipgloss.Style
	Row        lipgloss.Style
	RowActive  lipgloss.Style
	Title      lipgloss.Style
	URL        lipgloss.Style
	Note       lipgloss.Style
	Filter     lipgloss.Style
	FilterOn   lipgloss.Style
	Modal      lipgloss.Style
	Label      lipgloss.Style
	Info       lipgloss.Style
	Error      lipgloss.Style
	HelpKey    lipgloss.Style
	HelpDesc   lipgloss.Style
}

func DefaultStyles() Styles {
	primary := lipgloss.AdaptiveColor{Light: "#505050", Dark: "#A0A0A0"}
	subtle := lipgloss.AdaptiveColor{Light: "#888888", Dark: "#606060"}
	accent := lipgloss.AdaptiveColor{Light: "#4A7070", Dark: "#5F8787"}
	border := lipgloss.AdaptiveColor{Light: "#888888", Dark: "#505050"}

	return Styles{
		App: lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2).
			PaddingRight(2),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),

		Muted: lipgloss.NewStyle().
			Foreground(subtle),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),

		CardActive: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(accent).
			Padding(0, 1),

		Row: lipgloss.NewStyle().
			Foreground(primary).
			PaddingLeft(1),

		RowActive: lipgloss.NewStyle().
			PaddingLeft(1).
			Background(accent).
			Foreground(lipgloss.Color("#1A1A1A")),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),

		URL: lipgloss.NewStyle().
			Foreground(subtle),

		Note: lipgloss.NewStyle().
			Italic(true).
			Foreground(subtle),

		Filter: lipgloss.NewStyle().
			Foreground(subtle).
			Padding(0, 1),

		FilterOn: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(accent).
			Padding(0, 1),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(accent).
			Padding(1, 2),

		Label: lipgloss.NewStyle().
			Foreground(subtle),

		Info: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#338833", Dark: "#66CC66"}),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#CC3333", Dark: "#FF6666"}),

		HelpKey: lipgloss.NewStyle().
			Foreground(accent),

		HelpDesc: lipgloss.NewStyle().
			Foreground(subtle),
	}
}

// TagPill renders a tag in its palette color. The absent tag renders empty.
func (s Styles) TagPill(tag model.Tag) string {
	if tag == model.TagNone {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(tag.Color())).
		Bold(true).
		Render("#" + string(tag))
}
