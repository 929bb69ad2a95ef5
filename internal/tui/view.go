package tui

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/xxxsen/bmark/internal/board"
	"github.com/xxxsen/bmark/internal/favicon"
	"github.com/xxxsen/bmark/internal/model"
)

const (
	cardWidth    = 34
	fallbackIcon = "◇"
)

func (a App) View() string {
	var sections []string
	sections = append(sections, a.renderHeader())

	switch {
	case !a.snap.Resolved:
		sections = append(sections, a.styles.Muted.Render("Checking session..."))
	case a.snap.Identity == nil:
		sections = append(sections, a.styles.Muted.Render("Not signed in. Run `bmark login` to sign in."))
	default:
		sections = append(sections, a.renderFilters(), a.renderStatus())
		switch a.mode {
		case ModeForm:
			sections = append(sections, a.renderForm())
		case ModeConfirmDelete:
			sections = append(sections, a.renderConfirm())
		case ModeProfile:
			sections = append(sections, a.renderProfile())
		default:
			sections = append(sections, a.renderBody())
		}
	}

	sections = append(sections, a.renderNotice(), a.renderHelp())
	return a.styles.App.Render(strings.Join(sections, "\n\n"))
}

func (a App) renderHeader() string {
	title := a.styles.Header.Render("bmark")
	if a.snap.Identity == nil {
		return title
	}
	count := fmt.Sprintf("%d of %d", len(a.snap.View), a.snap.Total)
	return title + "  " + a.styles.Muted.Render(a.snap.Identity.Label()+" · "+count)
}

func (a App) renderFilters() string {
	current := currentTag(a.snap.Criteria)
	parts := make([]string, 0, len(a.snap.Filters))
	for _, opt := range a.snap.Filters {
		label := opt
		if opt != board.AllTags {
			label = "#" + opt
		}
		if opt == current {
			parts = append(parts, a.styles.FilterOn.Render(label))
			continue
		}
		style := a.styles.Filter
		if color := model.Tag(opt).Color(); color != "" {
			style = style.Foreground(lipgloss.Color(color))
		}
		parts = append(parts, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a App) renderStatus() string {
	sortKey := a.snap.Criteria.Sort
	if sortKey == "" {
		sortKey = board.SortNewest
	}
	status := a.styles.Muted.Render(fmt.Sprintf("sort: %s  view: %s", sortKey, a.layout))
	if a.mode == ModeSearch {
		return status + "  " + a.search.View()
	}
	if q := strings.TrimSpace(a.snap.Criteria.Query); q != "" {
		status += "  " + a.styles.Muted.Render("search: "+q)
	}
	return status
}

func (a App) renderBody() string {
	if len(a.snap.View) == 0 {
		if a.snap.Total == 0 {
			return a.styles.Muted.Render("No bookmarks yet. Press a to add one.")
		}
		return a.styles.Muted.Render("No bookmarks match.")
	}
	if a.layout == LayoutRows {
		return a.renderRows()
	}
	return a.renderCards()
}

// columns is the number of cards per grid row at the current width.
func (a App) columns() int {
	usable := a.width - 4
	cols := usable / (cardWidth + 2)
	if cols < 1 {
		return 1
	}
	return cols
}

func (a App) visibleRows(lineHeight int) int {
	// header, filters, status, notice, help and the gaps between them
	rows := (a.height - 12) / lineHeight
	if rows < 1 {
		return 1
	}
	return rows
}

func (a App) renderCards() string {
	cols := a.columns()
	gridRows := (len(a.snap.View) + cols - 1) / cols
	visible := a.visibleRows(6)
	first := 0
	if cursorRow := a.cursor / cols; cursorRow >= visible {
		first = cursorRow - visible + 1
	}

	lines := make([]string, 0, visible)
	for r := first; r < gridRows && r < first+visible; r++ {
		cards := make([]string, 0, cols)
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if idx >= len(a.snap.View) {
				break
			}
			cards = append(cards, a.renderCard(a.snap.View[idx], idx == a.cursor))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (a App) renderCard(item model.Bookmark, active bool) string {
	inner := cardWidth - 4
	var b strings.Builder
	b.WriteString(a.faviconGlyph(item.URL) + " " + a.styles.Title.Render(truncate(item.Title, inner-2)))
	b.WriteString("\n" + a.styles.URL.Render(truncate(displayHost(item.URL), inner)))
	b.WriteString("\n" + a.styles.Note.Render(truncate(item.Note, inner)))
	b.WriteString("\n" + a.styles.TagPill(item.Tag))
	style := a.styles.Card
	if active {
		style = a.styles.CardActive
	}
	return style.Width(cardWidth - 2).Render(b.String())
}

func (a App) renderRows() string {
	visible := a.visibleRows(1)
	first := 0
	if a.cursor >= visible {
		first = a.cursor - visible + 1
	}
	titleWidth := a.width/2 - 8
	if titleWidth < 16 {
		titleWidth = 16
	}
	lines := make([]string, 0, visible)
	for i := first; i < len(a.snap.View) && i < first+visible; i++ {
		item := a.snap.View[i]
		line := fmt.Sprintf("%s %-*s  %-10s %s",
			a.faviconGlyph(item.URL),
			titleWidth, truncate(item.Title, titleWidth),
			string(item.Tag),
			truncate(item.URL, a.width-titleWidth-20),
		)
		if i == a.cursor {
			lines = append(lines, a.styles.RowActive.Render(line))
		} else {
			lines = append(lines, a.styles.Row.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (a App) renderForm() string {
	heading := "Add Bookmark"
	if a.form.EditID != "" {
		heading = "Edit Bookmark"
	}
	var b strings.Builder
	b.WriteString(a.styles.Header.Render(heading) + "\n\n")
	b.WriteString(a.styles.Label.Render("Title:") + "\n" + a.form.Title.View() + "\n\n")
	b.WriteString(a.styles.Label.Render("URL:") + "\n" + a.form.URL.View() + "\n\n")
	b.WriteString(a.styles.Label.Render("Note:") + "\n" + a.form.Note.View() + "\n\n")

	tag := "(none)"
	if a.form.Tag != model.TagNone {
		tag = a.styles.TagPill(a.form.Tag)
	}
	marker := "  "
	if a.form.Focus == fieldTag {
		marker = "> "
	}
	b.WriteString(a.styles.Label.Render("Tag:") + "\n" + marker + "< " + tag + " >\n\n")

	switch {
	case a.form.Submitting:
		b.WriteString(a.styles.Muted.Render("Saving..."))
	case board.CanSubmit(a.form.Draft()):
		b.WriteString(a.renderHints(a.keys.Accept, a.keys.Next, a.keys.Cancel))
	default:
		b.WriteString(a.styles.Muted.Render("Title and URL are required") + "  " + a.renderHints(a.keys.Cancel))
	}
	return a.styles.Modal.Render(b.String())
}

func (a App) renderConfirm() string {
	if a.target == nil {
		return ""
	}
	content := a.styles.Header.Render("Delete bookmark?") + "\n\n" +
		a.styles.Title.Render(a.target.Title) + "\n" +
		a.styles.URL.Render(a.target.URL) + "\n\n" +
		a.renderHints(a.keys.Confirm, a.keys.Deny)
	return a.styles.Modal.Render(content)
}

func (a App) renderProfile() string {
	identity := a.snap.Identity
	if identity == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(a.styles.Header.Render(identity.Label()) + "\n")
	if identity.Email != "" && identity.Email != identity.Label() {
		b.WriteString(a.styles.Muted.Render(identity.Email) + "\n")
	}
	b.WriteString("\n" + a.renderHints(a.keys.SignOut, a.keys.Cancel))
	return a.styles.Modal.Render(b.String())
}

func (a App) renderNotice() string {
	if a.notice == nil {
		return ""
	}
	if a.notice.Kind == board.NoticeError {
		return a.styles.Error.Render("✗ " + a.notice.Text)
	}
	return a.styles.Info.Render("✓ " + a.notice.Text)
}

func (a App) renderHelp() string {
	switch a.mode {
	case ModeSearch:
		return a.styles.HelpDesc.Render("enter keep  esc clear")
	case ModeNormal:
		if a.snap.Identity == nil {
			return a.renderHints(a.keys.Quit)
		}
		return a.renderHints(a.keys.normalHelp()...)
	}
	return ""
}

func (a App) renderHints(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, a.styles.HelpKey.Render(h.Key)+" "+a.styles.HelpDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// faviconGlyph stands in for the favicon image: the host initial when a
// favicon URL resolves, the fallback glyph otherwise.
func (a App) faviconGlyph(raw string) string {
	if a.favicons.URL(raw) == "" {
		return fallbackIcon
	}
	host := strings.TrimPrefix(favicon.Host(raw), "www.")
	r, _ := utf8.DecodeRuneInString(host)
	if r == utf8.RuneError || !unicode.IsPrint(r) {
		return fallbackIcon
	}
	return string(unicode.ToUpper(r))
}

func displayHost(raw string) string {
	if host := favicon.Host(raw); host != "" {
		return host
	}
	return raw
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
