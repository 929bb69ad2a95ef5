package netscape

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
)

// Write renders entries as a Netscape bookmark file. Entries sharing a
// Folder are grouped under one H3 in first-seen order; notes are treated as
// markdown and rendered into the DD element.
func Write(w io.Writer, entries []Entry) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	var order []string
	groups := make(map[string][]Entry)
	for _, entry := range entries {
		if _, ok := groups[entry.Folder]; !ok {
			order = append(order, entry.Folder)
		}
		groups[entry.Folder] = append(groups[entry.Folder], entry)
	}
	for _, folder := range order {
		if folder == "" {
			continue
		}
		fmt.Fprintf(&b, "    <DT><H3>%s</H3>\n", html.EscapeString(folder))
		b.WriteString("    <DL><p>\n")
		if err := writeEntries(&b, groups[folder], "        "); err != nil {
			return err
		}
		b.WriteString("    </DL><p>\n")
	}
	if err := writeEntries(&b, groups[""], "    "); err != nil {
		return err
	}
	b.WriteString("</DL><p>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeEntries(b *strings.Builder, entries []Entry, prefix string) error {
	for _, entry := range entries {
		fmt.Fprintf(b, "%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\"", prefix, html.EscapeString(entry.URL), entry.AddDate)
		if len(entry.Tags) > 0 {
			fmt.Fprintf(b, " TAGS=\"%s\"", html.EscapeString(strings.Join(entry.Tags, ",")))
		}
		fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(entry.Title))
		if strings.TrimSpace(entry.Note) == "" {
			continue
		}
		var note bytes.Buffer
		if err := goldmark.Convert([]byte(entry.Note), &note); err != nil {
			return fmt.Errorf("render note: %w", err)
		}
		fmt.Fprintf(b, "%s<DD>%s\n", prefix, strings.TrimSpace(note.String()))
	}
	return nil
}
