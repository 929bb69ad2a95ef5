package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/netscape"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
	"github.com/xxxsen/bmark/internal/repo"
)

const (
	ExportFormatJSON     = "json"
	ExportFormatHTML     = "html"
	ExportFormatMarkdown = "markdown"
)

type ExportPayload struct {
	Version    int              `json:"version"`
	ExportedAt int64            `json:"exported_at"`
	Bookmarks  []model.Bookmark `json:"bookmarks"`
}

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type ExportService struct {
	bookmarks *repo.BookmarkRepo
}

func NewExportService(bookmarks *repo.BookmarkRepo) *ExportService {
	return &ExportService{bookmarks: bookmarks}
}

func (s *ExportService) Export(ctx context.Context, userID, format string) (*ExportFile, error) {
	items, err := s.bookmarks.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	stamp := time.Now().Format("2006-01-02")
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", ExportFormatJSON:
		data, err := EncodeExportJSON(items)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Name: "bookmarks-" + stamp + ".json", ContentType: "application/json", Data: data}, nil
	case ExportFormatHTML:
		var buf bytes.Buffer
		if err := netscape.Write(&buf, toEntries(items)); err != nil {
			return nil, err
		}
		return &ExportFile{Name: "bookmarks-" + stamp + ".html", ContentType: "text/html; charset=utf-8", Data: buf.Bytes()}, nil
	case ExportFormatMarkdown:
		return &ExportFile{Name: "bookmarks-" + stamp + ".md", ContentType: "text/markdown; charset=utf-8", Data: renderMarkdown(items)}, nil
	default:
		return nil, appErr.ErrInvalid
	}
}

func EncodeExportJSON(items []model.Bookmark) ([]byte, error) {
	for i := range items {
		items[i].State = 0
	}
	return json.MarshalIndent(ExportPayload{
		Version:    1,
		ExportedAt: time.Now().Unix(),
		Bookmarks:  items,
	}, "", "  ")
}

func toEntries(items []model.Bookmark) []netscape.Entry {
	entries := make([]netscape.Entry, 0, len(items))
	for _, item := range items {
		entry := netscape.Entry{
			Title:   item.Title,
			URL:     item.URL,
			Note:    item.Note,
			Folder:  string(item.Tag),
			AddDate: item.Ctime,
		}
		if item.Tag != model.TagNone {
			entry.Tags = []string{string(item.Tag)}
		}
		entries = append(entries, entry)
	}
	return entries
}

// renderMarkdown groups bookmarks by tag in enumeration order, untagged
// last.
func renderMarkdown(items []model.Bookmark) []byte {
	groups := make(map[model.Tag][]model.Bookmark)
	for _, item := range items {
		groups[item.Tag] = append(groups[item.Tag], item)
	}
	var b strings.Builder
	b.WriteString("# Bookmarks\n")
	sections := append(model.Tags(), model.TagNone)
	for _, tag := range sections {
		list := groups[tag]
		if len(list) == 0 {
			continue
		}
		name := string(tag)
		if tag == model.TagNone {
			name = "Untagged"
		}
		fmt.Fprintf(&b, "\n## %s\n\n", name)
		for _, item := range list {
			fmt.Fprintf(&b, "- [%s](%s)", escapeMarkdown(item.Title), item.URL)
			if note := strings.TrimSpace(item.Note); note != "" {
				fmt.Fprintf(&b, " - %s", strings.Join(strings.Fields(note), " "))
			}
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
