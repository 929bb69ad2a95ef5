package board

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/xxxsen/bmark/internal/model"
)

// AllTags is the tag filter value that matches every record.
const AllTags = "All"

type SortKey string

const (
	SortNewest SortKey = "newest"
	SortOldest SortKey = "oldest"
	SortAlpha  SortKey = "alpha"
)

func SortKeys() []SortKey {
	return []SortKey{SortNewest, SortOldest, SortAlpha}
}

func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNewest:
		return SortNewest, true
	case SortOldest:
		return SortOldest, true
	case SortAlpha:
		return SortAlpha, true
	default:
		return SortNewest, false
	}
}

// Criteria is transient view state. An empty Tag means AllTags and an
// empty Sort means SortNewest.
type Criteria struct {
	Query string
	Tag   string
	Sort  SortKey
}

func DefaultCriteria() Criteria {
	return Criteria{Tag: AllTags, Sort: SortNewest}
}

// ParseTagFilter accepts AllTags or a tag label, case-insensitively.
func ParseTagFilter(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllTags) {
		return AllTags, true
	}
	tag, ok := model.ParseTag(s)
	if !ok || tag == model.TagNone {
		return "", false
	}
	return string(tag), true
}

// Derive filters and sorts a copy of the mirror. It is pure: the same
// inputs always give the same output and m is never modified.
//
// Records match when title, URL or note contains the case-folded query
// exactly as typed, surrounding spaces included. Only "" disables it.
// oldest sorts by ascending ctime and alpha by title under locale
// collation, both stable. newest keeps mirror order.
func Derive(m Mirror, c Criteria) []model.Bookmark {
	out := make([]model.Bookmark, 0, len(m))
	query := c.Query
	var folder cases.Caser
	if query != "" {
		folder = cases.Fold()
		query = folder.String(query)
	}
	tag := c.Tag
	for _, item := range m {
		if query != "" && !matchesQuery(folder, item, query) {
			continue
		}
		if tag != "" && tag != AllTags && string(item.Tag) != tag {
			continue
		}
		out = append(out, item)
	}
	switch c.Sort {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Ctime < out[j].Ctime
		})
	case SortAlpha:
		col := NewTitleCollator()
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].Title, out[j].Title) < 0
		})
	}
	return out
}

// NewTitleCollator returns the collator used for alpha ordering. A
// collator is not safe for concurrent use.
func NewTitleCollator() *collate.Collator {
	return collate.New(language.Und)
}

func matchesQuery(folder cases.Caser, item model.Bookmark, query string) bool {
	for _, field := range []string{item.Title, item.URL, item.Note} {
		if field == "" {
			continue
		}
		if strings.Contains(folder.String(field), query) {
			return true
		}
	}
	return false
}

// PresentTags lists the tags used in the mirror, in enumeration order.
func PresentTags(m Mirror) []model.Tag {
	seen := make(map[model.Tag]struct{}, len(m))
	for _, item := range m {
		seen[item.Tag] = struct{}{}
	}
	out := make([]model.Tag, 0, len(seen))
	for _, tag := range model.Tags() {
		if _, ok := seen[tag]; ok {
			out = append(out, tag)
		}
	}
	return out
}

// FilterOptions is the tag strip: AllTags followed by PresentTags.
func FilterOptions(m Mirror) []string {
	tags := PresentTags(m)
	out := make([]string, 0, len(tags)+1)
	out = append(out, AllTags)
	for _, tag := range tags {
		out = append(out, string(tag))
	}
	return out
}
