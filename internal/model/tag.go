package model

import "strings"

type Tag string

const (
	TagNone     Tag = ""
	TagDev      Tag = "Dev"
	TagDesign   Tag = "Design"
	TagReading  Tag = "Reading"
	TagTools    Tag = "Tools"
	TagNews     Tag = "News"
	TagPersonal Tag = "Personal"
)

var tagColors = map[Tag]string{
	TagDev:      "#3B82F6",
	TagDesign:   "#EC4899",
	TagReading:  "#F59E0B",
	TagTools:    "#10B981",
	TagNews:     "#8B5CF6",
	TagPersonal: "#6B7280",
}

// Tags returns the closed tag enumeration in display order.
func Tags() []Tag {
	return []Tag{TagDev, TagDesign, TagReading, TagTools, TagNews, TagPersonal}
}

func (t Tag) Color() string {
	return tagColors[t]
}

func (t Tag) Valid() bool {
	if t == TagNone {
		return true
	}
	_, ok := tagColors[t]
	return ok
}

// ParseTag matches a label case-insensitively. An empty input is the
// absent tag.
func ParseTag(s string) (Tag, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TagNone, true
	}
	for _, tag := range Tags() {
		if strings.EqualFold(string(tag), s) {
			return tag, true
		}
	}
	return TagNone, false
}

type TagInfo struct {
	Name  Tag    `json:"name"`
	Color string `json:"color"`
}

func TagPalette() []TagInfo {
	out := make([]TagInfo, 0, len(tagColors))
	for _, tag := range Tags() {
		out = append(out, TagInfo{Name: tag, Color: tag.Color()})
	}
	return out
}
