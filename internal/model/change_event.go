package model

import (
	"fmt"
	"strings"
)

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

func AllEventKinds() []EventKind {
	return []EventKind{EventInsert, EventUpdate, EventDelete}
}

// ChangeEvent is one row-level change on the bookmarks table. For deletes
// Record carries at least ID and UserID.
type ChangeEvent struct {
	ID     string    `json:"id"`
	Kind   EventKind `json:"kind"`
	UserID string    `json:"user_id"`
	Record Bookmark  `json:"record"`
	TS     int64     `json:"ts"`
}

// ParseEventKinds parses a comma separated kind list. Empty means all.
func ParseEventKinds(raw string) ([]EventKind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AllEventKinds(), nil
	}
	seen := make(map[EventKind]struct{})
	kinds := make([]EventKind, 0, 3)
	for _, part := range strings.Split(raw, ",") {
		kind := EventKind(strings.ToLower(strings.TrimSpace(part)))
		switch kind {
		case EventInsert, EventUpdate, EventDelete:
		default:
			return nil, fmt.Errorf("unknown event kind: %q", part)
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func JoinEventKinds(kinds []EventKind) string {
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, string(kind))
	}
	return strings.Join(parts, ",")
}
