package board

import "github.com/xxxsen/bmark/internal/model"

// Mirror is the client copy of the owner's bookmarks. The initial fetch
// orders it newest first; later inserts are prepended in arrival order.
type Mirror []model.Bookmark

func (m Mirror) Clone() Mirror {
	if m == nil {
		return nil
	}
	out := make(Mirror, len(m))
	copy(out, m)
	return out
}

func (m Mirror) IndexOf(id string) int {
	for i := range m {
		if m[i].ID == id {
			return i
		}
	}
	return -1
}

func (m Mirror) IDs() []string {
	ids := make([]string, 0, len(m))
	for _, item := range m {
		ids = append(ids, item.ID)
	}
	return ids
}

// Apply folds one change event into the mirror and returns the result.
// The input is never modified.
//
// insert prepends without re-sorting; an insert for an id already present
// replaces that entry in place. update replaces in place and ignores
// unknown ids. delete removes by id.
func Apply(m Mirror, evt model.ChangeEvent) Mirror {
	idx := m.IndexOf(evt.Record.ID)
	switch evt.Kind {
	case model.EventInsert:
		if idx >= 0 {
			out := m.Clone()
			out[idx] = evt.Record
			return out
		}
		out := make(Mirror, 0, len(m)+1)
		out = append(out, evt.Record)
		return append(out, m...)
	case model.EventUpdate:
		if idx < 0 {
			return m
		}
		out := m.Clone()
		out[idx] = evt.Record
		return out
	case model.EventDelete:
		return m.without(idx)
	default:
		return m
	}
}

func (m Mirror) without(idx int) Mirror {
	if idx < 0 {
		return m
	}
	out := make(Mirror, 0, len(m)-1)
	out = append(out, m[:idx]...)
	return append(out, m[idx+1:]...)
}

func ownedBy(items []model.Bookmark, owner string) Mirror {
	out := make(Mirror, 0, len(items))
	for _, item := range items {
		if item.UserID == owner {
			out = append(out, item)
		}
	}
	return out
}
