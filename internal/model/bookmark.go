package model

const (
	BookmarkStateNormal  = 1
	BookmarkStateDeleted = 2
)

type Bookmark struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Note   string `json:"note"`
	Tag    Tag    `json:"tag"`
	State  int    `json:"state,omitempty"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}

// BookmarkFields are the user-editable attributes of a bookmark.
type BookmarkFields struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Note  string `json:"note"`
	Tag   Tag    `json:"tag"`
}

func (b Bookmark) Fields() BookmarkFields {
	return BookmarkFields{Title: b.Title, URL: b.URL, Note: b.Note, Tag: b.Tag}
}
