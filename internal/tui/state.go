package tui

import (
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/xxxsen/bmark/internal/board"
	"github.com/xxxsen/bmark/internal/model"
)

// Mode is the active screen or modal.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeForm
	ModeConfirmDelete
	ModeProfile
)

// Layout selects how the derived view is drawn.
type Layout int

const (
	LayoutCards Layout = iota
	LayoutRows
)

func (l Layout) String() string {
	if l == LayoutRows {
		return "rows"
	}
	return "cards"
}

const (
	fieldTitle = iota
	fieldURL
	fieldNote
	fieldTag
	fieldCount
)

// FormState is the create/edit modal. EditID is empty when creating.
type FormState struct {
	EditID     string
	Title      textinput.Model
	URL        textinput.Model
	Note       textinput.Model
	Tag        model.Tag
	Focus      int
	Submitting bool
}

func newFormState() FormState {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 200
	title.Width = 48

	link := textinput.New()
	link.Placeholder = "https://..."
	link.CharLimit = 2048
	link.Width = 48

	note := textinput.New()
	note.Placeholder = "Optional note"
	note.CharLimit = 1000
	note.Width = 48

	return FormState{Title: title, URL: link, Note: note}
}

// Load fills the inputs from a draft and focuses the title.
func (f *FormState) Load(editID string, d board.Draft) {
	f.EditID = editID
	f.Title.SetValue(d.Title)
	f.URL.SetValue(d.URL)
	f.Note.SetValue(d.Note)
	f.Tag = d.Tag
	f.Submitting = false
	f.focus(fieldTitle)
}

func (f *FormState) Reset() {
	f.Load("", board.Draft{})
	f.Title.Blur()
}

func (f FormState) Draft() board.Draft {
	return board.Draft{
		Title: f.Title.Value(),
		URL:   f.URL.Value(),
		Note:  f.Note.Value(),
		Tag:   f.Tag,
	}
}

func (f *FormState) focus(field int) {
	f.Focus = (field + fieldCount) % fieldCount
	inputs := []*textinput.Model{&f.Title, &f.URL, &f.Note}
	for i, in := range inputs {
		if i == f.Focus {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

// cycleTag steps through the absent tag followed by the enumeration.
func (f *FormState) cycleTag(step int) {
	options := append([]model.Tag{model.TagNone}, model.Tags()...)
	idx := 0
	for i, tag := range options {
		if tag == f.Tag {
			idx = i
			break
		}
	}
	f.Tag = options[(idx+step+len(options))%len(options)]
}
