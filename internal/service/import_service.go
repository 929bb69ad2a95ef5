package service

import (
	"context"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/netscape"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

const maxImportBookmarks = 5000

type ImportResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type ImportService struct {
	bookmarks *BookmarkService
}

func NewImportService(bookmarks *BookmarkService) *ImportService {
	return &ImportService{bookmarks: bookmarks}
}

// ImportNetscape loads a browser bookmark export. The tag comes from the
// first TAGS entry naming a known tag, else from the enclosing folder.
func (s *ImportService) ImportNetscape(ctx context.Context, userID string, r io.Reader) (*ImportResult, error) {
	entries, err := netscape.Parse(r)
	if err != nil {
		return nil, appErr.ErrImportFormat
	}
	if len(entries) == 0 {
		return nil, appErr.ErrImportEmpty
	}
	if len(entries) > maxImportBookmarks {
		return nil, appErr.ErrTooMany
	}
	inputs := make([]BookmarkInput, 0, len(entries))
	ctimes := make([]int64, 0, len(entries))
	for _, entry := range entries {
		inputs = append(inputs, BookmarkInput{
			Title: entry.Title,
			URL:   entry.URL,
			Note:  entry.Note,
			Tag:   string(pickTag(entry)),
		})
		ctimes = append(ctimes, entry.AddDate)
	}
	created, skipped, err := s.bookmarks.ImportBatch(ctx, userID, inputs, ctimes)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("netscape import finished",
		zap.String("user_id", userID),
		zap.Int("total", len(entries)),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
	return &ImportResult{Total: len(entries), Created: created, Skipped: skipped}, nil
}

func pickTag(entry netscape.Entry) model.Tag {
	for _, raw := range entry.Tags {
		if tag, ok := model.ParseTag(raw); ok && tag != model.TagNone {
			return tag
		}
	}
	if tag, ok := model.ParseTag(entry.Folder); ok {
		return tag
	}
	return model.TagNone
}
