package notify

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/pkg/timeutil"
)

// Notifier fans bookmark change events out to owner-scoped subscribers.
type Notifier interface {
	Publish(ctx context.Context, evt model.ChangeEvent) error
	Subscribe(userID string, kinds []model.EventKind) *Subscription
}

func NewEvent(kind model.EventKind, record model.Bookmark) model.ChangeEvent {
	return model.ChangeEvent{
		ID:     ulid.Make().String(),
		Kind:   kind,
		UserID: record.UserID,
		Record: record,
		TS:     timeutil.NowUnixMilli(),
	}
}
