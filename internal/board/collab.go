package board

import (
	"context"

	"github.com/xxxsen/bmark/internal/model"
)

// AuthService is the managed-auth collaborator. GetSession returns a nil
// identity when nobody is signed in.
type AuthService interface {
	GetSession(ctx context.Context) (*model.Identity, error)
	OnIdentityChange(fn func(identity *model.Identity)) (unsubscribe func())
}

// Storage is the owner-scoped bookmark table. Authorization is enforced by
// the implementation.
type Storage interface {
	List(ctx context.Context, ownerID string) ([]model.Bookmark, error)
	Insert(ctx context.Context, ownerID string, fields model.BookmarkFields) (*model.Bookmark, error)
	Update(ctx context.Context, id string, fields model.BookmarkFields) (*model.Bookmark, error)
	Delete(ctx context.Context, id string) error
}

// ChangeFeed delivers row changes filtered server-side to one owner.
type ChangeFeed interface {
	Subscribe(ctx context.Context, ownerID string, kinds []model.EventKind) (Subscription, error)
}

// Subscription events arrive in server emission order. Events is closed
// once the subscription ends.
type Subscription interface {
	Events() <-chan model.ChangeEvent
	Close() error
}
