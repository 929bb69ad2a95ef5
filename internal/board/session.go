package board

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
)

// Session holds the signed-in identity. Resolved turns true after the
// initial check answers, whatever the answer was.
type Session struct {
	auth AuthService

	mu          sync.RWMutex
	identity    *model.Identity
	resolved    bool
	pushed      bool
	listener    func(identity *model.Identity)
	unsubscribe func()
}

func NewSession(auth AuthService) *Session {
	return &Session{auth: auth}
}

// OnChange sets the single change listener. It is called on the goroutine
// that produced the change, after the session state is updated.
func (s *Session) OnChange(fn func(identity *model.Identity)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Init subscribes to identity changes and issues one session check. A
// failed check counts as signed out and is not retried.
func (s *Session) Init(ctx context.Context) {
	unsubscribe := s.auth.OnIdentityChange(func(identity *model.Identity) {
		s.set(identity, true)
	})
	s.mu.Lock()
	prev := s.unsubscribe
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	identity, err := s.auth.GetSession(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("session check failed, treating as signed out", zap.Error(err))
		identity = nil
	}
	s.set(identity, false)
}

func (s *Session) Identity() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneIdentity(s.identity)
}

func (s *Session) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// set applies a new identity. A pushed change always wins over the answer
// to the initial check, which may arrive later.
func (s *Session) set(identity *model.Identity, pushed bool) {
	s.mu.Lock()
	if !pushed && s.pushed {
		s.resolved = true
		s.mu.Unlock()
		return
	}
	if pushed {
		s.pushed = true
	}
	s.identity = cloneIdentity(identity)
	s.resolved = true
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener(cloneIdentity(identity))
	}
}

func cloneIdentity(identity *model.Identity) *model.Identity {
	if identity == nil || identity.ID == "" {
		return nil
	}
	cp := *identity
	return &cp
}

func identityID(identity *model.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.ID
}
