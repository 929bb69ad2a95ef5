package notify

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
)

type Subscription struct {
	hub    *Hub
	userID string
	kinds  map[model.EventKind]struct{}
	ch     chan model.ChangeEvent
	once   sync.Once
}

func (s *Subscription) Events() <-chan model.ChangeEvent {
	return s.ch
}

// Close detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (s *Subscription) wants(kind model.EventKind) bool {
	_, ok := s.kinds[kind]
	return ok
}

// Hub is the in-process fanout. Delivery never blocks the publisher: a
// subscriber whose queue is full loses the event.
type Hub struct {
	mu        sync.Mutex
	subs      map[string]map[*Subscription]struct{}
	queueSize int
	closed    bool
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		subs:      make(map[string]map[*Subscription]struct{}),
		queueSize: queueSize,
	}
}

func (h *Hub) Subscribe(userID string, kinds []model.EventKind) *Subscription {
	if len(kinds) == 0 {
		kinds = model.AllEventKinds()
	}
	sub := &Subscription{
		hub:    h,
		userID: userID,
		kinds:  make(map[model.EventKind]struct{}, len(kinds)),
		ch:     make(chan model.ChangeEvent, h.queueSize),
	}
	for _, kind := range kinds {
		sub.kinds[kind] = struct{}{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	set := h.subs[userID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) Publish(ctx context.Context, evt model.ChangeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[evt.UserID] {
		if !sub.wants(evt.Kind) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			logutil.GetLogger(ctx).Warn("drop change event for slow subscriber",
				zap.String("user_id", evt.UserID),
				zap.String("event_id", evt.ID),
				zap.String("kind", string(evt.Kind)),
			)
		}
	}
	return nil
}

func (h *Hub) SubscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.userID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
	close(sub.ch)
}

// Close ends every live subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for userID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, userID)
	}
}
