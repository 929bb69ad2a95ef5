package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/board"
	"github.com/xxxsen/bmark/internal/model"
)

// FeedSettings tunes the change stream. ReadTimeout must exceed the
// server ping interval.
type FeedSettings struct {
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Buffer           int
}

func DefaultFeedSettings() FeedSettings {
	return FeedSettings{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		Buffer:           64,
	}
}

// Feed is the websocket change feed. It implements board.ChangeFeed.
type Feed struct {
	client   *Client
	settings FeedSettings
	dialer   *websocket.Dialer
}

func NewFeed(c *Client, settings FeedSettings) *Feed {
	if settings.Buffer <= 0 {
		settings.Buffer = DefaultFeedSettings().Buffer
	}
	return &Feed{
		client:   c,
		settings: settings,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: settings.HandshakeTimeout,
		},
	}
}

// Subscribe opens one stream for the token's owner. ownerID is used for
// logging only; the server filters by the authenticated user.
func (f *Feed) Subscribe(ctx context.Context, ownerID string, kinds []model.EventKind) (board.Subscription, error) {
	target, err := f.streamURL(kinds)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if token := f.client.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := f.dialer.DialContext(ctx, target, header)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, handshakeError(resp)
		}
		return nil, fmt.Errorf("dial change stream: %w", err)
	}
	sub := &wsSubscription{
		conn:     conn,
		settings: f.settings,
		events:   make(chan model.ChangeEvent, f.settings.Buffer),
		done:     make(chan struct{}),
		logger:   logutil.GetLogger(ctx).With(zap.String("owner", ownerID)),
	}
	go sub.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (f *Feed) streamURL(kinds []model.EventKind) (string, error) {
	u, err := url.Parse(f.client.Server() + apiPrefix + "/realtime")
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server scheme: %q", u.Scheme)
	}
	if len(kinds) > 0 {
		q := u.Query()
		q.Set("kinds", model.JoinEventKinds(kinds))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// handshakeError recovers the envelope the server writes when it refuses
// the upgrade, e.g. for a missing token.
func handshakeError(resp *http.Response) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		if err := decodeEnvelope(resp.StatusCode, data, nil); err != nil {
			return err
		}
	}
	return fmt.Errorf("change stream handshake failed: status %d", resp.StatusCode)
}

type wsSubscription struct {
	conn     *websocket.Conn
	settings FeedSettings
	events   chan model.ChangeEvent
	done     chan struct{}
	once     sync.Once
	logger   *zap.Logger
}

func (s *wsSubscription) Events() <-chan model.ChangeEvent {
	return s.events
}

func (s *wsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		deadline := time.Now().Add(s.settings.WriteTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.conn.Close()
	})
	return err
}

func (s *wsSubscription) readLoop() {
	defer close(s.events)
	defer func() { _ = s.Close() }()

	s.extendDeadline()
	s.conn.SetPingHandler(func(data string) error {
		s.extendDeadline()
		err := s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(s.settings.WriteTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Warn("change stream read failed", zap.Error(err))
				}
			}
			return
		}
		s.extendDeadline()
		if messageType != websocket.TextMessage {
			continue
		}
		var evt model.ChangeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			s.logger.Warn("skip malformed change event", zap.Error(err))
			continue
		}
		select {
		case s.events <- evt:
		case <-s.done:
			return
		}
	}
}

func (s *wsSubscription) extendDeadline() {
	if s.settings.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
	}
}
