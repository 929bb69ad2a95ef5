package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/notify"
	"github.com/xxxsen/bmark/internal/pkg/errcode"
	"github.com/xxxsen/bmark/internal/pkg/response"
)

type RealtimeSettings struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

func DefaultRealtimeSettings() RealtimeSettings {
	return RealtimeSettings{
		PingInterval: 25 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}

// RealtimeHandler streams the caller's bookmark change events over a
// websocket as JSON text frames, one event per frame.
type RealtimeHandler struct {
	notifier notify.Notifier
	settings RealtimeSettings
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(notifier notify.Notifier, settings RealtimeSettings) *RealtimeHandler {
	return &RealtimeHandler{
		notifier: notifier,
		settings: settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Access is gated by the bearer token, not by Origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *RealtimeHandler) Stream(c *gin.Context) {
	kinds, err := model.ParseEventKinds(c.Query("kinds"))
	if err != nil {
		response.Error(c, errcode.ErrInvalid, err.Error())
		return
	}
	userID := getUserID(c)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("user_id", userID),
		zap.String("kinds", model.JoinEventKinds(kinds)),
	)
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = ws.Close() }()

	sub := h.notifier.Subscribe(userID, kinds)
	defer sub.Close()
	logger.Debug("realtime subscriber attached")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.readLoop(ctx, cancel, ws)
	h.writeLoop(ctx, ws, sub.Events(), logger)
	logger.Debug("realtime subscriber detached")
}

// readLoop only drains control frames so pongs and close frames are seen.
func (h *RealtimeHandler) readLoop(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn) {
	defer cancel()
	_ = ws.SetReadDeadline(time.Now().Add(h.settings.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.settings.ReadTimeout))
	})
	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *RealtimeHandler) writeLoop(ctx context.Context, ws *websocket.Conn, events <-chan model.ChangeEvent, logger *zap.Logger) {
	ticker := time.NewTicker(h.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
					time.Now().Add(h.settings.WriteTimeout))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(h.settings.WriteTimeout))
			if err := ws.WriteJSON(evt); err != nil {
				logger.Debug("realtime write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.settings.WriteTimeout)); err != nil {
				logger.Debug("realtime ping failed", zap.Error(err))
				return
			}
		}
	}
}
