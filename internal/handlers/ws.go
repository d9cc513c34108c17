package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/BradenHooton/chatgate/internal/services"
	"github.com/BradenHooton/chatgate/internal/session"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	writeWait     = 10 * time.Second
	maxFrameBytes = 8 << 10

	errInvalidEvent = "Invalid event"
	errUnknownEvent = "Unknown event"
)

// ChatHub defines the hub operations used by a socket connection
type ChatHub interface {
	Connect(c *services.Client)
	Disconnect(c *services.Client)
	Submit(ctx context.Context, c *services.Client, content, sender string) (*models.ChatMessage, error)
	SendTo(c *services.Client, event string, data any) bool
}

// SocketConfig configures the chat socket endpoint
type SocketConfig struct {
	AllowedOrigins []string
	RequireGate    bool
	QueueSize      int
	PingInterval   time.Duration
}

// ChatSocketHandler upgrades requests to WebSocket connections on the hub
type ChatSocketHandler struct {
	hub      ChatHub
	cfg      SocketConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewChatSocketHandler creates a new ChatSocketHandler
func NewChatSocketHandler(hub ChatHub, cfg SocketConfig, logger *slog.Logger) *ChatSocketHandler {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 256
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	h := &ChatSocketHandler{hub: hub, cfg: cfg, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Serve handles GET /ws. Sessions that have not passed the gate are refused
// before the upgrade when the gate is required.
func (h *ChatSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.cfg.RequireGate {
		sess := session.FromContext(r.Context())
		if sess == nil || !sess.Admitted() {
			pkghttp.WriteForbidden(w, "Passcode required")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := services.NewClient(h.cfg.QueueSize)
	h.hub.Connect(client)

	go h.writePump(conn, client)
	h.readPump(r.Context(), conn, client)
}

// checkOrigin accepts same-origin clients without an Origin header and any
// configured origin
func (h *ChatSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return lo.Contains(h.cfg.AllowedOrigins, origin) || lo.Contains(h.cfg.AllowedOrigins, "*")
}

func (h *ChatSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, client *services.Client) {
	defer func() {
		h.hub.Disconnect(client)
		conn.Close()
	}()

	pongWait := 2 * h.cfg.PingInterval
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket closed unexpectedly", slog.String("client_id", client.ID), slog.Any("error", err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		h.dispatch(ctx, client, frame)
	}
}

func (h *ChatSocketHandler) dispatch(ctx context.Context, client *services.Client, frame []byte) {
	var event models.Event
	if err := json.Unmarshal(frame, &event); err != nil {
		h.hub.SendTo(client, models.EventError, models.ErrorPayload{Message: errInvalidEvent})
		return
	}

	switch event.Event {
	case models.EventSendMessage:
		var payload models.SendMessagePayload
		if len(event.Data) > 0 {
			// malformed data leaves the payload empty and Submit rejects it
			_ = json.Unmarshal(event.Data, &payload)
		}
		_, _ = h.hub.Submit(ctx, client, payload.Content, payload.Sender)
	case models.EventPing:
		h.hub.SendTo(client, models.EventPong, nil)
	default:
		h.hub.SendTo(client, models.EventError, models.ErrorPayload{Message: errUnknownEvent})
	}
}

// writePump is the only writer on conn. It exits when the hub closes the
// client's queue or a write fails.
func (h *ChatSocketHandler) writePump(conn *websocket.Conn, client *services.Client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
