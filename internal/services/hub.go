package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/google/uuid"
)

const (
	errInvalidMessage = "Invalid message data"
	errSaveMessage    = "Failed to save message"
)

// Client is one connected participant. The hub writes encoded event frames
// to Send; the connection's writer drains it. Send is closed when the client
// leaves the hub.
type Client struct {
	ID   string
	Send chan []byte
}

// NewClient creates a client with an outbound queue of queueSize frames
func NewClient(queueSize int) *Client {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, queueSize),
	}
}

// Hub is the single global room. Every accepted message is persisted and then
// delivered to every connected client in one total order.
type Hub struct {
	store  MessageStore
	logger *slog.Logger

	submitMu sync.Mutex // held across persist + fan-out

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates a new Hub
func NewHub(store MessageStore, logger *slog.Logger) *Hub {
	return &Hub{
		store:   store,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Connect registers a client. Callers are expected to have passed the gate already.
func (h *Hub) Connect(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	online := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", slog.String("client_id", c.ID), slog.Int("online", online))
}

// Disconnect removes a client and closes its queue. Calling it twice is a no-op.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	online := len(h.clients)
	h.mu.Unlock()

	if removed {
		h.logger.Info("client disconnected", slog.String("client_id", c.ID), slog.Int("online", online))
	}
}

// OnlineCount returns the number of connected clients
func (h *Hub) OnlineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Submit validates, persists and broadcasts a message from c. Validation and
// persistence failures are reported to c alone and nothing is broadcast.
func (h *Hub) Submit(ctx context.Context, c *Client, content, sender string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	sender = strings.TrimSpace(sender)
	if content == "" || sender == "" {
		h.notify(c, errInvalidMessage)
		return nil, fmt.Errorf("%w: content and sender are required", models.ErrValidation)
	}

	h.submitMu.Lock()
	defer h.submitMu.Unlock()

	message, err := h.store.Append(ctx, content, sender)
	if err != nil {
		h.logger.Error("failed to save message", slog.String("client_id", c.ID), slog.Any("error", err))
		h.notify(c, errSaveMessage)
		return nil, storageError("append message", err)
	}

	frame, err := models.EncodeEvent(models.EventReceiveMessage, message)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	h.broadcast(frame)
	return message, nil
}

// Shutdown disconnects every client
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.removeLocked(c)
	}
	h.logger.Info("hub stopped")
}

// broadcast enqueues frame for every client without blocking. A client whose
// queue is full is evicted so it can never silently miss a message.
func (h *Hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.Send <- frame:
		default:
			h.logger.Warn("evicting slow client", slog.String("client_id", c.ID))
			h.removeLocked(c)
		}
	}
}

// SendTo encodes an event and queues it for c alone. It reports false when c
// is no longer connected or was evicted because its queue was full.
func (h *Hub) SendTo(c *Client, event string, data any) bool {
	frame, err := models.EncodeEvent(event, data)
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("event", event), slog.Any("error", err))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		h.logger.Warn("evicting slow client", slog.String("client_id", c.ID))
		h.removeLocked(c)
		return false
	}
}

func (h *Hub) notify(c *Client, message string) {
	h.SendTo(c, models.EventError, models.ErrorPayload{Message: message})
}

func (h *Hub) removeLocked(c *Client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.Send)
	return true
}
