package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/chatgate/internal/models"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MessageReader defines the history operations served over HTTP
type MessageReader interface {
	ListAll(ctx context.Context) ([]*models.ChatMessage, error)
	GetByID(ctx context.Context, id string) (*models.ChatMessage, error)
}

// MessageHandler serves chat history
type MessageHandler struct {
	service MessageReader
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(service MessageReader) *MessageHandler {
	return &MessageHandler{service: service}
}

// List returns every message in creation order
// @Summary List chat history
// @Produce json
// @Success 200 {array} models.ChatMessage
// @Failure 500 {object} ErrorResponse
// @Router /api/messages [get]
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if messages == nil {
		messages = []*models.ChatMessage{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, messages)
}

// Get returns a single message
// @Summary Get a message by id
// @Param id path string true "Message ID"
// @Produce json
// @Success 200 {object} models.ChatMessage
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/messages/{id} [get]
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid message id")
		return
	}

	message, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, message)
}
