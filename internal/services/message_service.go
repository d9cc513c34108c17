package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/chatgate/internal/models"
)

//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_store.go -package=mocks

// MessageStore is the durable chat log
type MessageStore interface {
	Append(ctx context.Context, content, sender string) (*models.ChatMessage, error)
	ListAll(ctx context.Context) ([]*models.ChatMessage, error)
	GetByID(ctx context.Context, id string) (*models.ChatMessage, error)
	DeleteByID(ctx context.Context, id string) error
}

// MessageService serves message history outside the real-time path
type MessageService struct {
	store  MessageStore
	logger *slog.Logger
}

// NewMessageService creates a new MessageService
func NewMessageService(store MessageStore, logger *slog.Logger) *MessageService {
	return &MessageService{
		store:  store,
		logger: logger,
	}
}

// ListAll returns the full history in creation order
func (s *MessageService) ListAll(ctx context.Context) ([]*models.ChatMessage, error) {
	messages, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list messages", slog.Any("error", err))
		return nil, err
	}
	return messages, nil
}

func (s *MessageService) GetByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	message, err := s.store.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to get message", slog.String("message_id", id), slog.Any("error", err))
		}
		return nil, err
	}
	return message, nil
}

// DeleteByID removes a single message. Connected clients are not notified.
func (s *MessageService) DeleteByID(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to delete message", slog.String("message_id", id), slog.Any("error", err))
		}
		return err
	}

	s.logger.Info("message deleted", slog.String("message_id", id))
	return nil
}
