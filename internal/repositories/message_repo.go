package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/chatgate/internal/database"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MessageRepository is the PostgreSQL chat log
type MessageRepository struct {
	db *database.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, content, sender, created_at`

// Append stores a message. The id is generated here and the timestamp is
// assigned by the database within the same statement.
func (r *MessageRepository) Append(ctx context.Context, content, sender string) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (id, content, sender)
		VALUES ($1, $2, $3)
		RETURNING ` + messageColumns

	msg, err := scanMessageRow(r.db.Pool.QueryRow(ctx, query, uuid.New(), content, sender))
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListAll returns the full history in creation order
func (r *MessageRepository) ListAll(ctx context.Context) ([]*models.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages ORDER BY created_at ASC, seq ASC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanMessageRows(rows)
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	messageID, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE id = $1`
	return scanMessageRow(r.db.Pool.QueryRow(ctx, query, messageID))
}

func (r *MessageRepository) DeleteByID(ctx context.Context, id string) error {
	messageID, err := uuid.Parse(id)
	if err != nil {
		return models.ErrNotFound
	}

	result, err := r.db.Pool.Exec(ctx, `DELETE FROM chat_messages WHERE id = $1`, messageID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func scanMessageRow(scanner rowScanner) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	var id uuid.UUID

	if err := scanner.Scan(&id, &msg.Content, &msg.Sender, &msg.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}

	msg.ID = id.String()
	return &msg, nil
}

func scanMessageRows(rows pgx.Rows) ([]*models.ChatMessage, error) {
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		msg, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return messages, nil
}
