package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	badgerMessagePrefix = "msg:"
	badgerIndexPrefix   = "msgid:"
)

// BadgerMessageRepository is an embedded chat log for single-node deployments.
//
// Messages are stored under "msg:{unixnano padded to 19 digits}:{uuid}" so a
// forward prefix scan returns them in creation order. A secondary key
// "msgid:{uuid}" points at the primary key for lookups by id.
type BadgerMessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex // serializes timestamp assignment
	lastAt time.Time
}

type badgerMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Sender  string `json:"sender"`
	At      int64  `json:"at"`
}

// OpenBadger opens the badger database at dir, or an in-memory instance when dir is empty
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return db, nil
}

// NewBadgerMessageRepository creates the repository and restores the last
// assigned timestamp so ordering survives restarts.
func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger) (*BadgerMessageRepository, error) {
	r := &BadgerMessageRepository{db: db, log: log, now: time.Now}

	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerMessagePrefix)
		// 0xFF sorts after every digit, so the seek lands on the newest key
		it.Seek(append([]byte(badgerMessagePrefix), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}

		return it.Item().Value(func(v []byte) error {
			var m badgerMessage
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			r.lastAt = time.Unix(0, m.At).UTC()
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restore last message timestamp: %w", err)
	}

	return r, nil
}

func messageKey(at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", badgerMessagePrefix, at.UnixNano(), id))
}

func indexKey(id string) []byte {
	return []byte(badgerIndexPrefix + id)
}

// Append stores a message with a timestamp that never goes backwards
func (r *BadgerMessageRepository) Append(ctx context.Context, content, sender string) (*models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now().UTC()
	if at.Before(r.lastAt) {
		at = r.lastAt
	}

	msg := badgerMessage{ID: uuid.New().String(), Content: content, Sender: sender, At: at.UnixNano()}
	value, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	key := messageKey(at, msg.ID)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(msg.ID), key)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	r.lastAt = at
	return toChatMessage(msg), nil
}

// ListAll scans the message prefix in key order
func (r *BadgerMessageRepository) ListAll(ctx context.Context) ([]*models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messages := make([]*models.ChatMessage, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerMessagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var m badgerMessage
				if err := json.Unmarshal(v, &m); err != nil {
					return err
				}
				messages = append(messages, toChatMessage(m))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	return messages, nil
}

func (r *BadgerMessageRepository) GetByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var msg *models.ChatMessage
	err := r.db.View(func(txn *badger.Txn) error {
		primary, err := lookupPrimaryKey(txn, id)
		if err != nil {
			return err
		}

		item, err := txn.Get(primary)
		if err != nil {
			return err
		}

		return item.Value(func(v []byte) error {
			var m badgerMessage
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			msg = toChatMessage(m)
			return nil
		})
	})
	if err != nil {
		return nil, mapBadgerError(err)
	}

	return msg, nil
}

func (r *BadgerMessageRepository) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		primary, err := lookupPrimaryKey(txn, id)
		if err != nil {
			return err
		}

		if err := txn.Delete(primary); err != nil {
			return err
		}
		return txn.Delete(indexKey(id))
	})
	if err != nil {
		return mapBadgerError(err)
	}

	r.log.Info("message deleted", slog.String("message_id", id))
	return nil
}

func lookupPrimaryKey(txn *badger.Txn, id string) ([]byte, error) {
	item, err := txn.Get(indexKey(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func mapBadgerError(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.ErrNotFound
	}
	return fmt.Errorf("%w: %v", models.ErrStorage, err)
}

func toChatMessage(m badgerMessage) *models.ChatMessage {
	return &models.ChatMessage{
		ID:        m.ID,
		Content:   m.Content,
		Sender:    m.Sender,
		CreatedAt: time.Unix(0, m.At).UTC(),
	}
}
