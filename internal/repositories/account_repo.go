package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/BradenHooton/chatgate/internal/database"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

// AccountRepository persists accounts and their failed-attempt counters
type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `id, email, password_hash, federated_id, failed_attempts, is_blocked, block_reason, created_at, updated_at`

// scanAccountRow handles nullable fields and populates an Account from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var id uuid.UUID
	var passwordHash, federatedID *string

	err := scanner.Scan(
		&id, &account.Email, &passwordHash, &federatedID,
		&account.FailedAttempts, &account.IsBlocked, &account.BlockReason,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	account.ID = id.String()
	account.PasswordHash = lo.FromPtr(passwordHash)
	account.FederatedID = lo.FromPtr(federatedID)

	return &account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	query := `
		INSERT INTO accounts (id, email, password_hash, federated_id, created_at, updated_at)
		VALUES ($1, LOWER($2), $3, $4, $5, $6)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query,
		uuid.New(), account.Email,
		lo.EmptyableToPtr(account.PasswordHash), lo.EmptyableToPtr(account.FederatedID),
		now, now,
	))
	if errors.Is(err, models.ErrConflict) {
		return nil, models.ErrDuplicateAccount
	}
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, accountID))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByFederatedID(ctx context.Context, federatedID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE federated_id = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, federatedID))
}

// ResetAttempts clears the failure counter and block flag. A missing account is not an error.
func (r *AccountRepository) ResetAttempts(ctx context.Context, email string) error {
	query := `
		UPDATE accounts
		SET failed_attempts = 0, is_blocked = FALSE, block_reason = '', updated_at = NOW()
		WHERE LOWER(email) = LOWER($1)
	`

	if _, err := r.db.Pool.Exec(ctx, query, email); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// RecordFailedAttempt increments the account's failure counter in a single
// statement, so concurrent failures cannot under-count. When the new count
// reaches threshold the account is flagged and a block record covering the
// account email plus any device axes is inserted in the same transaction.
// Returns models.ErrNotFound when no account exists for the email.
func (r *AccountRepository) RecordFailedAttempt(ctx context.Context, axes models.IdentityAxes, threshold int, reason string) (*models.Account, error) {
	var account *models.Account

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE accounts
			SET failed_attempts = failed_attempts + 1,
			    is_blocked = is_blocked OR failed_attempts + 1 >= $2,
			    block_reason = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE block_reason END,
			    updated_at = NOW()
			WHERE LOWER(email) = LOWER($1)
			RETURNING ` + accountColumns

		updated, err := scanAccountRow(tx.QueryRow(ctx, query, axes.Email, threshold, reason))
		if err != nil {
			return err
		}

		if updated.IsBlocked {
			if _, err := insertBlockRecord(ctx, tx, axes, reason); err != nil {
				return err
			}
		}

		account = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}
