package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/BradenHooton/chatgate/internal/database"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

// BlockRecordRepository stores permanent identity blocks. Records are never
// updated or deleted.
type BlockRecordRepository struct {
	db *database.DB
}

func NewBlockRecordRepository(db *database.DB) *BlockRecordRepository {
	return &BlockRecordRepository{db: db}
}

var axisColumns = map[models.IdentityAxis]string{
	models.AxisEmail:             "email",
	models.AxisDeviceFingerprint: "device_fingerprint",
	models.AxisAgentString:       "agent_string",
}

// matchPredicate builds "col1 = $n OR col2 = $n+1 ..." over the present keys.
// Placeholders start after argOffset existing arguments.
func matchPredicate(keys []models.IdentityKey, argOffset int) (string, []any) {
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for i, key := range keys {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", axisColumns[key.Axis], argOffset+i+1))
		args = append(args, key.Value)
	}

	return strings.Join(clauses, " OR "), args
}

// ExistsMatching reports whether any record matches at least one present axis.
// No present axes never match.
func (r *BlockRecordRepository) ExistsMatching(ctx context.Context, axes models.IdentityAxes) (bool, error) {
	keys := axes.Keys()
	if len(keys) == 0 {
		return false, nil
	}

	predicate, args := matchPredicate(keys, 0)
	query := `SELECT EXISTS (SELECT 1 FROM block_records WHERE ` + predicate + `)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// Insert adds a block record unless one already covers the identity
func (r *BlockRecordRepository) Insert(ctx context.Context, axes models.IdentityAxes, reason string) (bool, error) {
	return insertBlockRecord(ctx, r.db.Pool, axes, reason)
}

// List returns every record, newest first
func (r *BlockRecordRepository) List(ctx context.Context) ([]*models.BlockRecord, error) {
	query := `
		SELECT id, email, device_fingerprint, agent_string, reason, blocked_at
		FROM block_records ORDER BY blocked_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanBlockRecordRows(rows)
}

// insertBlockRecord is shared with AccountRepository so the account update and
// the block insert can run in one transaction.
func insertBlockRecord(ctx context.Context, q database.Querier, axes models.IdentityAxes, reason string) (bool, error) {
	keys := axes.Keys()
	if len(keys) == 0 {
		return false, fmt.Errorf("%w: block record needs at least one identity axis", models.ErrValidation)
	}

	predicate, matchArgs := matchPredicate(keys, 5)
	query := `
		INSERT INTO block_records (id, email, device_fingerprint, agent_string, reason)
		SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text
		WHERE NOT EXISTS (SELECT 1 FROM block_records WHERE ` + predicate + `)
		ON CONFLICT DO NOTHING
	`

	args := append([]any{
		uuid.New(),
		lo.EmptyableToPtr(axes.Email),
		lo.EmptyableToPtr(axes.DeviceFingerprint),
		lo.EmptyableToPtr(axes.AgentString),
		reason,
	}, matchArgs...)

	result, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() > 0, nil
}

func scanBlockRecordRows(rows pgx.Rows) ([]*models.BlockRecord, error) {
	defer rows.Close()

	records := make([]*models.BlockRecord, 0)
	for rows.Next() {
		var record models.BlockRecord
		var id uuid.UUID

		if err := rows.Scan(&id, &record.Email, &record.DeviceFingerprint, &record.AgentString,
			&record.Reason, &record.BlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan block record: %w", err)
		}

		record.ID = id.String()
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return records, nil
}
