package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// HoldRepo implements ports.HoldRepository.
type HoldRepo struct {
	pool Pool
}

// NewHoldRepo creates a new HoldRepo.
func NewHoldRepo(pool Pool) *HoldRepo {
	return &HoldRepo{pool: pool}
}

const holdColumns = `operation_id, orderer, from_address, to_address, notary, value, expiration, status, release_reason, created_at, resolved_at`

func scanHold(row pgx.Row) (*domain.Hold, error) {
	h := &domain.Hold{}
	err := row.Scan(
		&h.OperationID, &h.Orderer, &h.From, &h.To, &h.Notary,
		&h.Value, &h.Expiration, &h.Status, &h.ReleaseReason,
		&h.CreatedAt, &h.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Create inserts a new hold within a transaction, alongside the held
// balance increment on the payer's row.
func (r *HoldRepo) Create(ctx context.Context, tx pgx.Tx, h *domain.Hold) error {
	query := `INSERT INTO holds (` + holdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		h.OperationID, h.Orderer, h.From, h.To, h.Notary,
		h.Value, h.Expiration, h.Status, h.ReleaseReason,
		h.CreatedAt, h.ResolvedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrAlreadyExists("operation " + h.OperationID)
		}
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

// GetByID fetches a hold by operation id (without locking).
func (r *HoldRepo) GetByID(ctx context.Context, operationID string) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE operation_id = $1`

	h, err := scanHold(r.pool.QueryRow(ctx, query, operationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get hold by id: %w", err)
	}
	return h, nil
}

// GetForUpdate fetches a hold with pessimistic locking.
// This MUST be called within a transaction.
func (r *HoldRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, operationID string) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE operation_id = $1 FOR UPDATE`

	h, err := scanHold(tx.QueryRow(ctx, query, operationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get hold for update: %w", err)
	}
	return h, nil
}

// Exists reports whether a hold row exists for the operation id.
func (r *HoldRepo) Exists(ctx context.Context, operationID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM holds WHERE operation_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, operationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check hold exists: %w", err)
	}
	return exists, nil
}

// Resolve moves a hold to a terminal status within a transaction. Rows
// already terminal are never matched.
func (r *HoldRepo) Resolve(ctx context.Context, tx pgx.Tx, operationID string, status domain.HoldStatus, reason string, resolvedAt time.Time) error {
	query := `UPDATE holds
		SET status = $1, release_reason = $2, resolved_at = $3
		WHERE operation_id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query, status, reason, resolvedAt, operationID, domain.HoldStatusOrdered)
	if err != nil {
		return fmt.Errorf("resolve hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hold not resolvable: %s", operationID)
	}
	return nil
}

// UpdateExpiration renews or removes the expiration within a transaction.
func (r *HoldRepo) UpdateExpiration(ctx context.Context, tx pgx.Tx, operationID string, expiration *time.Time) error {
	query := `UPDATE holds SET expiration = $1 WHERE operation_id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, expiration, operationID, domain.HoldStatusOrdered)
	if err != nil {
		return fmt.Errorf("update hold expiration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hold not renewable: %s", operationID)
	}
	return nil
}
