package postgres

import (
	"context"
	"errors"
	"fmt"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// OperationRepo implements ports.OperationRepository.
type OperationRepo struct {
	pool Pool
}

// NewOperationRepo creates a new OperationRepo.
func NewOperationRepo(pool Pool) *OperationRepo {
	return &OperationRepo{pool: pool}
}

const operationColumns = `operation_id, kind, orderer, from_address, target, value, status, reason, created_at, updated_at`

func scanOperation(row pgx.Row) (*domain.Operation, error) {
	op := &domain.Operation{}
	err := row.Scan(
		&op.OperationID, &op.Kind, &op.Orderer, &op.From, &op.Target,
		&op.Value, &op.Status, &op.Reason, &op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return op, nil
}

// Create inserts a new workflow record within a transaction.
func (r *OperationRepo) Create(ctx context.Context, tx pgx.Tx, op *domain.Operation) error {
	query := `INSERT INTO operations (` + operationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		op.OperationID, op.Kind, op.Orderer, op.From, op.Target,
		op.Value, op.Status, op.Reason, op.CreatedAt, op.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrAlreadyExists("operation " + op.OperationID)
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// GetByID fetches a workflow record by operation id (without locking).
func (r *OperationRepo) GetByID(ctx context.Context, operationID string) (*domain.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE operation_id = $1`

	op, err := scanOperation(r.pool.QueryRow(ctx, query, operationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operation by id: %w", err)
	}
	return op, nil
}

// GetForUpdate fetches a workflow record with pessimistic locking.
// This MUST be called within a transaction.
func (r *OperationRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, operationID string) (*domain.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE operation_id = $1 FOR UPDATE`

	op, err := scanOperation(tx.QueryRow(ctx, query, operationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operation for update: %w", err)
	}
	return op, nil
}

// Exists reports whether a workflow record exists for the operation id.
func (r *OperationRepo) Exists(ctx context.Context, operationID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM operations WHERE operation_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, operationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check operation exists: %w", err)
	}
	return exists, nil
}

// UpdateStatus advances the workflow status within a transaction.
func (r *OperationRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, operationID string, status domain.OperationStatus, reason string) error {
	query := `UPDATE operations SET status = $1, reason = $2, updated_at = NOW() WHERE operation_id = $3`

	tag, err := tx.Exec(ctx, query, status, reason, operationID)
	if err != nil {
		return fmt.Errorf("update operation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("operation not found: %s", operationID)
	}
	return nil
}

// List returns a filtered page of workflow records plus the unpaginated
// total. Address matches orderer, payer or target.
func (r *OperationRepo) List(ctx context.Context, params ports.OperationListParams) ([]domain.Operation, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	argn := 0

	if params.Address != "" {
		argn++
		where += fmt.Sprintf(" AND (orderer = $%d OR from_address = $%d OR target = $%d)", argn, argn, argn)
		args = append(args, params.Address)
	}
	if params.Kind != nil {
		argn++
		where += fmt.Sprintf(" AND kind = $%d", argn)
		args = append(args, *params.Kind)
	}
	if params.Status != nil {
		argn++
		where += fmt.Sprintf(" AND status = $%d", argn)
		args = append(args, *params.Status)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM operations` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count operations: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	listQuery := `SELECT ` + operationColumns + ` FROM operations` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argn+1, argn+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	ops := []domain.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate operations: %w", err)
	}

	return ops, total, nil
}
