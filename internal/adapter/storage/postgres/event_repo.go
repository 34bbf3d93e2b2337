package postgres

import (
	"context"
	"fmt"

	"emoney-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository. The journal is append-only:
// no update or delete path exists.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Append inserts one journal row within the transaction that performed the
// transition it records.
func (r *EventRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.Event) error {
	query := `INSERT INTO events (id, type, operation_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, e.ID, e.Type, e.OperationID, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListByOperation returns all journal rows for one operation id, oldest
// first.
func (r *EventRepo) ListByOperation(ctx context.Context, operationID string) ([]domain.Event, error) {
	query := `SELECT id, type, operation_id, payload, created_at
		FROM events WHERE operation_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, operationID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.OperationID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
