package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// appendEvent journals one state transition in the same transaction that
// applies it, so a rolled-back transition leaves no trace.
func appendEvent(ctx context.Context, tx pgx.Tx, events ports.EventRepository, typ domain.EventType, operationID string, record any) (*domain.Event, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	ev := &domain.Event{
		ID:          uuid.New(),
		Type:        typ,
		OperationID: operationID,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	if err := events.Append(ctx, tx, ev); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	return ev, nil
}

// publishEvents fans committed events out to subscribers, best-effort.
func publishEvents(ctx context.Context, publisher ports.EventPublisher, log zerolog.Logger, events ...*domain.Event) {
	if publisher == nil {
		return
	}
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := publisher.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event_type", string(ev.Type)).Str("operation_id", ev.OperationID).Msg("failed to publish event")
		}
	}
}
