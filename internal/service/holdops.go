package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// Hold accounting shared by the hold engine and the workflow services.
// All three helpers run inside the caller's transaction: either the whole
// transition applies or none of it does.

// reserveHold counts the hold's value against the payer's available funds
// and inserts the hold row. No real balance moves.
func reserveHold(ctx context.Context, tx pgx.Tx, accounts ports.AccountRepository, holds ports.HoldRepository, hold *domain.Hold) error {
	from, err := accounts.GetForUpdate(ctx, tx, hold.From)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payer account: %w", err))
	}
	if from == nil {
		return apperror.ErrNotFound("payer account")
	}
	if hold.Value > from.AvailableFunds() {
		return apperror.ErrInsufficientFunds()
	}

	from.HeldBalance += hold.Value
	if err := accounts.Update(ctx, tx, from); err != nil {
		return apperror.InternalError(fmt.Errorf("update payer held balance: %w", err))
	}
	if err := holds.Create(ctx, tx, hold); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.InternalError(fmt.Errorf("insert hold: %w", err))
	}
	return nil
}

// lockAccountPair locks two accounts in ascending address order so
// opposite-direction settlements can never deadlock on each other's rows.
// Returns the accounts in the caller's order; a missing account comes back
// nil.
func lockAccountPair(ctx context.Context, tx pgx.Tx, accounts ports.AccountRepository, addrA, addrB string) (*domain.Account, *domain.Account, error) {
	if addrA == addrB {
		a, err := accounts.GetForUpdate(ctx, tx, addrA)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock account %s: %w", addrA, err))
		}
		return a, a, nil
	}

	first, second := addrA, addrB
	if second < first {
		first, second = second, first
	}
	f, err := accounts.GetForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock account %s: %w", first, err))
	}
	s, err := accounts.GetForUpdate(ctx, tx, second)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock account %s: %w", second, err))
	}
	if first == addrA {
		return f, s, nil
	}
	return s, f, nil
}

// settleHold executes a hold: frees the reservation, debits the payer and
// credits the payee, then marks the hold EXECUTED.
func settleHold(ctx context.Context, tx pgx.Tx, accounts ports.AccountRepository, holds ports.HoldRepository, hold *domain.Hold, now time.Time) error {
	from, to, err := lockAccountPair(ctx, tx, accounts, hold.From, hold.To)
	if err != nil {
		return err
	}
	if from == nil {
		return apperror.ErrNotFound("payer account")
	}
	if to == nil {
		return apperror.ErrNotFound("payee account")
	}

	from.HeldBalance -= hold.Value
	if !from.Debit(hold.Value) {
		// Reserved value is always coverable; reaching this means the hold
		// table and the balances disagree.
		return apperror.InternalError(fmt.Errorf("reserved value %d exceeds payer funds on %s", hold.Value, hold.From))
	}
	if err := accounts.Update(ctx, tx, from); err != nil {
		return apperror.InternalError(fmt.Errorf("update payer account: %w", err))
	}

	to.Credit(hold.Value)
	if err := accounts.Update(ctx, tx, to); err != nil {
		return apperror.InternalError(fmt.Errorf("update payee account: %w", err))
	}

	if err := holds.Resolve(ctx, tx, hold.OperationID, domain.HoldStatusExecuted, "", now); err != nil {
		return apperror.InternalError(fmt.Errorf("resolve hold: %w", err))
	}
	hold.Status = domain.HoldStatusExecuted
	hold.ResolvedAt = &now
	return nil
}

// freeHold releases a hold: the reservation is dropped, no funds move.
func freeHold(ctx context.Context, tx pgx.Tx, accounts ports.AccountRepository, holds ports.HoldRepository, hold *domain.Hold, reason string, now time.Time) error {
	from, err := accounts.GetForUpdate(ctx, tx, hold.From)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payer account: %w", err))
	}
	if from == nil {
		return apperror.ErrNotFound("payer account")
	}

	from.HeldBalance -= hold.Value
	if err := accounts.Update(ctx, tx, from); err != nil {
		return apperror.InternalError(fmt.Errorf("update payer held balance: %w", err))
	}

	if err := holds.Resolve(ctx, tx, hold.OperationID, domain.HoldStatusReleased, reason, now); err != nil {
		return apperror.InternalError(fmt.Errorf("resolve hold: %w", err))
	}
	hold.Status = domain.HoldStatusReleased
	hold.ReleaseReason = reason
	hold.ResolvedAt = &now
	return nil
}

// operationIDTaken reports whether the id is in use by any hold or workflow
// record. Operation IDs share one namespace; collision is a creation error,
// never an overwrite.
func operationIDTaken(ctx context.Context, holds ports.HoldRepository, ops ports.OperationRepository, operationID string) (bool, error) {
	if taken, err := holds.Exists(ctx, operationID); err != nil || taken {
		return taken, err
	}
	return ops.Exists(ctx, operationID)
}
