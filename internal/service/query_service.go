package service

import (
	"context"
	"fmt"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"
)

// LedgerQueryServiceImpl implements ports.LedgerQueryService. All reads,
// no transactions.
type LedgerQueryServiceImpl struct {
	accountRepo   ports.AccountRepository
	operationRepo ports.OperationRepository
	eventRepo     ports.EventRepository
}

// NewLedgerQueryService creates a new LedgerQueryServiceImpl.
func NewLedgerQueryService(
	accountRepo ports.AccountRepository,
	operationRepo ports.OperationRepository,
	eventRepo ports.EventRepository,
) *LedgerQueryServiceImpl {
	return &LedgerQueryServiceImpl{
		accountRepo:   accountRepo,
		operationRepo: operationRepo,
		eventRepo:     eventRepo,
	}
}

// GetAccount returns the full balance breakdown for an address.
func (s *LedgerQueryServiceImpl) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account " + address)
	}
	return account, nil
}

// AvailableFunds returns the spendable amount for an address: balance plus
// remaining overdraft headroom minus held funds.
func (s *LedgerQueryServiceImpl) AvailableFunds(ctx context.Context, address string) (int64, error) {
	account, err := s.GetAccount(ctx, address)
	if err != nil {
		return 0, err
	}
	return account.AvailableFunds(), nil
}

// ListOperations returns a filtered, paginated page of workflow records
// plus the unpaginated total.
func (s *LedgerQueryServiceImpl) ListOperations(ctx context.Context, params ports.OperationListParams) ([]domain.Operation, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	ops, total, err := s.operationRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list operations: %w", err))
	}
	return ops, total, nil
}

// ListEvents returns the journal rows recorded for one operation id, oldest
// first.
func (s *LedgerQueryServiceImpl) ListEvents(ctx context.Context, operationID string) ([]domain.Event, error) {
	events, err := s.eventRepo.ListByOperation(ctx, operationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list events: %w", err))
	}
	return events, nil
}
