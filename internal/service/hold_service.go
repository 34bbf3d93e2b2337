package service

import (
	"context"
	"fmt"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// HoldServiceImpl implements ports.HoldService: the user-facing hold engine
// for notarized holds. Holds created by workflows are owned exclusively by
// their workflow and are not reachable through this service.
type HoldServiceImpl struct {
	accountRepo ports.AccountRepository
	holdRepo    ports.HoldRepository
	opRepo      ports.OperationRepository
	roleRepo    ports.RoleRepository
	eventRepo   ports.EventRepository
	publisher   ports.EventPublisher
	transactor  ports.DBTransactor
	log         zerolog.Logger
	now         func() time.Time
}

// NewHoldService creates a new HoldServiceImpl.
func NewHoldService(
	accountRepo ports.AccountRepository,
	holdRepo ports.HoldRepository,
	opRepo ports.OperationRepository,
	roleRepo ports.RoleRepository,
	eventRepo ports.EventRepository,
	publisher ports.EventPublisher,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *HoldServiceImpl {
	return &HoldServiceImpl{
		accountRepo: accountRepo,
		holdRepo:    holdRepo,
		opRepo:      opRepo,
		roleRepo:    roleRepo,
		eventRepo:   eventRepo,
		publisher:   publisher,
		transactor:  transactor,
		log:         log,
		now:         time.Now,
	}
}

// Create reserves value out of the payer's available funds. No balance moves
// until the hold is executed.
func (s *HoldServiceImpl) Create(ctx context.Context, req ports.HoldRequest) (*domain.Hold, error) {
	if req.Value <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.OperationID == "" {
		return nil, apperror.Validation("operation_id is required")
	}
	now := s.now().UTC()
	if req.Expiration != nil && !req.Expiration.After(now) {
		return nil, apperror.Validation("expiration must be in the future")
	}

	if err := s.authorizeOrderer(ctx, req.Caller, req.From, domain.CapabilityHold); err != nil {
		return nil, err
	}
	if err := s.requireWhitelisted(ctx, req.From, req.To); err != nil {
		return nil, err
	}

	hold := &domain.Hold{
		OperationID: req.OperationID,
		Orderer:     req.Caller,
		From:        req.From,
		To:          req.To,
		Notary:      req.Notary,
		Value:       req.Value,
		Expiration:  req.Expiration,
		Status:      domain.HoldStatusOrdered,
		CreatedAt:   now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Checked inside the transaction so two racing creates with the same
	// id cannot both pass; the insert's unique constraint backstops it.
	taken, err := operationIDTaken(ctx, s.holdRepo, s.opRepo, req.OperationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check operation id: %w", err))
	}
	if taken {
		return nil, apperror.ErrAlreadyExists("operation " + req.OperationID)
	}

	if err := reserveHold(ctx, dbTx, s.accountRepo, s.holdRepo, hold); err != nil {
		return nil, err
	}
	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventHoldCreated, hold.OperationID, hold)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().
		Str("operation_id", hold.OperationID).
		Str("from", hold.From).
		Str("to", hold.To).
		Int64("value", hold.Value).
		Msg("hold created")

	return hold, nil
}

// Execute moves the reserved funds from payer to payee and terminates the
// hold. Notarized holds are executable only by their notary, and only
// before expiry.
func (s *HoldServiceImpl) Execute(ctx context.Context, caller, operationID string) (*domain.Hold, error) {
	now := s.now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	hold, err := s.lockDirectHold(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}

	isController, err := s.roleRepo.HasRole(ctx, caller, domain.RoleOperator)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check operator role: %w", err))
	}
	if hold.Notary != "" && caller == hold.Notary && hold.IsExpired(now) {
		return nil, apperror.ErrExpired()
	}
	if !hold.MayExecute(caller, isController, now) {
		return nil, apperror.ErrUnauthorized("caller may not execute this hold")
	}

	if err := settleHold(ctx, dbTx, s.accountRepo, s.holdRepo, hold, now); err != nil {
		return nil, err
	}
	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventHoldExecuted, hold.OperationID, hold)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("operation_id", operationID).Str("caller", caller).Msg("hold executed")
	return hold, nil
}

// Release frees the reservation without moving funds. Before expiry only the
// notary or the payee may release; after expiry the payer side may as well.
func (s *HoldServiceImpl) Release(ctx context.Context, caller, operationID, reason string) (*domain.Hold, error) {
	now := s.now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	hold, err := s.lockDirectHold(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}

	if !hold.MayRelease(caller, now) {
		if (caller == hold.From || caller == hold.Orderer) && !hold.IsExpired(now) {
			return nil, apperror.ErrNotYetExpired()
		}
		return nil, apperror.ErrUnauthorized("caller may not release this hold")
	}

	if err := freeHold(ctx, dbTx, s.accountRepo, s.holdRepo, hold, reason, now); err != nil {
		return nil, err
	}
	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventHoldReleased, hold.OperationID, hold)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("operation_id", operationID).Str("caller", caller).Str("reason", reason).Msg("hold released")
	return hold, nil
}

// Renew pushes the expiration out. Only the holder side may renew, and only
// while the hold is still live.
func (s *HoldServiceImpl) Renew(ctx context.Context, caller, operationID string, newExpiration time.Time) (*domain.Hold, error) {
	now := s.now().UTC()
	if !newExpiration.After(now) {
		return nil, apperror.Validation("new expiration must be in the future")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	hold, err := s.lockDirectHold(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}

	if hold.IsExpired(now) {
		return nil, apperror.ErrExpired()
	}
	if !hold.MayRenew(caller, now) {
		return nil, apperror.ErrUnauthorized("caller may not renew this hold")
	}

	if err := s.holdRepo.UpdateExpiration(ctx, dbTx, operationID, &newExpiration); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update expiration: %w", err))
	}
	hold.Expiration = &newExpiration

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventHoldRenewed, hold.OperationID, hold)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("operation_id", operationID).Time("new_expiration", newExpiration).Msg("hold renewed")
	return hold, nil
}

// Get retrieves a hold by operation ID.
func (s *HoldServiceImpl) Get(ctx context.Context, operationID string) (*domain.Hold, error) {
	hold, err := s.holdRepo.GetByID(ctx, operationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get hold: %w", err))
	}
	if hold == nil {
		return nil, apperror.ErrNotFound("hold " + operationID)
	}
	return hold, nil
}

// Exists reports whether a hold exists for the given operation ID.
func (s *HoldServiceImpl) Exists(ctx context.Context, operationID string) (bool, error) {
	exists, err := s.holdRepo.Exists(ctx, operationID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("check hold exists: %w", err))
	}
	return exists, nil
}

// lockDirectHold fetches a live hold for update, refusing terminal holds and
// holds owned by a workflow.
func (s *HoldServiceImpl) lockDirectHold(ctx context.Context, dbTx pgx.Tx, operationID string) (*domain.Hold, error) {
	hold, err := s.holdRepo.GetForUpdate(ctx, dbTx, operationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock hold: %w", err))
	}
	if hold == nil {
		return nil, apperror.ErrNotFound("hold " + operationID)
	}
	if hold.IsTerminal() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("hold %s is already %s", operationID, hold.Status))
	}
	owned, err := s.opRepo.Exists(ctx, operationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check workflow ownership: %w", err))
	}
	if owned {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("hold %s is owned by a workflow", operationID))
	}
	return hold, nil
}

// authorizeOrderer allows the wallet owner, or an approved agent delegate,
// to act "from" the wallet.
func (s *HoldServiceImpl) authorizeOrderer(ctx context.Context, caller, wallet string, capability domain.Capability) error {
	if caller == wallet {
		return nil
	}
	isAgent, err := s.roleRepo.HasRole(ctx, caller, domain.RoleAgent)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check agent role: %w", err))
	}
	if !isAgent {
		return apperror.ErrNotAgent(caller)
	}
	approved, err := s.roleRepo.IsApprovedOperator(ctx, wallet, caller, capability)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check operator approval: %w", err))
	}
	if !approved {
		return apperror.ErrUnauthorized(fmt.Sprintf("delegate %s is not approved for %s on wallet %s", caller, capability, wallet))
	}
	return nil
}

// requireWhitelisted verifies every listed address is a whitelisted account.
func (s *HoldServiceImpl) requireWhitelisted(ctx context.Context, addresses ...string) error {
	for _, addr := range addresses {
		account, err := s.accountRepo.GetByAddress(ctx, addr)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get account %s: %w", addr, err))
		}
		if account == nil {
			return apperror.ErrNotFound("account " + addr)
		}
		if !account.Whitelisted {
			return apperror.ErrNotWhitelisted(addr)
		}
	}
	return nil
}
