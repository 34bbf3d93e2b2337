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
	"github.com/rs/zerolog"
)

// workflowEvents names the event emitted on each transition of one workflow
// kind.
type workflowEvents struct {
	ordered   domain.EventType
	inProcess domain.EventType
	suspense  domain.EventType
	executed  domain.EventType
	rejected  domain.EventType
	cancelled domain.EventType
}

// workflowPolicy captures what distinguishes the three hold-backed
// workflows: who may be delegated to order, whether ordering reserves a
// hold, and where executed funds go. The transition rules are shared.
type workflowPolicy struct {
	kind       domain.OperationKind
	capability domain.Capability
	// reserves: ordering places a hold against the acting wallet. Funding
	// requests reserve nothing since the value originates outside the
	// ledger.
	reserves bool
	// targetIsWallet: Target must be an existing whitelisted account
	// (transfers). Otherwise Target is free-form routing instructions.
	targetIsWallet bool
	events         workflowEvents
}

// WorkflowServiceImpl implements ports.WorkflowService generically; one
// instance per workflow kind.
type WorkflowServiceImpl struct {
	policy      workflowPolicy
	accountRepo ports.AccountRepository
	holdRepo    ports.HoldRepository
	opRepo      ports.OperationRepository
	roleRepo    ports.RoleRepository
	eventRepo   ports.EventRepository
	publisher   ports.EventPublisher
	transactor  ports.DBTransactor
	// suspenseAddress is the issuer clearing wallet payout holds settle into.
	suspenseAddress string
	log             zerolog.Logger
	now             func() time.Time
}

// WorkflowDeps bundles the collaborators shared by all workflow kinds.
type WorkflowDeps struct {
	AccountRepo     ports.AccountRepository
	HoldRepo        ports.HoldRepository
	OpRepo          ports.OperationRepository
	RoleRepo        ports.RoleRepository
	EventRepo       ports.EventRepository
	Publisher       ports.EventPublisher
	Transactor      ports.DBTransactor
	SuspenseAddress string
	Log             zerolog.Logger
}

func newWorkflowService(policy workflowPolicy, deps WorkflowDeps) *WorkflowServiceImpl {
	return &WorkflowServiceImpl{
		policy:          policy,
		accountRepo:     deps.AccountRepo,
		holdRepo:        deps.HoldRepo,
		opRepo:          deps.OpRepo,
		roleRepo:        deps.RoleRepo,
		eventRepo:       deps.EventRepo,
		publisher:       deps.Publisher,
		transactor:      deps.Transactor,
		suspenseAddress: deps.SuspenseAddress,
		log:             deps.Log,
		now:             time.Now,
	}
}

// NewTransferService creates the clearable transfer workflow: funds move
// between two whitelisted wallets once the controller clears the transfer.
func NewTransferService(deps WorkflowDeps) *WorkflowServiceImpl {
	return newWorkflowService(workflowPolicy{
		kind:           domain.OperationKindTransfer,
		capability:     domain.CapabilityTransfer,
		reserves:       true,
		targetIsWallet: true,
		events: workflowEvents{
			ordered:   domain.EventTransferOrdered,
			inProcess: domain.EventTransferInProcess,
			executed:  domain.EventTransferExecuted,
			rejected:  domain.EventTransferRejected,
			cancelled: domain.EventTransferCancelled,
		},
	}, deps)
}

// NewFundingService creates the funding request workflow: executing a
// request mints the value into the wallet from an external funding source.
func NewFundingService(deps WorkflowDeps) *WorkflowServiceImpl {
	return newWorkflowService(workflowPolicy{
		kind:       domain.OperationKindFunding,
		capability: domain.CapabilityFund,
		reserves:   false,
		events: workflowEvents{
			ordered:   domain.EventFundingOrdered,
			inProcess: domain.EventFundingInProcess,
			executed:  domain.EventFundingExecuted,
			rejected:  domain.EventFundingRejected,
			cancelled: domain.EventFundingCancelled,
		},
	}, deps)
}

// PayoutServiceImpl adds the funds-in-suspense custody transfer on top of
// the generic workflow.
type PayoutServiceImpl struct {
	*WorkflowServiceImpl
}

// NewPayoutService creates the payout workflow: funds leave the system
// through the issuer suspense wallet.
func NewPayoutService(deps WorkflowDeps) *PayoutServiceImpl {
	return &PayoutServiceImpl{newWorkflowService(workflowPolicy{
		kind:       domain.OperationKindPayout,
		capability: domain.CapabilityPayout,
		reserves:   true,
		events: workflowEvents{
			ordered:   domain.EventPayoutOrdered,
			inProcess: domain.EventPayoutInProcess,
			suspense:  domain.EventPayoutFundsInSuspense,
			executed:  domain.EventPayoutExecuted,
			rejected:  domain.EventPayoutRejected,
			cancelled: domain.EventPayoutCancelled,
		},
	}, deps)}
}

// Order creates the workflow record and, for reserving kinds, the backing
// hold. The caller orders for their own wallet, or as an approved agent
// delegate on another wallet.
func (s *WorkflowServiceImpl) Order(ctx context.Context, req ports.OrderRequest) (*domain.Operation, error) {
	if req.Value <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.OperationID == "" {
		return nil, apperror.Validation("operation_id is required")
	}
	if req.Target == "" {
		return nil, apperror.Validation("target is required")
	}

	if err := s.authorizeOrderer(ctx, req.Caller, req.From); err != nil {
		return nil, err
	}
	if err := s.requireWhitelisted(ctx, req.From); err != nil {
		return nil, err
	}
	if s.policy.targetIsWallet {
		if err := s.requireWhitelisted(ctx, req.Target); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	op := &domain.Operation{
		OperationID: req.OperationID,
		Kind:        s.policy.kind,
		Orderer:     req.Caller,
		From:        req.From,
		Target:      req.Target,
		Value:       req.Value,
		Status:      domain.OperationStatusOrdered,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Checked inside the transaction so two racing orders with the same
	// id cannot both pass; the insert's unique constraint backstops it.
	taken, err := operationIDTaken(ctx, s.holdRepo, s.opRepo, req.OperationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check operation id: %w", err))
	}
	if taken {
		return nil, apperror.ErrAlreadyExists("operation " + req.OperationID)
	}

	if err := s.opRepo.Create(ctx, dbTx, op); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.InternalError(fmt.Errorf("insert operation: %w", err))
	}

	if s.policy.reserves {
		hold := &domain.Hold{
			OperationID: op.OperationID,
			Orderer:     op.Orderer,
			From:        op.From,
			To:          s.holdPayee(op),
			Value:       op.Value,
			Status:      domain.HoldStatusOrdered,
			CreatedAt:   now,
		}
		if err := reserveHold(ctx, dbTx, s.accountRepo, s.holdRepo, hold); err != nil {
			return nil, err
		}
	}

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, s.policy.events.ordered, op.OperationID, op)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().
		Str("kind", string(op.Kind)).
		Str("operation_id", op.OperationID).
		Str("orderer", op.Orderer).
		Str("from", op.From).
		Int64("value", op.Value).
		Msg("operation ordered")

	return op, nil
}

// Cancel ends an operation while it is still ORDERED. Only the recorded
// orderer may cancel; once the controller takes it in process, only the
// controller can still end it.
func (s *WorkflowServiceImpl) Cancel(ctx context.Context, caller, operationID string) (*domain.Operation, error) {
	now := s.now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	op, err := s.lockOperation(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}
	if caller != op.Orderer {
		return nil, apperror.ErrUnauthorized("only the orderer may cancel")
	}
	if !op.CanCancel() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("operation %s is %s and can no longer be cancelled", operationID, op.Status))
	}

	var holdEv *domain.Event
	if s.policy.reserves {
		holdEv, err = s.releaseBackingHold(ctx, dbTx, op, "cancelled by orderer", now)
		if err != nil {
			return nil, err
		}
	}

	if err := s.opRepo.UpdateStatus(ctx, dbTx, operationID, domain.OperationStatusCancelled, ""); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update operation status: %w", err))
	}
	op.Status = domain.OperationStatusCancelled
	op.UpdatedAt = now

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, s.policy.events.cancelled, op.OperationID, op)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, holdEv, ev)

	s.log.Info().Str("kind", string(op.Kind)).Str("operation_id", operationID).Msg("operation cancelled")
	return op, nil
}

// Process is the controller's advisory lock: offchain clearing is underway
// and the orderer can no longer cancel. No hold-side effect.
func (s *WorkflowServiceImpl) Process(ctx context.Context, caller, operationID string) (*domain.Operation, error) {
	now := s.now().UTC()
	if err := s.requireController(ctx, caller); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	op, err := s.lockOperation(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}
	if !op.CanProcess() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("operation %s is %s and cannot move to in process", operationID, op.Status))
	}

	if err := s.opRepo.UpdateStatus(ctx, dbTx, operationID, domain.OperationStatusInProcess, ""); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update operation status: %w", err))
	}
	op.Status = domain.OperationStatusInProcess
	op.UpdatedAt = now

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, s.policy.events.inProcess, op.OperationID, op)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("kind", string(op.Kind)).Str("operation_id", operationID).Msg("operation in process")
	return op, nil
}

// Execute settles the operation: transfers settle their hold to the payee,
// funding requests mint into the wallet, payouts burn from the suspense
// wallet they were moved to.
func (s *WorkflowServiceImpl) Execute(ctx context.Context, caller, operationID string) (*domain.Operation, error) {
	now := s.now().UTC()
	if err := s.requireController(ctx, caller); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	op, err := s.lockOperation(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}
	if !op.CanExecute() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("operation %s is %s and cannot be executed", operationID, op.Status))
	}

	var holdEv *domain.Event
	switch op.Kind {
	case domain.OperationKindTransfer:
		holdEv, err = s.settleBackingHold(ctx, dbTx, op, now)
		if err != nil {
			return nil, err
		}
	case domain.OperationKindFunding:
		if err := s.mint(ctx, dbTx, op.From, op.Value); err != nil {
			return nil, err
		}
	case domain.OperationKindPayout:
		// Funds already sit in the suspense wallet; executing burns them.
		if err := s.burn(ctx, dbTx, s.suspenseAddress, op.Value); err != nil {
			return nil, err
		}
	}

	if err := s.opRepo.UpdateStatus(ctx, dbTx, operationID, domain.OperationStatusExecuted, ""); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update operation status: %w", err))
	}
	op.Status = domain.OperationStatusExecuted
	op.UpdatedAt = now

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, s.policy.events.executed, op.OperationID, op)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, holdEv, ev)

	s.log.Info().Str("kind", string(op.Kind)).Str("operation_id", operationID).Int64("value", op.Value).Msg("operation executed")
	return op, nil
}

// Reject ends the operation with an audit reason. Reserved funds are
// released; payout funds already in suspense are returned to the payer.
func (s *WorkflowServiceImpl) Reject(ctx context.Context, caller, operationID, reason string) (*domain.Operation, error) {
	now := s.now().UTC()
	if err := s.requireController(ctx, caller); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	op, err := s.lockOperation(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}
	if !op.CanReject() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("operation %s is %s and cannot be rejected", operationID, op.Status))
	}

	var holdEv *domain.Event
	if op.Status == domain.OperationStatusFundsInSuspense {
		// Custody was already transferred; give the funds back.
		if err := s.moveFunds(ctx, dbTx, s.suspenseAddress, op.From, op.Value); err != nil {
			return nil, err
		}
	} else if s.policy.reserves {
		holdEv, err = s.releaseBackingHold(ctx, dbTx, op, reason, now)
		if err != nil {
			return nil, err
		}
	}

	if err := s.opRepo.UpdateStatus(ctx, dbTx, operationID, domain.OperationStatusRejected, reason); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update operation status: %w", err))
	}
	op.Status = domain.OperationStatusRejected
	op.Reason = reason
	op.UpdatedAt = now

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, s.policy.events.rejected, op.OperationID, op)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, holdEv, ev)

	s.log.Info().Str("kind", string(op.Kind)).Str("operation_id", operationID).Str("reason", reason).Msg("operation rejected")
	return op, nil
}

// MoveToSuspense transfers custody of payout funds to the issuer clearing
// wallet ahead of final execution. Controller only.
func (s *PayoutServiceImpl) MoveToSuspense(ctx context.Context, caller, operationID string) (*domain.Operation, error) {
	now := s.now().UTC()
	if err := s.requireController(ctx, caller); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	op, err := s.lockOperation(ctx, dbTx, operationID)
	if err != nil {
		return nil, err
	}
	if !op.CanMoveToSuspense() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("operation %s is %s and cannot move to suspense", operationID, op.Status))
	}

	holdEv, err := s.settleBackingHold(ctx, dbTx, op, now)
	if err != nil {
		return nil, err
	}

	if err := s.opRepo.UpdateStatus(ctx, dbTx, operationID, domain.OperationStatusFundsInSuspense, ""); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update operation status: %w", err))
	}
	op.Status = domain.OperationStatusFundsInSuspense
	op.UpdatedAt = now

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, s.policy.events.suspense, op.OperationID, op)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, holdEv, ev)

	s.log.Info().Str("operation_id", operationID).Int64("value", op.Value).Msg("payout funds in suspense")
	return op, nil
}

// Get retrieves an operation of this workflow's kind.
func (s *WorkflowServiceImpl) Get(ctx context.Context, operationID string) (*domain.Operation, error) {
	op, err := s.opRepo.GetByID(ctx, operationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get operation: %w", err))
	}
	if op == nil || op.Kind != s.policy.kind {
		return nil, apperror.ErrNotFound("operation " + operationID)
	}
	return op, nil
}

// Exists reports whether an operation of this kind exists.
func (s *WorkflowServiceImpl) Exists(ctx context.Context, operationID string) (bool, error) {
	op, err := s.opRepo.GetByID(ctx, operationID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("get operation: %w", err))
	}
	return op != nil && op.Kind == s.policy.kind, nil
}

// ---- internal helpers ----

func (s *WorkflowServiceImpl) holdPayee(op *domain.Operation) string {
	if op.Kind == domain.OperationKindPayout {
		return s.suspenseAddress
	}
	return op.Target
}

func (s *WorkflowServiceImpl) lockOperation(ctx context.Context, dbTx pgx.Tx, operationID string) (*domain.Operation, error) {
	op, err := s.opRepo.GetForUpdate(ctx, dbTx, operationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock operation: %w", err))
	}
	if op == nil || op.Kind != s.policy.kind {
		return nil, apperror.ErrNotFound("operation " + operationID)
	}
	return op, nil
}

func (s *WorkflowServiceImpl) requireController(ctx context.Context, caller string) error {
	isOperator, err := s.roleRepo.HasRole(ctx, caller, domain.RoleOperator)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check operator role: %w", err))
	}
	if !isOperator {
		return apperror.ErrUnauthorized("caller does not hold the operator role")
	}
	return nil
}

func (s *WorkflowServiceImpl) authorizeOrderer(ctx context.Context, caller, wallet string) error {
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
	approved, err := s.roleRepo.IsApprovedOperator(ctx, wallet, caller, s.policy.capability)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check operator approval: %w", err))
	}
	if !approved {
		return apperror.ErrUnauthorized(fmt.Sprintf("delegate %s is not approved for %s on wallet %s", caller, s.policy.capability, wallet))
	}
	return nil
}

func (s *WorkflowServiceImpl) requireWhitelisted(ctx context.Context, addresses ...string) error {
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

// settleBackingHold executes the operation's hold and journals it.
func (s *WorkflowServiceImpl) settleBackingHold(ctx context.Context, dbTx pgx.Tx, op *domain.Operation, now time.Time) (*domain.Event, error) {
	hold, err := s.lockBackingHold(ctx, dbTx, op)
	if err != nil {
		return nil, err
	}
	if err := settleHold(ctx, dbTx, s.accountRepo, s.holdRepo, hold, now); err != nil {
		return nil, err
	}
	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventHoldExecuted, hold.OperationID, hold)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return ev, nil
}

// releaseBackingHold releases the operation's hold and journals it.
func (s *WorkflowServiceImpl) releaseBackingHold(ctx context.Context, dbTx pgx.Tx, op *domain.Operation, reason string, now time.Time) (*domain.Event, error) {
	hold, err := s.lockBackingHold(ctx, dbTx, op)
	if err != nil {
		return nil, err
	}
	if err := freeHold(ctx, dbTx, s.accountRepo, s.holdRepo, hold, reason, now); err != nil {
		return nil, err
	}
	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventHoldReleased, hold.OperationID, hold)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return ev, nil
}

func (s *WorkflowServiceImpl) lockBackingHold(ctx context.Context, dbTx pgx.Tx, op *domain.Operation) (*domain.Hold, error) {
	hold, err := s.holdRepo.GetForUpdate(ctx, dbTx, op.OperationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock hold: %w", err))
	}
	if hold == nil {
		return nil, apperror.InternalError(fmt.Errorf("operation %s has no backing hold", op.OperationID))
	}
	if hold.IsTerminal() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("hold %s is already %s", op.OperationID, hold.Status))
	}
	return hold, nil
}

// mint credits value into a wallet; total system balance grows.
func (s *WorkflowServiceImpl) mint(ctx context.Context, dbTx pgx.Tx, address string, value int64) error {
	account, err := s.accountRepo.GetForUpdate(ctx, dbTx, address)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return apperror.ErrNotFound("account " + address)
	}
	account.Credit(value)
	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return apperror.InternalError(fmt.Errorf("update account: %w", err))
	}
	return nil
}

// burn debits value out of a wallet; total system balance shrinks by
// exactly the routed value.
func (s *WorkflowServiceImpl) burn(ctx context.Context, dbTx pgx.Tx, address string, value int64) error {
	account, err := s.accountRepo.GetForUpdate(ctx, dbTx, address)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return apperror.ErrNotFound("account " + address)
	}
	if !account.Debit(value) {
		return apperror.ErrInsufficientFunds()
	}
	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return apperror.InternalError(fmt.Errorf("update account: %w", err))
	}
	return nil
}

// moveFunds debits one wallet and credits another. Both rows are locked in
// address order via lockAccountPair before any balance changes.
func (s *WorkflowServiceImpl) moveFunds(ctx context.Context, dbTx pgx.Tx, fromAddr, toAddr string, value int64) error {
	from, to, err := lockAccountPair(ctx, dbTx, s.accountRepo, fromAddr, toAddr)
	if err != nil {
		return err
	}
	if from == nil {
		return apperror.ErrNotFound("account " + fromAddr)
	}
	if to == nil {
		return apperror.ErrNotFound("account " + toAddr)
	}

	if !from.Debit(value) {
		return apperror.ErrInsufficientFunds()
	}
	if err := s.accountRepo.Update(ctx, dbTx, from); err != nil {
		return apperror.InternalError(fmt.Errorf("update account: %w", err))
	}
	to.Credit(value)
	if err := s.accountRepo.Update(ctx, dbTx, to); err != nil {
		return apperror.InternalError(fmt.Errorf("update account: %w", err))
	}
	return nil
}
