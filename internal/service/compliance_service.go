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

// ComplianceServiceImpl implements ports.ComplianceService: whitelisting,
// role grants, delegated-operator approvals, overdraft limits and the
// interest engine delegation.
type ComplianceServiceImpl struct {
	accountRepo  ports.AccountRepository
	roleRepo     ports.RoleRepository
	settingsRepo ports.SettingsRepository
	eventRepo    ports.EventRepository
	publisher    ports.EventPublisher
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewComplianceService creates a new ComplianceServiceImpl.
func NewComplianceService(
	accountRepo ports.AccountRepository,
	roleRepo ports.RoleRepository,
	settingsRepo ports.SettingsRepository,
	eventRepo ports.EventRepository,
	publisher ports.EventPublisher,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ComplianceServiceImpl {
	return &ComplianceServiceImpl{
		accountRepo:  accountRepo,
		roleRepo:     roleRepo,
		settingsRepo: settingsRepo,
		eventRepo:    eventRepo,
		publisher:    publisher,
		transactor:   transactor,
		log:          log,
	}
}

// Whitelist marks an account eligible to hold balance and act as a transfer
// endpoint. Compliance role only.
func (s *ComplianceServiceImpl) Whitelist(ctx context.Context, caller, address string) error {
	if err := s.requireRole(ctx, caller, domain.RoleCompliance); err != nil {
		return err
	}
	return s.setWhitelisted(ctx, address, true, domain.EventAccountWhitelisted)
}

// Unwhitelist removes eligibility. The account must be fully wound down:
// zero balance, nothing drawn, nothing held.
func (s *ComplianceServiceImpl) Unwhitelist(ctx context.Context, caller, address string) error {
	if err := s.requireRole(ctx, caller, domain.RoleCompliance); err != nil {
		return err
	}
	return s.setWhitelisted(ctx, address, false, domain.EventAccountUnwhitelisted)
}

func (s *ComplianceServiceImpl) setWhitelisted(ctx context.Context, address string, whitelisted bool, evType domain.EventType) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockAccount(ctx, dbTx, address)
	if err != nil {
		return err
	}
	if account.Whitelisted == whitelisted {
		return apperror.ErrInvalidState(fmt.Sprintf("account %s whitelisted is already %t", address, whitelisted))
	}
	if !whitelisted && (account.Balance != 0 || account.DrawnBalance != 0 || account.HeldBalance != 0) {
		return apperror.ErrInvalidState(fmt.Sprintf("account %s still carries balance and cannot be unwhitelisted", address))
	}

	account.Whitelisted = whitelisted
	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, evType, "", account)
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("address", address).Bool("whitelisted", whitelisted).Msg("whitelist updated")
	return nil
}

// GrantRole attaches a ledger role to an address. Compliance role only.
func (s *ComplianceServiceImpl) GrantRole(ctx context.Context, caller, address string, role domain.Role) error {
	if !role.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown role %q", role))
	}
	if err := s.requireRole(ctx, caller, domain.RoleCompliance); err != nil {
		return err
	}

	has, err := s.roleRepo.HasRole(ctx, address, role)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check role: %w", err))
	}
	if has {
		return apperror.ErrAlreadyExists(fmt.Sprintf("role %s on %s", role, address))
	}

	return s.mutateGate(ctx, domain.EventRoleGranted, roleChange{Address: address, Role: role}, func(dbTx pgx.Tx) error {
		return s.roleRepo.Grant(ctx, dbTx, address, role)
	})
}

// RevokeRole removes one role; other roles held by the address are
// untouched.
func (s *ComplianceServiceImpl) RevokeRole(ctx context.Context, caller, address string, role domain.Role) error {
	if !role.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown role %q", role))
	}
	if err := s.requireRole(ctx, caller, domain.RoleCompliance); err != nil {
		return err
	}

	has, err := s.roleRepo.HasRole(ctx, address, role)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check role: %w", err))
	}
	if !has {
		return apperror.ErrNotFound(fmt.Sprintf("role %s on %s", role, address))
	}

	return s.mutateGate(ctx, domain.EventRoleRevoked, roleChange{Address: address, Role: role}, func(dbTx pgx.Tx) error {
		return s.roleRepo.Revoke(ctx, dbTx, address, role)
	})
}

// ListRoles returns the role set of an address. Read-only, role-free.
func (s *ComplianceServiceImpl) ListRoles(ctx context.Context, address string) ([]domain.Role, error) {
	roles, err := s.roleRepo.ListRoles(ctx, address)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list roles: %w", err))
	}
	return roles, nil
}

// AuthorizeOperator lets a wallet owner pre-approve a delegate for one
// capability. The delegate must already hold the agent role, which blocks
// privilege escalation through approving an unprivileged address.
func (s *ComplianceServiceImpl) AuthorizeOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) error {
	if !capability.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown capability %q", capability))
	}

	isAgent, err := s.roleRepo.HasRole(ctx, delegate, domain.RoleAgent)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check agent role: %w", err))
	}
	if !isAgent {
		return apperror.ErrNotAgent(delegate)
	}

	approved, err := s.roleRepo.IsApprovedOperator(ctx, wallet, delegate, capability)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check approval: %w", err))
	}
	if approved {
		return apperror.ErrAlreadyExists(fmt.Sprintf("approval of %s for %s on %s", delegate, capability, wallet))
	}

	change := approvalChange{Wallet: wallet, Delegate: delegate, Capability: capability}
	return s.mutateGate(ctx, domain.EventOperatorAuthorized, change, func(dbTx pgx.Tx) error {
		return s.roleRepo.Approve(ctx, dbTx, wallet, delegate, capability)
	})
}

// RevokeOperator is self-service by the wallet owner; no counter-approval.
// Revocation immediately blocks the delegate until re-approved.
func (s *ComplianceServiceImpl) RevokeOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) error {
	if !capability.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown capability %q", capability))
	}

	approved, err := s.roleRepo.IsApprovedOperator(ctx, wallet, delegate, capability)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check approval: %w", err))
	}
	if !approved {
		return apperror.ErrNotFound(fmt.Sprintf("approval of %s for %s on %s", delegate, capability, wallet))
	}

	change := approvalChange{Wallet: wallet, Delegate: delegate, Capability: capability}
	return s.mutateGate(ctx, domain.EventOperatorRevoked, change, func(dbTx pgx.Tx) error {
		return s.roleRepo.RevokeApproval(ctx, dbTx, wallet, delegate, capability)
	})
}

// IsApprovedOperator is the read-only approval query.
func (s *ComplianceServiceImpl) IsApprovedOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) (bool, error) {
	approved, err := s.roleRepo.IsApprovedOperator(ctx, wallet, delegate, capability)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("check approval: %w", err))
	}
	return approved, nil
}

// SetOverdraftLimit sets the unsecured overdraft ceiling. Credit-risk role
// only; the limit can never drop below what is already drawn.
func (s *ComplianceServiceImpl) SetOverdraftLimit(ctx context.Context, caller, address string, limit int64) error {
	if limit < 0 {
		return apperror.ErrInvalidAmount()
	}
	if err := s.requireRole(ctx, caller, domain.RoleCreditRisk); err != nil {
		return err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockAccount(ctx, dbTx, address)
	if err != nil {
		return err
	}
	if limit < account.DrawnBalance {
		return apperror.ErrInvalidState(fmt.Sprintf("account %s has %d drawn, limit cannot drop below that", address, account.DrawnBalance))
	}

	account.OverdraftLimit = limit
	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventOverdraftLimitSet, "", account)
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("address", address).Int64("limit", limit).Msg("overdraft limit set")
	return nil
}

// SetInterestEngine designates the single address allowed to charge
// interest against drawn balances. Credit-risk role only; setting a new
// engine revokes the previous one.
func (s *ComplianceServiceImpl) SetInterestEngine(ctx context.Context, caller, address string) error {
	if err := s.requireRole(ctx, caller, domain.RoleCreditRisk); err != nil {
		return err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.settingsRepo.SetInterestEngine(ctx, dbTx, address); err != nil {
		return apperror.InternalError(fmt.Errorf("set interest engine: %w", err))
	}

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventInterestEngineSet, "", map[string]string{"interest_engine": address})
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("interest_engine", address).Msg("interest engine set")
	return nil
}

// ChargeInterest raises a wallet's drawn balance by the accrued interest.
// Callable only by the designated interest engine; the drawn balance may
// never exceed the overdraft limit, and the charge may not eat into
// headroom backing live holds.
func (s *ComplianceServiceImpl) ChargeInterest(ctx context.Context, caller, wallet string, value int64) error {
	if value <= 0 {
		return apperror.ErrInvalidAmount()
	}

	engine, err := s.settingsRepo.GetInterestEngine(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get interest engine: %w", err))
	}
	if engine == "" || caller != engine {
		return apperror.ErrUnauthorized("caller is not the interest engine")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockAccount(ctx, dbTx, wallet)
	if err != nil {
		return err
	}
	// The charge consumes overdraft headroom, so it must clear both the
	// hard ceiling and whatever live holds have already reserved.
	if account.DrawnBalance+value > account.OverdraftLimit || value > account.AvailableFunds() {
		return apperror.ErrInsufficientFunds()
	}

	account.DrawnBalance += value
	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	ev, err := appendEvent(ctx, dbTx, s.eventRepo, domain.EventInterestCharged, "", account)
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)

	s.log.Info().Str("wallet", wallet).Int64("value", value).Msg("interest charged")
	return nil
}

// ---- internal helpers ----

type roleChange struct {
	Address string      `json:"address"`
	Role    domain.Role `json:"role"`
}

type approvalChange struct {
	Wallet     string            `json:"wallet"`
	Delegate   string            `json:"delegate"`
	Capability domain.Capability `json:"capability"`
}

// mutateGate runs one gate mutation plus its journal entry in a transaction.
func (s *ComplianceServiceImpl) mutateGate(ctx context.Context, evType domain.EventType, record any, mutate func(pgx.Tx) error) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := mutate(dbTx); err != nil {
		return apperror.InternalError(fmt.Errorf("mutate role gate: %w", err))
	}
	ev, err := appendEvent(ctx, dbTx, s.eventRepo, evType, "", record)
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	publishEvents(ctx, s.publisher, s.log, ev)
	return nil
}

func (s *ComplianceServiceImpl) requireRole(ctx context.Context, caller string, role domain.Role) error {
	has, err := s.roleRepo.HasRole(ctx, caller, role)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check role: %w", err))
	}
	if !has {
		return apperror.ErrUnauthorized(fmt.Sprintf("caller does not hold the %s role", role))
	}
	return nil
}

func (s *ComplianceServiceImpl) lockAccount(ctx context.Context, dbTx pgx.Tx, address string) (*domain.Account, error) {
	account, err := s.accountRepo.GetForUpdate(ctx, dbTx, address)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account " + address)
	}
	account.UpdatedAt = time.Now().UTC()
	return account, nil
}
