package ports

import (
	"context"
	"time"

	"emoney-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByAddress(ctx context.Context, address string) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error)
	// Update persists the mutable columns (balance, drawn_balance,
	// overdraft_limit, held_balance, whitelisted) within a transaction.
	Update(ctx context.Context, tx pgx.Tx, account *domain.Account) error
}

// HoldRepository defines persistence operations for holds.
type HoldRepository interface {
	Create(ctx context.Context, tx pgx.Tx, hold *domain.Hold) error
	GetByID(ctx context.Context, operationID string) (*domain.Hold, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, operationID string) (*domain.Hold, error)
	Exists(ctx context.Context, operationID string) (bool, error)
	// Resolve moves a hold to a terminal status. Terminal rows are never
	// touched again.
	Resolve(ctx context.Context, tx pgx.Tx, operationID string, status domain.HoldStatus, reason string, resolvedAt time.Time) error
	UpdateExpiration(ctx context.Context, tx pgx.Tx, operationID string, expiration *time.Time) error
}

// OperationRepository defines persistence operations for workflow records.
type OperationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, op *domain.Operation) error
	GetByID(ctx context.Context, operationID string) (*domain.Operation, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, operationID string) (*domain.Operation, error)
	Exists(ctx context.Context, operationID string) (bool, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, operationID string, status domain.OperationStatus, reason string) error
	List(ctx context.Context, params OperationListParams) ([]domain.Operation, int64, error)
}

// OperationListParams holds filter + pagination for listing operations.
type OperationListParams struct {
	Address  string // matches orderer, from or target
	Kind     *domain.OperationKind
	Status   *domain.OperationStatus
	Page     int
	PageSize int
}

// RoleRepository is the role/authorization gate: role sets per address and
// per-wallet delegated-operator approvals, one table per capability.
type RoleRepository interface {
	HasRole(ctx context.Context, address string, role domain.Role) (bool, error)
	ListRoles(ctx context.Context, address string) ([]domain.Role, error)
	Grant(ctx context.Context, tx pgx.Tx, address string, role domain.Role) error
	Revoke(ctx context.Context, tx pgx.Tx, address string, role domain.Role) error

	IsApprovedOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) (bool, error)
	Approve(ctx context.Context, tx pgx.Tx, wallet, delegate string, capability domain.Capability) error
	RevokeApproval(ctx context.Context, tx pgx.Tx, wallet, delegate string, capability domain.Capability) error
}

// EventRepository is the append-only event journal.
type EventRepository interface {
	Append(ctx context.Context, tx pgx.Tx, event *domain.Event) error
	ListByOperation(ctx context.Context, operationID string) ([]domain.Event, error)
}

// SettingsRepository holds singleton ledger settings, currently only the
// interest engine delegation.
type SettingsRepository interface {
	GetInterestEngine(ctx context.Context) (string, error)
	SetInterestEngine(ctx context.Context, tx pgx.Tx, address string) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
