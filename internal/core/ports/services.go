package ports

import (
	"context"
	"time"

	"emoney-ledger/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// TokenService handles JWT token operations. The subject of every token is
// a ledger address.
type TokenService interface {
	Generate(address string) (string, time.Time, error)
	Validate(tokenString string) (string, error)
}

// HashService handles account secret hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// EventPublisher fans out journal events to subscribers. Publication is
// best-effort; the Postgres journal is the durable audit trail.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// AuthService registers accounts and issues tokens.
type AuthService interface {
	Register(ctx context.Context, address, secret string) (*domain.Account, error)
	Login(ctx context.Context, address, secret string) (token string, expiresAt time.Time, err error)
}

// HoldRequest carries the parameters for creating a direct hold.
type HoldRequest struct {
	Caller      string
	OperationID string
	From        string
	To          string
	Notary      string
	Value       int64
	Expiration  *time.Time
}

// HoldService is the hold engine: reserve, then execute or release.
type HoldService interface {
	Create(ctx context.Context, req HoldRequest) (*domain.Hold, error)
	Execute(ctx context.Context, caller, operationID string) (*domain.Hold, error)
	Release(ctx context.Context, caller, operationID, reason string) (*domain.Hold, error)
	Renew(ctx context.Context, caller, operationID string, newExpiration time.Time) (*domain.Hold, error)
	Get(ctx context.Context, operationID string) (*domain.Hold, error)
	Exists(ctx context.Context, operationID string) (bool, error)
}

// OrderRequest carries the parameters for ordering a workflow operation.
// From is the wallet the operation acts on; Target is the counterparty
// wallet for transfers and free-form routing instructions for funding and
// payouts.
type OrderRequest struct {
	Caller      string
	OperationID string
	From        string
	Target      string
	Value       int64
}

// WorkflowService is the shared surface of the three hold-backed workflows.
// Clearable transfers, funding requests and payouts differ only in their
// ordering policy and fund movement; the transitions are identical.
type WorkflowService interface {
	Order(ctx context.Context, req OrderRequest) (*domain.Operation, error)
	Cancel(ctx context.Context, caller, operationID string) (*domain.Operation, error)
	Process(ctx context.Context, caller, operationID string) (*domain.Operation, error)
	Execute(ctx context.Context, caller, operationID string) (*domain.Operation, error)
	Reject(ctx context.Context, caller, operationID, reason string) (*domain.Operation, error)
	Get(ctx context.Context, operationID string) (*domain.Operation, error)
	Exists(ctx context.Context, operationID string) (bool, error)
}

// PayoutService adds the custody transfer to the clearing wallet.
type PayoutService interface {
	WorkflowService
	MoveToSuspense(ctx context.Context, caller, operationID string) (*domain.Operation, error)
}

// ComplianceService covers whitelisting, roles, delegated operators,
// overdraft limits and the interest engine delegation.
type ComplianceService interface {
	Whitelist(ctx context.Context, caller, address string) error
	Unwhitelist(ctx context.Context, caller, address string) error
	GrantRole(ctx context.Context, caller, address string, role domain.Role) error
	RevokeRole(ctx context.Context, caller, address string, role domain.Role) error
	ListRoles(ctx context.Context, address string) ([]domain.Role, error)

	AuthorizeOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) error
	RevokeOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) error
	IsApprovedOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) (bool, error)

	SetOverdraftLimit(ctx context.Context, caller, address string, limit int64) error
	SetInterestEngine(ctx context.Context, caller, address string) error
	ChargeInterest(ctx context.Context, caller, wallet string, value int64) error
}

// LedgerQueryService is the read-only surface: never mutates state,
// callable regardless of role.
type LedgerQueryService interface {
	GetAccount(ctx context.Context, address string) (*domain.Account, error)
	AvailableFunds(ctx context.Context, address string) (int64, error)
	ListOperations(ctx context.Context, params OperationListParams) ([]domain.Operation, int64, error)
	ListEvents(ctx context.Context, operationID string) ([]domain.Event, error)
}
