package postgres

import (
	"context"
	"fmt"

	"emoney-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RoleRepo implements ports.RoleRepository. Roles live in one table keyed
// by (address, role); delegated-operator approvals in one keyed by
// (wallet, delegate, capability).
type RoleRepo struct {
	pool Pool
}

// NewRoleRepo creates a new RoleRepo.
func NewRoleRepo(pool Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

// HasRole reports whether the address holds the role.
func (r *RoleRepo) HasRole(ctx context.Context, address string, role domain.Role) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM roles WHERE address = $1 AND role = $2)`

	var has bool
	if err := r.pool.QueryRow(ctx, query, address, role).Scan(&has); err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return has, nil
}

// ListRoles returns all roles held by the address.
func (r *RoleRepo) ListRoles(ctx context.Context, address string) ([]domain.Role, error) {
	query := `SELECT role FROM roles WHERE address = $1 ORDER BY role`

	rows, err := r.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := []domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

// Grant attaches a role within a transaction. Idempotent at the SQL level;
// the service layer rejects duplicates first.
func (r *RoleRepo) Grant(ctx context.Context, tx pgx.Tx, address string, role domain.Role) error {
	query := `INSERT INTO roles (address, role, granted_at) VALUES ($1, $2, NOW())
		ON CONFLICT (address, role) DO NOTHING`

	if _, err := tx.Exec(ctx, query, address, role); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// Revoke removes a role within a transaction.
func (r *RoleRepo) Revoke(ctx context.Context, tx pgx.Tx, address string, role domain.Role) error {
	query := `DELETE FROM roles WHERE address = $1 AND role = $2`

	if _, err := tx.Exec(ctx, query, address, role); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}

// IsApprovedOperator reports whether the wallet pre-approved the delegate
// for the capability.
func (r *RoleRepo) IsApprovedOperator(ctx context.Context, wallet, delegate string, capability domain.Capability) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM operator_approvals
		WHERE wallet = $1 AND delegate = $2 AND capability = $3)`

	var approved bool
	if err := r.pool.QueryRow(ctx, query, wallet, delegate, capability).Scan(&approved); err != nil {
		return false, fmt.Errorf("check operator approval: %w", err)
	}
	return approved, nil
}

// Approve records a delegated-operator approval within a transaction.
func (r *RoleRepo) Approve(ctx context.Context, tx pgx.Tx, wallet, delegate string, capability domain.Capability) error {
	query := `INSERT INTO operator_approvals (wallet, delegate, capability, approved_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (wallet, delegate, capability) DO NOTHING`

	if _, err := tx.Exec(ctx, query, wallet, delegate, capability); err != nil {
		return fmt.Errorf("approve operator: %w", err)
	}
	return nil
}

// RevokeApproval removes a delegated-operator approval within a transaction.
func (r *RoleRepo) RevokeApproval(ctx context.Context, tx pgx.Tx, wallet, delegate string, capability domain.Capability) error {
	query := `DELETE FROM operator_approvals WHERE wallet = $1 AND delegate = $2 AND capability = $3`

	if _, err := tx.Exec(ctx, query, wallet, delegate, capability); err != nil {
		return fmt.Errorf("revoke operator approval: %w", err)
	}
	return nil
}
