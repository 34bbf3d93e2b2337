package postgres

import (
	"context"
	"errors"
	"fmt"

	"emoney-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `address, balance, drawn_balance, overdraft_limit, held_balance, whitelisted, secret_hash, created_at, updated_at`

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		a.Address, a.Balance, a.DrawnBalance, a.OverdraftLimit,
		a.HeldBalance, a.Whitelisted, a.SecretHash, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByAddress fetches an account by address (without locking).
func (r *AccountRepo) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, address).Scan(
		&a.Address, &a.Balance, &a.DrawnBalance, &a.OverdraftLimit,
		&a.HeldBalance, &a.Whitelisted, &a.SecretHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by address: %w", err)
	}
	return a, nil
}

// GetForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address = $1 FOR UPDATE`

	a := &domain.Account{}
	err := tx.QueryRow(ctx, query, address).Scan(
		&a.Address, &a.Balance, &a.DrawnBalance, &a.OverdraftLimit,
		&a.HeldBalance, &a.Whitelisted, &a.SecretHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// Update persists the mutable balance columns within a transaction.
func (r *AccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts
		SET balance = $1, drawn_balance = $2, overdraft_limit = $3,
			held_balance = $4, whitelisted = $5, updated_at = NOW()
		WHERE address = $6`

	tag, err := tx.Exec(ctx, query,
		a.Balance, a.DrawnBalance, a.OverdraftLimit,
		a.HeldBalance, a.Whitelisted, a.Address,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", a.Address)
	}
	return nil
}
