package postgres

import (
	"context"
	"testing"
	"time"

	"emoney-ledger/internal/core/domain"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(address string) *domain.Account {
	return &domain.Account{
		Address:        address,
		Balance:        1000,
		DrawnBalance:   0,
		OverdraftLimit: 500,
		HeldBalance:    0,
		Whitelisted:    true,
		SecretHash:     "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func accountColumnNames() []string {
	return []string{"address", "balance", "drawn_balance", "overdraft_limit", "held_balance", "whitelisted", "secret_hash", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnNames()).AddRow(
		a.Address, a.Balance, a.DrawnBalance, a.OverdraftLimit,
		a.HeldBalance, a.Whitelisted, a.SecretHash, a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("0xaaaa")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.Address, a.Balance, a.DrawnBalance, a.OverdraftLimit,
			a.HeldBalance, a.Whitelisted, a.SecretHash, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByAddress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("0xaaaa")

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE address").
		WithArgs(a.Address).
		WillReturnRows(accountRow(a))

	result, err := repo.GetByAddress(context.Background(), a.Address)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.Address, result.Address)
	assert.Equal(t, a.Balance, result.Balance)
	assert.Equal(t, a.OverdraftLimit, result.OverdraftLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByAddress_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE address").
		WithArgs("0xmissing").
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))

	result, err := repo.GetByAddress(context.Background(), "0xmissing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("0xaaaa")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE address .+ FOR UPDATE").
		WithArgs(a.Address).
		WillReturnRows(accountRow(a))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetForUpdate(context.Background(), tx, a.Address)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.Address, result.Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("0xaaaa")
	a.Balance = 800
	a.HeldBalance = 200

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").
		WithArgs(a.Balance, a.DrawnBalance, a.OverdraftLimit,
			a.HeldBalance, a.Whitelisted, a.Address).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), tx, a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("0xmissing")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").
		WithArgs(a.Balance, a.DrawnBalance, a.OverdraftLimit,
			a.HeldBalance, a.Whitelisted, a.Address).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), tx, a)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
