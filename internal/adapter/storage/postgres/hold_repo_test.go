package postgres

import (
	"context"
	"testing"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHold(id string) *domain.Hold {
	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	return &domain.Hold{
		OperationID: id,
		Orderer:     "0xaaaa",
		From:        "0xaaaa",
		To:          "0xbbbb",
		Notary:      "0xcccc",
		Value:       250,
		Expiration:  &exp,
		Status:      domain.HoldStatusOrdered,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func holdColumnNames() []string {
	return []string{"operation_id", "orderer", "from_address", "to_address", "notary", "value", "expiration", "status", "release_reason", "created_at", "resolved_at"}
}

func holdRow(h *domain.Hold) *pgxmock.Rows {
	return pgxmock.NewRows(holdColumnNames()).AddRow(
		h.OperationID, h.Orderer, h.From, h.To, h.Notary,
		h.Value, h.Expiration, h.Status, h.ReleaseReason,
		h.CreatedAt, h.ResolvedAt,
	)
}

func TestHoldRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)
	h := newTestHold("hold-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO holds").
		WithArgs(h.OperationID, h.Orderer, h.From, h.To, h.Notary,
			h.Value, h.Expiration, h.Status, h.ReleaseReason,
			h.CreatedAt, h.ResolvedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, h)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)
	h := newTestHold("hold-dup")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO holds").
		WithArgs(h.OperationID, h.Orderer, h.From, h.To, h.Notary,
			h.Value, h.Expiration, h.Status, h.ReleaseReason,
			h.CreatedAt, h.ResolvedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, h)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)
	h := newTestHold("hold-1")

	mock.ExpectQuery("SELECT .+ FROM holds WHERE operation_id").
		WithArgs(h.OperationID).
		WillReturnRows(holdRow(h))

	result, err := repo.GetByID(context.Background(), h.OperationID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, h.OperationID, result.OperationID)
	assert.Equal(t, h.Value, result.Value)
	assert.Equal(t, domain.HoldStatusOrdered, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM holds WHERE operation_id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(holdColumnNames()))

	result, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepo_Exists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("hold-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "hold-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepo_Resolve(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)
	resolvedAt := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE holds").
		WithArgs(domain.HoldStatusReleased, "payer timeout", resolvedAt, "hold-1", domain.HoldStatusOrdered).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Resolve(context.Background(), tx, "hold-1", domain.HoldStatusReleased, "payer timeout", resolvedAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepo_Resolve_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)
	resolvedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE holds").
		WithArgs(domain.HoldStatusExecuted, "", resolvedAt, "hold-1", domain.HoldStatusOrdered).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Resolve(context.Background(), tx, "hold-1", domain.HoldStatusExecuted, "", resolvedAt)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepo_UpdateExpiration(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHoldRepo(mock)
	newExp := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE holds SET expiration").
		WithArgs(&newExp, "hold-1", domain.HoldStatusOrdered).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateExpiration(context.Background(), tx, "hold-1", &newExp)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
