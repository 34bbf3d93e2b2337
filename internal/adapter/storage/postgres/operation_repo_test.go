package postgres

import (
	"context"
	"testing"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOperation(id string) *domain.Operation {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Operation{
		OperationID: id,
		Kind:        domain.OperationKindTransfer,
		Orderer:     "0xaaaa",
		From:        "0xaaaa",
		Target:      "0xbbbb",
		Value:       100,
		Status:      domain.OperationStatusOrdered,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func operationColumnNames() []string {
	return []string{"operation_id", "kind", "orderer", "from_address", "target", "value", "status", "reason", "created_at", "updated_at"}
}

func operationRow(op *domain.Operation) *pgxmock.Rows {
	return pgxmock.NewRows(operationColumnNames()).AddRow(
		op.OperationID, op.Kind, op.Orderer, op.From, op.Target,
		op.Value, op.Status, op.Reason, op.CreatedAt, op.UpdatedAt,
	)
}

func TestOperationRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperationRepo(mock)
	op := newTestOperation("op-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO operations").
		WithArgs(op.OperationID, op.Kind, op.Orderer, op.From, op.Target,
			op.Value, op.Status, op.Reason, op.CreatedAt, op.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, op)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperationRepo(mock)
	op := newTestOperation("op-dup")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO operations").
		WithArgs(op.OperationID, op.Kind, op.Orderer, op.From, op.Target,
			op.Value, op.Status, op.Reason, op.CreatedAt, op.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, op)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepo_GetForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperationRepo(mock)
	op := newTestOperation("op-1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM operations WHERE operation_id .+ FOR UPDATE").
		WithArgs(op.OperationID).
		WillReturnRows(operationRow(op))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetForUpdate(context.Background(), tx, op.OperationID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, op.OperationID, result.OperationID)
	assert.Equal(t, domain.OperationKindTransfer, result.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperationRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE operations SET status").
		WithArgs(domain.OperationStatusInProcess, "", "op-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, "op-1", domain.OperationStatusInProcess, "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepo_List_FilterByAddressAndStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperationRepo(mock)
	op := newTestOperation("op-1")
	status := domain.OperationStatusOrdered

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM operations").
		WithArgs("0xaaaa", status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM operations .+ ORDER BY created_at DESC").
		WithArgs("0xaaaa", status, 20, 0).
		WillReturnRows(operationRow(op))

	ops, total, err := repo.List(context.Background(), ports.OperationListParams{
		Address:  "0xaaaa",
		Status:   &status,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, ops, 1)
	assert.Equal(t, "op-1", ops[0].OperationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
