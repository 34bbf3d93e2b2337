package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccount_AvailableFunds(t *testing.T) {
	a := &Account{Balance: 100, OverdraftLimit: 50, DrawnBalance: 20, HeldBalance: 60}
	// 100 + (50 - 20) - 60
	assert.Equal(t, int64(70), a.AvailableFunds())
}

func TestAccount_Debit_BalanceFirst(t *testing.T) {
	a := &Account{Balance: 100, OverdraftLimit: 50}
	assert.True(t, a.Debit(60))
	assert.Equal(t, int64(40), a.Balance)
	assert.Equal(t, int64(0), a.DrawnBalance)
}

func TestAccount_Debit_DrawsOverdraft(t *testing.T) {
	a := &Account{Balance: 100, OverdraftLimit: 50}
	assert.True(t, a.Debit(130))
	assert.Equal(t, int64(0), a.Balance)
	assert.Equal(t, int64(30), a.DrawnBalance)
}

func TestAccount_Debit_RefusesBeyondOverdraft(t *testing.T) {
	a := &Account{Balance: 100, OverdraftLimit: 50}
	assert.False(t, a.Debit(151))
	assert.Equal(t, int64(100), a.Balance)
	assert.Equal(t, int64(0), a.DrawnBalance)
}

func TestAccount_Credit_RepaysDrawnFirst(t *testing.T) {
	a := &Account{Balance: 0, OverdraftLimit: 50, DrawnBalance: 30}
	a.Credit(40)
	assert.Equal(t, int64(0), a.DrawnBalance)
	assert.Equal(t, int64(10), a.Balance)
}

func TestHold_IsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Hold{}).IsExpired(now), "holds without expiration never expire")
	assert.True(t, (&Hold{Expiration: &past}).IsExpired(now))
	assert.False(t, (&Hold{Expiration: &future}).IsExpired(now))
	assert.True(t, (&Hold{Expiration: &now}).IsExpired(now), "expiry boundary counts as expired")
}

func TestHold_MayRelease_ExpiryAsymmetry(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	h := &Hold{Orderer: "A", From: "A", To: "B", Notary: "N", Expiration: &future}

	// Before expiry: notary and payee may release, payer side may not.
	assert.True(t, h.MayRelease("N", now))
	assert.True(t, h.MayRelease("B", now))
	assert.False(t, h.MayRelease("A", now))
	assert.False(t, h.MayRelease("X", now))

	// After expiry: payer side may release too.
	later := future.Add(time.Minute)
	assert.True(t, h.MayRelease("A", later))
	assert.True(t, h.MayRelease("N", later))
	assert.False(t, h.MayRelease("X", later))
}

func TestHold_MayExecute(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	notarized := &Hold{From: "A", To: "B", Notary: "N", Expiration: &future}

	assert.True(t, notarized.MayExecute("N", false, now))
	assert.False(t, notarized.MayExecute("B", false, now))
	assert.False(t, notarized.MayExecute("N", false, future.Add(time.Minute)), "notary cannot execute an expired hold")

	workflow := &Hold{From: "A", To: "B"}
	assert.True(t, workflow.MayExecute("anyone", true, now))
	assert.False(t, workflow.MayExecute("anyone", false, now))
}

func TestHold_MayRenew(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	h := &Hold{Orderer: "A", From: "A", To: "B", Expiration: &future}

	assert.True(t, h.MayRenew("A", now))
	assert.False(t, h.MayRenew("B", now))
	assert.False(t, h.MayRenew("A", future.Add(time.Minute)), "cannot renew an expired hold")
}

func TestHold_IsTerminal(t *testing.T) {
	assert.False(t, (&Hold{Status: HoldStatusOrdered}).IsTerminal())
	assert.True(t, (&Hold{Status: HoldStatusExecuted}).IsTerminal())
	assert.True(t, (&Hold{Status: HoldStatusReleased}).IsTerminal())
}

func TestOperation_TransferTransitions(t *testing.T) {
	op := &Operation{Kind: OperationKindTransfer, Status: OperationStatusOrdered}
	assert.True(t, op.CanCancel())
	assert.True(t, op.CanProcess())
	assert.True(t, op.CanExecute())
	assert.True(t, op.CanReject())
	assert.False(t, op.CanMoveToSuspense())

	op.Status = OperationStatusInProcess
	assert.False(t, op.CanCancel(), "orderer loses cancel rights once in process")
	assert.False(t, op.CanProcess())
	assert.True(t, op.CanExecute())
	assert.True(t, op.CanReject())

	op.Status = OperationStatusExecuted
	assert.True(t, op.IsTerminal())
	assert.False(t, op.CanExecute())
	assert.False(t, op.CanReject())
	assert.False(t, op.CanCancel())
}

func TestOperation_PayoutTransitions(t *testing.T) {
	op := &Operation{Kind: OperationKindPayout, Status: OperationStatusOrdered}
	assert.False(t, op.CanExecute(), "payout must pass through suspense before execution")
	assert.True(t, op.CanMoveToSuspense())

	op.Status = OperationStatusInProcess
	assert.True(t, op.CanMoveToSuspense())
	assert.False(t, op.CanExecute())

	op.Status = OperationStatusFundsInSuspense
	assert.False(t, op.CanMoveToSuspense())
	assert.True(t, op.CanExecute())
	assert.True(t, op.CanReject(), "funds in suspense can still be returned")

	op.Status = OperationStatusRejected
	assert.True(t, op.IsTerminal())
}

func TestRoleAndCapability_Valid(t *testing.T) {
	assert.True(t, RoleOperator.Valid())
	assert.True(t, RoleAgent.Valid())
	assert.False(t, Role("superuser").Valid())

	assert.True(t, CapabilityTransfer.Valid())
	assert.False(t, Capability("mint").Valid())
}
