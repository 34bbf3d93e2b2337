package domain

import "time"

// OperationKind identifies which hold-backed workflow an operation belongs to.
type OperationKind string

const (
	OperationKindTransfer OperationKind = "TRANSFER"
	OperationKindFunding  OperationKind = "FUNDING"
	OperationKindPayout   OperationKind = "PAYOUT"
)

// OperationStatus represents the lifecycle state of a workflow operation.
type OperationStatus string

const (
	OperationStatusOrdered         OperationStatus = "ORDERED"
	OperationStatusInProcess       OperationStatus = "IN_PROCESS"
	OperationStatusFundsInSuspense OperationStatus = "FUNDS_IN_SUSPENSE" // payout only
	OperationStatusExecuted        OperationStatus = "EXECUTED"
	OperationStatusRejected        OperationStatus = "REJECTED"
	OperationStatusCancelled       OperationStatus = "CANCELLED"
)

// Operation is a workflow record: a clearable transfer, a funding request or
// a payout, keyed by the same operation ID as its underlying hold (funding
// requests carry no hold since the value originates outside the ledger).
// Target is the counterparty wallet for transfers and free-form routing
// instructions for funding sources and payout destinations.
type Operation struct {
	OperationID string          `json:"operation_id"`
	Kind        OperationKind   `json:"kind"`
	Orderer     string          `json:"orderer"`
	From        string          `json:"from"`
	Target      string          `json:"target"`
	Value       int64           `json:"value"`
	Status      OperationStatus `json:"status"`
	Reason      string          `json:"reason,omitempty"` // audit text on reject
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsTerminal returns true once the operation can no longer change.
func (o *Operation) IsTerminal() bool {
	switch o.Status {
	case OperationStatusExecuted, OperationStatusRejected, OperationStatusCancelled:
		return true
	}
	return false
}

// CanCancel: the orderer keeps cancel rights only while the operation is
// still ORDERED. Once in process, only the controller can end it.
func (o *Operation) CanCancel() bool {
	return o.Status == OperationStatusOrdered
}

// CanProcess: advisory lock taken by the controller, from ORDERED only.
func (o *Operation) CanProcess() bool {
	return o.Status == OperationStatusOrdered
}

// CanExecute reports whether the controller may execute from the current
// status. Payouts must first pass through FUNDS_IN_SUSPENSE.
func (o *Operation) CanExecute() bool {
	if o.Kind == OperationKindPayout {
		return o.Status == OperationStatusFundsInSuspense
	}
	return o.Status == OperationStatusOrdered || o.Status == OperationStatusInProcess
}

// CanReject reports whether the controller may reject from the current
// status. Payouts are rejectable even from suspense (funds return to payer).
func (o *Operation) CanReject() bool {
	switch o.Status {
	case OperationStatusOrdered, OperationStatusInProcess:
		return true
	case OperationStatusFundsInSuspense:
		return o.Kind == OperationKindPayout
	}
	return false
}

// CanMoveToSuspense: payout-only custody transfer to the clearing wallet,
// reachable from ORDERED or IN_PROCESS.
func (o *Operation) CanMoveToSuspense() bool {
	if o.Kind != OperationKindPayout {
		return false
	}
	return o.Status == OperationStatusOrdered || o.Status == OperationStatusInProcess
}
