package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger state transition. Exactly one event is recorded
// per successful transition; the event journal is the externally observable
// audit trail.
type EventType string

const (
	EventHoldCreated  EventType = "HOLD_CREATED"
	EventHoldExecuted EventType = "HOLD_EXECUTED"
	EventHoldReleased EventType = "HOLD_RELEASED"
	EventHoldRenewed  EventType = "HOLD_RENEWED"

	EventTransferOrdered   EventType = "TRANSFER_ORDERED"
	EventTransferInProcess EventType = "TRANSFER_IN_PROCESS"
	EventTransferExecuted  EventType = "TRANSFER_EXECUTED"
	EventTransferRejected  EventType = "TRANSFER_REJECTED"
	EventTransferCancelled EventType = "TRANSFER_CANCELLED"

	EventFundingOrdered   EventType = "FUNDING_ORDERED"
	EventFundingInProcess EventType = "FUNDING_IN_PROCESS"
	EventFundingExecuted  EventType = "FUNDING_EXECUTED"
	EventFundingRejected  EventType = "FUNDING_REJECTED"
	EventFundingCancelled EventType = "FUNDING_CANCELLED"

	EventPayoutOrdered         EventType = "PAYOUT_ORDERED"
	EventPayoutInProcess       EventType = "PAYOUT_IN_PROCESS"
	EventPayoutFundsInSuspense EventType = "PAYOUT_FUNDS_IN_SUSPENSE"
	EventPayoutExecuted        EventType = "PAYOUT_EXECUTED"
	EventPayoutRejected        EventType = "PAYOUT_REJECTED"
	EventPayoutCancelled       EventType = "PAYOUT_CANCELLED"

	EventAccountWhitelisted   EventType = "ACCOUNT_WHITELISTED"
	EventAccountUnwhitelisted EventType = "ACCOUNT_UNWHITELISTED"
	EventRoleGranted          EventType = "ROLE_GRANTED"
	EventRoleRevoked          EventType = "ROLE_REVOKED"
	EventOperatorAuthorized   EventType = "OPERATOR_AUTHORIZED"
	EventOperatorRevoked      EventType = "OPERATOR_REVOKED"
	EventOverdraftLimitSet    EventType = "OVERDRAFT_LIMIT_SET"
	EventInterestEngineSet    EventType = "INTEREST_ENGINE_SET"
	EventInterestCharged      EventType = "INTEREST_CHARGED"
)

// Event is one journal row. Payload carries the full record of what changed
// as JSON.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	OperationID string    `json:"operation_id,omitempty"` // empty for account-level events
	Payload     []byte    `json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
}
