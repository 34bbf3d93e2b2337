package dto

import (
	"encoding/json"
	"time"

	"emoney-ledger/internal/core/domain"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Address string `json:"address" binding:"required,min=3,max=64,safe_id"`
	Secret  string `json:"secret" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Address string `json:"address" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// AccountResponse is the balance breakdown for one address.
type AccountResponse struct {
	Address        string `json:"address"`
	Balance        int64  `json:"balance"`
	DrawnBalance   int64  `json:"drawn_balance"`
	OverdraftLimit int64  `json:"overdraft_limit"`
	HeldBalance    int64  `json:"held_balance"`
	AvailableFunds int64  `json:"available_funds"`
	Whitelisted    bool   `json:"whitelisted"`
	CreatedAt      string `json:"created_at"`
}

// NewAccountResponse maps a domain account to its API shape.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		Address:        a.Address,
		Balance:        a.Balance,
		DrawnBalance:   a.DrawnBalance,
		OverdraftLimit: a.OverdraftLimit,
		HeldBalance:    a.HeldBalance,
		AvailableFunds: a.AvailableFunds(),
		Whitelisted:    a.Whitelisted,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

// RoleRequest is the request body for granting a role.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// OverdraftLimitRequest is the request body for setting an overdraft limit.
type OverdraftLimitRequest struct {
	Limit int64 `json:"limit" binding:"gte=0"`
}

// InterestEngineRequest is the request body for delegating the interest
// engine.
type InterestEngineRequest struct {
	Address string `json:"address" binding:"required"`
}

// InterestChargeRequest is the request body for charging interest.
type InterestChargeRequest struct {
	Wallet string `json:"wallet" binding:"required"`
	Value  int64  `json:"value" binding:"required,gt=0"`
}

// HoldCreateRequest is the request body for creating a direct hold.
// From defaults to the caller; ordering from another wallet needs a
// delegated-operator approval. ExpiresIn is seconds from now; omitted
// means the hold never expires.
type HoldCreateRequest struct {
	OperationID string `json:"operation_id" binding:"required,max=128,safe_id"`
	From        string `json:"from,omitempty"`
	To          string `json:"to" binding:"required"`
	Notary      string `json:"notary,omitempty"`
	Value       int64  `json:"value" binding:"required,gt=0"`
	ExpiresIn   *int64 `json:"expires_in,omitempty" binding:"omitempty,gt=0"`
}

// HoldReleaseRequest is the request body for releasing a hold.
type HoldReleaseRequest struct {
	Reason string `json:"reason,omitempty" binding:"max=255"`
}

// HoldRenewRequest is the request body for renewing a hold's expiration.
type HoldRenewRequest struct {
	ExpiresIn int64 `json:"expires_in" binding:"required,gt=0"`
}

// HoldResponse is the API shape of a hold.
type HoldResponse struct {
	OperationID   string  `json:"operation_id"`
	Orderer       string  `json:"orderer"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Notary        string  `json:"notary,omitempty"`
	Value         int64   `json:"value"`
	Expiration    *string `json:"expiration,omitempty"`
	Status        string  `json:"status"`
	ReleaseReason string  `json:"release_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
	ResolvedAt    *string `json:"resolved_at,omitempty"`
}

// NewHoldResponse maps a domain hold to its API shape.
func NewHoldResponse(h *domain.Hold) HoldResponse {
	resp := HoldResponse{
		OperationID:   h.OperationID,
		Orderer:       h.Orderer,
		From:          h.From,
		To:            h.To,
		Notary:        h.Notary,
		Value:         h.Value,
		Status:        string(h.Status),
		ReleaseReason: h.ReleaseReason,
		CreatedAt:     h.CreatedAt.Format(time.RFC3339),
	}
	if h.Expiration != nil {
		s := h.Expiration.Format(time.RFC3339)
		resp.Expiration = &s
	}
	if h.ResolvedAt != nil {
		s := h.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	return resp
}

// TransferOrderRequest is the request body for ordering a clearable
// transfer. From defaults to the caller.
type TransferOrderRequest struct {
	OperationID string `json:"operation_id" binding:"required,max=128,safe_id"`
	From        string `json:"from,omitempty"`
	To          string `json:"to" binding:"required"`
	Value       int64  `json:"value" binding:"required,gt=0"`
}

// FundingOrderRequest is the request body for ordering a funding request.
// Instructions tell the issuing entity where the value comes from.
type FundingOrderRequest struct {
	OperationID  string `json:"operation_id" binding:"required,max=128,safe_id"`
	From         string `json:"from,omitempty"`
	Instructions string `json:"instructions" binding:"required,max=512"`
	Value        int64  `json:"value" binding:"required,gt=0"`
}

// PayoutOrderRequest is the request body for ordering a payout.
// Instructions tell the issuing entity where the value goes.
type PayoutOrderRequest struct {
	OperationID  string `json:"operation_id" binding:"required,max=128,safe_id"`
	From         string `json:"from,omitempty"`
	Instructions string `json:"instructions" binding:"required,max=512"`
	Value        int64  `json:"value" binding:"required,gt=0"`
}

// RejectRequest is the request body for rejecting a workflow operation.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// OperationResponse is the API shape of a workflow record.
type OperationResponse struct {
	OperationID string `json:"operation_id"`
	Kind        string `json:"kind"`
	Orderer     string `json:"orderer"`
	From        string `json:"from"`
	Target      string `json:"target"`
	Value       int64  `json:"value"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// NewOperationResponse maps a domain operation to its API shape.
func NewOperationResponse(op *domain.Operation) OperationResponse {
	return OperationResponse{
		OperationID: op.OperationID,
		Kind:        string(op.Kind),
		Orderer:     op.Orderer,
		From:        op.From,
		Target:      op.Target,
		Value:       op.Value,
		Status:      string(op.Status),
		Reason:      op.Reason,
		CreatedAt:   op.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   op.UpdatedAt.Format(time.RFC3339),
	}
}

// OperationListResponse wraps a paginated operation list.
type OperationListResponse struct {
	Items      []OperationResponse `json:"items"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// EventResponse is the API shape of one journal row.
type EventResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	OperationID string          `json:"operation_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   string          `json:"created_at"`
}

// NewEventResponse maps a domain event to its API shape.
func NewEventResponse(e *domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID.String(),
		Type:        string(e.Type),
		OperationID: e.OperationID,
		Payload:     json.RawMessage(e.Payload),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

// ApprovalResponse is the read-only delegated-operator approval check.
type ApprovalResponse struct {
	Wallet     string `json:"wallet"`
	Delegate   string `json:"delegate"`
	Capability string `json:"capability"`
	Approved   bool   `json:"approved"`
}

// ExistsResponse is the generic existence check.
type ExistsResponse struct {
	OperationID string `json:"operation_id"`
	Exists      bool   `json:"exists"`
}

// RolesResponse lists the roles held by an address.
type RolesResponse struct {
	Address string   `json:"address"`
	Roles   []string `json:"roles"`
}
