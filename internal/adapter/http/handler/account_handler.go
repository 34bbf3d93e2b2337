package handler

import (
	"strconv"

	"emoney-ledger/internal/adapter/http/dto"
	"emoney-ledger/internal/adapter/http/middleware"
	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"
	"emoney-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account queries and the compliance/credit-risk
// administrative surface.
type AccountHandler struct {
	querySvc      ports.LedgerQueryService
	complianceSvc ports.ComplianceService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(querySvc ports.LedgerQueryService, complianceSvc ports.ComplianceService) *AccountHandler {
	return &AccountHandler{querySvc: querySvc, complianceSvc: complianceSvc}
}

// Get handles GET /api/v1/accounts/:address.
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.querySvc.GetAccount(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(account))
}

// ListRoles handles GET /api/v1/accounts/:address/roles.
func (h *AccountHandler) ListRoles(c *gin.Context) {
	address := c.Param("address")
	roles, err := h.complianceSvc.ListRoles(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	response.OK(c, dto.RolesResponse{Address: address, Roles: names})
}

// Whitelist handles POST /api/v1/accounts/:address/whitelist.
func (h *AccountHandler) Whitelist(c *gin.Context) {
	caller := middleware.CallerAddress(c)
	address := c.Param("address")
	if err := h.complianceSvc.Whitelist(c.Request.Context(), caller, address); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"address": address, "whitelisted": true})
}

// Unwhitelist handles DELETE /api/v1/accounts/:address/whitelist.
func (h *AccountHandler) Unwhitelist(c *gin.Context) {
	caller := middleware.CallerAddress(c)
	address := c.Param("address")
	if err := h.complianceSvc.Unwhitelist(c.Request.Context(), caller, address); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"address": address, "whitelisted": false})
}

// GrantRole handles POST /api/v1/accounts/:address/roles.
func (h *AccountHandler) GrantRole(c *gin.Context) {
	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	caller := middleware.CallerAddress(c)
	address := c.Param("address")
	if err := h.complianceSvc.GrantRole(c.Request.Context(), caller, address, domain.Role(req.Role)); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"address": address, "role": req.Role})
}

// RevokeRole handles DELETE /api/v1/accounts/:address/roles/:role.
func (h *AccountHandler) RevokeRole(c *gin.Context) {
	caller := middleware.CallerAddress(c)
	address := c.Param("address")
	role := domain.Role(c.Param("role"))
	if err := h.complianceSvc.RevokeRole(c.Request.Context(), caller, address, role); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"address": address, "role": string(role), "revoked": true})
}

// SetOverdraftLimit handles PUT /api/v1/accounts/:address/overdraft-limit.
func (h *AccountHandler) SetOverdraftLimit(c *gin.Context) {
	var req dto.OverdraftLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	caller := middleware.CallerAddress(c)
	address := c.Param("address")
	if err := h.complianceSvc.SetOverdraftLimit(c.Request.Context(), caller, address, req.Limit); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"address": address, "overdraft_limit": req.Limit})
}

// SetInterestEngine handles PUT /api/v1/ledger/interest-engine.
func (h *AccountHandler) SetInterestEngine(c *gin.Context) {
	var req dto.InterestEngineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	caller := middleware.CallerAddress(c)
	if err := h.complianceSvc.SetInterestEngine(c.Request.Context(), caller, req.Address); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"interest_engine": req.Address})
}

// ChargeInterest handles POST /api/v1/ledger/interest-charges.
func (h *AccountHandler) ChargeInterest(c *gin.Context) {
	var req dto.InterestChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	caller := middleware.CallerAddress(c)
	if err := h.complianceSvc.ChargeInterest(c.Request.Context(), caller, req.Wallet, req.Value); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"wallet": req.Wallet, "value": req.Value})
}

// AuthorizeOperator handles POST /api/v1/operators/:capability/:delegate.
// The wallet granting the approval is the authenticated caller.
func (h *AccountHandler) AuthorizeOperator(c *gin.Context) {
	wallet := middleware.CallerAddress(c)
	capability := domain.Capability(c.Param("capability"))
	delegate := c.Param("delegate")
	if err := h.complianceSvc.AuthorizeOperator(c.Request.Context(), wallet, delegate, capability); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ApprovalResponse{
		Wallet:     wallet,
		Delegate:   delegate,
		Capability: string(capability),
		Approved:   true,
	})
}

// RevokeOperator handles DELETE /api/v1/operators/:capability/:delegate.
func (h *AccountHandler) RevokeOperator(c *gin.Context) {
	wallet := middleware.CallerAddress(c)
	capability := domain.Capability(c.Param("capability"))
	delegate := c.Param("delegate")
	if err := h.complianceSvc.RevokeOperator(c.Request.Context(), wallet, delegate, capability); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ApprovalResponse{
		Wallet:     wallet,
		Delegate:   delegate,
		Capability: string(capability),
		Approved:   false,
	})
}

// CheckOperator handles GET /api/v1/operators/:capability/:delegate.
func (h *AccountHandler) CheckOperator(c *gin.Context) {
	wallet := middleware.CallerAddress(c)
	if v := c.Query("wallet"); v != "" {
		wallet = v
	}
	capability := domain.Capability(c.Param("capability"))
	delegate := c.Param("delegate")

	approved, err := h.complianceSvc.IsApprovedOperator(c.Request.Context(), wallet, delegate, capability)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ApprovalResponse{
		Wallet:     wallet,
		Delegate:   delegate,
		Capability: string(capability),
		Approved:   approved,
	})
}

// ListOperations handles GET /api/v1/operations.
// Filters: address (orderer, payer or target), kind, status; paginated.
func (h *AccountHandler) ListOperations(c *gin.Context) {
	params := ports.OperationListParams{
		Address:  c.Query("address"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "page_size", 20),
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}
	if v := c.Query("kind"); v != "" {
		kind := domain.OperationKind(v)
		params.Kind = &kind
	}
	if v := c.Query("status"); v != "" {
		status := domain.OperationStatus(v)
		params.Status = &status
	}

	ops, total, err := h.querySvc.ListOperations(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.OperationResponse, len(ops))
	for i := range ops {
		items[i] = dto.NewOperationResponse(&ops[i])
	}
	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	response.OK(c, dto.OperationListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// ListEvents handles GET /api/v1/operations/:id/events.
func (h *AccountHandler) ListEvents(c *gin.Context) {
	events, err := h.querySvc.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.EventResponse, len(events))
	for i := range events {
		items[i] = dto.NewEventResponse(&events[i])
	}
	response.OK(c, items)
}
