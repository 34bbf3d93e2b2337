package handler

import (
	"emoney-ledger/internal/adapter/http/dto"
	"emoney-ledger/internal/adapter/http/middleware"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"
	"emoney-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WorkflowHandler serves one workflow kind; the transition endpoints are
// identical across transfers, funding requests and payouts.
type WorkflowHandler struct {
	svc ports.WorkflowService
}

// NewWorkflowHandler creates a handler over one workflow service.
func NewWorkflowHandler(svc ports.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

// OrderTransfer handles POST /api/v1/transfers.
func (h *WorkflowHandler) OrderTransfer(c *gin.Context) {
	var req dto.TransferOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)
	h.order(c, req.OperationID, req.From, req.To, req.Value)
}

// OrderFunding handles POST /api/v1/funding.
func (h *WorkflowHandler) OrderFunding(c *gin.Context) {
	var req dto.FundingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)
	h.order(c, req.OperationID, req.From, req.Instructions, req.Value)
}

// OrderPayout handles POST /api/v1/payouts.
func (h *WorkflowHandler) OrderPayout(c *gin.Context) {
	var req dto.PayoutOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)
	h.order(c, req.OperationID, req.From, req.Instructions, req.Value)
}

func (h *WorkflowHandler) order(c *gin.Context, operationID, from, target string, value int64) {
	caller := middleware.CallerAddress(c)
	if from == "" {
		from = caller
	}

	op, err := h.svc.Order(c.Request.Context(), ports.OrderRequest{
		Caller:      caller,
		OperationID: operationID,
		From:        from,
		Target:      target,
		Value:       value,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewOperationResponse(op))
}

// Cancel handles POST .../:id/cancel.
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	op, err := h.svc.Cancel(c.Request.Context(), middleware.CallerAddress(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOperationResponse(op))
}

// Process handles POST .../:id/process.
func (h *WorkflowHandler) Process(c *gin.Context) {
	op, err := h.svc.Process(c.Request.Context(), middleware.CallerAddress(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOperationResponse(op))
}

// Execute handles POST .../:id/execute.
func (h *WorkflowHandler) Execute(c *gin.Context) {
	op, err := h.svc.Execute(c.Request.Context(), middleware.CallerAddress(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOperationResponse(op))
}

// Reject handles POST .../:id/reject.
func (h *WorkflowHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	op, err := h.svc.Reject(c.Request.Context(), middleware.CallerAddress(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOperationResponse(op))
}

// Get handles GET .../:id.
func (h *WorkflowHandler) Get(c *gin.Context) {
	op, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOperationResponse(op))
}

// Exists handles GET .../:id/exists.
func (h *WorkflowHandler) Exists(c *gin.Context) {
	id := c.Param("id")
	exists, err := h.svc.Exists(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ExistsResponse{OperationID: id, Exists: exists})
}

// PayoutHandler adds the custody transition on top of the shared workflow
// endpoints.
type PayoutHandler struct {
	*WorkflowHandler
	payoutSvc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(svc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		WorkflowHandler: NewWorkflowHandler(svc),
		payoutSvc:       svc,
	}
}

// MoveToSuspense handles POST /api/v1/payouts/:id/suspense.
func (h *PayoutHandler) MoveToSuspense(c *gin.Context) {
	op, err := h.payoutSvc.MoveToSuspense(c.Request.Context(), middleware.CallerAddress(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOperationResponse(op))
}
