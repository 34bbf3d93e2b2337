package handler

import (
	"time"

	"emoney-ledger/internal/adapter/http/dto"
	"emoney-ledger/internal/adapter/http/middleware"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/pkg/apperror"
	"emoney-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HoldHandler handles the direct hold endpoints.
type HoldHandler struct {
	holdSvc ports.HoldService
}

// NewHoldHandler creates a new HoldHandler.
func NewHoldHandler(holdSvc ports.HoldService) *HoldHandler {
	return &HoldHandler{holdSvc: holdSvc}
}

// Create handles POST /api/v1/holds.
func (h *HoldHandler) Create(c *gin.Context) {
	var req dto.HoldCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	caller := middleware.CallerAddress(c)
	from := req.From
	if from == "" {
		from = caller
	}

	var expiration *time.Time
	if req.ExpiresIn != nil {
		t := time.Now().UTC().Add(time.Duration(*req.ExpiresIn) * time.Second)
		expiration = &t
	}

	hold, err := h.holdSvc.Create(c.Request.Context(), ports.HoldRequest{
		Caller:      caller,
		OperationID: req.OperationID,
		From:        from,
		To:          req.To,
		Notary:      req.Notary,
		Value:       req.Value,
		Expiration:  expiration,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewHoldResponse(hold))
}

// Get handles GET /api/v1/holds/:id.
func (h *HoldHandler) Get(c *gin.Context) {
	hold, err := h.holdSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewHoldResponse(hold))
}

// Exists handles GET /api/v1/holds/:id/exists.
func (h *HoldHandler) Exists(c *gin.Context) {
	id := c.Param("id")
	exists, err := h.holdSvc.Exists(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ExistsResponse{OperationID: id, Exists: exists})
}

// Execute handles POST /api/v1/holds/:id/execute.
func (h *HoldHandler) Execute(c *gin.Context) {
	caller := middleware.CallerAddress(c)
	hold, err := h.holdSvc.Execute(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewHoldResponse(hold))
}

// Release handles POST /api/v1/holds/:id/release.
func (h *HoldHandler) Release(c *gin.Context) {
	var req dto.HoldReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	caller := middleware.CallerAddress(c)
	hold, err := h.holdSvc.Release(c.Request.Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewHoldResponse(hold))
}

// Renew handles POST /api/v1/holds/:id/renew.
func (h *HoldHandler) Renew(c *gin.Context) {
	var req dto.HoldRenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	caller := middleware.CallerAddress(c)
	newExpiration := time.Now().UTC().Add(time.Duration(req.ExpiresIn) * time.Second)
	hold, err := h.holdSvc.Renew(c.Request.Context(), caller, c.Param("id"), newExpiration)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewHoldResponse(hold))
}
