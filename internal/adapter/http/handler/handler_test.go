package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"emoney-ledger/internal/adapter/http/dto"
	"emoney-ledger/internal/adapter/http/middleware"
	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/internal/core/ports/mocks"
	"emoney-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testContext(t *testing.T, method, path, caller string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if caller != "" {
		c.Set(middleware.CtxAddress, caller)
	}
	return c, w
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	now := time.Now().UTC()
	mockAuth.EXPECT().Register(gomock.Any(), "0xaaaa", "password123").Return(&domain.Account{
		Address:   "0xaaaa",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Address: "0xaaaa",
		Secret:  "password123",
	})
	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "0xaaaa", data["address"])
	assert.Equal(t, false, data["whitelisted"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{})
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_AddressTaken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrAddressTaken())

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Address: "0xtaken",
		Secret:  "password123",
	})
	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "0xaaaa", "password123").Return("jwt-token", expiry, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{
		Address: "0xaaaa",
		Secret:  "password123",
	})
	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "jwt-token", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", time.Time{}, apperror.ErrInvalidCredentials())

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{
		Address: "0xaaaa",
		Secret:  "wrong",
	})
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Hold Handler Tests ---

func TestHoldCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHold := mocks.NewMockHoldService(ctrl)
	h := NewHoldHandler(mockHold)

	mockHold.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.HoldRequest) (*domain.Hold, error) {
			assert.Equal(t, "0xaaaa", req.Caller)
			assert.Equal(t, "0xaaaa", req.From) // defaults to caller
			assert.Equal(t, "0xbbbb", req.To)
			assert.Equal(t, int64(100), req.Value)
			require.NotNil(t, req.Expiration)
			return &domain.Hold{
				OperationID: req.OperationID,
				Orderer:     req.Caller,
				From:        req.From,
				To:          req.To,
				Notary:      req.Notary,
				Value:       req.Value,
				Expiration:  req.Expiration,
				Status:      domain.HoldStatusOrdered,
				CreatedAt:   time.Now().UTC(),
			}, nil
		})

	exp := int64(3600)
	c, w := testContext(t, http.MethodPost, "/api/v1/holds", "0xaaaa", dto.HoldCreateRequest{
		OperationID: "hold-1",
		To:          "0xbbbb",
		Notary:      "0xcccc",
		Value:       100,
		ExpiresIn:   &exp,
	})
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "hold-1", data["operation_id"])
	assert.Equal(t, "ORDERED", data["status"])
}

func TestHoldExecute_InsufficientRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHold := mocks.NewMockHoldService(ctrl)
	h := NewHoldHandler(mockHold)

	mockHold.EXPECT().Execute(gomock.Any(), "0xdddd", "hold-1").
		Return(nil, apperror.ErrUnauthorized("caller may not execute this hold"))

	c, w := testContext(t, http.MethodPost, "/api/v1/holds/hold-1/execute", "0xdddd", nil)
	c.Params = gin.Params{{Key: "id", Value: "hold-1"}}
	h.Execute(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHoldRelease_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHold := mocks.NewMockHoldService(ctrl)
	h := NewHoldHandler(mockHold)

	resolvedAt := time.Now().UTC()
	mockHold.EXPECT().Release(gomock.Any(), "0xcccc", "hold-1", "deal fell through").
		Return(&domain.Hold{
			OperationID:   "hold-1",
			Status:        domain.HoldStatusReleased,
			ReleaseReason: "deal fell through",
			CreatedAt:     resolvedAt.Add(-time.Hour),
			ResolvedAt:    &resolvedAt,
		}, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/holds/hold-1/release", "0xcccc", dto.HoldReleaseRequest{
		Reason: "deal fell through",
	})
	c.Params = gin.Params{{Key: "id", Value: "hold-1"}}
	h.Release(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "RELEASED", data["status"])
}

// --- Workflow Handler Tests ---

func TestOrderTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWorkflowService(ctrl)
	h := NewWorkflowHandler(mockSvc)

	mockSvc.EXPECT().Order(gomock.Any(), ports.OrderRequest{
		Caller:      "0xaaaa",
		OperationID: "tr-1",
		From:        "0xaaaa",
		Target:      "0xbbbb",
		Value:       100,
	}).Return(&domain.Operation{
		OperationID: "tr-1",
		Kind:        domain.OperationKindTransfer,
		Orderer:     "0xaaaa",
		From:        "0xaaaa",
		Target:      "0xbbbb",
		Value:       100,
		Status:      domain.OperationStatusOrdered,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/transfers", "0xaaaa", dto.TransferOrderRequest{
		OperationID: "tr-1",
		To:          "0xbbbb",
		Value:       100,
	})
	h.OrderTransfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "tr-1", data["operation_id"])
	assert.Equal(t, "ORDERED", data["status"])
}

func TestOrderTransfer_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWorkflowService(ctrl)
	h := NewWorkflowHandler(mockSvc)

	mockSvc.EXPECT().Order(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	c, w := testContext(t, http.MethodPost, "/api/v1/transfers", "0xaaaa", dto.TransferOrderRequest{
		OperationID: "tr-2",
		To:          "0xbbbb",
		Value:       1000000,
	})
	h.OrderTransfer(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestCancel_WrongState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWorkflowService(ctrl)
	h := NewWorkflowHandler(mockSvc)

	mockSvc.EXPECT().Cancel(gomock.Any(), "0xaaaa", "tr-1").
		Return(nil, apperror.ErrInvalidState("operation tr-1 is IN_PROCESS"))

	c, w := testContext(t, http.MethodPost, "/api/v1/transfers/tr-1/cancel", "0xaaaa", nil)
	c.Params = gin.Params{{Key: "id", Value: "tr-1"}}
	h.Cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReject_RequiresReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWorkflowHandler(mocks.NewMockWorkflowService(ctrl))

	c, w := testContext(t, http.MethodPost, "/api/v1/transfers/tr-1/reject", "0xoper", map[string]string{})
	c.Params = gin.Params{{Key: "id", Value: "tr-1"}}
	h.Reject(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayoutMoveToSuspense_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPayoutService(ctrl)
	h := NewPayoutHandler(mockSvc)

	mockSvc.EXPECT().MoveToSuspense(gomock.Any(), "0xoper", "po-1").
		Return(&domain.Operation{
			OperationID: "po-1",
			Kind:        domain.OperationKindPayout,
			Status:      domain.OperationStatusFundsInSuspense,
		}, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/payouts/po-1/suspense", "0xoper", nil)
	c.Params = gin.Params{{Key: "id", Value: "po-1"}}
	h.MoveToSuspense(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "FUNDS_IN_SUSPENSE", data["status"])
}

// --- Account Handler Tests ---

func TestAccountGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQuery := mocks.NewMockLedgerQueryService(ctrl)
	h := NewAccountHandler(mockQuery, mocks.NewMockComplianceService(ctrl))

	mockQuery.EXPECT().GetAccount(gomock.Any(), "0xaaaa").Return(&domain.Account{
		Address:        "0xaaaa",
		Balance:        1000,
		OverdraftLimit: 500,
		HeldBalance:    200,
		Whitelisted:    true,
	}, nil)

	c, w := testContext(t, http.MethodGet, "/api/v1/accounts/0xaaaa", "0xaaaa", nil)
	c.Params = gin.Params{{Key: "address", Value: "0xaaaa"}}
	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(1000), data["balance"])
	assert.Equal(t, float64(1300), data["available_funds"])
}

func TestAccountGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQuery := mocks.NewMockLedgerQueryService(ctrl)
	h := NewAccountHandler(mockQuery, mocks.NewMockComplianceService(ctrl))

	mockQuery.EXPECT().GetAccount(gomock.Any(), "0xmissing").Return(nil, apperror.ErrNotFound("account 0xmissing"))

	c, w := testContext(t, http.MethodGet, "/api/v1/accounts/0xmissing", "0xaaaa", nil)
	c.Params = gin.Params{{Key: "address", Value: "0xmissing"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWhitelist_ComplianceOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCompliance := mocks.NewMockComplianceService(ctrl)
	h := NewAccountHandler(mocks.NewMockLedgerQueryService(ctrl), mockCompliance)

	mockCompliance.EXPECT().Whitelist(gomock.Any(), "0xuser", "0xbbbb").
		Return(apperror.ErrUnauthorized("caller does not hold the compliance role"))

	c, w := testContext(t, http.MethodPost, "/api/v1/accounts/0xbbbb/whitelist", "0xuser", nil)
	c.Params = gin.Params{{Key: "address", Value: "0xbbbb"}}
	h.Whitelist(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeOperator_NotAgent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCompliance := mocks.NewMockComplianceService(ctrl)
	h := NewAccountHandler(mocks.NewMockLedgerQueryService(ctrl), mockCompliance)

	mockCompliance.EXPECT().AuthorizeOperator(gomock.Any(), "0xaaaa", "0xdddd", domain.CapabilityTransfer).
		Return(apperror.ErrNotAgent("0xdddd"))

	c, w := testContext(t, http.MethodPost, "/api/v1/operators/transfer/0xdddd", "0xaaaa", nil)
	c.Params = gin.Params{
		{Key: "capability", Value: "transfer"},
		{Key: "delegate", Value: "0xdddd"},
	}
	h.AuthorizeOperator(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// --- Middleware Tests ---

func TestJWTAuth_SetsCallerAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	mockToken.EXPECT().Validate("valid-token").Return("0xaaaa", nil)

	r := gin.New()
	r.GET("/whoami", middleware.JWTAuth(mockToken, testLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"address": middleware.CallerAddress(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0xaaaa")
}

func TestJWTAuth_MissingToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := gin.New()
	r.GET("/whoami", middleware.JWTAuth(mocks.NewMockTokenService(ctrl), testLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
