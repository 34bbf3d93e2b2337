package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger preconditions (LED) ----
// A failed precondition aborts the attempted transition with no state change
// and no event emission.

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient available funds", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Invalid amount", http.StatusBadRequest)
}

func ErrAlreadyExists(entity string) *AppError {
	return New("LED_003", fmt.Sprintf("%s already exists", entity), http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrInvalidState signals a transition attempted from a status that does not
// permit it, e.g. executing an already-executed hold.
func ErrInvalidState(detail string) *AppError {
	return New("LED_005", detail, http.StatusConflict)
}

func ErrNotWhitelisted(address string) *AppError {
	return New("LED_006", fmt.Sprintf("account %s is not whitelisted", address), http.StatusForbidden)
}

func ErrExpired() *AppError {
	return New("LED_007", "Hold has expired", http.StatusUnprocessableEntity)
}

func ErrNotYetExpired() *AppError {
	return New("LED_008", "Hold has not yet expired", http.StatusUnprocessableEntity)
}

// ---- Security & Authorization (SEC) ----

func ErrUnauthorized(detail string) *AppError {
	return New("SEC_001", detail, http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("SEC_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrNotAgent(address string) *AppError {
	return New("SEC_003", fmt.Sprintf("delegate %s does not hold the agent role", address), http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrAddressTaken() *AppError {
	return New("AUTH_002", "Address is already registered", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_002", message, http.StatusBadRequest)
}
