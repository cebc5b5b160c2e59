// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps base with a formatted cause.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// Predefined errors
var (
	// Estimation errors
	ErrInsufficientData  = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient price observations"}
	ErrDimensionMismatch = &Error{Code: "DIMENSION_MISMATCH", Message: "inconsistent vector or matrix dimensions"}
	ErrInvalidParameter  = &Error{Code: "INVALID_PARAMETER", Message: "invalid parameter"}

	// Black-Litterman errors
	ErrSingularMatrix   = &Error{Code: "SINGULAR_MATRIX", Message: "matrix is singular or ill-conditioned"}
	ErrInvalidViews     = &Error{Code: "INVALID_VIEWS", Message: "invalid view specification"}
	ErrMissingMarketCap = &Error{Code: "MISSING_MARKET_CAP", Message: "market capitalization missing"}

	// Optimizer errors
	ErrInfeasibleConstraints = &Error{Code: "INFEASIBLE_CONSTRAINTS", Message: "weight bounds cannot satisfy the budget constraint"}
	ErrOptimizationFailed    = &Error{Code: "OPTIMIZATION_FAILED", Message: "optimizer did not converge"}

	// Data errors
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrProviderFailed = &Error{Code: "PROVIDER_FAILED", Message: "price provider failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
