package models

import "fmt"

// Error codes carried by typed errors and API responses.
const (
	ErrCodeInvalidConfig = "INVALID_CONFIG"
	ErrCodeInvalidEngine = "INVALID_ENGINE"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeTimeout       = "FETCH_TIMEOUT"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConfigError reports a required or type-constrained value that is missing
// or of the wrong kind. It is raised only for checks marked critical;
// non-critical failures are logged and replaced by a default instead.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: argument %q %s", ErrCodeInvalidConfig, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrCodeInvalidConfig, e.Message)
}

// NewConfigError creates a ConfigError for the named field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// EngineError reports a custom engine that failed the capability check.
// It is always fatal to the call; invoking an unverified engine risks an
// unrecoverable fault inside the caller's automation hook.
type EngineError struct {
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrCodeInvalidEngine, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrCodeInvalidEngine, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates an EngineError.
func NewEngineError(message string) *EngineError {
	return &EngineError{Message: message}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ConfigError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: ErrCodeInvalidConfig, Message: e.Message}
}

func (e *EngineError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: ErrCodeInvalidEngine, Message: e.Message}
}
