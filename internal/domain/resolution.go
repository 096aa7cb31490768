package domain

import (
	"fmt"
	"time"
)

// StrategyType identifica la fuente de la cual se obtuvo el slug del tenant.
type StrategyType string

const (
	StrategyOverride  StrategyType = "override"
	StrategyQuery     StrategyType = "query"
	StrategySubdomain StrategyType = "subdomain"
	StrategyHostname  StrategyType = "hostname"
	StrategyDefault   StrategyType = "default"
)

// ResolutionStrategy es el resultado de evaluar la cadena de estrategias:
// gana la primera con valor no vacío y distinto de "default".
type ResolutionStrategy struct {
	Type     StrategyType `json:"type"`
	Value    string       `json:"value"`
	Source   string       `json:"source"`
	Priority int          `json:"priority"`
}

// BootstrapState es el estado de una resolución de tenant. Las transiciones
// son monótonas por intento; Initialize/Retry resetean a StateResolving.
type BootstrapState string

const (
	StateIdle      BootstrapState = "idle"
	StateResolving BootstrapState = "resolving"
	StateResolved  BootstrapState = "resolved"
	StateNotFound  BootstrapState = "not_found"
	StateError     BootstrapState = "error"
	StateTimeout   BootstrapState = "timeout"
)

// Terminal retorna true si el estado cierra el intento en curso.
func (s BootstrapState) Terminal() bool {
	switch s {
	case StateResolved, StateNotFound, StateError, StateTimeout:
		return true
	}
	return false
}

// ErrorCode clasifica fallas de resolución.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeNetwork       ErrorCode = "NETWORK_ERROR"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeUnknown       ErrorCode = "UNKNOWN"
)

// ResolutionError acompaña todo estado terminal error/not_found/timeout.
type ResolutionError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Slug       string    `json:"slug,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Retryable  bool      `json:"retryable"`
}

func (e *ResolutionError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("tenant %q: %s: %s", e.Slug, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewResolutionError construye un error con timestamp actual.
func NewResolutionError(code ErrorCode, slug, message string, status int, retryable bool) *ResolutionError {
	return &ResolutionError{
		Code:       code,
		Message:    message,
		Slug:       slug,
		StatusCode: status,
		Timestamp:  time.Now(),
		Retryable:  retryable,
	}
}
