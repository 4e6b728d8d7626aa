package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrInvalidInput    ErrorType = "INVALID_INPUT"
	ErrExternalService ErrorType = "EXTERNAL_SERVICE"
	ErrPersistence     ErrorType = "PERSISTENCE"
	ErrInternal        ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return isType(err, ErrInvalidInput)
}

// IsValidationError checks if the error is a validation error
// This is an alias for IsInvalidInput since validation errors are a type of invalid input error
func IsValidationError(err error) bool {
	return IsInvalidInput(err)
}

// IsExternalService checks if the error is an external service error
func IsExternalService(err error) bool {
	return isType(err, ErrExternalService)
}

// IsPersistence checks if the error is a persistence error
func IsPersistence(err error) bool {
	return isType(err, ErrPersistence)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewExternalServiceError creates a new external service error
func NewExternalServiceError(message string, err error) *AppError {
	return New(ErrExternalService, message, err)
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(message string, err error) *AppError {
	return New(ErrPersistence, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// ParticipantNotFoundError represents an unknown participant handle
type ParticipantNotFoundError struct {
	GitHubID string
}

func (e *ParticipantNotFoundError) Error() string {
	return fmt.Sprintf("participant not found: %s", e.GitHubID)
}

// NewParticipantNotFoundError creates a new ParticipantNotFoundError
func NewParticipantNotFoundError(githubID string) error {
	return &ParticipantNotFoundError{GitHubID: githubID}
}

// IsParticipantNotFound checks if the error is a ParticipantNotFoundError
func IsParticipantNotFound(err error) bool {
	var pErr *ParticipantNotFoundError
	return errors.As(err, &pErr)
}
