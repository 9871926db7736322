package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure categories an operation can report to its caller.
type Kind string

const (
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindExpiredToken       Kind = "EXPIRED_TOKEN"
	KindAlreadyExists      Kind = "ALREADY_EXISTS"
	KindNotFound           Kind = "NOT_FOUND"
	KindForbidden          Kind = "FORBIDDEN"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. An *AppError matches the sentinel of its Kind.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
	ErrDuplicate = errors.New("resource already exists")
	// ErrNotFound indicates that a requested resource could not be found.
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates that input data failed validation checks.
	ErrValidation = errors.New("validation error")
	ErrInternal   = errors.New("internal error")
)

var kindSentinels = map[Kind]error{
	KindInvalidCredentials: ErrInvalidCredentials,
	KindInvalidToken:       ErrInvalidToken,
	KindExpiredToken:       ErrExpiredToken,
	KindAlreadyExists:      ErrDuplicate,
	KindNotFound:           ErrNotFound,
	KindForbidden:          ErrForbidden,
	KindValidation:         ErrValidation,
	KindInternal:           ErrInternal,
}

var kindStatus = map[Kind]int{
	KindInvalidCredentials: http.StatusUnauthorized,
	KindInvalidToken:       http.StatusUnauthorized,
	KindExpiredToken:       http.StatusUnauthorized,
	KindAlreadyExists:      http.StatusConflict,
	KindNotFound:           http.StatusNotFound,
	KindForbidden:          http.StatusForbidden,
	KindValidation:         http.StatusBadRequest,
	KindInternal:           http.StatusInternalServerError,
}

// AppError is a categorized error. Message is safe to show to clients; Err is
// the internal cause and is only ever logged.
type AppError struct {
	Kind    Kind   `json:"code"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(appErr, apperrors.ErrInvalidToken) succeed based on Kind.
func (e *AppError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewAppError builds an AppError of the given kind.
func NewAppError(kind Kind, message string, err error) *AppError {
	status, ok := kindStatus[kind]
	if !ok {
		kind = KindInternal
		status = http.StatusInternalServerError
	}
	return &AppError{Kind: kind, Code: status, Message: message, Err: err}
}

func NewInvalidCredentialsError(message string) *AppError {
	return NewAppError(KindInvalidCredentials, message, nil)
}

func NewInvalidTokenError(message string, err error) *AppError {
	return NewAppError(KindInvalidToken, message, err)
}

func NewExpiredTokenError(message string, err error) *AppError {
	return NewAppError(KindExpiredToken, message, err)
}

func NewAlreadyExistsError(message string) *AppError {
	return NewAppError(KindAlreadyExists, message, nil)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(KindNotFound, message, nil)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(KindForbidden, message, nil)
}

func NewValidationError(message string) *AppError {
	return NewAppError(KindValidation, message, nil)
}

func NewInternalError(message string, err error) *AppError {
	return NewAppError(KindInternal, message, err)
}

// From normalizes any error into an *AppError. Errors that are not already
// categorized are treated as internal and get a generic message.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NewAppError(KindNotFound, "Resource not found", err)
	case errors.Is(err, ErrDuplicate):
		return NewAppError(KindAlreadyExists, "Resource already exists", err)
	case errors.Is(err, ErrValidation):
		return NewAppError(KindValidation, "Validation error", err)
	case errors.Is(err, ErrInvalidToken):
		return NewAppError(KindInvalidToken, "Invalid token", err)
	case errors.Is(err, ErrExpiredToken):
		return NewAppError(KindExpiredToken, "Token expired", err)
	case errors.Is(err, ErrInvalidCredentials):
		return NewAppError(KindInvalidCredentials, "Invalid email or password", err)
	case errors.Is(err, ErrForbidden):
		return NewAppError(KindForbidden, "Forbidden", err)
	}
	return NewAppError(KindInternal, "Internal server error", err)
}
