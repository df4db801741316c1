package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API clients.
const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeNotFound        = "NOT_FOUND"
	CodePollClosed      = "POLL_CLOSED"
	CodeInvalidOption   = "INVALID_OPTION"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeAlreadyVoted    = "ALREADY_VOTED"
	CodeDuplicateVote   = "DUPLICATE_VOTE"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeStorage         = "STORAGE_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// Sentinels for errors.Is comparisons; matching is by Code.
var (
	ErrValidation      = &DomainError{Code: CodeValidation}
	ErrNotFound        = &DomainError{Code: CodeNotFound}
	ErrPollClosed      = &DomainError{Code: CodePollClosed}
	ErrInvalidOption   = &DomainError{Code: CodeInvalidOption}
	ErrUnauthenticated = &DomainError{Code: CodeUnauthenticated}
	ErrAlreadyVoted    = &DomainError{Code: CodeAlreadyVoted}
	ErrDuplicateVote   = &DomainError{Code: CodeDuplicateVote}
	ErrForbidden       = &DomainError{Code: CodeForbidden}
	ErrConflict        = &DomainError{Code: CodeConflict}
	ErrStorage         = &DomainError{Code: CodeStorage}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code != "" && other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewPollClosed(pollID string) error {
	return NewDomainError(CodePollClosed, "poll is closed", http.StatusConflict, map[string]any{"poll_id": pollID})
}

func NewInvalidOption(pollID, optionID string) error {
	return NewDomainError(CodeInvalidOption, "option does not belong to poll", http.StatusBadRequest,
		map[string]any{"poll_id": pollID, "option_id": optionID})
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewAlreadyVoted(pollID string) error {
	return NewDomainError(CodeAlreadyVoted, "already voted", http.StatusConflict, map[string]any{"poll_id": pollID})
}

func NewDuplicateVote(userID, pollID string) error {
	return NewDomainError(CodeDuplicateVote, "vote already recorded", http.StatusConflict,
		map[string]any{"poll_id": pollID, "user_id": userID})
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewStorageError(err error) error {
	return &DomainError{
		Code:       CodeStorage,
		Message:    "storage unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
