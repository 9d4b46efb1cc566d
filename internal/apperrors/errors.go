package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrForbidden indicates the caller's role or branch scope does not allow the action.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrConflict indicates a business-rule lock: duplicates, invoiced orders, paid months.
var ErrConflict = errors.New("conflict")

// ErrInvalidState indicates an operation against a record in the wrong state, e.g. an inactive account.
var ErrInvalidState = errors.New("invalid state")

// ErrInvariantViolation indicates stored data disagrees with itself. Never shown verbatim to callers.
var ErrInvariantViolation = errors.New("invariant violation")

// ErrUnexpected covers storage and transport failures that have no better classification.
var ErrUnexpected = errors.New("unexpected error")

const pgUniqueViolation = "23505"

// Error carries a kind sentinel plus human-readable details and an optional cause.
type Error struct {
	Kind    error
	Details string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Details != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Details, e.Err)
	case e.Details != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Details)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Details: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error   { return newf(ErrValidation, format, args...) }
func Forbidden(format string, args ...any) error    { return newf(ErrForbidden, format, args...) }
func NotFound(format string, args ...any) error     { return newf(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) error     { return newf(ErrConflict, format, args...) }
func InvalidState(format string, args ...any) error { return newf(ErrInvalidState, format, args...) }
func Invariant(format string, args ...any) error {
	return newf(ErrInvariantViolation, format, args...)
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind error, err error, details string) error {
	return &Error{Kind: kind, Details: details, Err: err}
}

// Translate classifies storage errors. Errors that already carry a kind pass through untouched.
func Translate(err error, details string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(ErrNotFound, err, details)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Wrap(ErrConflict, err, details)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return Wrap(ErrConflict, err, details)
	}
	return Wrap(ErrUnexpected, err, details)
}

// StatusCode maps an error onto the HTTP status returned to callers.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides internal details of invariant and unexpected failures.
func PublicMessage(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
