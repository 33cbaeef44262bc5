package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned errors compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Validation errors.
var (
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
)

// Authentication errors.
var (
	ErrUnauthenticated    = New("UNAUTHENTICATED", http.StatusUnauthorized, "authentication required")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrUserNotFound       = New("USER_NOT_FOUND", http.StatusUnauthorized, "user not found")
)

// Authorization errors.
var (
	ErrAccessDenied     = New("ACCESS_DENIED", http.StatusForbidden, "access denied")
	ErrNotApproved      = New("NOT_APPROVED", http.StatusForbidden, "account not approved")
	ErrInvalidAdminCode = New("INVALID_ADMIN_CODE", http.StatusForbidden, "invalid administrator code")
)

// Not found errors.
var (
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrJobNotFound         = New("JOB_NOT_FOUND", http.StatusNotFound, "job not found")
	ErrProductNotFound     = New("PRODUCT_NOT_FOUND", http.StatusNotFound, "product not found")
	ErrApplicationNotFound = New("APPLICATION_NOT_FOUND", http.StatusNotFound, "application not found")
	ErrReviewNotFound      = New("REVIEW_NOT_FOUND", http.StatusNotFound, "review not found")
	ErrTargetNotFound      = New("TARGET_NOT_FOUND", http.StatusNotFound, "target user not found")
)

// Conflict errors surface as 400 so clients pick a different action instead of retrying.
var (
	ErrDuplicateEmail       = New("DUPLICATE_EMAIL", http.StatusBadRequest, "user with this email already exists")
	ErrDuplicateApplication = New("DUPLICATE_APPLICATION", http.StatusBadRequest, "you have already applied for this job")
	ErrDuplicateReview      = New("DUPLICATE_REVIEW", http.StatusBadRequest, "you have already reviewed this user")
)

// State errors.
var (
	ErrInvalidState   = New("INVALID_STATE", http.StatusBadRequest, "operation not allowed in current state")
	ErrDeadlinePassed = New("DEADLINE_PASSED", http.StatusBadRequest, "application deadline has passed")
	ErrSelfReview     = New("SELF_REVIEW", http.StatusBadRequest, "you cannot review yourself")
	ErrSelfDelete     = New("SELF_DELETE", http.StatusBadRequest, "cannot delete your own account")
)

var (
	ErrRateLimited = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrInternal    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss   = errors.New("cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	clone.Details = nil
	clone.Err = nil
	return &clone
}

// Internal wraps an unexpected failure with a caller supplied message.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Validation converts validator failures into a VALIDATION_ERROR with field level details.
func Validation(err error, message string) *Error {
	if message == "" {
		message = ErrValidation.Message
	}
	appErr := Wrap(err, ErrValidation.Code, ErrValidation.Status, message)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			appErr.Details = append(appErr.Details, FieldError{
				Field:   lowerFirst(fe.Field()),
				Rule:    fe.Tag(),
				Message: describe(fe),
			})
		}
	}
	return appErr
}

func describe(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "future":
		return field + " must be in the future"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
