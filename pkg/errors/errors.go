package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// Is matches errors by code so cloned and wrapped variants compare equal to the sentinels.
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

// WrapAs wraps err using the code and status of a predefined error.
func WrapAs(err error, base *Error, message string) *Error {
	if message == "" {
		message = base.Message
	}
	return Wrap(err, base.Code, base.Status, message)
}

// GenericNotFoundMessage is returned for every retrieval failure mode so callers cannot
// tell a wrong code from a used or expired one.
const GenericNotFoundMessage = "Invalid or expired access code. The file may have already been downloaded or expired."

// Predefined errors for common scenarios.
var (
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "Unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrFileTooLarge       = New("FILE_TOO_LARGE", http.StatusBadRequest, "File too large")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, GenericNotFoundMessage)
	ErrUploadFailed       = New("UPLOAD_FAILED", http.StatusInternalServerError, "File upload failed")
	ErrCodeGeneration     = New("CODE_GENERATION_FAILED", http.StatusInternalServerError, "Failed to generate access code")
	ErrMetadataPersist    = New("METADATA_PERSIST_FAILED", http.StatusInternalServerError, "Failed to save file metadata")
	ErrUpstream           = New("UPSTREAM_FAILURE", http.StatusInternalServerError, "Upstream service unavailable")
	ErrConfiguration      = New("CONFIGURATION_ERROR", http.StatusInternalServerError, "Server configuration error")
	ErrTooManyAttempts    = New("TOO_MANY_ATTEMPTS", http.StatusTooManyRequests, "Too many attempts, try again later")
	ErrMethodNotAllowed   = New("METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "Method not allowed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "Internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrBlobNotFound       = New("BLOB_NOT_FOUND", http.StatusNotFound, "blob not found")
	ErrNotificationAbsent = New("NOTIFICATION_NOT_FOUND", http.StatusNotFound, "notification not found")
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
	return &clone
}
