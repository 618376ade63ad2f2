package common

import (
	"errors"
	"fmt"
	"io/fs"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
	ErrStorage      = errors.New("storage error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NotFoundErrorf(format string, args ...any) error {
	return NewAppError("NOT_FOUND", fmt.Sprintf(format, args...), ErrNotFound)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return NewAppError("INVALID_ARGUMENT", fmt.Sprintf(format, args...), ErrInvalidInput)
}

func StorageErrorf(cause error, format string, args ...any) error {
	return NewAppError("STORAGE_ERROR", fmt.Sprintf(format, args...), errors.Join(ErrStorage, cause))
}

// UserMessageProvider is implemented by errors that carry their own
// human-readable rendering (OCR errors do).
type UserMessageProvider interface {
	UserMessage() string
}

// UserMessage turns any error into a short sentence fit for showing to the technician.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um UserMessageProvider
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	var verr *ValidationErrors
	if errors.As(err, &verr) {
		return "Please check the entered values: " + verr.Error()
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "The file or folder could not be found."
	case errors.Is(err, fs.ErrPermission):
		return "Permission denied while accessing the file or folder."
	case errors.Is(err, ErrNotFound):
		return "The requested item could not be found."
	case errors.Is(err, ErrUnauthorized):
		return "Incorrect PIN."
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		var ae *AppError
		if errors.As(err, &ae) {
			return ae.Message
		}
		return "The entered data is not valid."
	case errors.Is(err, ErrStorage):
		return "Could not read or write app data. Please try again."
	}
	return "Something went wrong: " + err.Error()
}
