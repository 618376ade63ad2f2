package ocr

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/techtime/constants"
)

// Error is a tagged OCR failure. Code is one of the constants.OCR* codes.
type Error struct {
	Code    string
	Message string
	Cause   error
	// Permanent marks failures that repeat on every attempt, whatever the code.
	Permanent bool
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func newPermanentError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause, Permanent: true}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	if e.Permanent {
		return false
	}
	switch e.Code {
	case constants.OCRTimeout, constants.OCRRateLimit, constants.OCRServerError:
		return true
	}
	return false
}

// UserMessage renders the failure for the technician.
func (e *Error) UserMessage() string {
	switch e.Code {
	case constants.OCROffline:
		return "No internet connection. Connect to the internet to scan job cards, or enter the details manually."
	case constants.OCRTimeout:
		return "Text recognition took too long to respond. Please try again."
	case constants.OCRRateLimit:
		return "Too many scans in a short time. Please wait a moment and try again."
	case constants.OCRNoAPIKey:
		return "Text recognition is not configured. Set an OCR API key and try again."
	case constants.OCRServerError:
		return "The text recognition service returned an error. Please try again later."
	case constants.OCRAborted:
		return "Scan cancelled."
	case constants.OCRBadImage:
		return "The image could not be read. Try taking the photo again."
	case constants.OCRNoText:
		return "No text was found in the image. Try a clearer photo."
	}
	return "Text recognition failed: " + e.Message
}

// CodeOf returns the OCR code carried by err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// UserMessage renders any error returned by PerformOCR.
func UserMessage(err error) string {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.UserMessage()
	}
	if err == nil {
		return ""
	}
	return "Text recognition failed: " + err.Error()
}
