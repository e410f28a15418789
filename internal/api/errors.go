package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/radio-control/chanhop/internal/adapter"
	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/command"
	"github.com/radio-control/chanhop/internal/hop"
)

// APIError is an error with its HTTP status and envelope code.
type APIError struct {
	Code       string
	Message    string
	Details    interface{}
	StatusCode int
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new API error.
func NewAPIError(code, message string, statusCode int, details interface{}) *APIError {
	return &APIError{Code: code, Message: message, Details: details, StatusCode: statusCode}
}

// ToAPIError converts err to the error reported to clients.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	// Radio errors first: a refused apply wraps the vendor error.
	var vendorErr *adapter.VendorError
	if errors.As(err, &vendorErr) {
		code, status := mapAdapterError(vendorErr.Code)
		return NewAPIError(code, adapterMessage(vendorErr.Code), status, vendorErr.Details)
	}
	for _, code := range []error{adapter.ErrInvalidRange, adapter.ErrBusy, adapter.ErrUnavailable, adapter.ErrInternal} {
		if errors.Is(err, code) {
			c, status := mapAdapterError(code)
			return NewAPIError(c, adapterMessage(code), status, nil)
		}
	}

	switch {
	case errors.Is(err, channel.ErrNotFound):
		return NewAPIError("INVALID_RANGE", "Channel is not in the channel table", http.StatusBadRequest, nil)
	case errors.Is(err, hop.ErrInvalidSetting):
		return NewAPIError("INVALID_RANGE", err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, command.ErrInvalidParameter):
		return NewAPIError("BAD_REQUEST", "Malformed or missing required parameter", http.StatusBadRequest, nil)
	case errors.Is(err, hop.ErrApplyFailed):
		return NewAPIError("UNAVAILABLE", "Radio refused the channel", http.StatusServiceUnavailable, nil)
	case errors.Is(err, command.ErrNotRunning):
		return NewAPIError("UNAVAILABLE", "Hop loop is not running", http.StatusServiceUnavailable, nil)
	case errors.Is(err, context.DeadlineExceeded):
		return NewAPIError("BUSY", "Service is busy, please retry with backoff", http.StatusServiceUnavailable, nil)
	}

	return NewAPIError("INTERNAL", "Internal server error", http.StatusInternalServerError,
		map[string]interface{}{"original": err.Error()})
}

func mapAdapterError(code error) (string, int) {
	switch {
	case errors.Is(code, adapter.ErrInvalidRange):
		return "INVALID_RANGE", http.StatusBadRequest
	case errors.Is(code, adapter.ErrBusy):
		return "BUSY", http.StatusServiceUnavailable
	case errors.Is(code, adapter.ErrUnavailable):
		return "UNAVAILABLE", http.StatusServiceUnavailable
	default:
		return "INTERNAL", http.StatusInternalServerError
	}
}

func adapterMessage(code error) string {
	switch {
	case errors.Is(code, adapter.ErrInvalidRange):
		return "Radio rejected the frequency"
	case errors.Is(code, adapter.ErrBusy):
		return "Radio is busy, please retry with backoff"
	case errors.Is(code, adapter.ErrUnavailable):
		return "Radio is temporarily unavailable"
	default:
		return "Internal radio error"
	}
}
