package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/radio-control/chanhop/internal/adapter"
	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/command"
	"github.com/radio-control/chanhop/internal/hop"
)

func TestToAPIError(t *testing.T) {
	refused := &hop.ApplyError{
		Index: 1,
		Entry: channel.Entry{Channel: 6, FrequencyMhz: 2437},
		Err:   adapter.NormalizeVendorError(errors.New("NO_IR"), nil),
	}

	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "refused by radio", err: refused, wantCode: "INVALID_RANGE", wantStatus: http.StatusBadRequest},
		{name: "radio busy", err: fmt.Errorf("set: %w", adapter.ErrBusy), wantCode: "BUSY", wantStatus: http.StatusServiceUnavailable},
		{name: "radio gone", err: &adapter.VendorError{Code: adapter.ErrUnavailable}, wantCode: "UNAVAILABLE", wantStatus: http.StatusServiceUnavailable},
		{name: "unknown channel", err: fmt.Errorf("channel 99: %w", channel.ErrNotFound), wantCode: "INVALID_RANGE", wantStatus: http.StatusBadRequest},
		{name: "invalid setting", err: hop.ErrInvalidSetting, wantCode: "INVALID_RANGE", wantStatus: http.StatusBadRequest},
		{name: "invalid parameter", err: command.ErrInvalidParameter, wantCode: "BAD_REQUEST", wantStatus: http.StatusBadRequest},
		{name: "apply failed", err: &hop.ApplyError{Err: errors.New("boom")}, wantCode: "UNAVAILABLE", wantStatus: http.StatusServiceUnavailable},
		{name: "not running", err: command.ErrNotRunning, wantCode: "UNAVAILABLE", wantStatus: http.StatusServiceUnavailable},
		{name: "timeout", err: context.DeadlineExceeded, wantCode: "BUSY", wantStatus: http.StatusServiceUnavailable},
		{name: "api error", err: NewAPIError("FORBIDDEN", "no", http.StatusForbidden, nil), wantCode: "FORBIDDEN", wantStatus: http.StatusForbidden},
		{name: "other", err: errors.New("boom"), wantCode: "INTERNAL", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToAPIError(tt.err)
			if got.Code != tt.wantCode || got.StatusCode != tt.wantStatus {
				t.Errorf("ToAPIError() = %s/%d, want %s/%d", got.Code, got.StatusCode, tt.wantCode, tt.wantStatus)
			}
		})
	}
}
