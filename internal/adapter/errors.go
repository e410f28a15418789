package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized adapter errors.
var (
	ErrInvalidRange = errors.New("INVALID_RANGE")
	ErrBusy         = errors.New("BUSY")
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrInternal     = errors.New("INTERNAL")
)

// VendorMap lists the vendor tokens that map to each normalized error.
type VendorMap struct {
	Range       []string
	Busy        []string
	Unavailable []string
}

// VendorErrorMappings holds the token tables per vendor. Unknown vendors use
// "generic"; unmatched tokens map to ErrInternal.
var VendorErrorMappings = map[string]VendorMap{
	"silvus": {
		Range: []string{
			"FREQUENCY_OUT_OF_RANGE",
			"INVALID_FREQUENCY",
			"INVALID_RANGE",
			"PARAMETER_OUT_OF_RANGE",
		},
		Busy: []string{
			"RF_BUSY",
			"RADIO_BUSY",
			"OPERATION_IN_PROGRESS",
			"COMMAND_QUEUE_FULL",
			"BUSY",
		},
		Unavailable: []string{
			"SOFT_BOOT_IN_PROGRESS",
			"RADIO_OFFLINE",
			"NOT_READY",
			"UNAVAILABLE",
		},
	},
	"generic": {
		// nl80211-style refusals: flagged channels tune-fail rather than vanish
		Range: []string{
			"OUT_OF_RANGE",
			"INVALID_RANGE",
			"NO_IR",
			"DISABLED",
			"RADAR",
			"REGULATORY",
			"EINVAL",
		},
		Busy: []string{
			"BUSY",
			"EBUSY",
			"RETRY",
		},
		Unavailable: []string{
			"UNAVAILABLE",
			"ENODEV",
			"ENETDOWN",
			"INTERFACE_DOWN",
			"OFFLINE",
		},
	},
}

// VendorError keeps the vendor's error next to its normalized code.
type VendorError struct {
	Code     error
	Original error
	Details  interface{}
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

func (e *VendorError) Unwrap() error {
	return e.Code
}

// NormalizeVendorError maps err using the generic token table.
func NormalizeVendorError(err error, payload interface{}) error {
	return NormalizeVendorErrorWithVendor(err, payload, "generic")
}

// NormalizeVendorErrorWithVendor maps err using the table for vendorID.
// Errors that already carry a normalized code pass through unchanged.
func NormalizeVendorErrorWithVendor(err error, payload interface{}, vendorID string) error {
	if err == nil {
		return nil
	}

	var ve *VendorError
	if errors.As(err, &ve) {
		return err
	}
	for _, code := range []error{ErrInvalidRange, ErrBusy, ErrUnavailable, ErrInternal} {
		if errors.Is(err, code) {
			return err
		}
	}

	return &VendorError{
		Code:     codeForMessage(err.Error(), vendorID),
		Original: err,
		Details:  payload,
	}
}

// Code returns the normalized code carried by err, or ErrInternal.
func Code(err error) error {
	for _, code := range []error{ErrInvalidRange, ErrBusy, ErrUnavailable} {
		if errors.Is(err, code) {
			return code
		}
	}
	return ErrInternal
}

func codeForMessage(msg, vendorID string) error {
	vendorMap, ok := VendorErrorMappings[vendorID]
	if !ok {
		vendorMap = VendorErrorMappings["generic"]
	}

	upper := strings.ToUpper(msg)
	switch {
	case containsAny(upper, vendorMap.Range):
		return ErrInvalidRange
	case containsAny(upper, vendorMap.Busy):
		return ErrBusy
	case containsAny(upper, vendorMap.Unavailable):
		return ErrUnavailable
	}
	return ErrInternal
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, strings.ToUpper(token)) {
			return true
		}
	}
	return false
}
