package adapter

import (
	"context"
)

// Channel is a single channel number / frequency mapping reported by a radio.
type Channel struct {
	Number       int `json:"number"`
	FrequencyMhz int `json:"frequencyMhz"`
}

// Band groups the channels a radio reports for one frequency band.
type Band struct {
	Name     string    `json:"name"`
	Channels []Channel `json:"channels"`
}

// IRadioAdapter defines the southbound contract the hopper drives.
type IRadioAdapter interface {
	// ListFrequencies returns the supported channels, grouped by band, in the
	// order the radio reports them. It may return fewer than the hardware
	// supports.
	ListFrequencies(ctx context.Context) ([]Band, error)

	// GetFrequency returns the frequency the interface is tuned to, in MHz.
	GetFrequency(ctx context.Context) (int, error)

	// SetFrequency tunes the interface. A non-nil error means the radio
	// refused or could not apply the frequency.
	SetFrequency(ctx context.Context, frequencyMhz int) error
}

// AdapterBase provides common functionality for adapter implementations.
type AdapterBase struct {
	// Interface identifies the radio interface this adapter controls
	Interface string

	// Model identifies the radio model
	Model string
}

// GetInterface returns the interface identifier.
func (a *AdapterBase) GetInterface() string {
	return a.Interface
}

// GetModel returns the radio model.
func (a *AdapterBase) GetModel() string {
	return a.Model
}

// CountChannels returns the number of channels across bands.
func CountChannels(bands []Band) int {
	n := 0
	for _, b := range bands {
		n += len(b.Channels)
	}
	return n
}
