// Package fake provides an in-memory radio adapter for tests and demos.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/radio-control/chanhop/internal/adapter"
)

// FakeAdapter implements IRadioAdapter over an in-memory band plan.
type FakeAdapter struct {
	adapter.AdapterBase

	mu               sync.Mutex
	bands            []adapter.Band
	currentFrequency int
	refused          map[int]bool
	setCalls         []int

	// Error simulation
	simulateErrors bool
	errorType      string
}

// DefaultBands is the 2.4 GHz band plan of a typical 802.11 card.
func DefaultBands() []adapter.Band {
	channels := make([]adapter.Channel, 0, 13)
	for ch := 1; ch <= 13; ch++ {
		channels = append(channels, adapter.Channel{Number: ch, FrequencyMhz: 2407 + 5*ch})
	}
	return []adapter.Band{{Name: "2.4GHz", Channels: channels}}
}

// NewFakeAdapter creates a fake adapter tuned to the first channel of bands.
// A nil bands slice uses DefaultBands.
func NewFakeAdapter(iface string, bands []adapter.Band) *FakeAdapter {
	if bands == nil {
		bands = DefaultBands()
	}

	f := &FakeAdapter{
		AdapterBase: adapter.AdapterBase{
			Interface: iface,
			Model:     "Fake-Radio-Test",
		},
		bands:   bands,
		refused: make(map[int]bool),
	}
	if len(bands) > 0 && len(bands[0].Channels) > 0 {
		f.currentFrequency = bands[0].Channels[0].FrequencyMhz
	}
	return f
}

// ListFrequencies returns the configured band plan.
func (f *FakeAdapter) ListFrequencies(ctx context.Context) ([]adapter.Band, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.simulateErrors {
		return nil, f.getSimulatedError()
	}

	out := make([]adapter.Band, len(f.bands))
	for i, b := range f.bands {
		out[i] = adapter.Band{Name: b.Name, Channels: append([]adapter.Channel(nil), b.Channels...)}
	}
	return out, nil
}

// GetFrequency returns the frequency the fake is tuned to.
func (f *FakeAdapter) GetFrequency(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.simulateErrors {
		return 0, f.getSimulatedError()
	}
	return f.currentFrequency, nil
}

// SetFrequency tunes the fake unless the frequency is refused or unknown.
func (f *FakeAdapter) SetFrequency(ctx context.Context, frequencyMhz int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.setCalls = append(f.setCalls, frequencyMhz)

	if f.simulateErrors {
		return f.getSimulatedError()
	}
	if f.refused[frequencyMhz] {
		return adapter.NormalizeVendorError(fmt.Errorf("NO_IR: %d MHz is not permitted here", frequencyMhz), nil)
	}
	if !f.known(frequencyMhz) {
		return adapter.NormalizeVendorError(fmt.Errorf("EINVAL: %d MHz not supported", frequencyMhz), nil)
	}

	f.currentFrequency = frequencyMhz
	return nil
}

// Helper methods for testing

// Refuse makes SetFrequency fail for the given frequencies.
func (f *FakeAdapter) Refuse(frequenciesMhz ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, freq := range frequenciesMhz {
		f.refused[freq] = true
	}
}

// Allow undoes Refuse.
func (f *FakeAdapter) Allow(frequenciesMhz ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, freq := range frequenciesMhz {
		delete(f.refused, freq)
	}
}

// SetErrorSimulation makes every call fail with errorType.
func (f *FakeAdapter) SetErrorSimulation(errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = true
	f.errorType = errorType
}

// DisableErrorSimulation disables error simulation.
func (f *FakeAdapter) DisableErrorSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = false
	f.errorType = ""
}

// SetCurrentFrequency sets the reported frequency without going through SetFrequency.
func (f *FakeAdapter) SetCurrentFrequency(frequencyMhz int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentFrequency = frequencyMhz
}

// SetCalls returns every frequency passed to SetFrequency, in order.
func (f *FakeAdapter) SetCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.setCalls...)
}

func (f *FakeAdapter) known(frequencyMhz int) bool {
	for _, b := range f.bands {
		for _, ch := range b.Channels {
			if ch.FrequencyMhz == frequencyMhz {
				return true
			}
		}
	}
	return false
}

func (f *FakeAdapter) getSimulatedError() error {
	var err error
	switch f.errorType {
	case "INVALID_RANGE":
		err = fmt.Errorf("INVALID_RANGE: simulated range error")
	case "BUSY":
		err = fmt.Errorf("BUSY: simulated busy error")
	case "UNAVAILABLE":
		err = fmt.Errorf("UNAVAILABLE: simulated unavailable error")
	default:
		err = fmt.Errorf("INTERNAL: simulated internal error")
	}
	return adapter.NormalizeVendorError(err, nil)
}
