package hop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/radio-control/chanhop/internal/adapter"
	"github.com/radio-control/chanhop/internal/channel"
)

// MockRadio is a hand-written IRadioAdapter for hopper tests.
type MockRadio struct {
	ListFrequenciesFunc func(ctx context.Context) ([]adapter.Band, error)
	GetFrequencyFunc    func(ctx context.Context) (int, error)
	SetFrequencyFunc    func(ctx context.Context, frequencyMhz int) error

	SetCalls []int
}

func (m *MockRadio) ListFrequencies(ctx context.Context) ([]adapter.Band, error) {
	if m.ListFrequenciesFunc != nil {
		return m.ListFrequenciesFunc(ctx)
	}
	return threeChannelBands(), nil
}

func (m *MockRadio) GetFrequency(ctx context.Context) (int, error) {
	if m.GetFrequencyFunc != nil {
		return m.GetFrequencyFunc(ctx)
	}
	return 2412, nil
}

func (m *MockRadio) SetFrequency(ctx context.Context, frequencyMhz int) error {
	m.SetCalls = append(m.SetCalls, frequencyMhz)
	if m.SetFrequencyFunc != nil {
		return m.SetFrequencyFunc(ctx, frequencyMhz)
	}
	return nil
}

// refusing returns a SetFrequencyFunc failing for the given frequencies.
func refusing(freqs ...int) func(context.Context, int) error {
	refused := make(map[int]bool)
	for _, f := range freqs {
		refused[f] = true
	}
	return func(_ context.Context, f int) error {
		if refused[f] {
			return adapter.NormalizeVendorError(errors.New("NO_IR"), nil)
		}
		return nil
	}
}

func threeChannelBands() []adapter.Band {
	return []adapter.Band{{
		Name: "2.4GHz",
		Channels: []adapter.Channel{
			{Number: 1, FrequencyMhz: 2412},
			{Number: 6, FrequencyMhz: 2437},
			{Number: 11, FrequencyMhz: 2462},
		},
	}}
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// recorder collects observer callbacks.
type recorder struct {
	changes   []ChangeEvent
	failures  []FailureEvent
	exhausted []SweepResult
}

func (r *recorder) ChannelChanged(_ context.Context, ev ChangeEvent) { r.changes = append(r.changes, ev) }
func (r *recorder) ApplyFailed(_ context.Context, ev FailureEvent)   { r.failures = append(r.failures, ev) }
func (r *recorder) SweepExhausted(_ context.Context, res SweepResult, _ time.Time) {
	r.exhausted = append(r.exhausted, res)
}

// newInitialized returns a hopper on index 0 of the three-channel table
// whose dwell has already expired at t0.
func newInitialized(t *testing.T, radio *MockRadio, settings Settings) *Hopper {
	t.Helper()
	h := New(radio, settings, nil)
	if err := h.Init(context.Background(), t0.Add(-time.Hour)); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	radio.SetCalls = nil
	return h
}

func hoppingSettings() Settings {
	return Settings{Hopping: true, Dwell: 250 * time.Millisecond}
}

func TestAutoHopAdvances(t *testing.T) {
	radio := &MockRadio{}
	h := newInitialized(t, radio, hoppingSettings())

	res := h.AutoHop(context.Background(), t0)

	if !res.Hopped || res.Index != 1 || res.Attempts != 1 || res.Exhausted {
		t.Fatalf("Unexpected result %+v", res)
	}
	if h.CurrentChannel() != 6 {
		t.Errorf("Expected channel 6, got %d", h.CurrentChannel())
	}
	if !h.LastChange().Equal(t0) {
		t.Errorf("Expected last change %v, got %v", t0, h.LastChange())
	}
}

func TestAutoHopRetriesStartLast(t *testing.T) {
	radio := &MockRadio{SetFrequencyFunc: refusing(2437, 2462)}
	h := newInitialized(t, radio, hoppingSettings())
	rec := &recorder{}
	h.AddObserver(rec)

	res := h.AutoHop(context.Background(), t0)

	if !res.Hopped || res.Index != 0 || res.Attempts != 3 || res.Exhausted {
		t.Fatalf("Unexpected result %+v", res)
	}
	want := []int{2437, 2462, 2412}
	if len(radio.SetCalls) != len(want) {
		t.Fatalf("Expected SetFrequency calls %v, got %v", want, radio.SetCalls)
	}
	for i := range want {
		if radio.SetCalls[i] != want[i] {
			t.Errorf("call %d: expected %d, got %d", i, want[i], radio.SetCalls[i])
		}
	}
	if len(rec.failures) != 2 || len(rec.changes) != 1 {
		t.Errorf("Expected 2 failures and 1 change, got %d and %d", len(rec.failures), len(rec.changes))
	}
	if !h.LastChange().Equal(t0) {
		t.Error("Re-applying the start channel should reset the dwell clock")
	}
}

func TestAutoHopCycleExhausted(t *testing.T) {
	radio := &MockRadio{SetFrequencyFunc: refusing(2412, 2437, 2462)}
	h := newInitialized(t, radio, hoppingSettings())
	rec := &recorder{}
	h.AddObserver(rec)
	before := h.LastChange()

	res := h.AutoHop(context.Background(), t0)

	if res.Hopped || !res.Exhausted || res.Attempts != 3 || res.Index != 0 {
		t.Fatalf("Unexpected result %+v", res)
	}
	if h.ActiveIndex() != 0 {
		t.Errorf("Expected previous index to stay active, got %d", h.ActiveIndex())
	}
	if !h.LastChange().Equal(before) {
		t.Error("Failed sweep must not touch the dwell clock")
	}
	if len(rec.exhausted) != 1 {
		t.Errorf("Expected one exhausted event, got %d", len(rec.exhausted))
	}
}

func TestAutoHopDisabledNeverHops(t *testing.T) {
	radio := &MockRadio{}
	h := newInitialized(t, radio, Settings{Hopping: false, Dwell: time.Microsecond})

	for _, now := range []time.Time{t0, t0.Add(time.Hour), t0.Add(24 * 365 * time.Hour)} {
		if res := h.AutoHop(context.Background(), now); res.Hopped || res.Attempts != 0 {
			t.Errorf("AutoHop at %v with hopping disabled returned %+v", now, res)
		}
	}
	if len(radio.SetCalls) != 0 {
		t.Errorf("Expected no SetFrequency calls, got %v", radio.SetCalls)
	}
}

func TestAutoHopUnknownChannel(t *testing.T) {
	radio := &MockRadio{
		GetFrequencyFunc: func(context.Context) (int, error) { return 5180, nil },
	}
	h := newInitialized(t, radio, hoppingSettings())

	if h.ActiveIndex() != channel.Unknown {
		t.Fatalf("Expected unknown active index, got %d", h.ActiveIndex())
	}
	res := h.AutoHop(context.Background(), t0)
	if res.Hopped || res.Index != channel.Unknown {
		t.Errorf("Unexpected result %+v", res)
	}
	if len(radio.SetCalls) != 0 {
		t.Errorf("Expected no SetFrequency calls, got %v", radio.SetCalls)
	}
}

func TestAutoHopNotDue(t *testing.T) {
	radio := &MockRadio{}
	h := newInitialized(t, radio, hoppingSettings())

	if res := h.AutoHop(context.Background(), t0); !res.Hopped {
		t.Fatalf("first hop should happen, got %+v", res)
	}
	if res := h.AutoHop(context.Background(), t0.Add(100*time.Millisecond)); res.Hopped {
		t.Errorf("hop before dwell expired: %+v", res)
	}
	if res := h.AutoHop(context.Background(), t0.Add(250*time.Millisecond)); !res.Hopped || res.Index != 2 {
		t.Errorf("expected hop to index 2 once dwell expired, got %+v", res)
	}
}

func TestAutoHopWraps(t *testing.T) {
	radio := &MockRadio{}
	h := newInitialized(t, radio, hoppingSettings())

	want := []int{6, 11, 1, 6}
	now := t0
	for _, ch := range want {
		h.AutoHop(context.Background(), now)
		if h.CurrentChannel() != ch {
			t.Fatalf("Expected channel %d, got %d", ch, h.CurrentChannel())
		}
		now = now.Add(time.Second)
	}
}

func TestAutoHopChannelCeiling(t *testing.T) {
	radio := &MockRadio{}
	settings := hoppingSettings()
	settings.ChannelCeiling = 6
	h := newInitialized(t, radio, settings)

	now := t0
	for i := 0; i < 6; i++ {
		h.AutoHop(context.Background(), now)
		if h.ActiveIndex() == 2 {
			t.Fatalf("Ceiling 6 selected channel 11 on hop %d", i)
		}
		now = now.Add(time.Second)
	}
	if h.CycleLength() != 2 {
		t.Errorf("Expected cycle length 2, got %d", h.CycleLength())
	}
}

func TestAutoHopStartOutsideCeiling(t *testing.T) {
	radio := &MockRadio{SetFrequencyFunc: refusing(2412, 2437)}
	radio.GetFrequencyFunc = func(context.Context) (int, error) { return 2462, nil }
	settings := hoppingSettings()
	settings.ChannelCeiling = 6
	h := newInitialized(t, radio, settings)

	res := h.AutoHop(context.Background(), t0)

	if !res.Exhausted || res.Attempts != 2 {
		t.Fatalf("Expected bounded sweep of 2 attempts, got %+v", res)
	}
	if h.CurrentChannel() != 11 {
		t.Errorf("Expected channel 11 to stay active, got %d", h.CurrentChannel())
	}
}

func TestApplyFailureLeavesState(t *testing.T) {
	radio := &MockRadio{SetFrequencyFunc: refusing(2437)}
	h := newInitialized(t, radio, hoppingSettings())
	before := h.LastChange()

	err := h.Apply(context.Background(), 1, t0)

	if !errors.Is(err, ErrApplyFailed) {
		t.Fatalf("Expected ErrApplyFailed, got %v", err)
	}
	if !errors.Is(err, adapter.ErrInvalidRange) {
		t.Errorf("Expected radio error to be preserved, got %v", err)
	}
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) || applyErr.Entry.Channel != 6 {
		t.Errorf("Expected ApplyError for channel 6, got %v", err)
	}
	if h.ActiveIndex() != 0 || !h.LastChange().Equal(before) {
		t.Error("Failed apply changed hop state")
	}
}

func TestApplyOutOfRange(t *testing.T) {
	radio := &MockRadio{}
	h := newInitialized(t, radio, hoppingSettings())

	if err := h.Apply(context.Background(), 7, t0); !errors.Is(err, channel.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if len(radio.SetCalls) != 0 {
		t.Errorf("Expected no SetFrequency calls, got %v", radio.SetCalls)
	}
}

func TestChangeChannel(t *testing.T) {
	radio := &MockRadio{}
	h := newInitialized(t, radio, hoppingSettings())
	rec := &recorder{}
	h.AddObserver(rec)

	if err := h.ChangeChannel(context.Background(), 11, t0); err != nil {
		t.Fatalf("ChangeChannel failed: %v", err)
	}
	if h.CurrentChannel() != 11 {
		t.Errorf("Expected channel 11, got %d", h.CurrentChannel())
	}
	if len(rec.changes) != 1 || rec.changes[0].Previous.Channel != 1 || rec.changes[0].Reason != ReasonManual {
		t.Errorf("Unexpected change events %+v", rec.changes)
	}

	if err := h.ChangeChannel(context.Background(), 99, t0); !errors.Is(err, channel.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for channel 99, got %v", err)
	}
}

func TestRuntimeSettings(t *testing.T) {
	h := newInitialized(t, &MockRadio{}, hoppingSettings())

	h.SetHopping(false)
	if h.Remaining(t0) != channel.Forever {
		t.Error("Expected infinite dwell with hopping disabled")
	}
	h.SetHopping(true)

	if err := h.SetDwell(0); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("Expected ErrInvalidSetting for zero dwell, got %v", err)
	}
	if err := h.SetDwell(time.Second); err != nil || h.Settings().Dwell != time.Second {
		t.Errorf("SetDwell failed: %v", err)
	}
	if err := h.SetChannelCeiling(-1); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("Expected ErrInvalidSetting for negative ceiling, got %v", err)
	}
	if err := h.SetChannelCeiling(1); err != nil || h.CycleLength() != 1 {
		t.Errorf("Expected cycle length 1 with ceiling 1, got %d (%v)", h.CycleLength(), err)
	}
}

func TestDue(t *testing.T) {
	h := newInitialized(t, &MockRadio{}, hoppingSettings())

	if !h.Due(t0) {
		t.Error("Expected a hop to be due before the first change")
	}
	h.AutoHop(context.Background(), t0)
	if h.Due(t0.Add(time.Millisecond)) {
		t.Error("Hop should not be due right after a change")
	}
	h.SetHopping(false)
	if h.Due(t0.Add(time.Hour)) {
		t.Error("Hop should never be due with hopping disabled")
	}
}
