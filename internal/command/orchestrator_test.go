package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/chanhop/internal/adapter/fake"
	"github.com/radio-control/chanhop/internal/audit"
	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/hop"
)

// fakeClock is advanced by tests while the loop reads it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// MockAuditLogger records control actions.
type MockAuditLogger struct {
	mu      sync.Mutex
	actions []string
	times   []time.Time
	errs    []error
}

func (m *MockAuditLogger) LogControlAction(_ context.Context, at time.Time, _, action string, _ map[string]interface{}, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	m.times = append(m.times, at)
	m.errs = append(m.errs, err)
}

// MockSweepRecorder counts sweeps.
type MockSweepRecorder struct {
	mu      sync.Mutex
	results []hop.SweepResult
}

func (m *MockSweepRecorder) ObserveSweep(res hop.SweepResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
}

func (m *MockSweepRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

type fixture struct {
	radio *fake.FakeAdapter
	orch  *Orchestrator
	clock *fakeClock
	audit *MockAuditLogger
}

func newFixture(t *testing.T, settings hop.Settings) *fixture {
	t.Helper()
	radio := fake.NewFakeAdapter("wlan0", nil)
	h := hop.New(radio, settings, nil)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	auditLogger := &MockAuditLogger{}

	orch := NewOrchestrator(h, time.Millisecond, time.Second, nil)
	orch.SetClock(clock.Now)
	orch.SetAuditLogger(auditLogger)
	require.NoError(t, orch.Init(context.Background()))

	return &fixture{radio: radio, orch: orch, clock: clock, audit: auditLogger}
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.orch.Run(ctx) }()
	require.Eventually(t, f.orch.isRunning, time.Second, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
}

func TestInitPublishesSnapshot(t *testing.T) {
	f := newFixture(t, hop.Settings{Hopping: true, Dwell: 100 * time.Millisecond})

	snap := f.orch.Snapshot()
	assert.True(t, snap.Initialized)
	assert.Equal(t, channel.Index(0), snap.Index)
	assert.Equal(t, 1, snap.Channel)
	assert.Equal(t, 2412, snap.FrequencyMhz)
	assert.Equal(t, 1, snap.InitialChannel)
	assert.Len(t, snap.Channels, 13)
}

func TestRunHopsWhenDwellExpires(t *testing.T) {
	f := newFixture(t, hop.Settings{Hopping: true, Dwell: 100 * time.Millisecond})
	sweeps := &MockSweepRecorder{}
	f.orch.SetSweepRecorder(sweeps)
	f.run(t)

	// No change recorded yet, so the first tick hops.
	require.Eventually(t, func() bool { return f.orch.Snapshot().Channel == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, sweeps.count())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, f.orch.Snapshot().Channel, "hopped before dwell expired")

	f.clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return f.orch.Snapshot().Channel == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, sweeps.count())
}

func TestRunSkipsRefusedChannels(t *testing.T) {
	f := newFixture(t, hop.Settings{Hopping: true, Dwell: 100 * time.Millisecond})
	f.radio.Refuse(2417, 2422)
	f.run(t)

	require.Eventually(t, func() bool { return f.orch.Snapshot().Channel == 4 }, time.Second, time.Millisecond)
	last := f.orch.Snapshot().LastSweep
	assert.True(t, last.Hopped)
	assert.Equal(t, 3, last.Attempts)
}

func TestRemainingFollowsSnapshot(t *testing.T) {
	f := newFixture(t, hop.Settings{Hopping: false, Dwell: 100 * time.Millisecond})
	f.run(t)

	require.NoError(t, f.orch.SetChannel(context.Background(), "op", 6))
	snap := f.orch.Snapshot()
	assert.Equal(t, channel.Forever, snap.Remaining(f.clock.Now()))

	snap.Hopping = true
	assert.Equal(t, 60*time.Millisecond, snap.Remaining(f.clock.Now().Add(40*time.Millisecond)))
}

func TestSetChannel(t *testing.T) {
	f := newFixture(t, hop.Settings{Dwell: time.Second})
	f.run(t)

	require.NoError(t, f.orch.SetChannel(context.Background(), "op", 6))

	snap := f.orch.Snapshot()
	assert.Equal(t, 6, snap.Channel)
	assert.Equal(t, 2437, snap.FrequencyMhz)
	assert.Equal(t, f.clock.Now(), snap.LastChange)
	assert.Equal(t, []string{audit.ActionSetChannel}, f.audit.actions)
	assert.Equal(t, []time.Time{f.clock.Now()}, f.audit.times)
	assert.NoError(t, f.audit.errs[0])
}

func TestSetChannelErrors(t *testing.T) {
	tests := []struct {
		name   string
		ch     int
		refuse []int
		want   error
	}{
		{name: "unknown channel", ch: 99, want: channel.ErrNotFound},
		{name: "refused by radio", ch: 6, refuse: []int{2437}, want: hop.ErrApplyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, hop.Settings{Dwell: time.Second})
			f.radio.Refuse(tt.refuse...)
			f.run(t)

			err := f.orch.SetChannel(context.Background(), "op", tt.ch)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, f.orch.Snapshot().Channel)
			require.Len(t, f.audit.errs, 1)
			assert.Error(t, f.audit.errs[0])
		})
	}
}

func TestUpdateHop(t *testing.T) {
	f := newFixture(t, hop.Settings{Dwell: time.Second})
	f.run(t)

	enabled := false
	dwell := 40 * time.Millisecond
	ceiling := 11
	err := f.orch.UpdateHop(context.Background(), "op", HopUpdate{
		Hopping:        &enabled,
		Dwell:          &dwell,
		ChannelCeiling: &ceiling,
	})
	require.NoError(t, err)

	snap := f.orch.Snapshot()
	assert.False(t, snap.Hopping)
	assert.Equal(t, dwell, snap.Dwell)
	assert.Equal(t, 11, snap.ChannelCeiling)
	assert.Equal(t, []string{audit.ActionSetHop}, f.audit.actions)
}

func TestUpdateHopRejectsInvalidSettings(t *testing.T) {
	f := newFixture(t, hop.Settings{Dwell: time.Second})
	f.run(t)

	enabled := true
	zero := time.Duration(0)
	negative := -1

	err := f.orch.UpdateHop(context.Background(), "op", HopUpdate{Hopping: &enabled, Dwell: &zero})
	assert.ErrorIs(t, err, hop.ErrInvalidSetting)

	err = f.orch.UpdateHop(context.Background(), "op", HopUpdate{Hopping: &enabled, ChannelCeiling: &negative})
	assert.ErrorIs(t, err, hop.ErrInvalidSetting)

	snap := f.orch.Snapshot()
	assert.False(t, snap.Hopping, "partial update applied")
	assert.Equal(t, time.Second, snap.Dwell)

	err = f.orch.UpdateHop(context.Background(), "op", HopUpdate{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCommandsRequireRunningLoop(t *testing.T) {
	f := newFixture(t, hop.Settings{Dwell: time.Second})

	err := f.orch.SetChannel(context.Background(), "op", 6)
	assert.True(t, errors.Is(err, ErrNotRunning))
	assert.Equal(t, 0, len(f.radio.SetCalls()))
}

func TestRunTwice(t *testing.T) {
	f := newFixture(t, hop.Settings{Dwell: time.Second})
	f.run(t)

	assert.Error(t, f.orch.Run(context.Background()))
}
