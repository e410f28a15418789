package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/radio-control/chanhop/internal/audit"
	"github.com/radio-control/chanhop/internal/hop"
	"github.com/radio-control/chanhop/internal/logging"
	"github.com/radio-control/chanhop/internal/observability"
)

// Queue limits.
const (
	commandQueueSize = 16
	enqueueTimeout   = 5 * time.Second
)

// Orchestrator owns a hopper and serializes every access to it.
type Orchestrator struct {
	hopper         *hop.Hopper
	tick           time.Duration
	commandTimeout time.Duration
	clock          func() time.Time

	logger      logging.Logger
	tracer      trace.Tracer
	auditLogger AuditLogger
	sweeps      SweepRecorder

	commands chan command
	done     chan struct{}

	mu       sync.RWMutex
	snapshot Snapshot
	running  bool
}

// command is one queued intent, executed on the loop goroutine.
type command struct {
	ctx      context.Context
	run      func(ctx context.Context, h *hop.Hopper, now time.Time) error
	response chan error
}

// NewOrchestrator creates an orchestrator for h. tick is the scheduling
// period; commandTimeout bounds each radio call made for an intent.
func NewOrchestrator(h *hop.Hopper, tick, commandTimeout time.Duration, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Orchestrator{
		hopper:         h,
		tick:           tick,
		commandTimeout: commandTimeout,
		clock:          time.Now,
		logger:         logger,
		tracer:         otel.Tracer(observability.TracerName),
		commands:       make(chan command, commandQueueSize),
		done:           make(chan struct{}),
	}
}

// SetClock replaces the time source. Call before Init.
func (o *Orchestrator) SetClock(clock func() time.Time) {
	o.clock = clock
}

// SetAuditLogger sets the audit logger for operator actions.
func (o *Orchestrator) SetAuditLogger(l AuditLogger) {
	o.auditLogger = l
}

// SetSweepRecorder sets the recorder of sweep results.
func (o *Orchestrator) SetSweepRecorder(r SweepRecorder) {
	o.sweeps = r
}

// Init initializes the hopper. It must run before Run.
func (o *Orchestrator) Init(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "hop.init")
	defer span.End()

	if err := o.hopper.Init(ctx, o.clock()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.Int("chanhop.channels", o.hopper.Table().Count()),
		attribute.Int("chanhop.channel", o.hopper.CurrentChannel()),
	)
	o.publish(hop.SweepResult{Index: o.hopper.ActiveIndex()})
	return nil
}

// Run drives the hopper until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already running")
	}
	o.running = true
	o.mu.Unlock()
	defer close(o.done)

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	o.logger.Info(ctx, "hop loop started", logging.Duration("tick", o.tick))
	for {
		select {
		case <-ctx.Done():
			o.logger.Info(ctx, "hop loop stopped")
			return nil
		case cmd := <-o.commands:
			o.execute(cmd)
		case <-ticker.C:
			o.onTick(ctx)
		}
	}
}

func (o *Orchestrator) onTick(ctx context.Context) {
	now := o.clock()
	if !o.hopper.Due(now) {
		return
	}

	timeout := o.commandTimeout * time.Duration(max(1, o.hopper.CycleLength()))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, span := o.tracer.Start(ctx, "hop.sweep",
		trace.WithAttributes(attribute.Int("chanhop.start_index", int(o.hopper.ActiveIndex()))))
	defer span.End()

	res := o.hopper.AutoHop(ctx, now)
	span.SetAttributes(
		attribute.Bool("chanhop.hopped", res.Hopped),
		attribute.Int("chanhop.attempts", res.Attempts),
		attribute.Int("chanhop.index", int(res.Index)),
	)
	if res.Exhausted {
		span.SetStatus(codes.Error, hop.ErrCycleExhausted.Error())
	}
	if o.sweeps != nil {
		o.sweeps.ObserveSweep(res)
	}
	o.publish(res)
}

func (o *Orchestrator) execute(cmd command) {
	ctx, cancel := context.WithTimeout(cmd.ctx, o.commandTimeout)
	defer cancel()

	err := cmd.run(ctx, o.hopper, o.clock())
	o.publish(o.Snapshot().LastSweep)
	cmd.response <- err
}

// submit queues run and waits for its result.
func (o *Orchestrator) submit(ctx context.Context, name string, run func(context.Context, *hop.Hopper, time.Time) error) error {
	ctx, span := o.tracer.Start(ctx, name)
	defer span.End()

	if !o.isRunning() {
		return ErrNotRunning
	}

	cmd := command{ctx: ctx, run: run, response: make(chan error, 1)}
	select {
	case o.commands <- cmd:
	case <-o.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(enqueueTimeout):
		return fmt.Errorf("%s: command queue full: %w", name, ErrNotRunning)
	}

	select {
	case err := <-cmd.response:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	case <-o.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetChannel applies channel number ch and restarts its dwell time.
func (o *Orchestrator) SetChannel(ctx context.Context, user string, ch int) error {
	err := o.submit(ctx, "hop.setChannel", func(ctx context.Context, h *hop.Hopper, now time.Time) error {
		return h.ChangeChannel(ctx, ch, now)
	})
	o.logAudit(ctx, user, audit.ActionSetChannel, map[string]interface{}{"channel": ch}, err)
	return err
}

// UpdateHop changes the hop settings. Either all fields apply or none.
func (o *Orchestrator) UpdateHop(ctx context.Context, user string, u HopUpdate) error {
	params := make(map[string]interface{})
	if u.Hopping != nil {
		params["hopping"] = *u.Hopping
	}
	if u.Dwell != nil {
		params["dwell"] = u.Dwell.String()
	}
	if u.ChannelCeiling != nil {
		params["channelCeiling"] = *u.ChannelCeiling
	}
	if len(params) == 0 {
		return fmt.Errorf("no hop setting given: %w", ErrInvalidParameter)
	}

	err := o.submit(ctx, "hop.updateSettings", func(_ context.Context, h *hop.Hopper, _ time.Time) error {
		if u.Dwell != nil && *u.Dwell < time.Microsecond {
			return fmt.Errorf("dwell %v: %w", *u.Dwell, hop.ErrInvalidSetting)
		}
		if u.ChannelCeiling != nil && *u.ChannelCeiling < 0 {
			return fmt.Errorf("channel ceiling %d: %w", *u.ChannelCeiling, hop.ErrInvalidSetting)
		}
		if u.Dwell != nil {
			if err := h.SetDwell(*u.Dwell); err != nil {
				return err
			}
		}
		if u.ChannelCeiling != nil {
			if err := h.SetChannelCeiling(*u.ChannelCeiling); err != nil {
				return err
			}
		}
		if u.Hopping != nil {
			h.SetHopping(*u.Hopping)
		}
		return nil
	})
	o.logAudit(ctx, user, audit.ActionSetHop, params, err)
	if err == nil {
		o.logger.Info(ctx, "hop settings changed", logging.Any("settings", params))
	}
	return err
}

// Snapshot returns the state published after the last change.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// publish must only be called from the goroutine owning the hopper.
func (o *Orchestrator) publish(last hop.SweepResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	channels := o.snapshot.Channels
	if channels == nil {
		channels = o.hopper.Table().Entries()
	}
	o.snapshot = snapshotOf(o.hopper, last, channels)
}

func (o *Orchestrator) isRunning() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

func (o *Orchestrator) logAudit(ctx context.Context, user, action string, params map[string]interface{}, err error) {
	if o.auditLogger != nil {
		o.auditLogger.LogControlAction(ctx, o.clock(), user, action, params, err)
	}
}
