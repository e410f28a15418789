package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/chanhop/internal/adapter"
	"github.com/radio-control/chanhop/internal/channel"
	"github.com/radio-control/chanhop/internal/config"
	"github.com/radio-control/chanhop/internal/hop"
)

// Actions recorded in the trail.
const (
	ActionChannelApplied = "channel.applied"
	ActionChannelRefused = "channel.refused"
	ActionSweepExhausted = "sweep.exhausted"
	ActionSetChannel     = "control.setChannel"
	ActionSetHop         = "control.setHop"
)

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time              `json:"ts"`
	User      string                 `json:"user"`
	Interface string                 `json:"interface"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code"`
}

// Logger appends audit entries. It implements hop.Observer.
type Logger struct {
	mu     sync.Mutex
	out    io.WriteCloser
	iface  string
	rotate func() error
}

var _ hop.Observer = (*Logger)(nil)

// NewLogger opens the rotating audit file described by cfg.
func NewLogger(cfg config.AuditConfig, iface string) (*Logger, error) {
	if cfg.Path == "" {
		return nil, errors.New("audit path is required")
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	l := newLogger(lj, iface)
	l.rotate = lj.Rotate
	return l, nil
}

func newLogger(out io.WriteCloser, iface string) *Logger {
	return &Logger{out: out, iface: iface}
}

// ChannelChanged records an applied channel.
func (l *Logger) ChannelChanged(_ context.Context, ev hop.ChangeEvent) {
	params := map[string]interface{}{
		"channel":      ev.Entry.Channel,
		"frequencyMhz": ev.Entry.FrequencyMhz,
		"index":        int(ev.Index),
		"reason":       string(ev.Reason),
	}
	if ev.PreviousIndex.Known() {
		params["previousChannel"] = ev.Previous.Channel
	}
	l.writeEntry(Entry{
		Timestamp: ev.At.UTC(),
		User:      "system",
		Action:    ActionChannelApplied,
		Params:    params,
		Outcome:   "SUCCESS",
		Code:      "SUCCESS",
	})
}

// ApplyFailed records refusals of initial and operator-requested channels.
// Refusals during a sweep are routine and only counted in metrics.
func (l *Logger) ApplyFailed(_ context.Context, ev hop.FailureEvent) {
	if ev.Reason == hop.ReasonHop {
		return
	}
	l.writeEntry(Entry{
		Timestamp: ev.At.UTC(),
		User:      "system",
		Action:    ActionChannelRefused,
		Params: map[string]interface{}{
			"channel":      ev.Entry.Channel,
			"frequencyMhz": ev.Entry.FrequencyMhz,
			"reason":       string(ev.Reason),
		},
		Outcome: "FAILURE",
		Code:    codeFromError(ev.Err),
	})
}

// SweepExhausted records a sweep in which no channel applied.
func (l *Logger) SweepExhausted(_ context.Context, res hop.SweepResult, at time.Time) {
	l.writeEntry(Entry{
		Timestamp: at.UTC(),
		User:      "system",
		Action:    ActionSweepExhausted,
		Params: map[string]interface{}{
			"index":    int(res.Index),
			"attempts": res.Attempts,
		},
		Outcome: "FAILURE",
		Code:    "CYCLE_EXHAUSTED",
	})
}

// LogControlAction records an operator request and its result at the
// caller's time.
func (l *Logger) LogControlAction(ctx context.Context, at time.Time, user, action string, params map[string]interface{}, err error) {
	if user == "" {
		user = "unknown"
	}
	outcome := "SUCCESS"
	if err != nil {
		outcome = "FAILURE"
	}
	if params == nil {
		params = make(map[string]interface{})
	}

	l.writeEntry(Entry{
		Timestamp: at.UTC(),
		User:      user,
		Action:    action,
		Params:    params,
		Outcome:   outcome,
		Code:      codeFromError(err),
	})
}

func (l *Logger) writeEntry(entry Entry) {
	if l == nil {
		return
	}
	entry.Interface = l.iface

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return
	}
	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// codeFromError maps an error to the code stored in the trail.
func codeFromError(err error) string {
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.Is(err, channel.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, hop.ErrInvalidSetting):
		return "INVALID_SETTING"
	case errors.Is(err, adapter.ErrInvalidRange),
		errors.Is(err, adapter.ErrBusy),
		errors.Is(err, adapter.ErrUnavailable):
		return adapter.Code(err).Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	}
	return "ERROR"
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out != nil {
		err := l.out.Close()
		l.out = nil
		return err
	}
	return nil
}

// Rotate starts a new audit file, keeping the old one as a backup.
func (l *Logger) Rotate() error {
	if l.rotate == nil {
		return errors.New("audit log does not support rotation")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotate()
}
