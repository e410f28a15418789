package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radio-control/chanhop/internal/hop"
)

// HopCollector bundles the hop metrics. It implements hop.Observer.
type HopCollector struct {
	gatherer prometheus.Gatherer

	ChannelChanges   *prometheus.CounterVec
	ApplyFailures    *prometheus.CounterVec
	SweepsExhausted  prometheus.Counter
	SweepAttempts    prometheus.Histogram
	CurrentChannel   prometheus.Gauge
	CurrentFrequency prometheus.Gauge
	TableSize        prometheus.Gauge

	RadioRequests        *prometheus.CounterVec
	RadioRequestDuration *prometheus.HistogramVec
}

var _ hop.Observer = (*HopCollector)(nil)

// NewHopCollector registers the hop metrics against reg, defaulting to the
// global registry when nil.
func NewHopCollector(reg prometheus.Registerer) (*HopCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &HopCollector{gatherer: gatherer}
	var err error

	if c.ChannelChanges, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chanhop_channel_changes_total",
		Help: "Channel changes applied, labeled by reason (initial, hop, manual).",
	}, []string{"reason"}), "chanhop_channel_changes_total"); err != nil {
		return nil, err
	}
	if c.ApplyFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chanhop_apply_failures_total",
		Help: "Channels the radio refused to tune to, labeled by channel number.",
	}, []string{"channel"}), "chanhop_apply_failures_total"); err != nil {
		return nil, err
	}
	if c.SweepsExhausted, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chanhop_sweeps_exhausted_total",
		Help: "Sweeps in which no channel could be applied.",
	}), "chanhop_sweeps_exhausted_total"); err != nil {
		return nil, err
	}
	if c.SweepAttempts, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chanhop_sweep_attempts",
		Help:    "SetFrequency attempts per sweep.",
		Buckets: []float64{1, 2, 3, 4, 8, 16, 32, 64},
	}), "chanhop_sweep_attempts"); err != nil {
		return nil, err
	}
	if c.CurrentChannel, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chanhop_current_channel",
		Help: "Active channel number, -1 while unknown.",
	}), "chanhop_current_channel"); err != nil {
		return nil, err
	}
	if c.CurrentFrequency, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chanhop_current_frequency_mhz",
		Help: "Frequency of the active channel in MHz.",
	}), "chanhop_current_frequency_mhz"); err != nil {
		return nil, err
	}
	if c.TableSize, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chanhop_channel_table_size",
		Help: "Number of channels in the channel table.",
	}), "chanhop_channel_table_size"); err != nil {
		return nil, err
	}
	if c.RadioRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chanhop_radio_requests_total",
		Help: "HTTP requests sent to the radio, labeled by status code and method.",
	}, []string{"code", "method"}), "chanhop_radio_requests_total"); err != nil {
		return nil, err
	}
	if c.RadioRequestDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chanhop_radio_request_duration_seconds",
		Help:    "Latency of HTTP requests sent to the radio.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method"}), "chanhop_radio_request_duration_seconds"); err != nil {
		return nil, err
	}

	c.CurrentChannel.Set(-1)
	return c, nil
}

// ChannelChanged implements hop.Observer.
func (c *HopCollector) ChannelChanged(_ context.Context, ev hop.ChangeEvent) {
	if c == nil {
		return
	}
	c.ChannelChanges.WithLabelValues(string(ev.Reason)).Inc()
	c.CurrentChannel.Set(float64(ev.Entry.Channel))
	c.CurrentFrequency.Set(float64(ev.Entry.FrequencyMhz))
}

// ApplyFailed implements hop.Observer.
func (c *HopCollector) ApplyFailed(_ context.Context, ev hop.FailureEvent) {
	if c == nil {
		return
	}
	c.ApplyFailures.WithLabelValues(strconv.Itoa(ev.Entry.Channel)).Inc()
}

// SweepExhausted implements hop.Observer.
func (c *HopCollector) SweepExhausted(context.Context, hop.SweepResult, time.Time) {
	if c == nil {
		return
	}
	c.SweepsExhausted.Inc()
}

// ObserveSweep records the attempts of a sweep that ran.
func (c *HopCollector) ObserveSweep(res hop.SweepResult) {
	if c == nil || res.Attempts == 0 {
		return
	}
	c.SweepAttempts.Observe(float64(res.Attempts))
}

// SetTableSize records the channel table size after init.
func (c *HopCollector) SetTableSize(n int) {
	if c == nil {
		return
	}
	c.TableSize.Set(float64(n))
}

// SetCurrent records the active channel outside of a change event.
func (c *HopCollector) SetCurrent(channel, frequencyMhz int) {
	if c == nil {
		return
	}
	c.CurrentChannel.Set(float64(channel))
	c.CurrentFrequency.Set(float64(frequencyMhz))
}

// InstrumentRoundTripper wraps next with radio request metrics.
func (c *HopCollector) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if c == nil {
		return next
	}
	return promhttp.InstrumentRoundTripperCounter(c.RadioRequests,
		promhttp.InstrumentRoundTripperDuration(c.RadioRequestDuration, next))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *HopCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register adds c to reg, returning the already registered collector of the
// same type when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
