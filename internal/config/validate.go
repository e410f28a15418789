package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateHop(&c.Hop); err != nil {
		return fmt.Errorf("hop validation failed: %w", err)
	}
	if err := validateRadio(&c.Radio); err != nil {
		return fmt.Errorf("radio validation failed: %w", err)
	}
	if err := validateAPI(&c.API); err != nil {
		return fmt.Errorf("api validation failed: %w", err)
	}
	if err := validateAuth(&c.Auth); err != nil {
		return fmt.Errorf("auth validation failed: %w", err)
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return errors.New("audit validation failed: path is required when audit is enabled")
	}
	if err := validateLog(&c.Log); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}
	if err := validateTracing(&c.Tracing); err != nil {
		return fmt.Errorf("tracing validation failed: %w", err)
	}
	return nil
}

func validateHop(h *HopConfig) error {
	// dwell is accounted in microseconds
	if h.Dwell < time.Microsecond {
		return fmt.Errorf("dwell must be at least 1µs, got %v", h.Dwell)
	}
	if h.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", h.Tick)
	}
	if h.ChannelCeiling < 0 {
		return fmt.Errorf("channel ceiling must be non-negative, got %d", h.ChannelCeiling)
	}
	if h.InitialChannel < 0 {
		return fmt.Errorf("initial channel must be non-negative, got %d", h.InitialChannel)
	}
	return nil
}

func validateRadio(r *RadioConfig) error {
	switch r.Adapter {
	case "fake":
	case "silvus":
		if r.URL == "" {
			return errors.New("url is required for the silvus adapter")
		}
	default:
		return fmt.Errorf("unknown adapter %q, must be one of: fake, silvus", r.Adapter)
	}
	if r.Timeout <= 0 || r.CommandTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive, got %v and %v", r.Timeout, r.CommandTimeout)
	}
	return nil
}

func validateAPI(a *APIConfig) error {
	if a.Listen == "" {
		return errors.New("listen address is required")
	}
	if a.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", a.HeartbeatInterval)
	}
	if a.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", a.EventBufferSize)
	}
	return nil
}

func validateAuth(a *AuthConfig) error {
	if a.Enabled && a.HMACSecret == "" && a.PublicKeyFile == "" {
		return errors.New("hmacSecret or publicKeyFile is required when auth is enabled")
	}
	return nil
}

func validateLog(l *LogConfig) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid format %q, must be json or text", l.Format)
	}
	return nil
}

func validateTracing(t *TracingConfig) error {
	switch t.Exporter {
	case "none", "stdout":
	case "otlp":
		if t.Endpoint == "" {
			return errors.New("endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("unknown exporter %q, must be one of: none, stdout, otlp", t.Exporter)
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("sample ratio must be within [0, 1], got %v", t.SampleRatio)
	}
	return nil
}
