package config

import (
	"time"

	"github.com/radio-control/chanhop/internal/hop"
)

// Config is the complete service configuration.
type Config struct {
	Hop     HopConfig     `yaml:"hop"`
	Radio   RadioConfig   `yaml:"radio"`
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Audit   AuditConfig   `yaml:"audit"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// HopConfig holds the hopping parameters.
type HopConfig struct {
	Hopping        bool          `yaml:"hopping"`
	Dwell          time.Duration `yaml:"dwell"`
	ChannelCeiling int           `yaml:"channelCeiling"` // 0 = no ceiling
	InitialChannel int           `yaml:"initialChannel"` // 0 = keep the radio's channel
	Tick           time.Duration `yaml:"tick"`
}

// RadioConfig selects and configures the radio adapter.
type RadioConfig struct {
	Adapter        string        `yaml:"adapter"` // fake or silvus
	Interface      string        `yaml:"interface"`
	URL            string        `yaml:"url"`
	Timeout        time.Duration `yaml:"timeout"`
	CommandTimeout time.Duration `yaml:"commandTimeout"`
}

// APIConfig configures the HTTP server and the telemetry stream.
type APIConfig struct {
	Listen            string        `yaml:"listen"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	EventBufferSize   int           `yaml:"eventBufferSize"`
}

// AuthConfig configures bearer token verification. Either HMACSecret or
// PublicKeyFile must be set when enabled.
type AuthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	HMACSecret    string `yaml:"hmacSecret"`
	PublicKeyFile string `yaml:"publicKeyFile"`
}

// AuditConfig configures the rotating audit log.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"` // none, stdout or otlp
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"serviceName"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hop: HopConfig{
			Hopping: true,
			Dwell:   250 * time.Millisecond,
			Tick:    10 * time.Millisecond,
		},
		Radio: RadioConfig{
			Adapter:        "fake",
			Interface:      "wlan0",
			URL:            "http://127.0.0.1",
			Timeout:        5 * time.Second,
			CommandTimeout: 2 * time.Second,
		},
		API: APIConfig{
			Listen:            ":8080",
			ReadTimeout:       10 * time.Second,
			IdleTimeout:       60 * time.Second,
			HeartbeatInterval: 15 * time.Second,
			EventBufferSize:   50,
		},
		Audit: AuditConfig{
			Path:       "audit/chanhop.jsonl",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			Endpoint:    "localhost:4317",
			ServiceName: "chanhop",
			SampleRatio: 1.0,
		},
	}
}

// Settings converts the hop section for the hopper.
func (c HopConfig) Settings() hop.Settings {
	return hop.Settings{
		Hopping:        c.Hopping,
		Dwell:          c.Dwell,
		ChannelCeiling: c.ChannelCeiling,
		InitialChannel: c.InitialChannel,
	}
}
