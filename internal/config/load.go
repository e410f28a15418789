package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// EnvConfigPath names the variable consulted when no config path is given.
const EnvConfigPath = "CHANHOP_CONFIG"

// Load returns the defaults merged with the YAML file at path (or
// $CHANHOP_CONFIG) and CHANHOP_* overrides. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies CHANHOP_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"CHANHOP_RADIO_ADAPTER":    &cfg.Radio.Adapter,
		"CHANHOP_RADIO_INTERFACE":  &cfg.Radio.Interface,
		"CHANHOP_RADIO_URL":        &cfg.Radio.URL,
		"CHANHOP_API_LISTEN":       &cfg.API.Listen,
		"CHANHOP_AUTH_HMAC_SECRET": &cfg.Auth.HMACSecret,
		"CHANHOP_AUTH_PUBLIC_KEY":  &cfg.Auth.PublicKeyFile,
		"CHANHOP_AUDIT_PATH":       &cfg.Audit.Path,
		"CHANHOP_LOG_LEVEL":        &cfg.Log.Level,
		"CHANHOP_LOG_FORMAT":       &cfg.Log.Format,
		"CHANHOP_TRACING_EXPORTER": &cfg.Tracing.Exporter,
		"CHANHOP_TRACING_ENDPOINT": &cfg.Tracing.Endpoint,
	}
	for name, dst := range strs {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}

	bools := map[string]*bool{
		"CHANHOP_HOPPING":       &cfg.Hop.Hopping,
		"CHANHOP_AUTH_ENABLED":  &cfg.Auth.Enabled,
		"CHANHOP_AUDIT_ENABLED": &cfg.Audit.Enabled,
	}
	for name, dst := range bools {
		if val := os.Getenv(name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"CHANHOP_CHANNEL_CEILING": &cfg.Hop.ChannelCeiling,
		"CHANHOP_INITIAL_CHANNEL": &cfg.Hop.InitialChannel,
	}
	for name, dst := range ints {
		if val := os.Getenv(name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"CHANHOP_DWELL":         &cfg.Hop.Dwell,
		"CHANHOP_TICK":          &cfg.Hop.Tick,
		"CHANHOP_RADIO_TIMEOUT": &cfg.Radio.Timeout,
	}
	for name, dst := range durations {
		if val := os.Getenv(name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}

	return nil
}
