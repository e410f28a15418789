package main

import (
	"strconv"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/radio-control/chanhop/internal/config"
)

// overrides holds the command-line values. Zero values mean "not given".
type overrides struct {
	configPath     *string
	hopping        *string
	dwell          *time.Duration
	channelCeiling *int
	initialChannel *int
	radioAdapter   *string
	radioURL       *string
	radioIface     *string
	listenAddress  *string
	logLevel       *string
	logFormat      *string
}

func registerFlags(app *kingpin.Application) *overrides {
	return &overrides{
		configPath:     app.Flag("config", "Path to the YAML configuration file.").OverrideDefaultFromEnvar(config.EnvConfigPath).String(),
		hopping:        app.Flag("hop.hopping", "Enable or disable automatic hopping.").Enum("true", "false"),
		dwell:          app.Flag("hop.dwell", "Time to stay on each channel.").Duration(),
		channelCeiling: app.Flag("hop.channel-ceiling", "Highest channel number to hop to (0 for none).").Default("-1").Int(),
		initialChannel: app.Flag("hop.initial-channel", "Channel to apply at start-up (0 to keep the radio's).").Default("-1").Int(),
		radioAdapter:   app.Flag("radio.adapter", "Radio backend (fake or silvus).").Enum("fake", "silvus"),
		radioURL:       app.Flag("radio.url", "Base URL of the Silvus radio.").String(),
		radioIface:     app.Flag("radio.interface", "Interface name of the radio.").String(),
		listenAddress:  app.Flag("web.listen-address", "Address to listen on for the API and metrics.").String(),
		logLevel:       app.Flag("log.level", "Log level (debug, info, warn, error).").String(),
		logFormat:      app.Flag("log.format", "Log format (text or json).").Enum("text", "json"),
	}
}

// apply overlays the given flags onto cfg.
func (o *overrides) apply(cfg *config.Config) {
	if *o.hopping != "" {
		cfg.Hop.Hopping, _ = strconv.ParseBool(*o.hopping)
	}
	if *o.dwell > 0 {
		cfg.Hop.Dwell = *o.dwell
	}
	if *o.channelCeiling >= 0 {
		cfg.Hop.ChannelCeiling = *o.channelCeiling
	}
	if *o.initialChannel >= 0 {
		cfg.Hop.InitialChannel = *o.initialChannel
	}
	setString(&cfg.Radio.Adapter, *o.radioAdapter)
	setString(&cfg.Radio.URL, *o.radioURL)
	setString(&cfg.Radio.Interface, *o.radioIface)
	setString(&cfg.API.Listen, *o.listenAddress)
	setString(&cfg.Log.Level, *o.logLevel)
	setString(&cfg.Log.Format, *o.logFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
