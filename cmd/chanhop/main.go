// Command chanhop tunes a radio interface through its channel table,
// changing channel every dwell period and skipping channels the radio refuses.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/radio-control/chanhop/internal/adapter"
	"github.com/radio-control/chanhop/internal/adapter/fake"
	"github.com/radio-control/chanhop/internal/adapter/silvus"
	"github.com/radio-control/chanhop/internal/api"
	"github.com/radio-control/chanhop/internal/audit"
	"github.com/radio-control/chanhop/internal/auth"
	"github.com/radio-control/chanhop/internal/command"
	"github.com/radio-control/chanhop/internal/config"
	"github.com/radio-control/chanhop/internal/hop"
	"github.com/radio-control/chanhop/internal/logging"
	"github.com/radio-control/chanhop/internal/observability"
	"github.com/radio-control/chanhop/internal/telemetry"
)

const programName = "chanhop"

func main() {
	flags := registerFlags(kingpin.CommandLine)
	kingpin.Version(version.Print(programName))
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	cfg, err := config.Load(*flags.configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Printf("%s: %v", programName, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting "+programName,
		logging.String("version", version.Info()),
		logging.String("build", version.BuildContext()))

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		versioncollector.NewCollector(programName),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewHopCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	radio, err := newRadio(cfg.Radio, metrics)
	if err != nil {
		return err
	}

	hub := telemetry.NewHub(cfg.API, logger.With(logging.String("component", "telemetry")))
	defer hub.Stop()

	hopper := hop.New(radio, cfg.Hop.Settings(), logger.With(logging.String("component", "hop")))
	hopper.AddObserver(metrics)
	hopper.AddObserver(hub)

	orch := command.NewOrchestrator(hopper, cfg.Hop.Tick, cfg.Radio.CommandTimeout,
		logger.With(logging.String("component", "orchestrator")))
	orch.SetSweepRecorder(metrics)

	if cfg.Audit.Enabled {
		auditLogger, err := audit.NewLogger(cfg.Audit, cfg.Radio.Interface)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		defer func() {
			if err := auditLogger.Close(); err != nil {
				logger.Warn(ctx, "failed to close audit log", logging.Err(err))
			}
		}()
		hopper.AddObserver(auditLogger)
		orch.SetAuditLogger(auditLogger)

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go rotateOnSignal(ctx, hup, auditLogger, logger)
	}

	var middleware *auth.Middleware
	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		middleware = auth.NewMiddleware(verifier)
	}

	if err := orch.Init(ctx); err != nil {
		if errors.Is(err, hop.ErrInitialChannelApplyFailed) {
			logger.Error(ctx, "initial channel could not be applied",
				logging.Int("channel", cfg.Hop.InitialChannel), logging.Err(err))
		}
		return err
	}
	snap := orch.Snapshot()
	metrics.SetTableSize(len(snap.Channels))
	metrics.SetCurrent(snap.Channel, snap.FrequencyMhz)
	hub.SetSnapshotFunc(func() map[string]interface{} {
		s := orch.Snapshot()
		return map[string]interface{}{
			"index":        int(s.Index),
			"channel":      s.Channel,
			"frequencyMhz": s.FrequencyMhz,
			"hopping":      s.Hopping,
			"dwellUs":      s.Dwell.Microseconds(),
		}
	})
	logger.Info(ctx, "hopper ready",
		logging.Int("channels", len(snap.Channels)),
		logging.Int("channel", snap.Channel),
		logging.Bool("hopping", snap.Hopping),
		logging.Duration("dwell", snap.Dwell))

	server := api.NewServer(cfg.API, orch, hub, metrics.Handler(), middleware,
		logger.With(logging.String("component", "api")))

	errCh := make(chan error, 2)
	go func() { errCh <- orch.Run(ctx) }()
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	case err = <-errCh:
		if err != nil {
			logger.Error(context.Background(), "component failed", logging.Err(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Stop()
	if stopErr := server.Stop(shutdownCtx); stopErr != nil {
		logger.Warn(shutdownCtx, "failed to stop API server", logging.Err(stopErr))
	}
	return err
}

func newRadio(cfg config.RadioConfig, metrics *observability.HopCollector) (adapter.IRadioAdapter, error) {
	switch cfg.Adapter {
	case "fake":
		return fake.NewFakeAdapter(cfg.Interface, nil), nil
	case "silvus":
		return silvus.New(cfg.Interface, cfg.URL, cfg.Timeout).
			WithTransport(metrics.InstrumentRoundTripper(http.DefaultTransport)), nil
	default:
		return nil, fmt.Errorf("unknown radio adapter %q", cfg.Adapter)
	}
}

// rotateOnSignal starts a new audit file on every signal until ctx ends.
func rotateOnSignal(ctx context.Context, sig <-chan os.Signal, r interface{ Rotate() error }, logger logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := r.Rotate(); err != nil {
				logger.Warn(ctx, "audit log rotation failed", logging.Err(err))
				continue
			}
			logger.Info(ctx, "audit log rotated")
		}
	}
}
