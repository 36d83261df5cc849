package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	hcLog "github.com/brutella/hc/log"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/piger/ferm-probe/internal/api"
	"github.com/piger/ferm-probe/internal/config"
	"github.com/piger/ferm-probe/internal/db"
	"github.com/piger/ferm-probe/internal/homekit"
	"github.com/piger/ferm-probe/internal/indicator"
	"github.com/piger/ferm-probe/internal/onewire"
	"github.com/piger/ferm-probe/internal/probe"
	"github.com/piger/ferm-probe/internal/report"
	"github.com/piger/ferm-probe/internal/retry"
	"github.com/piger/ferm-probe/internal/store"
	"github.com/piger/ferm-probe/internal/telemetry"
)

var (
	configFile  = flag.String("config", "ferm-probe.toml", "Path to the configuration file")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	debugHk     = flag.Bool("debug-hk", false, "Enable HomeKit debugging")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	version, err := getVersion()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading build info: %s\n", err)
	}
	if *showVersion {
		fmt.Println(version)
		return
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.DateTime}))
	slog.SetDefault(logger)

	if *debugHk {
		hcLog.Debug.Enable()
	}

	logger.Info("starting ferm-probe", "version", version)
	if err := run(logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.ReadConfig(*configFile)
	if err != nil {
		return err
	}

	probes, err := resolveProbes(cfg)
	if err != nil {
		return err
	}

	started := time.Now()
	session := uuid.New()
	logger.Info("session started", "session", session, "probes", len(probes))

	acquirer := &onewire.Acquirer{
		Reader: onewire.FileReader{Dir: cfg.DevicesDir},
		Policy: &retry.Fixed{
			MaxAttempts: cfg.Retry.Attempts,
			Interval:    cfg.Retry.Delay.Duration,
			Logger:      logger,
		},
	}
	target := probe.TargetRange{
		Target:            cfg.Target.Temperature,
		PositiveAllowance: cfg.Target.PositiveAllowance,
		NegativeAllowance: cfg.Target.NegativeAllowance,
	}

	var indicators []probe.Indicator
	releaseIndicators := func() {
		for _, ind := range indicators {
			if err := ind.Off(); err != nil {
				logger.Error("error switching indicator off", "error", err)
			}
		}
	}

	sensors := make([]*probe.Sensor, 0, len(probes))
	for i, pc := range probes {
		id := probe.Identity{Name: pc.Name, Position: i + 1, ID: pc.ID}

		var ind probe.Indicator
		if pc.LED != nil {
			led, err := indicator.Open(pc.LED.Red, pc.LED.Green, pc.LED.Blue, logger)
			if err != nil {
				releaseIndicators()
				return fmt.Errorf("setting up the LED of %q: %w", pc.Name, err)
			}
			indicators = append(indicators, led)
			ind = led
		}

		sensors = append(sensors, probe.NewSensor(id, target, acquirer, ind, logger))
	}

	sinks, err := setupSinks(cfg, logger, session, started, sensors)
	if err != nil {
		releaseIndicators()
		for _, s := range sinks {
			s.Close()
		}
		return err
	}

	var status *api.Store
	if cfg.Listen != "" {
		status = api.NewStore()
		sinks = append(sinks, status)
	}

	m, err := probe.New(sensors, cfg.Interval.Duration, logger, sinks...)
	if err != nil {
		releaseIndicators()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           api.NewHandler(status, logger, os.Stdout),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http listener started", "addr", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http listener error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	return m.Run(ctx)
}

// resolveProbes returns the configured probes or, when none is configured, the probes found
// on the bus.
func resolveProbes(cfg *config.Config) ([]config.ProbeConfig, error) {
	if len(cfg.Probes) > 0 {
		return cfg.Probes, nil
	}

	ids, err := onewire.Discover(cfg.DevicesDir)
	if err != nil {
		return nil, err
	}

	probes := make([]config.ProbeConfig, 0, len(ids))
	for i, id := range ids {
		probes = append(probes, config.ProbeConfig{Name: fmt.Sprintf("Probe %d", i+1), ID: id})
	}
	if len(probes) == 0 {
		return nil, fmt.Errorf("%w: none found in %s", probe.ErrNoProbes, cfg.DevicesDir)
	}
	return probes, nil
}

// setupSinks creates the sinks enabled in the configuration. On error the sinks created so far
// are returned so that the caller can close them.
func setupSinks(cfg *config.Config, logger *slog.Logger, session uuid.UUID, started time.Time, sensors []*probe.Sensor) ([]probe.Sink, error) {
	sinks := []probe.Sink{report.NewConsole(os.Stdout)}

	if cfg.Logs.CSVEnabled() {
		csvLog, err := store.NewCSVLog(cfg.Logs.Dir, started)
		if err != nil {
			return sinks, err
		}
		logger.Info("writing CSV log", "path", csvLog.Path())
		sinks = append(sinks, csvLog)
	}

	if cfg.Logs.JSONEnabled() {
		initial := make([]probe.Snapshot, 0, len(sensors))
		for _, s := range sensors {
			initial = append(initial, s.Snapshot())
		}
		jsonLog, err := store.NewJSONLog(cfg.Logs.Dir, session, started, initial)
		if err != nil {
			return sinks, err
		}
		logger.Info("writing JSON log", "path", jsonLog.Path())
		sinks = append(sinks, jsonLog)
	}

	if cfg.DBConfig != "" {
		sinks = append(sinks, db.NewWriter(cfg.DBConfig, cfg.DBTable))
	}

	if cfg.HomeKit != nil {
		ids := make([]probe.Identity, 0, len(sensors))
		for _, s := range sensors {
			ids = append(ids, s.Identity)
		}
		bridge, err := homekit.NewBridge(cfg.HomeKit, ids, os.Stdout)
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, bridge)
	}

	if cfg.MQTT != nil {
		pub, err := telemetry.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, session)
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, pub)
	}

	if cfg.Kafka != nil {
		sinks = append(sinks, telemetry.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, session))
	}

	return sinks, nil
}
