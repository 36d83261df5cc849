// Package probe tracks the temperature of a set of one-wire probes against a target range.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// MinInterval is the shortest polling interval allowed; a probe conversion plus the CRC retries
// can take several seconds per probe on a shared bus.
const MinInterval = 2 * time.Minute

// ErrNoProbes is returned when a monitor is created without probes.
var ErrNoProbes = errors.New("no probes configured")

// Sink receives the state of every probe after each poll cycle.
type Sink interface {
	Write(ctx context.Context, t time.Time, snaps []Snapshot) error
	Close() error
}

// Monitor polls a list of probes at a fixed interval.
type Monitor struct {
	sensors  []*Sensor
	sinks    []Sink
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Monitor polling sensors in the given order. An interval shorter than MinInterval
// is raised to MinInterval.
func New(sensors []*Sensor, interval time.Duration, logger *slog.Logger, sinks ...Sink) (*Monitor, error) {
	if len(sensors) == 0 {
		return nil, ErrNoProbes
	}
	if logger == nil {
		logger = slog.Default()
	}

	if interval < MinInterval {
		logger.Warn("polling interval too short, using the minimum", "requested", interval, "interval", MinInterval)
		interval = MinInterval
	}

	m := Monitor{
		sensors:  sensors,
		sinks:    sinks,
		interval: interval,
		logger:   logger,
	}
	return &m, nil
}

// Interval returns the polling interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Sensors returns the monitored probes in polling order.
func (m *Monitor) Sensors() []*Sensor {
	return m.sensors
}

// Cycle polls every probe, one after the other, under the same timestamp and hands the
// resulting snapshots to the sinks. A failing probe or sink doesn't stop the cycle.
func (m *Monitor) Cycle(ctx context.Context, t time.Time) []Snapshot {
	snaps := make([]Snapshot, 0, len(m.sensors))
	for _, sensor := range m.sensors {
		sensor.RecordAt(ctx, t)
		snap := sensor.Snapshot()
		observe(snap)
		snaps = append(snaps, snap)
	}

	for _, sink := range m.sinks {
		if err := sink.Write(ctx, t, snaps); err != nil {
			m.logger.Error("error writing snapshot", "sink", sinkName(sink), "error", err)
		}
	}

	return snaps
}

// Run is the main loop: it polls the probes immediately and then once every interval, until
// ctx is cancelled or SIGINT/SIGTERM is received.
func (m *Monitor) Run(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitoring started", "probes", len(m.sensors), "interval", m.interval)
	m.Cycle(ctx, time.Now())

Loop:
	for {
		select {
		case t := <-ticker.C:
			m.logger.Info("polling probes")
			m.Cycle(ctx, t)

		case sig := <-sigs:
			m.logger.Info("signal received", "signal", sig)
			break Loop

		case <-ctx.Done():
			break Loop
		}
	}

	return nil
}

// Close switches every indicator off and closes the sinks.
func (m *Monitor) Close() error {
	var errs []error
	for _, sensor := range m.sensors {
		if sensor.indicator == nil {
			continue
		}
		if err := sensor.indicator.Off(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			m.logger.Error("error closing sink", "sink", sinkName(sink), "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "sink"
}
