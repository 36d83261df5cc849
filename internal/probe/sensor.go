package probe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/piger/ferm-probe/internal/onewire"
)

// Acquirer returns the validated temperature line of a probe.
type Acquirer interface {
	Acquire(ctx context.Context, id string) (string, error)
}

// Indicator renders the class of the latest reading of a probe, e.g. on an RGB LED.
type Indicator interface {
	Signal(Class) error
	// Off switches the indicator to its neutral state.
	Off() error
}

// Percentages is the share of readings spent in each class.
type Percentages struct {
	Above  float64 `json:"above"`
	Within float64 `json:"within"`
	Below  float64 `json:"below"`
	Error  float64 `json:"error"`
}

// Sensor holds the state of one probe for the lifetime of a monitoring session.
//
// A Sensor is not safe for concurrent use: the monitor is its only user.
type Sensor struct {
	Identity

	target    TargetRange
	source    Acquirer
	indicator Indicator
	logger    *slog.Logger

	readings   []Reading
	lastClass  Class
	counts     [numClasses]int
	highest    float64
	lowest     float64
	hasExtrema bool
	err        error
}

// NewSensor returns the state of a probe; indicator may be nil.
func NewSensor(id Identity, target TargetRange, source Acquirer, indicator Indicator, logger *slog.Logger) *Sensor {
	if logger == nil {
		logger = slog.Default()
	}

	s := Sensor{
		Identity:  id,
		target:    target,
		source:    source,
		indicator: indicator,
		logger:    logger.With("name", id.Name, "position", id.Position, "id", id.ID),
	}
	return &s
}

// RecordAt polls the probe and records the outcome under timestamp t. Acquisition and decoding
// errors are recorded as failed readings, never returned.
func (s *Sensor) RecordAt(ctx context.Context, t time.Time) Reading {
	r := s.acquire(ctx, t)
	class := s.Add(r)

	latest := s.readings[len(s.readings)-1]
	if latest.OK() {
		s.logger.Debug("temperature recorded", "fahrenheit", latest.Fahrenheit, "class", class)
	} else {
		s.logger.Warn("probe not reporting, recording an error", "error", latest.Err)
	}

	if s.indicator != nil {
		if err := s.indicator.Signal(class); err != nil {
			s.logger.Error("error updating indicator", "class", class, "error", err)
		}
	}

	return latest
}

func (s *Sensor) acquire(ctx context.Context, t time.Time) Reading {
	line, err := s.source.Acquire(ctx, s.ID)
	if err != nil {
		return Failure(t, err)
	}

	f, err := onewire.Decode(line)
	if err != nil {
		return Failure(t, err)
	}

	return Success(t, f)
}

// Add records a reading and returns its class. A successful reading carrying a hardware fault
// value is recorded as a failure.
func (s *Sensor) Add(r Reading) Class {
	class := Classify(r, s.target)
	if class == Error && r.OK() {
		s.logger.Warn("discarding hardware fault reading", "fahrenheit", r.Fahrenheit)
		r = Failure(r.Time, fmt.Errorf("%w: %.2f°F is a fault reading", onewire.ErrNoSuccessfulReading, r.Fahrenheit))
	}

	s.readings = append(s.readings, r)
	s.counts[class]++
	s.lastClass = class

	if !r.OK() {
		s.err = r.Err
		return class
	}

	s.err = nil
	if !s.hasExtrema {
		s.highest, s.lowest, s.hasExtrema = r.Fahrenheit, r.Fahrenheit, true
	} else {
		if r.Fahrenheit > s.highest {
			s.highest = r.Fahrenheit
		}
		if r.Fahrenheit < s.lowest {
			s.lowest = r.Fahrenheit
		}
	}

	return class
}

// Target returns the target range of the probe.
func (s *Sensor) Target() TargetRange {
	return s.target
}

// Readings returns every reading recorded so far, oldest first. The slice must not be modified.
func (s *Sensor) Readings() []Reading {
	return s.readings
}

// Latest returns the most recent reading and its class.
func (s *Sensor) Latest() (Reading, Class, bool) {
	if len(s.readings) == 0 {
		return Reading{}, Unknown, false
	}
	return s.readings[len(s.readings)-1], s.lastClass, true
}

// Count returns the number of readings recorded in class c.
func (s *Sensor) Count(c Class) int {
	if c <= Unknown || c >= numClasses {
		return 0
	}
	return s.counts[c]
}

// Highest returns the highest successful reading, if any.
func (s *Sensor) Highest() (float64, bool) {
	return s.highest, s.hasExtrema
}

// Lowest returns the lowest successful reading, if any.
func (s *Sensor) Lowest() (float64, bool) {
	return s.lowest, s.hasExtrema
}

// Err returns the error of the latest reading, nil if it succeeded.
func (s *Sensor) Err() error {
	return s.err
}

// Percentages returns the share of readings spent in each class, rounded to two decimal places.
func (s *Sensor) Percentages() Percentages {
	total := len(s.readings)
	if total == 0 {
		return Percentages{}
	}

	pct := func(c Class) float64 {
		return math.Round(float64(s.counts[c])*100/float64(total)*100) / 100
	}

	return Percentages{
		Above:  pct(Above),
		Within: pct(Within),
		Below:  pct(Below),
		Error:  pct(Error),
	}
}

// Snapshot returns the current state of the probe.
func (s *Sensor) Snapshot() Snapshot {
	snap := Snapshot{
		Identity:    s.Identity,
		Target:      s.target,
		Percentages: s.Percentages(),
		Count:       len(s.readings),
		Err:         s.err,
	}
	snap.Latest, snap.Class, _ = s.Latest()

	if h, ok := s.Highest(); ok {
		snap.Highest = &h
	}
	if l, ok := s.Lowest(); ok {
		snap.Lowest = &l
	}

	return snap
}

// Snapshot is a copy of the state of a probe after a poll cycle, handed to the sinks.
type Snapshot struct {
	Identity
	Target      TargetRange
	Latest      Reading
	Class       Class
	Highest     *float64
	Lowest      *float64
	Percentages Percentages
	Count       int
	Err         error
}

// ErrorLabel returns the operator text of the snapshot's error.
func (s Snapshot) ErrorLabel() string {
	return ErrorLabel(s.Err)
}
