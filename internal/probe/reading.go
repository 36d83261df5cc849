package probe

import (
	"errors"
	"time"

	"github.com/piger/ferm-probe/internal/onewire"
)

// Identity identifies a probe for the whole session.
type Identity struct {
	// Name is the name given by the user.
	Name string `json:"name"`
	// Position is the 1-based position in the configuration; it's the reporting order.
	Position int `json:"position"`
	// ID is the bus address of the probe, e.g. 28-0316a2795cff.
	ID string `json:"id"`
}

// Reading is the outcome of polling a probe at a given time: either a temperature or the error
// that prevented reading it.
type Reading struct {
	Time       time.Time
	Fahrenheit float64
	Err        error
}

// Success returns a successful reading.
func Success(t time.Time, fahrenheit float64) Reading {
	return Reading{Time: t, Fahrenheit: fahrenheit}
}

// Failure returns a failed reading.
func Failure(t time.Time, err error) Reading {
	return Reading{Time: t, Err: err}
}

// OK reports whether the reading holds a temperature.
func (r Reading) OK() bool {
	return r.Err == nil
}

// Value returns the temperature, or 0.0 for a failed reading; log files use 0.0 to mark errors.
func (r Reading) Value() float64 {
	if !r.OK() {
		return 0.0
	}
	return r.Fahrenheit
}

// ErrorLabel returns the text shown to the operator for a probe error, or an empty string.
func ErrorLabel(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, onewire.ErrFileNotFound):
		return "FILE NOT FOUND"
	case errors.Is(err, onewire.ErrFileEmpty):
		return "FILE EMPTY"
	case errors.Is(err, onewire.ErrNoSuccessfulReading):
		return "NO SUCCESSFUL TEMP READING"
	case errors.Is(err, onewire.ErrMalformedRecord):
		return "MALFORMED RECORD"
	default:
		return err.Error()
	}
}

// errorKind is a short label used in metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, onewire.ErrFileNotFound):
		return "file_not_found"
	case errors.Is(err, onewire.ErrFileEmpty):
		return "file_empty"
	case errors.Is(err, onewire.ErrNoSuccessfulReading):
		return "no_successful_reading"
	case errors.Is(err, onewire.ErrMalformedRecord):
		return "malformed_record"
	default:
		return "other"
	}
}
