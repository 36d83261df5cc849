// Package indicator renders the class of a probe's latest reading on a common-anode RGB LED.
//
// The LED pins are active low: driving a pin Low lights its colour.
//
//	ABOVE  white
//	WITHIN green
//	BELOW  blue
//	ERROR  red
//
// Any other value switches every colour off.
package indicator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/piger/ferm-probe/internal/probe"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// colour holds the state of the red, green and blue channels; true means lit.
type colour struct {
	red, green, blue bool
}

var (
	white = colour{true, true, true}
	green = colour{false, true, false}
	blue  = colour{false, false, true}
	red   = colour{true, false, false}
	off   = colour{}
)

func colourOf(c probe.Class) colour {
	switch c {
	case probe.Above:
		return white
	case probe.Within:
		return green
	case probe.Below:
		return blue
	case probe.Error:
		return red
	default:
		return off
	}
}

// RGB drives an RGB LED through three GPIO output pins.
type RGB struct {
	red, green, blue gpio.PinOut
	logger           *slog.Logger
}

// NewRGB returns an LED driven by the given pins, initially green.
func NewRGB(red, green, blue gpio.PinOut, logger *slog.Logger) (*RGB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	led := RGB{red: red, green: green, blue: blue, logger: logger}
	if err := led.set(colourOf(probe.Within)); err != nil {
		return nil, err
	}
	return &led, nil
}

var hostOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Open initialises the host GPIO drivers and returns the LED wired to the named pins,
// e.g. "GPIO17".
func Open(redPin, greenPin, bluePin string, logger *slog.Logger) (*RGB, error) {
	if err := hostOnce(); err != nil {
		return nil, fmt.Errorf("initializing gpio: %w", err)
	}

	pins := make([]gpio.PinIO, 3)
	for i, name := range []string{redPin, greenPin, bluePin} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		pins[i] = p
	}

	return NewRGB(pins[0], pins[1], pins[2], logger)
}

// Signal shows the colour of class c.
func (l *RGB) Signal(c probe.Class) error {
	col := colourOf(c)
	if col == off {
		l.logger.Error("unknown temperature status, turning the led off", "class", c)
	}
	return l.set(col)
}

// Off switches every colour off.
func (l *RGB) Off() error {
	return l.set(off)
}

func (l *RGB) set(c colour) error {
	return errors.Join(
		l.red.Out(level(c.red)),
		l.green.Out(level(c.green)),
		l.blue.Out(level(c.blue)),
	)
}

func level(lit bool) gpio.Level {
	if lit {
		return gpio.Low
	}
	return gpio.High
}

// Nop is an indicator that renders nothing.
type Nop struct{}

func (Nop) Signal(probe.Class) error { return nil }
func (Nop) Off() error               { return nil }
