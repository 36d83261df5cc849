// Package homekit exposes every probe as a HomeKit thermometer.
package homekit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/mdp/qrterminal/v3"
	"github.com/piger/ferm-probe/internal/config"
	"github.com/piger/ferm-probe/internal/probe"
)

type HomeKitTransport interface {
	// Start starts the transport
	Start()

	// Stop stops the transport
	// Use the returned channel to wait until the transport is fully stopped.
	Stop() <-chan struct{}

	// XHMURI returns a X-HM styled uri to easily add the accessory to HomeKit.
	XHMURI() (string, error)
}

// Thermometer range, in Celsius: HomeKit only speaks Celsius.
const (
	minTemperature  = -20.0
	maxTemperature  = 100.0
	temperatureStep = 0.1
)

// NewProbeSensor returns the accessory of a probe. Accessory IDs start at 2, 1 is the bridge.
func NewProbeSensor(id probe.Identity) *accessory.Thermometer {
	info := accessory.Info{
		Name:         id.Name,
		Model:        "DS18B20",
		SerialNumber: id.ID,
		Manufacturer: "Maxim Integrated",
		ID:           uint64(id.Position) + 1,
	}

	return accessory.NewTemperatureSensor(info, 0, minTemperature, maxTemperature, temperatureStep)
}

func SetupHomeKit(config *config.HomeKit, accs []*accessory.Accessory) (HomeKitTransport, error) {
	hkBridge := accessory.NewBridge(accessory.Info{
		Name:         "Ferm Probe",
		Manufacturer: "Kertesz Industries",
		SerialNumber: "100",
		Model:        "FERMENTINO",
		ID:           1,
	})

	hkConfig := hc.Config{
		Pin:         config.Pin,
		SetupId:     config.SetupID,
		Port:        strconv.Itoa(config.Port),
		StoragePath: config.DataDir,
	}
	hkTransport, err := hc.NewIPTransport(hkConfig, hkBridge.Accessory, accs...)
	if err != nil {
		return nil, fmt.Errorf("initializing homekit: %w", err)
	}

	return hkTransport, nil
}

func PrintQRcode(t HomeKitTransport, w io.Writer) {
	uri, err := t.XHMURI()
	if err != nil {
		slog.Error("error getting XHM URI", "error", err)
		return
	}
	qrterminal.Generate(uri, qrterminal.L, w)
}

// Bridge publishes the latest successful reading of every probe.
type Bridge struct {
	transport HomeKitTransport
	sensors   map[string]*accessory.Thermometer
}

// NewBridge creates one thermometer per probe and starts the HomeKit transport in the
// background.
func NewBridge(cfg *config.HomeKit, probes []probe.Identity, qr io.Writer) (*Bridge, error) {
	b := Bridge{sensors: make(map[string]*accessory.Thermometer, len(probes))}

	accs := make([]*accessory.Accessory, 0, len(probes))
	for _, id := range probes {
		s := NewProbeSensor(id)
		b.sensors[id.ID] = s
		accs = append(accs, s.Accessory)
	}

	t, err := SetupHomeKit(cfg, accs)
	if err != nil {
		return nil, err
	}
	b.transport = t

	if qr != nil {
		PrintQRcode(t, qr)
	}
	go t.Start()

	return &b, nil
}

func (b *Bridge) Name() string { return "homekit" }

// Write updates the thermometers; a failed reading keeps the last known value.
func (b *Bridge) Write(_ context.Context, _ time.Time, snaps []probe.Snapshot) error {
	for _, snap := range snaps {
		s, ok := b.sensors[snap.ID]
		if !ok || !snap.Latest.OK() {
			continue
		}
		s.TempSensor.CurrentTemperature.SetValue(FahrenheitToCelsius(snap.Latest.Fahrenheit))
	}
	return nil
}

// Close stops the transport and waits for it.
func (b *Bridge) Close() error {
	<-b.transport.Stop()
	return nil
}

// FahrenheitToCelsius converts a temperature, rounded to 2 decimal places.
func FahrenheitToCelsius(f float64) float64 {
	return math.Round((f-32)*5/9*100) / 100
}
