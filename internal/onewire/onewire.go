// Package onewire reads DS18B20 temperature probes exposed by the Linux w1 bus driver.
//
// Each probe appears as a directory named after its bus address (for example
// 28-0316a2795cff) containing a w1_slave file with two lines:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
//
// The first line ends with the CRC flag, the second carries the temperature in
// milli-degrees Celsius.
package onewire

import "errors"

// DefaultDevicesDir is where the w1 bus driver exposes the probes.
const DefaultDevicesDir = "/sys/bus/w1/devices"

var (
	// ErrFileNotFound means the probe's file could not be opened, usually because the probe
	// was disconnected.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileEmpty means the file was opened but contained no lines.
	ErrFileEmpty = errors.New("file empty")

	// ErrNoSuccessfulReading means the probe never reported a valid CRC within the retry budget.
	ErrNoSuccessfulReading = errors.New("no successful temp reading")

	// ErrMalformedRecord means the record did not have the expected shape.
	ErrMalformedRecord = errors.New("malformed record")
)
