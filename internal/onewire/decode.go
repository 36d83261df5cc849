package onewire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const tempMarker = "t="

// Decode extracts the milli-degrees Celsius value following "t=" in a temperature line and
// returns it in Fahrenheit, rounded to two decimal places.
func Decode(line string) (float64, error) {
	idx := strings.Index(line, tempMarker)
	if idx == -1 {
		return 0, fmt.Errorf("%w: missing %q in %q", ErrMalformedRecord, tempMarker, line)
	}

	milli, err := strconv.Atoi(strings.TrimSpace(line[idx+len(tempMarker):]))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformedRecord, err)
	}

	return MilliCelsiusToFahrenheit(milli), nil
}

// MilliCelsiusToFahrenheit converts milli-degrees Celsius to Fahrenheit. The result is rounded
// half away from zero to two decimal places.
func MilliCelsiusToFahrenheit(milli int) float64 {
	f := float64(milli)/1000.0*9.0/5.0 + 32.0
	return math.Round(f*100) / 100
}
