package probe

import "fmt"

// Class is the position of a reading relative to the target range.
type Class int

const (
	Unknown Class = iota
	Above
	Within
	Below
	Error

	numClasses
)

// Classes lists the valid classes in reporting order.
var Classes = []Class{Above, Within, Below, Error}

func (c Class) String() string {
	switch c {
	case Above:
		return "ABOVE"
	case Within:
		return "WITHIN"
	case Below:
		return "BELOW"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	for _, class := range Classes {
		if class.String() == string(text) {
			*c = class
			return nil
		}
	}
	return fmt.Errorf("unknown class %q", text)
}

// FaultThreshold is the Fahrenheit value from which a DS18B20 reading is known to be garbage:
// the probes report temperatures well above 100°F when they misbehave.
const FaultThreshold = 110.0

// IsHardwareFault reports whether f matches the fault signature of the probes.
func IsHardwareFault(f float64) bool {
	return f >= FaultThreshold
}

// TargetRange is the window of acceptable temperatures, in Fahrenheit.
type TargetRange struct {
	Target            float64 `json:"target"`
	PositiveAllowance float64 `json:"positive_allowance"`
	NegativeAllowance float64 `json:"negative_allowance"`
}

// Lower returns the lowest temperature still within the range.
func (t TargetRange) Lower() float64 {
	return t.Target - t.NegativeAllowance
}

// Upper returns the highest temperature still within the range.
func (t TargetRange) Upper() float64 {
	return t.Target + t.PositiveAllowance
}

// String returns the range as "lower-upper".
func (t TargetRange) String() string {
	return fmt.Sprintf("%g-%g", t.Lower(), t.Upper())
}

// Classify places a reading relative to the target range. Failed readings and hardware fault
// values are Error; both bounds belong to the range.
func Classify(r Reading, t TargetRange) Class {
	switch {
	case !r.OK():
		return Error
	case IsHardwareFault(r.Fahrenheit):
		return Error
	case r.Fahrenheit < t.Lower():
		return Below
	case r.Fahrenheit > t.Upper():
		return Above
	default:
		return Within
	}
}
