package rf433

import (
	"fmt"
	"strings"
)

// Variant selects the frame decoding rule.
type Variant uint8

const (
	// VariantSwitch is the plain nibble encoding of remote mains switches.
	VariantSwitch Variant = iota + 1

	// VariantSensor is the differential-pair encoding of weather sensors.
	VariantSensor
)

// String returns the variant name as used in configuration and topics.
func (v Variant) String() string {
	switch v {
	case VariantSwitch:
		return "switch"
	case VariantSensor:
		return "sensor"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// ParseVariant converts a configuration string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "switch", "fs1000a", "heitech":
		return VariantSwitch, nil
	case "sensor", "tfa", "tfa_thw":
		return VariantSensor, nil
	default:
		return 0, fmt.Errorf("%w: unknown protocol %q", ErrInvalidConfig, s)
	}
}

// Protocol holds the timing and framing constants of one variant.
type Protocol struct {
	Variant     Variant
	ZeroUS      uint32
	OneUS       uint32
	PreambleMin int
	RawLength   int
}

// Protocol presets.
//
// The switch remote sends 48 symbols per repeat with a ~9 ms gap between
// repeats; anything above 500 µs up to the gap is a long symbol.
// The sensor sends a preamble of long pulses followed by 128 symbols.
var (
	SwitchProtocol = Protocol{
		Variant:     VariantSwitch,
		ZeroUS:      500,
		OneUS:       8000,
		PreambleMin: 0,
		RawLength:   switchRawLength,
	}

	SensorProtocol = Protocol{
		Variant:     VariantSensor,
		ZeroUS:      380,
		OneUS:       580,
		PreambleMin: 6,
		RawLength:   sensorRawLength,
	}
)

// ProtocolFor returns the preset for a variant.
func ProtocolFor(v Variant) (Protocol, bool) {
	switch v {
	case VariantSwitch:
		return SwitchProtocol, true
	case VariantSensor:
		return SensorProtocol, true
	default:
		return Protocol{}, false
	}
}
