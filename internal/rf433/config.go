package rf433

import (
	"fmt"
	"strings"
	"time"
)

// DefaultQueueSize is the capacity of the edge-to-worker interval queue.
const DefaultQueueSize = 32

// PreambleAnySync as Config.PreambleMin starts capture after a single
// sync symbol, overriding the preset. Zero cannot express this because
// it selects the preset.
const PreambleAnySync = -1

// Config describes one receiver instance.
//
// Zero-valued timing fields are filled from the variant's Protocol preset
// by Init, so a minimal config only names the pin and the variant.
type Config struct {
	// Pin is the GPIO name, used for logging and diagnostics.
	Pin string

	// Variant selects the decoding rule.
	Variant Variant

	// ZeroThresholdUS is the inclusive upper bound of a zero symbol.
	ZeroThresholdUS uint32

	// OneThresholdUS is the inclusive upper bound of a one symbol.
	OneThresholdUS uint32

	// SyncThresholdUS is the exclusive lower bound of a sync gap.
	// Defaults to OneThresholdUS.
	SyncThresholdUS uint32

	// NoiseFloorUS classifies shorter intervals as noise. Zero disables it.
	NoiseFloorUS uint32

	// PreambleMin is the number of sync symbols that must be exceeded
	// before bits are captured. Zero takes the preset (6 for the sensor
	// variant); use PreambleAnySync to accept a single sync.
	PreambleMin int

	// RawLength is the number of raw symbols in one frame.
	RawLength int

	// QueueSize bounds the interval queue. Default: 32.
	QueueSize int

	// DedupWindow suppresses an emitted frame identical to the previous
	// one within this window. Zero disables the window.
	DedupWindow time.Duration
}

// WithDefaults returns a copy with unset fields taken from the preset.
func (c Config) WithDefaults() Config {
	p, ok := ProtocolFor(c.Variant)
	if !ok {
		return c
	}
	if c.ZeroThresholdUS == 0 {
		c.ZeroThresholdUS = p.ZeroUS
	}
	if c.OneThresholdUS == 0 {
		c.OneThresholdUS = p.OneUS
	}
	if c.SyncThresholdUS == 0 {
		c.SyncThresholdUS = c.OneThresholdUS
	}
	if c.PreambleMin == 0 {
		c.PreambleMin = p.PreambleMin
	}
	if c.RawLength == 0 {
		c.RawLength = p.RawLength
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	return c
}

// Validate checks the configuration for inconsistent values.
// It should be called on a config with defaults applied.
func (c Config) Validate() error {
	var errs []string

	if _, ok := ProtocolFor(c.Variant); !ok {
		errs = append(errs, fmt.Sprintf("unknown variant %d", c.Variant))
	}
	if c.ZeroThresholdUS >= c.OneThresholdUS {
		errs = append(errs, "zero threshold must be below one threshold")
	}
	if c.SyncThresholdUS < c.OneThresholdUS {
		errs = append(errs, "sync threshold must not be below one threshold")
	}
	if c.NoiseFloorUS > c.ZeroThresholdUS {
		errs = append(errs, "noise floor must not exceed zero threshold")
	}
	if c.PreambleMin < PreambleAnySync {
		errs = append(errs, fmt.Sprintf("preamble minimum must be %d or more", PreambleAnySync))
	}
	if c.QueueSize < 1 {
		errs = append(errs, "queue size must be positive")
	}
	if c.DedupWindow < 0 {
		errs = append(errs, "dedup window must not be negative")
	}

	switch c.Variant {
	case VariantSwitch:
		if c.RawLength != switchRawLength {
			errs = append(errs, fmt.Sprintf("switch raw length must be %d", switchRawLength))
		}
	case VariantSensor:
		if c.RawLength < 2 || c.RawLength > sensorRawLength || c.RawLength%2 != 0 {
			errs = append(errs, fmt.Sprintf("sensor raw length must be even and between 2 and %d", sensorRawLength))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Thresholds returns the classification bands of this config.
func (c Config) Thresholds() Thresholds {
	return Thresholds{
		ZeroUS:       c.ZeroThresholdUS,
		OneUS:        c.OneThresholdUS,
		SyncUS:       c.SyncThresholdUS,
		NoiseFloorUS: c.NoiseFloorUS,
	}
}
