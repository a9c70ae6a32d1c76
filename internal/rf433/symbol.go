package rf433

// Symbol is the classification of a single pulse interval.
type Symbol uint8

const (
	// SymbolNoise is an interval that fits no symbol band.
	SymbolNoise Symbol = iota

	// SymbolZero is a short interval (logical 0 symbol).
	SymbolZero

	// SymbolOne is a long interval (logical 1 symbol).
	SymbolOne

	// SymbolSync is a gap longer than any data symbol. It marks preamble
	// and frame boundaries.
	SymbolSync
)

// String returns the symbol name.
func (s Symbol) String() string {
	switch s {
	case SymbolZero:
		return "zero"
	case SymbolOne:
		return "one"
	case SymbolSync:
		return "sync"
	default:
		return "noise"
	}
}

// Classify maps an interval in microseconds to a symbol.
//
// The bands are inclusive at the top:
//
//	interval <= zeroUS          → SymbolZero
//	zeroUS < interval <= oneUS  → SymbolOne
//	interval > oneUS            → SymbolSync
func Classify(interval, zeroUS, oneUS uint32) Symbol {
	switch {
	case interval > oneUS:
		return SymbolSync
	case interval > zeroUS:
		return SymbolOne
	default:
		return SymbolZero
	}
}

// Thresholds holds the classification bands for one protocol.
type Thresholds struct {
	// ZeroUS is the upper bound (inclusive) of a zero symbol.
	ZeroUS uint32

	// OneUS is the upper bound (inclusive) of a one symbol.
	OneUS uint32

	// SyncUS is the lower bound (exclusive) of a sync gap.
	// Zero means OneUS. Intervals in (OneUS, SyncUS] are noise.
	SyncUS uint32

	// NoiseFloorUS rejects glitches: intervals below it are noise.
	// Zero disables the floor.
	NoiseFloorUS uint32
}

// Classify maps an interval to a symbol using these thresholds.
// With SyncUS and NoiseFloorUS unset this is exactly Classify.
func (t Thresholds) Classify(interval uint32) Symbol {
	if t.NoiseFloorUS > 0 && interval < t.NoiseFloorUS {
		return SymbolNoise
	}
	sync := t.SyncUS
	if sync < t.OneUS {
		sync = t.OneUS
	}
	if interval > sync {
		return SymbolSync
	}
	if interval > t.OneUS {
		return SymbolNoise
	}
	return Classify(interval, t.ZeroUS, t.OneUS)
}
