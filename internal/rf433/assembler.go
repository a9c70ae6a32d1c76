package rf433

import "sync/atomic"

// State is the Assembler's framing state.
type State uint8

const (
	// StateIdle waits for the first sync symbol.
	StateIdle State = iota

	// StateCountingPreamble counts consecutive sync symbols.
	StateCountingPreamble

	// StateCapturingBits writes data symbols into the raw buffer.
	StateCapturingBits
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCountingPreamble:
		return "counting_preamble"
	case StateCapturingBits:
		return "capturing_bits"
	default:
		return "idle"
	}
}

// Assembler turns a stream of intervals into full raw symbol buffers.
//
// It is not safe for concurrent use; the receive worker owns it.
type Assembler struct {
	thresholds  Thresholds
	preambleMin int

	buf      []byte
	pos      int
	preamble int
	state    State

	// Diagnostics, readable from other goroutines.
	desyncs   atomic.Uint64
	truncated atomic.Uint64
}

// NewAssembler creates an assembler with a raw buffer of rawLength symbols.
// A negative preambleMin is treated as zero.
func NewAssembler(t Thresholds, preambleMin, rawLength int) *Assembler {
	preambleMin = max(preambleMin, 0)
	return &Assembler{
		thresholds:  t,
		preambleMin: preambleMin,
		buf:         make([]byte, rawLength),
	}
}

// Feed processes one interval.
//
// When a sync symbol closes a buffer that reached the raw length, Feed
// returns that buffer and true. The returned slice aliases the internal
// buffer and is only valid until the next call to Feed.
func (a *Assembler) Feed(interval uint32) ([]byte, bool) {
	sym := a.thresholds.Classify(interval)

	switch sym {
	case SymbolSync:
		return a.onSync()
	case SymbolZero, SymbolOne:
		a.onData(sym)
	default:
		a.desync()
	}
	return nil, false
}

func (a *Assembler) onSync() ([]byte, bool) {
	var (
		frame []byte
		ready bool
	)

	switch {
	case a.pos >= len(a.buf):
		frame, ready = a.buf, true
		a.pos = 0
		a.preamble = 0
	case a.pos > 0:
		a.truncated.Add(1)
		a.pos = 0
		a.preamble = 0
	}

	// The gap that closes one frame also opens the next preamble.
	a.preamble++
	a.state = StateCountingPreamble
	return frame, ready
}

func (a *Assembler) onData(sym Symbol) {
	if a.preamble <= a.preambleMin || a.pos >= len(a.buf) {
		a.desync()
		return
	}

	if sym == SymbolOne {
		a.buf[a.pos] = 1
	} else {
		a.buf[a.pos] = 0
	}
	a.pos++
	a.state = StateCapturingBits
}

func (a *Assembler) desync() {
	if a.state != StateIdle {
		a.desyncs.Add(1)
	}
	a.pos = 0
	a.preamble = 0
	a.state = StateIdle
}

// Reset returns the assembler to Idle and discards any partial capture.
func (a *Assembler) Reset() {
	a.pos = 0
	a.preamble = 0
	a.state = StateIdle
}

// State returns the current framing state.
func (a *Assembler) State() State {
	return a.state
}

// Position returns the number of symbols captured in the current frame.
func (a *Assembler) Position() int {
	return a.pos
}

// Preamble returns the current preamble count.
func (a *Assembler) Preamble() int {
	return a.preamble
}

// Capacity returns the raw buffer capacity.
func (a *Assembler) Capacity() int {
	return len(a.buf)
}

// Desyncs returns how often a capture was abandoned on a bad symbol.
func (a *Assembler) Desyncs() uint64 {
	return a.desyncs.Load()
}

// Truncated returns how often a sync closed an incomplete capture.
func (a *Assembler) Truncated() uint64 {
	return a.truncated.Load()
}
