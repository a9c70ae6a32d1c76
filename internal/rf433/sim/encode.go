package sim

import "github.com/nerrad567/gray-logic-rf433/internal/rf433"

// Timing is the pulse widths a simulated transmitter uses.
type Timing struct {
	ShortUS uint32 // zero symbol
	LongUS  uint32 // one symbol
	SyncUS  uint32 // preamble and frame gap
}

// Timings that fall inside the default protocol thresholds.
var (
	SwitchTiming = Timing{ShortUS: 350, LongUS: 1050, SyncUS: 9000}
	SensorTiming = Timing{ShortUS: 250, LongUS: 500, SyncUS: 1000}
)

// SensorPreamble is the sync count sent before each sensor word. It
// exceeds the default preamble minimum.
const SensorPreamble = 8

// SwitchSymbols returns the 48 raw symbols of a switch command: each data
// bit becomes 1100 (one) or 1010 (zero), first transmitted bit first.
func SwitchSymbols(cmd rf433.SwitchCommand) []byte {
	out := make([]byte, 0, 48)
	for i := 11; i >= 0; i-- {
		if cmd.Bits&(1<<uint(i)) != 0 {
			out = append(out, 1, 1, 0, 0)
		} else {
			out = append(out, 1, 0, 1, 0)
		}
	}
	return out
}

// SensorSymbols returns the 128 raw symbols of a sensor word: each bit
// from 63 down becomes the pair (1,0) for one or (0,1) for zero.
func SensorSymbols(w rf433.SensorWord) []byte {
	out := make([]byte, 0, 128)
	for shift := 63; shift >= 0; shift-- {
		if uint64(w)&(1<<uint(shift)) != 0 {
			out = append(out, 1, 0)
		} else {
			out = append(out, 0, 1)
		}
	}
	return out
}

// Intervals maps raw symbols to pulse widths.
func Intervals(symbols []byte, t Timing) []uint32 {
	out := make([]uint32, len(symbols))
	for i, s := range symbols {
		if s != 0 {
			out[i] = t.LongUS
		} else {
			out[i] = t.ShortUS
		}
	}
	return out
}

// Syncs returns n sync gaps.
func Syncs(n int, t Timing) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = t.SyncUS
	}
	return out
}

// SwitchIntervals encodes a switch command sent repeats times. Each
// repeat is framed by sync gaps, as the remote does.
func SwitchIntervals(cmd rf433.SwitchCommand, t Timing, repeats int) []uint32 {
	if repeats < 1 {
		repeats = 1
	}
	data := Intervals(SwitchSymbols(cmd), t)

	out := []uint32{t.SyncUS}
	for range repeats {
		out = append(out, data...)
		out = append(out, t.SyncUS)
	}
	return out
}

// SensorIntervals encodes sensor words in order. Each word gets its own
// preamble of the given length and the stream ends with a closing sync.
func SensorIntervals(t Timing, preamble int, words ...rf433.SensorWord) []uint32 {
	var out []uint32
	for _, w := range words {
		out = append(out, Syncs(preamble, t)...)
		out = append(out, Intervals(SensorSymbols(w), t)...)
	}
	if len(words) > 0 {
		out = append(out, t.SyncUS)
	}
	return out
}
