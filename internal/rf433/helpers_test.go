package rf433

import (
	"sync/atomic"
	"testing"
	"time"
)

const (
	testShort uint32 = 350
	testLong  uint32 = 1050
	testGap   uint32 = 9000

	sensorShort uint32 = 250
	sensorLong  uint32 = 500
	sensorGap   uint32 = 1000
)

type fakeClock struct {
	now atomic.Uint32
}

func (c *fakeClock) NowMicros() uint32 { return c.now.Load() }

func (c *fakeClock) advance(us uint32) { c.now.Add(us) }

// switchRaw builds the 48 raw symbols of a 12-bit pattern like "000000111101".
func switchRaw(t *testing.T, pattern string) []byte {
	t.Helper()
	if len(pattern) != switchDataBits {
		t.Fatalf("pattern %q has %d bits", pattern, len(pattern))
	}
	raw := make([]byte, 0, switchRawLength)
	for _, c := range pattern {
		if c == '1' {
			raw = append(raw, 1, 1, 0, 0)
		} else {
			raw = append(raw, 1, 0, 1, 0)
		}
	}
	return raw
}

func sensorRaw(w SensorWord) []byte {
	raw := make([]byte, 0, sensorRawLength)
	for shift := 63; shift >= 0; shift-- {
		if uint64(w)&(1<<uint(shift)) != 0 {
			raw = append(raw, 1, 0)
		} else {
			raw = append(raw, 0, 1)
		}
	}
	return raw
}

func toIntervals(raw []byte, short, long uint32) []uint32 {
	out := make([]uint32, len(raw))
	for i, s := range raw {
		if s == 1 {
			out[i] = long
		} else {
			out[i] = short
		}
	}
	return out
}

func repeat(v uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// feedAll feeds intervals and collects a copy of every emitted buffer.
func feedAll(a *Assembler, intervals []uint32) [][]byte {
	var frames [][]byte
	for _, iv := range intervals {
		if raw, ok := a.Feed(iv); ok {
			frames = append(frames, append([]byte(nil), raw...))
		}
	}
	return frames
}

func switchThresholds() Thresholds {
	return Thresholds{ZeroUS: SwitchProtocol.ZeroUS, OneUS: SwitchProtocol.OneUS}
}

func sensorThresholds() Thresholds {
	return Thresholds{ZeroUS: SensorProtocol.ZeroUS, OneUS: SensorProtocol.OneUS}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

var (
	tempWord = EncodeSensorFields(0xABCDE, 1, false, SensorTypeTemperature, 735, 45, 0x5A)
	windWord = EncodeSensorFields(0xABCDE, 1, false, SensorTypeWind, 123, 0, 0x11)
)
