package rf433

import (
	"bytes"
	"testing"
)

func TestAssemblerSwitchFrame(t *testing.T) {
	a := NewAssembler(switchThresholds(), 0, switchRawLength)
	raw := switchRaw(t, "000000111101")

	var in []uint32
	in = append(in, testGap)
	in = append(in, toIntervals(raw, testShort, testLong)...)
	in = append(in, testGap)

	frames := feedAll(a, in)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], raw) {
		t.Errorf("frame = %v, want %v", frames[0], raw)
	}
	if a.State() != StateCountingPreamble {
		t.Errorf("state after frame = %s, want counting_preamble", a.State())
	}
	if a.Position() != 0 {
		t.Errorf("position after frame = %d, want 0", a.Position())
	}
}

func TestAssemblerRepeatedFrames(t *testing.T) {
	a := NewAssembler(switchThresholds(), 0, switchRawLength)
	data := toIntervals(switchRaw(t, "000000111101"), testShort, testLong)

	in := []uint32{testGap}
	for range 3 {
		in = append(in, data...)
		in = append(in, testGap)
	}

	if got := len(feedAll(a, in)); got != 3 {
		t.Fatalf("got %d frames, want 3", got)
	}
	if a.Desyncs() != 0 {
		t.Errorf("desyncs = %d, want 0", a.Desyncs())
	}
}

func TestAssemblerPreambleMinimum(t *testing.T) {
	raw := sensorRaw(tempWord)
	data := toIntervals(raw, sensorShort, sensorLong)

	tests := []struct {
		name    string
		syncs   int
		frames  int
		desyncs uint64
	}{
		{"preamble at minimum", 6, 0, 1},
		{"preamble one above minimum", 7, 1, 0},
		{"long preamble", 12, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler(sensorThresholds(), SensorProtocol.PreambleMin, sensorRawLength)
			in := append(repeat(sensorGap, tt.syncs), data...)
			in = append(in, sensorGap)

			frames := feedAll(a, in)
			if len(frames) != tt.frames {
				t.Fatalf("got %d frames, want %d", len(frames), tt.frames)
			}
			if tt.frames == 1 && !bytes.Equal(frames[0], raw) {
				t.Errorf("frame does not match transmitted symbols")
			}
			if a.Desyncs() != tt.desyncs {
				t.Errorf("desyncs = %d, want %d", a.Desyncs(), tt.desyncs)
			}
		})
	}
}

func TestAssemblerDataWhileIdle(t *testing.T) {
	a := NewAssembler(switchThresholds(), 0, switchRawLength)

	for _, iv := range []uint32{testShort, testLong, testShort} {
		if _, ok := a.Feed(iv); ok {
			t.Fatal("frame emitted without sync")
		}
	}
	if a.State() != StateIdle {
		t.Errorf("state = %s, want idle", a.State())
	}
	if a.Desyncs() != 0 {
		t.Errorf("desyncs while idle = %d, want 0", a.Desyncs())
	}
}

func TestAssemblerOverflow(t *testing.T) {
	a := NewAssembler(switchThresholds(), 0, switchRawLength)

	in := []uint32{testGap}
	in = append(in, repeat(testShort, switchRawLength+1)...)
	in = append(in, testGap)

	if frames := feedAll(a, in); len(frames) != 0 {
		t.Fatalf("got %d frames from an overlong burst, want 0", len(frames))
	}
	if a.Desyncs() != 1 {
		t.Errorf("desyncs = %d, want 1", a.Desyncs())
	}
	if a.Position() != 0 {
		t.Errorf("position = %d, want 0", a.Position())
	}
}

func TestAssemblerTruncated(t *testing.T) {
	a := NewAssembler(switchThresholds(), 0, switchRawLength)

	in := []uint32{testGap}
	in = append(in, repeat(testLong, 10)...)
	in = append(in, testGap)

	if frames := feedAll(a, in); len(frames) != 0 {
		t.Fatalf("got %d frames from a short burst, want 0", len(frames))
	}
	if a.Truncated() != 1 {
		t.Errorf("truncated = %d, want 1", a.Truncated())
	}
	if a.State() != StateCountingPreamble || a.Preamble() != 1 {
		t.Errorf("state = %s preamble = %d, want counting_preamble 1", a.State(), a.Preamble())
	}

	// The closing gap of the short burst opens the next frame.
	data := toIntervals(switchRaw(t, "000000111101"), testShort, testLong)
	in = append(append([]uint32(nil), data...), testGap)
	if got := len(feedAll(a, in)); got != 1 {
		t.Errorf("got %d frames after truncation, want 1", got)
	}
}

func TestAssemblerNoiseDesync(t *testing.T) {
	th := switchThresholds()
	th.NoiseFloorUS = 100
	a := NewAssembler(th, 0, switchRawLength)

	data := toIntervals(switchRaw(t, "000000111101"), testShort, testLong)
	in := []uint32{testGap}
	in = append(in, data[:20]...)
	in = append(in, 40)
	in = append(in, data[20:]...)
	in = append(in, testGap)

	if frames := feedAll(a, in); len(frames) != 0 {
		t.Fatalf("got %d frames across a glitch, want 0", len(frames))
	}
	if a.Desyncs() == 0 {
		t.Error("glitch did not desync")
	}
}

func TestAssemblerReset(t *testing.T) {
	a := NewAssembler(switchThresholds(), 0, switchRawLength)
	a.Feed(testGap)
	a.Feed(testLong)

	a.Reset()
	if a.State() != StateIdle || a.Position() != 0 || a.Preamble() != 0 {
		t.Errorf("after Reset: state=%s pos=%d preamble=%d", a.State(), a.Position(), a.Preamble())
	}
	if a.Capacity() != switchRawLength {
		t.Errorf("capacity = %d, want %d", a.Capacity(), switchRawLength)
	}
}
