package rf433

import (
	"fmt"
	"time"
)

// Frame is a validated decode result handed to the consumer.
//
// For VariantSwitch only Switch is set; for VariantSensor only Sensor.
type Frame struct {
	Variant  Variant
	Switch   SwitchCommand
	Sensor   SensorPair
	Received time.Time
}

// sameContent reports whether two frames carry the same payload,
// ignoring the receive time.
func (f Frame) sameContent(o Frame) bool {
	return f.Variant == o.Variant && f.Switch == o.Switch && f.Sensor == o.Sensor
}

// Validator converts full raw buffers into frames and applies the
// pairing and dedup policy.
//
// Sensor pairing keeps two slots. A new word goes to slot A when both
// are empty; to slot B when B is empty and the word completes A (same
// device id, other type), which emits the (A, B) pair; and when both
// slots are filled and it differs from B it starts a new pair in slot A.
// A word from another device, or of the same type as A, replaces A. A
// word equal to the last one stored is suppressed.
//
// It is not safe for concurrent use; the receive worker owns it.
type Validator struct {
	variant     Variant
	dedupWindow time.Duration
	now         func() time.Time

	slotA, slotB SensorWord

	last     Frame
	haveLast bool
}

// NewValidator creates a validator for a variant.
// A zero dedupWindow disables repeat suppression of emitted frames.
func NewValidator(v Variant, dedupWindow time.Duration) *Validator {
	return &Validator{
		variant:     v,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

// Validate decodes one raw buffer.
//
// Returns:
//   - Frame, true, nil: a frame to deliver
//   - zero, false, nil: accepted but nothing to emit yet (first half of a pair)
//   - zero, false, err: rejected; err wraps ErrEncoding, ErrValidation or ErrDuplicate
func (v *Validator) Validate(raw []byte) (Frame, bool, error) {
	var (
		f     Frame
		ready bool
		err   error
	)

	switch v.variant {
	case VariantSwitch:
		f, ready, err = v.validateSwitch(raw)
	case VariantSensor:
		f, ready, err = v.validateSensor(raw)
	default:
		return Frame{}, false, fmt.Errorf("%w: unsupported variant %s", ErrValidation, v.variant)
	}
	if err != nil || !ready {
		return Frame{}, false, err
	}

	if v.suppressRepeat(f) {
		return Frame{}, false, fmt.Errorf("%w: repeat within %s", ErrDuplicate, v.dedupWindow)
	}
	return f, true, nil
}

func (v *Validator) validateSwitch(raw []byte) (Frame, bool, error) {
	cmd, err := DecodeSwitch(raw)
	if err != nil {
		return Frame{}, false, err
	}
	return Frame{Variant: VariantSwitch, Switch: cmd, Received: v.now()}, true, nil
}

func (v *Validator) validateSensor(raw []byte) (Frame, bool, error) {
	w, err := DecodeSensor(raw)
	if err != nil {
		return Frame{}, false, err
	}

	switch {
	case v.slotA == 0 && v.slotB == 0:
		v.slotA = w
		return Frame{}, false, nil

	case v.slotB == 0:
		if w == v.slotA {
			return Frame{}, false, fmt.Errorf("%w: sensor word %s", ErrDuplicate, w)
		}
		if !completesPair(v.slotA, w) {
			v.slotA = w
			return Frame{}, false, nil
		}
		v.slotB = w
		return Frame{
			Variant:  VariantSensor,
			Sensor:   SensorPair{First: v.slotA, Second: v.slotB},
			Received: v.now(),
		}, true, nil

	default:
		if w == v.slotB {
			return Frame{}, false, fmt.Errorf("%w: sensor word %s", ErrDuplicate, w)
		}
		v.slotA = w
		v.slotB = 0
		return Frame{}, false, nil
	}
}

// completesPair reports whether b is the partner of a: the same
// transmitter, the other half of its reading.
func completesPair(a, b SensorWord) bool {
	return a.DeviceID() == b.DeviceID() && a.Type() != b.Type()
}

// suppressRepeat records f as the last emitted frame and reports whether
// it repeats the previous one inside the dedup window.
func (v *Validator) suppressRepeat(f Frame) bool {
	if v.dedupWindow <= 0 {
		return false
	}
	repeat := v.haveLast && f.sameContent(v.last) && f.Received.Sub(v.last.Received) < v.dedupWindow
	v.last = f
	v.haveLast = true
	return repeat
}

// Reset clears the pairing slots and the dedup cache.
func (v *Validator) Reset() {
	v.slotA, v.slotB = 0, 0
	v.last = Frame{}
	v.haveLast = false
}

// Slots returns the current pairing slots (zero means empty).
func (v *Validator) Slots() (a, b SensorWord) {
	return v.slotA, v.slotB
}
