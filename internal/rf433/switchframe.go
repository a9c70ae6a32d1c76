package rf433

import (
	"fmt"
	"strings"
)

// Switch frame layout, in transmission order:
//
//	bit  0..4   system id (DIP switches on the remote)
//	bit  5..9   device code (one zero per button A..E)
//	bit 10..11  on/off (01 = on, 10 = off)
//
// Each data bit is sent as a nibble of four raw symbols.
const (
	switchDataBits  = 12
	switchRawLength = switchDataBits * 4

	switchNibbleOne  = 0b1100
	switchNibbleZero = 0b1010
)

// Device codes of buttons A..E, in transmission order.
const (
	SwitchDeviceA uint8 = 0b01111
	SwitchDeviceB uint8 = 0b10111
	SwitchDeviceC uint8 = 0b11011
	SwitchDeviceD uint8 = 0b11101
	SwitchDeviceE uint8 = 0b11110
)

// SwitchCommand is a decoded remote switch frame.
//
// Bits holds the 12 data bits with the first transmitted bit in bit 11.
type SwitchCommand struct {
	Bits uint16
}

// SystemID returns the 5-bit system id.
func (c SwitchCommand) SystemID() uint8 {
	return uint8(c.Bits>>7) & 0x1f
}

// DeviceCode returns the raw 5-bit device code.
func (c SwitchCommand) DeviceCode() uint8 {
	return uint8(c.Bits>>2) & 0x1f
}

// OnOff returns the raw 2-bit on/off field.
func (c SwitchCommand) OnOff() uint8 {
	return uint8(c.Bits) & 0x3
}

// On reports whether the command switches the device on.
func (c SwitchCommand) On() bool {
	return c.OnOff()&0b10 == 0
}

// Device returns the button letter A..E, or 0 for an unknown code.
func (c SwitchCommand) Device() byte {
	switch c.DeviceCode() {
	case SwitchDeviceA:
		return 'A'
	case SwitchDeviceB:
		return 'B'
	case SwitchDeviceC:
		return 'C'
	case SwitchDeviceD:
		return 'D'
	case SwitchDeviceE:
		return 'E'
	default:
		return 0
	}
}

// Pattern returns the 12 data bits as a string in transmission order.
func (c SwitchCommand) Pattern() string {
	var b strings.Builder
	b.Grow(switchDataBits)
	for i := switchDataBits - 1; i >= 0; i-- {
		if c.Bits&(1<<uint(i)) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// String formats the command like "3:A=ON".
func (c SwitchCommand) String() string {
	state := "OFF"
	if c.On() {
		state = "ON"
	}
	dev := c.Device()
	if dev == 0 {
		dev = '?'
	}
	return fmt.Sprintf("%d:%c=%s", c.SystemID(), dev, state)
}

// DecodeSwitch converts 48 raw symbols into a switch command.
//
// Every nibble must be 1100 (logical 1) or 1010 (logical 0); any other
// nibble rejects the whole frame with ErrEncoding. A device code outside
// A..E is rejected with ErrValidation.
func DecodeSwitch(raw []byte) (SwitchCommand, error) {
	if len(raw) != switchRawLength {
		return SwitchCommand{}, fmt.Errorf("%w: switch frame has %d symbols, want %d",
			ErrEncoding, len(raw), switchRawLength)
	}

	var bits uint16
	for i := 0; i < switchDataBits; i++ {
		var nibble uint8
		for _, sym := range raw[i*4 : i*4+4] {
			nibble = nibble<<1 | (sym & 1)
		}

		bits <<= 1
		switch nibble {
		case switchNibbleOne:
			bits |= 1
		case switchNibbleZero:
		default:
			return SwitchCommand{}, fmt.Errorf("%w: nibble %d is %04b", ErrEncoding, i, nibble)
		}
	}

	cmd := SwitchCommand{Bits: bits}
	if cmd.Device() == 0 {
		return SwitchCommand{}, fmt.Errorf("%w: unknown device code %05b", ErrValidation, cmd.DeviceCode())
	}
	return cmd, nil
}
