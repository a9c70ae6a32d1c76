package rf433

import "fmt"

// Sensor word layout (bit 0 = least significant). This is the
// over-the-air format of the physical sensors and must not change.
//
//	bits  0..7   checksum
//	bits  8..15  humidity (%), type 1 only
//	bits 16..19  reserved
//	bits 20..31  payload: temperature ×10 +500 (type 1) or wind kph ×10 (type 2)
//	bits 32..33  type (1 = temperature/humidity, 2 = wind)
//	bits 34..35  reserved
//	bits 36..37  channel
//	bit  38      reserved
//	bit  39      battery low
//	bits 40..59  device id (random per battery change)
//	bits 60..63  reserved
const (
	sensorRawLength = 128

	sensorChecksumShift = 0
	sensorHumidityShift = 8
	sensorPayloadShift  = 20
	sensorTypeShift     = 32
	sensorChannelShift  = 36
	sensorBatteryShift  = 39
	sensorDeviceShift   = 40

	sensorTempOffset = 500
	sensorScale      = 10.0
)

// Sensor message types.
const (
	SensorTypeTemperature uint8 = 1
	SensorTypeWind        uint8 = 2
)

// SensorWord is a decoded 64-bit sensor frame.
type SensorWord uint64

func (w SensorWord) field(shift, width uint) uint64 {
	return (uint64(w) >> shift) & (1<<width - 1)
}

// Checksum returns the transmitted checksum byte. It is not verified.
func (w SensorWord) Checksum() uint8 { return uint8(w.field(sensorChecksumShift, 8)) }

// Humidity returns the relative humidity in percent (type 1 only).
func (w SensorWord) Humidity() uint8 { return uint8(w.field(sensorHumidityShift, 8)) }

// Payload returns the raw 12-bit temperature or wind value.
func (w SensorWord) Payload() uint16 { return uint16(w.field(sensorPayloadShift, 12)) }

// Type returns the 2-bit message type.
func (w SensorWord) Type() uint8 { return uint8(w.field(sensorTypeShift, 2)) }

// Channel returns the 2-bit channel.
func (w SensorWord) Channel() uint8 { return uint8(w.field(sensorChannelShift, 2)) }

// BatteryLow reports the low battery flag.
func (w SensorWord) BatteryLow() bool { return w.field(sensorBatteryShift, 1) == 1 }

// DeviceID returns the 20-bit device id.
func (w SensorWord) DeviceID() uint32 { return uint32(w.field(sensorDeviceShift, 20)) }

// TemperatureC returns the temperature in °C. Only meaningful for type 1.
func (w SensorWord) TemperatureC() float64 {
	return (float64(w.Payload()) - sensorTempOffset) / sensorScale
}

// WindKPH returns the wind speed in km/h. Only meaningful for type 2.
func (w SensorWord) WindKPH() float64 {
	return float64(w.Payload()) / sensorScale
}

// String formats the word as 16 hex digits.
func (w SensorWord) String() string {
	return fmt.Sprintf("%016x", uint64(w))
}

// DecodeSensor converts differential symbol pairs into a sensor word.
//
// Pair (1,0) is a logical 1 and (0,1) a logical 0, filled from bit 63
// downwards. An equal pair rejects the frame with ErrEncoding; a word of
// type 0 is rejected with ErrValidation.
func DecodeSensor(raw []byte) (SensorWord, error) {
	if len(raw) == 0 || len(raw)%2 != 0 || len(raw) > sensorRawLength {
		return 0, fmt.Errorf("%w: sensor frame has %d symbols", ErrEncoding, len(raw))
	}

	var word uint64
	shift := 64
	for i := 0; i+1 < len(raw); i += 2 {
		shift--
		v0, v1 := raw[i]&1, raw[i+1]&1
		if v0 == v1 {
			return 0, fmt.Errorf("%w: pair %d is %d%d", ErrEncoding, i/2, v0, v1)
		}
		if v0 == 1 {
			word |= 1 << uint(shift)
		}
	}

	w := SensorWord(word)
	if w.Type() == 0 {
		return 0, fmt.Errorf("%w: sensor type 0 in %s", ErrValidation, w)
	}
	return w, nil
}

// EncodeSensorFields builds a sensor word from its fields. It is the
// inverse of the accessors and is used by tests and the simulator.
func EncodeSensorFields(deviceID uint32, channel uint8, batteryLow bool, typ uint8, payload uint16, humidity, checksum uint8) SensorWord {
	var w uint64
	w |= uint64(checksum) << sensorChecksumShift
	w |= uint64(humidity) << sensorHumidityShift
	w |= uint64(payload&0xfff) << sensorPayloadShift
	w |= uint64(typ&0x3) << sensorTypeShift
	w |= uint64(channel&0x3) << sensorChannelShift
	if batteryLow {
		w |= 1 << sensorBatteryShift
	}
	w |= uint64(deviceID&0xfffff) << sensorDeviceShift
	return SensorWord(w)
}

// SensorPair is a combined reading of two co-transmitted sensor words,
// typically a temperature/humidity word and a wind word.
type SensorPair struct {
	First  SensorWord
	Second SensorWord
}

// SensorReading is the physical view of a SensorPair.
type SensorReading struct {
	DeviceID       uint32
	Channel        uint8
	BatteryLow     bool
	HasTemperature bool
	TemperatureC   float64
	Humidity       uint8
	HasWind        bool
	WindKPH        float64
}

// Reading merges both words into one reading. Identity fields come from
// the first word; the low battery flag is set if either word reports it.
func (p SensorPair) Reading() SensorReading {
	r := SensorReading{
		DeviceID:   p.First.DeviceID(),
		Channel:    p.First.Channel(),
		BatteryLow: p.First.BatteryLow() || p.Second.BatteryLow(),
	}
	for _, w := range [2]SensorWord{p.First, p.Second} {
		switch w.Type() {
		case SensorTypeTemperature:
			r.HasTemperature = true
			r.TemperatureC = w.TemperatureC()
			r.Humidity = w.Humidity()
		case SensorTypeWind:
			r.HasWind = true
			r.WindKPH = w.WindKPH()
		}
	}
	return r
}
