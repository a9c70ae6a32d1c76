package rf433

import (
	"fmt"

	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// Transmitter kinds, stored in rf433_transmitters.kind.
const (
	KindSwitch = "switch"
	KindSensor = "sensor"
)

// Address returns the bridge address of the transmitter that sent f.
//
//	switch-{system id}-{button}   e.g. switch-3-A
//	sensor-{device id}-ch{n}      e.g. sensor-abcde-ch1
func Address(f rf433.Frame) string {
	if f.Variant == rf433.VariantSensor {
		r := f.Sensor.Reading()
		return fmt.Sprintf("sensor-%05x-ch%d", r.DeviceID, r.Channel)
	}
	return fmt.Sprintf("switch-%d-%c", f.Switch.SystemID(), f.Switch.Device())
}

// Kind returns KindSwitch or KindSensor for f.
func Kind(f rf433.Frame) string {
	if f.Variant == rf433.VariantSensor {
		return KindSensor
	}
	return KindSwitch
}
