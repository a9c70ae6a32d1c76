package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// Measurement names written by the bridge.
const (
	MeasurementSensor   = "rf433_sensor"
	MeasurementSwitch   = "rf433_switch"
	MeasurementReceiver = "rf433_receiver"
)

// WriteSensorReading records one paired weather sensor reading.
// Temperature, humidity and wind fields are only present when the pair
// carried the matching word type.
//
//	client.WriteSensorReading("sensor-abcde-1", pair.Reading(), frame.Received)
func (c *Client) WriteSensorReading(address string, r rf433.SensorReading, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sensorPoint(address, r, ts))
}

// WriteSwitchEvent records one remote switch command.
func (c *Client) WriteSwitchEvent(address string, cmd rf433.SwitchCommand, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(switchPoint(address, cmd, ts))
}

// WriteReceiverStats records the decoder counters. Called on the health
// interval so error rates can be graphed over time.
func (c *Client) WriteReceiverStats(s rf433.Stats, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(receiverPoint(s, ts))
}

func sensorPoint(address string, r rf433.SensorReading, ts time.Time) *write.Point {
	fields := map[string]interface{}{
		"battery_low": r.BatteryLow,
	}
	if r.HasTemperature {
		fields["temperature_c"] = r.TemperatureC
		fields["humidity_pct"] = int64(r.Humidity)
	}
	if r.HasWind {
		fields["wind_kph"] = r.WindKPH
	}

	return write.NewPoint(
		MeasurementSensor,
		map[string]string{
			"address":   address,
			"device_id": fmt.Sprintf("%05x", r.DeviceID),
			"channel":   fmt.Sprintf("%d", r.Channel),
		},
		fields,
		ts,
	)
}

func switchPoint(address string, cmd rf433.SwitchCommand, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementSwitch,
		map[string]string{
			"address":   address,
			"system_id": fmt.Sprintf("%d", cmd.SystemID()),
			"button":    string(cmd.Device()),
		},
		map[string]interface{}{
			"on":      cmd.On(),
			"pattern": cmd.Pattern(),
		},
		ts,
	)
}

func receiverPoint(s rf433.Stats, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementReceiver,
		map[string]string{
			"pin":      s.Pin,
			"protocol": s.Protocol,
		},
		map[string]interface{}{
			"receiving":         s.Receiving,
			"edges":             int64(s.Edges),
			"intervals_dropped": int64(s.IntervalsDropped),
			"frames":            int64(s.Frames),
			"encoding_errors":   int64(s.EncodingErrors),
			"validation_errors": int64(s.ValidationErrors),
			"duplicates":        int64(s.Duplicates),
			"desyncs":           int64(s.Desyncs),
			"truncated":         int64(s.Truncated),
			"delivered":         int64(s.Delivery.Delivered),
			"no_listener":       int64(s.Delivery.NoListener),
			"slot_busy":         int64(s.Delivery.SlotBusy),
		},
		ts,
	)
}
