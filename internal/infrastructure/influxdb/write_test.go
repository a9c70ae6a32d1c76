package influxdb

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

func tagsOf(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func fieldsOf(p *write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestSensorPoint(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := rf433.SensorReading{
		DeviceID:       0xabcde,
		Channel:        1,
		BatteryLow:     true,
		HasTemperature: true,
		TemperatureC:   23.5,
		Humidity:       45,
	}

	p := sensorPoint("sensor-abcde-1", r, ts)

	if p.Name() != MeasurementSensor {
		t.Errorf("Name() = %q", p.Name())
	}
	if !p.Time().Equal(ts) {
		t.Errorf("Time() = %v, want %v", p.Time(), ts)
	}
	tags := tagsOf(p)
	if tags["address"] != "sensor-abcde-1" || tags["device_id"] != "abcde" || tags["channel"] != "1" {
		t.Errorf("tags = %v", tags)
	}
	fields := fieldsOf(p)
	if fields["temperature_c"] != 23.5 {
		t.Errorf("temperature_c = %v", fields["temperature_c"])
	}
	if fields["humidity_pct"] != int64(45) {
		t.Errorf("humidity_pct = %v", fields["humidity_pct"])
	}
	if fields["battery_low"] != true {
		t.Errorf("battery_low = %v", fields["battery_low"])
	}
	if _, ok := fields["wind_kph"]; ok {
		t.Error("wind_kph written for a pair without a wind word")
	}
}

func TestSensorPointWindOnly(t *testing.T) {
	p := sensorPoint("sensor-00001-0", rf433.SensorReading{DeviceID: 1, HasWind: true, WindKPH: 12.3}, time.Now())

	fields := fieldsOf(p)
	if fields["wind_kph"] != 12.3 {
		t.Errorf("wind_kph = %v", fields["wind_kph"])
	}
	if _, ok := fields["temperature_c"]; ok {
		t.Error("temperature_c written for a pair without a temperature word")
	}
}

func TestSwitchPoint(t *testing.T) {
	// system 00000, device A (01111), on (01)
	cmd := rf433.SwitchCommand{Bits: 0b00000_01111_01}

	p := switchPoint("switch-0-A", cmd, time.Now())

	if p.Name() != MeasurementSwitch {
		t.Errorf("Name() = %q", p.Name())
	}
	tags := tagsOf(p)
	if tags["button"] != "A" || tags["system_id"] != "0" {
		t.Errorf("tags = %v", tags)
	}
	fields := fieldsOf(p)
	if fields["on"] != true {
		t.Errorf("on = %v", fields["on"])
	}
	if fields["pattern"] != "000000111101" {
		t.Errorf("pattern = %v", fields["pattern"])
	}
}

func TestReceiverPoint(t *testing.T) {
	s := rf433.Stats{
		Pin:            "GPIO17",
		Protocol:       "sensor",
		Receiving:      true,
		Edges:          1000,
		Frames:         7,
		EncodingErrors: 2,
		Delivery:       rf433.DeliveryStats{Delivered: 5, NoListener: 2},
	}

	p := receiverPoint(s, time.Now())

	tags := tagsOf(p)
	if tags["pin"] != "GPIO17" || tags["protocol"] != "sensor" {
		t.Errorf("tags = %v", tags)
	}
	fields := fieldsOf(p)
	want := map[string]interface{}{
		"receiving":       true,
		"edges":           int64(1000),
		"frames":          int64(7),
		"encoding_errors": int64(2),
		"delivered":       int64(5),
		"no_listener":     int64(2),
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s = %v, want %v", k, fields[k], v)
		}
	}
}

func TestWritesWhenDisconnected(t *testing.T) {
	// writeAPI is nil: any write past the IsConnected guard would panic.
	c := &Client{}
	c.WriteSensorReading("sensor-00001-0", rf433.SensorReading{}, time.Now())
	c.WriteSwitchEvent("switch-0-A", rf433.SwitchCommand{}, time.Now())
	c.WriteReceiverStats(rf433.Stats{}, time.Now())
	c.Flush()
}

func TestClientOptionsDefaults(t *testing.T) {
	opts := clientOptions(testBatchConfig(0, -1))
	if opts.BatchSize() != defaultBatchSize {
		t.Errorf("BatchSize() = %d, want %d", opts.BatchSize(), defaultBatchSize)
	}
	if opts.FlushInterval() != defaultFlushInterval*millisecondsPerSecond {
		t.Errorf("FlushInterval() = %d", opts.FlushInterval())
	}

	opts = clientOptions(testBatchConfig(500, 2))
	if opts.BatchSize() != 500 || opts.FlushInterval() != 2000 {
		t.Errorf("BatchSize/FlushInterval = %d/%d", opts.BatchSize(), opts.FlushInterval())
	}
}
