// Package influxdb writes RF433 receiver telemetry to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Three measurements
// are written:
//
//	rf433_sensor     temperature, humidity and wind per paired reading
//	rf433_switch     every accepted remote switch command
//	rf433_receiver   decoder counters on the health interval
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Async write errors are delivered to SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteSensorReading(address, pair.Reading(), frame.Received)
package influxdb
