// Package rf433 bridges the 433 MHz receiver to the Gray Logic message bus.
//
// Every validated frame becomes a retained state message keyed by the
// transmitter address (switch-3-A, sensor-abcde-ch1). Switch frames also
// produce an event per press. New transmitters are announced on the
// discovery topic and, when a Recorder is configured, persisted in
// SQLite. Optional sinks receive the same frames: InfluxDB time series,
// Modbus holding registers and websocket observers.
//
// Topics:
//
//	graylogic/state/rf433/{address}       retained
//	graylogic/event/rf433/{address}
//	graylogic/discovery/rf433
//	graylogic/health/rf433                retained, also the LWT
//	graylogic/request/rf433/{request_id}
//	graylogic/response/rf433/{request_id}
package rf433
