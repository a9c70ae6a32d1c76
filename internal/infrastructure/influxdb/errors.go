package influxdb

import "errors"

// Errors returned by the telemetry client. Writes are batched and never
// return an error directly; failures reach the SetOnError callback
// wrapped in ErrWriteFailed.
var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// The bridge treats it as "no metrics sink".
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned when the server cannot be pinged or
	// reports itself unhealthy at startup.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps an asynchronous batch write error.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
