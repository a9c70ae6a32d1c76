package rf433

import "errors"

// Domain errors for the RF433 bridge package.
var (
	// ErrMissingDependency is returned by NewBridge when a required
	// collaborator (frame source, MQTT client) is nil.
	ErrMissingDependency = errors.New("rf433 bridge: missing dependency")

	// ErrReceiverStopped is returned by Run when the receiver shuts down
	// while the bridge context is still live.
	ErrReceiverStopped = errors.New("rf433 bridge: receiver stopped")

	// ErrRecorderClosed is returned by Recorder methods after Stop.
	ErrRecorderClosed = errors.New("rf433 bridge: recorder closed")
)
