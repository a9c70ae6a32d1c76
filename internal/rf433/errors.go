package rf433

import "errors"

// Domain errors for the rf433 package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInit is returned when the receive pin cannot be configured.
	ErrInit = errors.New("rf433: pin initialisation failed")

	// ErrInvalidConfig is returned when receiver settings are inconsistent.
	ErrInvalidConfig = errors.New("rf433: invalid configuration")

	// ErrEncoding is returned when a raw buffer contains a symbol group
	// that does not map to a logical bit (bad nibble, equal pair).
	ErrEncoding = errors.New("rf433: ambiguous encoding")

	// ErrValidation is returned when a decoded frame has an invalid field
	// (unknown device code, sensor type 0).
	ErrValidation = errors.New("rf433: frame validation failed")

	// ErrDuplicate is returned when a frame repeats the previous one and
	// is suppressed.
	ErrDuplicate = errors.New("rf433: duplicate frame suppressed")

	// ErrShutdown is returned by Read when the receiver is stopped or closed.
	ErrShutdown = errors.New("rf433: receiver shut down")

	// ErrAlreadyReceiving is returned by StartReceiving on a running device.
	ErrAlreadyReceiving = errors.New("rf433: already receiving")

	// ErrNotReceiving is returned by StopReceiving on a stopped device.
	ErrNotReceiving = errors.New("rf433: not receiving")

	// ErrClosed is returned when operating on a closed device.
	ErrClosed = errors.New("rf433: device closed")
)
