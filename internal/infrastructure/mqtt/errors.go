package mqtt

import "errors"

// Errors returned by Client. Failures from paho are wrapped in the
// matching sentinel, so callers test with errors.Is.
var (
	// ErrNotConnected: the broker link is down (never connected, closed,
	// or paho is reconnecting).
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed: Connect could not reach the broker in time.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed: no PUBACK in time, or the payload is over 1 MiB.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS: QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic: empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
