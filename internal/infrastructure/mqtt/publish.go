package mqtt

import "fmt"

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// validatePublish checks publish arguments before touching the connection.
func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}

// Publish sends a message to the specified MQTT topic.
//
// Retained messages are used for state and health topics so new
// subscribers see the latest value; events are not retained.
//
// Example:
//
//	topic := mqtt.Topics{}.BridgeState(mqtt.Protocol, "switch-3-A")
//	err := client.Publish(topic, payload, 1, true)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return wait(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishRetained publishes a retained message with the configured default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
