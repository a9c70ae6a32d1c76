package mqtt

import "fmt"

// Topic namespace. Every topic the bridge touches hangs off
// graylogic/{category}/{protocol}.
const (
	// TopicPrefix is the root of all Gray Logic topics.
	TopicPrefix = "graylogic"

	// Protocol is the bridge segment used by the 433 MHz receiver.
	Protocol = "rf433"
)

// Topics provides builders for the bridge's MQTT topics.
//
//	topic := mqtt.Topics{}.BridgeState(mqtt.Protocol, "sensor-abcde-1")
type Topics struct{}

// BridgeState is the retained latest state of one transmitter.
// Example: graylogic/state/rf433/switch-3-A
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, protocol, address)
}

// BridgeEvent carries every accepted frame, including repeats of an
// unchanged state. Not retained.
// Example: graylogic/event/rf433/switch-3-A
func (Topics) BridgeEvent(protocol, address string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, protocol, address)
}

// BridgeRequest returns the topic a client publishes a request on.
// Example: graylogic/request/rf433/8c1f...
func (Topics) BridgeRequest(protocol, requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefix, protocol, requestID)
}

// BridgeResponse returns the topic the bridge answers a request on.
func (Topics) BridgeResponse(protocol, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, protocol, requestID)
}

// BridgeHealth is the retained bridge health topic, also used for LWT.
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocol)
}

// BridgeDiscovery announces transmitters seen for the first time.
func (Topics) BridgeDiscovery(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefix, protocol)
}

// BridgeRequests matches every request addressed to one bridge.
func (Topics) BridgeRequests(protocol string) string {
	return fmt.Sprintf("%s/request/%s/+", TopicPrefix, protocol)
}

// BridgeStates matches the state of every transmitter on one bridge.
func (Topics) BridgeStates(protocol string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, protocol)
}
