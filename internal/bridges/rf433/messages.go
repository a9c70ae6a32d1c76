package rf433

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// Protocol is the protocol identifier carried in every message.
const Protocol = "rf433"

// StateMessage is the latest state of one transmitter.
// Topic: graylogic/state/rf433/{address}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// MessageID is a random UUID, unique per publish.
	MessageID string `json:"message_id"`

	Timestamp time.Time `json:"timestamp"`
	Protocol  string    `json:"protocol"`
	Address   string    `json:"address"`
	Kind      string    `json:"kind"`

	// State depends on Kind:
	//   switch: {"on": true, "system_id": 3, "button": "A", "pattern": "..."}
	//   sensor: {"temperature_c": 21.2, "humidity_pct": 45, "wind_kph": 4.5, ...}
	State map[string]any `json:"state"`
}

// EventMessage reports one remote button press, including repeats of an
// unchanged state.
// Topic: graylogic/event/rf433/{address}
// QoS: 1, Retained: No
type EventMessage struct {
	MessageID string         `json:"message_id"`
	Timestamp time.Time      `json:"timestamp"`
	Protocol  string         `json:"protocol"`
	Address   string         `json:"address"`
	Event     string         `json:"event"`
	State     map[string]any `json:"state"`
}

// Event names.
const (
	EventSwitchOn  = "switch_on"
	EventSwitchOff = "switch_off"
)

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline" // from LWT
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/rf433
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	// Receiver holds the decoder counters; absent in the LWT.
	Receiver *rf433.Stats `json:"receiver,omitempty"`

	// Transmitters is the number of distinct addresses seen.
	Transmitters int `json:"transmitters"`

	Reason string `json:"reason,omitempty"`
}

// RequestMessage asks the bridge for diagnostics.
// Topic: graylogic/request/rf433/{request_id}
type RequestMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Action is one of "stats", "read_state", "list_transmitters".
	Action string `json:"action"`

	// Address selects the transmitter for read_state.
	Address string `json:"address,omitempty"`
}

// Request actions.
const (
	ActionStats            = "stats"
	ActionReadState        = "read_state"
	ActionListTransmitters = "list_transmitters"
)

// ResponseMessage answers a RequestMessage.
// Topic: graylogic/response/rf433/{request_id}
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for failed requests.
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeUnknownAction  = "UNKNOWN_ACTION"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeBridgeError    = "BRIDGE_ERROR"
)

// DiscoveryMessage announces a transmitter heard for the first time.
// Topic: graylogic/discovery/rf433
type DiscoveryMessage struct {
	Timestamp time.Time          `json:"timestamp"`
	Bridge    string             `json:"bridge"`
	Devices   []DiscoveredDevice `json:"devices"`
}

// DiscoveredDevice describes one transmitter in a DiscoveryMessage.
type DiscoveredDevice struct {
	Protocol      string   `json:"protocol"`
	Address       string   `json:"address"`
	Type          string   `json:"type"`
	Capabilities  []string `json:"capabilities"`
	SuggestedName string   `json:"suggested_name,omitempty"`
}

// FrameState converts a frame into the state map carried by state and
// event messages.
func FrameState(f rf433.Frame) map[string]any {
	if f.Variant == rf433.VariantSensor {
		r := f.Sensor.Reading()
		state := map[string]any{
			"device_id":   fmt.Sprintf("%05x", r.DeviceID),
			"channel":     r.Channel,
			"battery_low": r.BatteryLow,
		}
		if r.HasTemperature {
			state["temperature_c"] = r.TemperatureC
			state["humidity_pct"] = r.Humidity
		}
		if r.HasWind {
			state["wind_kph"] = r.WindKPH
		}
		return state
	}

	return map[string]any{
		"on":        f.Switch.On(),
		"system_id": f.Switch.SystemID(),
		"button":    string(f.Switch.Device()),
		"pattern":   f.Switch.Pattern(),
	}
}

// NewStateMessage builds the state message for a frame.
func NewStateMessage(f rf433.Frame) StateMessage {
	return StateMessage{
		MessageID: uuid.NewString(),
		Timestamp: frameTime(f),
		Protocol:  Protocol,
		Address:   Address(f),
		Kind:      Kind(f),
		State:     FrameState(f),
	}
}

// NewEventMessage builds the event message for a switch frame.
func NewEventMessage(f rf433.Frame) EventMessage {
	event := EventSwitchOff
	if f.Switch.On() {
		event = EventSwitchOn
	}
	return EventMessage{
		MessageID: uuid.NewString(),
		Timestamp: frameTime(f),
		Protocol:  Protocol,
		Address:   Address(f),
		Event:     event,
		State:     FrameState(f),
	}
}

// NewDiscoveryMessage announces one newly seen transmitter.
func NewDiscoveryMessage(f rf433.Frame) DiscoveryMessage {
	dev := DiscoveredDevice{
		Protocol: Protocol,
		Address:  Address(f),
	}
	if f.Variant == rf433.VariantSensor {
		r := f.Sensor.Reading()
		dev.Type = "weather_sensor"
		if r.HasTemperature {
			dev.Capabilities = append(dev.Capabilities, "temperature", "humidity")
		}
		if r.HasWind {
			dev.Capabilities = append(dev.Capabilities, "wind_speed")
		}
		dev.Capabilities = append(dev.Capabilities, "battery")
		dev.SuggestedName = fmt.Sprintf("Sensor %05x channel %d", r.DeviceID, r.Channel)
	} else {
		dev.Type = "remote_switch"
		dev.Capabilities = []string{"on_off"}
		dev.SuggestedName = fmt.Sprintf("Remote %d button %c", f.Switch.SystemID(), f.Switch.Device())
	}

	return DiscoveryMessage{
		Timestamp: time.Now().UTC(),
		Bridge:    Protocol,
		Devices:   []DiscoveredDevice{dev},
	}
}

// NewHealthMessage builds a health message. stats may be nil.
func NewHealthMessage(version string, status HealthStatus, stats *rf433.Stats, transmitters int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        Protocol,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Receiver:      stats,
		Transmitters:  transmitters,
	}
}

// NewLWTMessage is the health message the broker publishes if the bridge
// disconnects unexpectedly.
func NewLWTMessage() HealthMessage {
	return HealthMessage{
		Bridge:    Protocol,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// LWTPayload marshals NewLWTMessage.
func LWTPayload() ([]byte, error) {
	return json.Marshal(NewLWTMessage())
}

// errorResponse builds a failed ResponseMessage.
func errorResponse(requestID, code, format string, args ...any) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Error: &ResponseError{
			Code:    code,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

func frameTime(f rf433.Frame) time.Time {
	if f.Received.IsZero() {
		return time.Now().UTC()
	}
	return f.Received.UTC()
}
