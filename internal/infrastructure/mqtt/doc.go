// Package mqtt connects the RF433 bridge to the Gray Logic message bus.
//
// The client wraps paho.mqtt.golang and adds:
//   - auto-reconnect with subscriptions restored after every reconnect
//   - a Last Will on the bridge health topic so the hub sees an offline bridge
//   - handler panic recovery and optional logging
//
// # Topics
//
// All topics follow graylogic/{category}/rf433/{...}:
//
//	graylogic/state/rf433/{address}      retained latest state
//	graylogic/event/rf433/{address}      every accepted frame
//	graylogic/health/rf433               retained health, also LWT
//	graylogic/discovery/rf433            first sight of a transmitter
//	graylogic/request/rf433/{id}         stats and transmitter queries
//	graylogic/response/rf433/{id}        answers to those queries
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Will{
//	    Topic:   mqtt.Topics{}.BridgeHealth(mqtt.Protocol),
//	    Payload: lwt,
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.BridgeState(mqtt.Protocol, "switch-3-A")
//	err = client.Publish(topic, payload, 1, true)
//
// Broker-backed tests live behind the integration build tag:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...
package mqtt
