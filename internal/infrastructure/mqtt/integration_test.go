//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

// Integration tests need a broker at 127.0.0.1:1883.
//
//	go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("graylogic-rf433-int-track"), Will{})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topic := Topics{}.BridgeRequests(Protocol)
	if err := client.Subscribe(topic, 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topic) || client.SubscriptionCount() != 1 {
		t.Fatal("subscription not tracked")
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Error("subscription still tracked after Unsubscribe")
	}
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	pub, err := Connect(integrationConfig("graylogic-rf433-int-pub"), Will{})
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	sub, err := Connect(integrationConfig("graylogic-rf433-int-sub"), Will{})
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	topic := Topics{}.BridgeEvent(Protocol, "switch-3-A")
	received := make(chan string, 1)
	var once sync.Once

	err = sub.Subscribe(topic, 1, func(_ string, p []byte) error {
		once.Do(func() { received <- string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	want := `{"on":true}`
	if err := pub.Publish(topic, []byte(want), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != want {
			t.Errorf("received %q, want %q", msg, want)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}

func TestIntegration_RetainedHealth(t *testing.T) {
	will := Will{Topic: Topics{}.BridgeHealth(Protocol), Payload: []byte(`{"status":"offline"}`)}
	client, err := Connect(integrationConfig("graylogic-rf433-int-health"), will)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.PublishRetained(will.Topic, []byte(`{"status":"healthy"}`)); err != nil {
		t.Fatalf("PublishRetained() error = %v", err)
	}
}
