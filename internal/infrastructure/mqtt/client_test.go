package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-rf433-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     30,
		},
	}
}

// unconnected returns a client that never dialled a broker.
func unconnected() *Client {
	return &Client{subscriptions: make(map[string]subscription)}
}

type recordingLogger struct {
	errors atomic.Int32
	warns  atomic.Int32
}

func (l *recordingLogger) Error(string, ...any) { l.errors.Add(1) }
func (l *recordingLogger) Warn(string, ...any)  { l.warns.Add(1) }

func TestTopicBuilders(t *testing.T) {
	tp := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"state", tp.BridgeState(Protocol, "switch-3-A"), "graylogic/state/rf433/switch-3-A"},
		{"event", tp.BridgeEvent(Protocol, "sensor-abcde-1"), "graylogic/event/rf433/sensor-abcde-1"},
		{"request", tp.BridgeRequest(Protocol, "r1"), "graylogic/request/rf433/r1"},
		{"response", tp.BridgeResponse(Protocol, "r1"), "graylogic/response/rf433/r1"},
		{"health", tp.BridgeHealth(Protocol), "graylogic/health/rf433"},
		{"discovery", tp.BridgeDiscovery(Protocol), "graylogic/discovery/rf433"},
		{"requests wildcard", tp.BridgeRequests(Protocol), "graylogic/request/rf433/+"},
		{"states wildcard", tp.BridgeStates(Protocol), "graylogic/state/rf433/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q", got)
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL(tls) = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if opts.ClientID != "graylogic-rf433-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("credentials not applied: %q/%q", opts.Username, opts.Password)
	}
	if !opts.CleanSession || !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("expected clean session with auto reconnect and connect retry")
	}
	if opts.MaxReconnectInterval != 30*time.Second {
		t.Errorf("MaxReconnectInterval = %v", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS 1.2 minimum not configured")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].Scheme != "ssl" {
		t.Errorf("Servers = %v", opts.Servers)
	}
}

func TestBuildClientOptionsAnonymous(t *testing.T) {
	opts := buildClientOptions(testConfig())
	if opts.Username != "" {
		t.Errorf("Username = %q, want empty", opts.Username)
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion == tlsMinVersion {
		t.Error("TLS configured without broker.tls")
	}
}

func TestValidatePublish(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"ok", "graylogic/state/rf433/x", []byte("{}"), 1, nil},
		{"nil payload", "graylogic/state/rf433/x", nil, 0, nil},
		{"empty topic", "", []byte("{}"), 1, ErrInvalidTopic},
		{"bad qos", "t", []byte("{}"), 3, ErrInvalidQoS},
		{"oversized", "t", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePublish(tt.topic, tt.payload, tt.qos)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnconnectedClient(t *testing.T) {
	c := unconnected()

	if c.IsConnected() {
		t.Fatal("IsConnected() = true for unconnected client")
	}
	if err := c.Publish("graylogic/state/rf433/x", []byte("{}"), 1, true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	handler := func(string, []byte) error { return nil }
	if err := c.Subscribe("t", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.Unsubscribe("t"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on never-connected client = %v", err)
	}
	if c.SubscriptionCount() != 0 || c.HasSubscription("t") {
		t.Error("failed subscribe left a tracked subscription")
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := unconnected()
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("t", 5, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe empty topic error = %v", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := unconnected().HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	c := unconnected()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)
	c.dispatch(func(string, []byte) error { return nil }, "t", nil)

	if got := logger.errors.Load(); got != 1 {
		t.Errorf("panic logs = %d, want 1", got)
	}
	if got := logger.warns.Load(); got != 1 {
		t.Errorf("handler error logs = %d, want 1", got)
	}
}

func TestDispatchWithoutLogger(t *testing.T) {
	c := unconnected()
	var called bool
	c.dispatch(func(topic string, payload []byte) error {
		called = topic == "graylogic/request/rf433/r1" && strings.Contains(string(payload), "stats")
		panic("no logger set")
	}, "graylogic/request/rf433/r1", []byte(`{"action":"stats"}`))

	if !called {
		t.Error("handler not invoked with topic and payload")
	}
}

func TestCallbacks(t *testing.T) {
	c := unconnected()
	var connects, disconnects atomic.Int32
	c.SetOnConnect(func() { connects.Add(1) })
	c.SetOnDisconnect(func(error) { disconnects.Add(1) })
	c.SetLogger(&recordingLogger{})

	c.handleDisconnect(errors.New("link down"))
	if c.IsConnected() {
		t.Error("connected after handleDisconnect")
	}
	if disconnects.Load() != 1 {
		t.Errorf("disconnect callbacks = %d", disconnects.Load())
	}

	// No subscriptions tracked, so restore never touches the nil paho client.
	c.handleConnect()
	if connects.Load() != 1 {
		t.Errorf("connect callbacks = %d", connects.Load())
	}
}
