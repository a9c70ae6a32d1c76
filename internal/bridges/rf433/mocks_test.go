package rf433

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu         sync.Mutex
	published  []mockPublish
	handlers   map[string]mqtt.MessageHandler
	connected  bool
	publishErr error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// OnTopic returns publishes whose topic starts with prefix.
func (m *MockMQTTClient) OnTopic(prefix string) []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockPublish
	for _, p := range m.published {
		if strings.HasPrefix(p.Topic, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// SimulateMessage delivers a message to the handler subscribed on pattern.
func (m *MockMQTTClient) SimulateMessage(pattern, topic string, payload []byte) error {
	m.mu.Lock()
	handler, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		return errors.New("no handler for " + pattern)
	}
	return handler(topic, payload)
}

// fakeSource implements FrameSource over a channel.
type fakeSource struct {
	frames    chan rf433.Frame
	stopped   chan struct{}
	stopOnce  sync.Once
	receiving atomic.Bool
}

func newFakeSource() *fakeSource {
	s := &fakeSource{
		frames:  make(chan rf433.Frame, 16),
		stopped: make(chan struct{}),
	}
	s.receiving.Store(true)
	return s
}

func (s *fakeSource) Read(ctx context.Context, out []rf433.Frame, n int) (int, error) {
	if n <= 0 || len(out) == 0 {
		return 0, nil
	}
	select {
	case f := <-s.frames:
		out[0] = f
		return 1, nil
	case <-s.stopped:
		return 0, rf433.ErrShutdown
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *fakeSource) stop() {
	s.stopOnce.Do(func() {
		s.receiving.Store(false)
		close(s.stopped)
	})
}

func (s *fakeSource) Stats() rf433.Stats {
	return rf433.Stats{Pin: "GPIO17", Protocol: "switch", Receiving: s.receiving.Load(), Frames: 3}
}

func (s *fakeSource) IsReceiving() bool { return s.receiving.Load() }

// fakeMetrics implements MetricsWriter.
type fakeMetrics struct {
	mu       sync.Mutex
	sensors  []rf433.SensorReading
	switches []rf433.SwitchCommand
	stats    int
}

func (f *fakeMetrics) WriteSensorReading(_ string, r rf433.SensorReading, _ time.Time) {
	f.mu.Lock()
	f.sensors = append(f.sensors, r)
	f.mu.Unlock()
}

func (f *fakeMetrics) WriteSwitchEvent(_ string, cmd rf433.SwitchCommand, _ time.Time) {
	f.mu.Lock()
	f.switches = append(f.switches, cmd)
	f.mu.Unlock()
}

func (f *fakeMetrics) WriteReceiverStats(rf433.Stats, time.Time) {
	f.mu.Lock()
	f.stats++
	f.mu.Unlock()
}

func (f *fakeMetrics) statsWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// fakeRegisters implements RegisterWriter.
type fakeRegisters struct {
	mu        sync.Mutex
	addresses []string
	err       error
}

func (f *fakeRegisters) WriteFrame(_ context.Context, address string, _ rf433.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses = append(f.addresses, address)
	return f.err
}

// fakeObserver implements FrameObserver.
type fakeObserver struct {
	mu   sync.Mutex
	seen []StateMessage
}

func (f *fakeObserver) ObserveFrame(msg StateMessage) {
	f.mu.Lock()
	f.seen = append(f.seen, msg)
	f.mu.Unlock()
}

// Test frames. System 3, button A.
var (
	switchOn  = rf433.Frame{Variant: rf433.VariantSwitch, Switch: rf433.SwitchCommand{Bits: 0b00011_01111_01}}
	switchOff = rf433.Frame{Variant: rf433.VariantSwitch, Switch: rf433.SwitchCommand{Bits: 0b00011_01111_10}}

	sensorFrame = rf433.Frame{
		Variant: rf433.VariantSensor,
		Sensor: rf433.SensorPair{
			First:  rf433.EncodeSensorFields(0xABCDE, 1, false, rf433.SensorTypeTemperature, 735, 45, 0x5A),
			Second: rf433.EncodeSensorFields(0xABCDE, 1, false, rf433.SensorTypeWind, 123, 0, 0x11),
		},
	}
)

func newTestBridge(t *testing.T, opts BridgeOptions) (*Bridge, *MockMQTTClient, *fakeSource) {
	t.Helper()
	client := NewMockMQTTClient()
	source := newFakeSource()
	if opts.MQTT == nil {
		opts.MQTT = client
	}
	if opts.Source == nil {
		opts.Source = source
	}
	b, err := NewBridge(opts)
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return b, client, source
}

func decode[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", payload, err)
	}
	return v
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
