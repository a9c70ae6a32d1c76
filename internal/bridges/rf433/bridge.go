package rf433

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

const (
	// sinkTimeout bounds the recorder and register writes for one frame.
	sinkTimeout = 2 * time.Second

	// frameBacklog is how many read frames may wait for the sinks.
	frameBacklog = 64
)

// Logger is the structured logger used by the bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// FrameSource delivers validated frames. *rf433.Device satisfies it.
type FrameSource interface {
	Read(ctx context.Context, out []rf433.Frame, n int) (int, error)
	ReceiverStatus
}

// MQTTClient is the interface for MQTT operations.
// *mqtt.Client satisfies it; tests use a mock.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// MetricsWriter writes decoded frames as time series.
type MetricsWriter interface {
	WriteSensorReading(address string, r rf433.SensorReading, ts time.Time)
	WriteSwitchEvent(address string, cmd rf433.SwitchCommand, ts time.Time)
	StatsWriter
}

// TransmitterRecorder keeps the registry of heard transmitters.
type TransmitterRecorder interface {
	Record(ctx context.Context, msg StateMessage) (bool, error)
	List(ctx context.Context) ([]Transmitter, error)
	Count(ctx context.Context) (int, error)
}

// RegisterWriter mirrors frames into an external register map.
type RegisterWriter interface {
	WriteFrame(ctx context.Context, address string, f rf433.Frame) error
}

// FrameObserver is told about every accepted frame, e.g. to push it to
// websocket clients. It must not block.
type FrameObserver interface {
	ObserveFrame(msg StateMessage)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Source and MQTT are required.
	Source FrameSource
	MQTT   MQTTClient

	Version        string
	HealthInterval time.Duration
	Logger         Logger

	// Optional sinks. A nil sink is skipped.
	Metrics   MetricsWriter
	Recorder  TransmitterRecorder
	Registers RegisterWriter
	Observer  FrameObserver
}

// Bridge reads frames from the receiver and publishes them to the
// Gray Logic message bus. It handles:
//   - retained state per transmitter, published only on change
//   - an event for every switch frame, including repeats
//   - discovery announcements on first sight
//   - stats/state requests over MQTT
//   - health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	source    FrameSource
	mqtt      MQTTClient
	health    *HealthReporter
	metrics   MetricsWriter
	recorder  TransmitterRecorder
	registers RegisterWriter
	observer  FrameObserver

	// Last published state per address, for change detection and
	// read_state requests.
	states   map[string]StateMessage
	statesMu sync.RWMutex

	frames        atomic.Uint64
	publishErrors atomic.Uint64
	sinkErrors    atomic.Uint64

	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start, then Run.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: frame source", ErrMissingDependency)
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("%w: MQTT client", ErrMissingDependency)
	}

	b := &Bridge{
		source:    opts.Source,
		mqtt:      opts.MQTT,
		metrics:   opts.Metrics,
		recorder:  opts.Recorder,
		registers: opts.Registers,
		observer:  opts.Observer,
		states:    make(map[string]StateMessage),
		logger:    opts.Logger,
	}

	hc := HealthReporterConfig{
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTT,
		Receiver:  opts.Source,
	}
	if opts.Metrics != nil {
		hc.Stats = opts.Metrics
	}
	b.health = NewHealthReporter(hc)
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start publishes the starting status, subscribes to requests and starts
// health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	if b.recorder != nil {
		if n, err := b.recorder.Count(ctx); err != nil {
			b.logError("failed to count transmitters", err)
		} else {
			b.health.SetTransmitterCount(n)
		}
	}

	requestTopic := mqtt.Topics{}.BridgeRequests(Protocol)
	if err := b.mqtt.Subscribe(requestTopic, 1, b.handleRequest); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logInfo("subscribed to requests", "topic", requestTopic)

	b.health.Start(ctx)

	b.logInfo("bridge started", "transmitters", b.health.TransmitterCount())
	return nil
}

// Run reads frames until ctx ends. It returns nil on cancellation and
// ErrReceiverStopped if the receiver shuts down underneath it.
//
// A dedicated goroutine calls Read back to back and queues frames for
// the sinks, so the receiver always has a listener while MQTT, the
// recorder or the register writer are slow. The reader only blocks once
// frameBacklog frames are waiting.
func (b *Bridge) Run(ctx context.Context) error {
	frames := make(chan rf433.Frame, frameBacklog)
	errc := make(chan error, 1)
	go func() {
		defer close(frames)
		errc <- b.readFrames(ctx, frames)
	}()

	for f := range frames {
		if ctx.Err() != nil {
			continue
		}
		b.handleFrame(ctx, f)
	}
	return <-errc
}

// readFrames feeds out until ctx ends or the source fails.
func (b *Bridge) readFrames(ctx context.Context, out chan<- rf433.Frame) error {
	buf := make([]rf433.Frame, 1)
	for {
		n, err := b.source.Read(ctx, buf, 1)
		if n == 1 {
			select {
			case out <- buf[0]:
			case <-ctx.Done():
				return nil
			}
		}
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, rf433.ErrShutdown):
			return ErrReceiverStopped
		default:
			return fmt.Errorf("reading frames: %w", err)
		}
	}
}

// Stop ends health reporting and publishes the stopping status.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

// handleFrame fans one frame out to MQTT and the sinks.
func (b *Bridge) handleFrame(ctx context.Context, f rf433.Frame) {
	b.frames.Add(1)
	msg := NewStateMessage(f)

	if b.storeState(msg) {
		b.publishJSON(mqtt.Topics{}.BridgeState(Protocol, msg.Address), msg, true)
	} else {
		b.logDebug("state unchanged", "address", msg.Address)
	}

	if f.Variant == rf433.VariantSwitch {
		b.publishJSON(mqtt.Topics{}.BridgeEvent(Protocol, msg.Address), NewEventMessage(f), false)
	}

	if b.metrics != nil {
		if f.Variant == rf433.VariantSensor {
			b.metrics.WriteSensorReading(msg.Address, f.Sensor.Reading(), msg.Timestamp)
		} else {
			b.metrics.WriteSwitchEvent(msg.Address, f.Switch, msg.Timestamp)
		}
	}

	sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	if b.recordSighting(sinkCtx, msg) {
		b.publishJSON(mqtt.Topics{}.BridgeDiscovery(Protocol), NewDiscoveryMessage(f), false)
		b.logInfo("new transmitter", "address", msg.Address, "kind", msg.Kind)
	}

	if b.registers != nil {
		if err := b.registers.WriteFrame(sinkCtx, msg.Address, f); err != nil {
			b.sinkErrors.Add(1)
			b.logError("register write failed", fmt.Errorf("address=%s: %w", msg.Address, err))
		}
	}

	if b.observer != nil {
		b.observer.ObserveFrame(msg)
	}
}

// storeState caches msg and reports whether its state differs from the
// previous one for the same address.
func (b *Bridge) storeState(msg StateMessage) bool {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()

	prev, ok := b.states[msg.Address]
	b.states[msg.Address] = msg
	return !ok || !maps.Equal(prev.State, msg.State)
}

// recordSighting updates the transmitter registry and reports whether
// the address is new. Without a recorder the state cache decides.
func (b *Bridge) recordSighting(ctx context.Context, msg StateMessage) bool {
	if b.recorder == nil {
		b.statesMu.RLock()
		n := len(b.states)
		b.statesMu.RUnlock()
		isNew := n > b.health.TransmitterCount()
		b.health.SetTransmitterCount(n)
		return isNew
	}

	isNew, err := b.recorder.Record(ctx, msg)
	if err != nil {
		b.sinkErrors.Add(1)
		b.logError("failed to record transmitter", err)
		return false
	}
	if isNew {
		b.health.SetTransmitterCount(b.health.TransmitterCount() + 1)
	}
	return isNew
}

func (b *Bridge) publishJSON(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.publishErrors.Add(1)
		b.logError("failed to marshal message", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, 1, retained); err != nil {
		b.publishErrors.Add(1)
		b.logError("failed to publish", fmt.Errorf("topic=%s: %w", topic, err))
	}
}

// handleRequest answers a diagnostics request.
func (b *Bridge) handleRequest(_ string, payload []byte) error {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	if req.RequestID == "" {
		return fmt.Errorf("parse request: missing request_id")
	}

	b.logInfo("received request", "request_id", req.RequestID, "action", req.Action)

	var resp ResponseMessage
	switch req.Action {
	case ActionStats:
		resp = b.handleStats(req)
	case ActionReadState:
		resp = b.handleReadState(req)
	case ActionListTransmitters:
		resp = b.handleListTransmitters(req)
	default:
		resp = errorResponse(req.RequestID, ErrCodeUnknownAction, "unknown action: %s", req.Action)
	}

	b.publishJSON(mqtt.Topics{}.BridgeResponse(Protocol, req.RequestID), resp, false)
	return nil
}

func (b *Bridge) handleStats(req RequestMessage) ResponseMessage {
	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data: map[string]any{
			"receiver": b.source.Stats(),
			"bridge":   b.Metrics(),
		},
	}
}

func (b *Bridge) handleReadState(req RequestMessage) ResponseMessage {
	if req.Address == "" {
		return errorResponse(req.RequestID, ErrCodeInvalidRequest, "address is required")
	}
	msg, ok := b.LastState(req.Address)
	if !ok {
		return errorResponse(req.RequestID, ErrCodeNotFound, "no state for %s", req.Address)
	}
	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data: map[string]any{
			"address":   msg.Address,
			"kind":      msg.Kind,
			"timestamp": msg.Timestamp,
			"state":     msg.State,
		},
	}
}

func (b *Bridge) handleListTransmitters(req RequestMessage) ResponseMessage {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	list, err := b.Transmitters(ctx)
	if err != nil {
		return errorResponse(req.RequestID, ErrCodeBridgeError, "listing transmitters: %v", err)
	}
	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data: map[string]any{
			"transmitters": list,
		},
	}
}

// LastState returns the last state seen for an address.
func (b *Bridge) LastState(address string) (StateMessage, bool) {
	b.statesMu.RLock()
	defer b.statesMu.RUnlock()
	msg, ok := b.states[address]
	return msg, ok
}

// Transmitters lists known transmitters. With a recorder the persisted
// registry is returned; otherwise the in-memory states since start.
func (b *Bridge) Transmitters(ctx context.Context) ([]Transmitter, error) {
	if b.recorder != nil {
		return b.recorder.List(ctx)
	}

	b.statesMu.RLock()
	out := make([]Transmitter, 0, len(b.states))
	for _, msg := range b.states {
		low, _ := msg.State["battery_low"].(bool)
		out = append(out, Transmitter{
			Address:    msg.Address,
			Kind:       msg.Kind,
			LastSeen:   msg.Timestamp,
			BatteryLow: low,
			LastState:  msg.State,
		})
	}
	b.statesMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// SetLogger sets the logger for the bridge and its health reporter.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// BridgeMetrics contains bridge-side counters for the API.
type BridgeMetrics struct {
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	MQTTConnected bool         `json:"mqtt_connected"`
	Frames        uint64       `json:"frames"`
	PublishErrors uint64       `json:"publish_errors"`
	SinkErrors    uint64       `json:"sink_errors"`
	Transmitters  int          `json:"transmitters"`
}

// Metrics returns current bridge counters.
func (b *Bridge) Metrics() BridgeMetrics {
	status, reason := b.health.Status()
	return BridgeMetrics{
		Status:        status,
		Reason:        reason,
		MQTTConnected: b.mqtt.IsConnected(),
		Frames:        b.frames.Load(),
		PublishErrors: b.publishErrors.Load(),
		SinkErrors:    b.sinkErrors.Load(),
		Transmitters:  b.health.TransmitterCount(),
	}
}
