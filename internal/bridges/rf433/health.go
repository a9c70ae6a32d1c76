package rf433

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

const defaultHealthInterval = 30 * time.Second

// HealthReporter periodically publishes bridge health to MQTT and, when
// a stats writer is set, the receiver counters to InfluxDB.
type HealthReporter struct {
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	receiver  ReceiverStatus
	stats     StatsWriter

	transmitters   int
	transmittersMu sync.RWMutex

	// stopOnce prevents double-close panics.
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthPublisher is the subset of the MQTT client the reporter needs.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// ReceiverStatus exposes the receiver's counters. *rf433.Device satisfies it.
type ReceiverStatus interface {
	Stats() rf433.Stats
	IsReceiving() bool
}

// StatsWriter records receiver counters as time series.
type StatsWriter interface {
	WriteReceiverStats(s rf433.Stats, ts time.Time)
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	Version string

	// Interval is how often to publish. Default: 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher
	Receiver  ReceiverStatus

	// Stats is optional.
	Stats StatsWriter
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		receiver:  cfg.Receiver,
		stats:     cfg.Stats,
		done:      make(chan struct{}),
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "bridge stopping")
	})
}

// SetTransmitterCount updates the number of known transmitters.
func (h *HealthReporter) SetTransmitterCount(n int) {
	h.transmittersMu.Lock()
	h.transmitters = n
	h.transmittersMu.Unlock()
}

// TransmitterCount returns the last value set by SetTransmitterCount.
func (h *HealthReporter) TransmitterCount() int {
	h.transmittersMu.RLock()
	defer h.transmittersMu.RUnlock()
	return h.transmitters
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// Status returns the current status and reason without publishing.
func (h *HealthReporter) Status() (HealthStatus, string) {
	return h.determineStatus()
}

// LWTTopic returns the topic for the Last Will and Testament.
func (h *HealthReporter) LWTTopic() string {
	return mqtt.Topics{}.BridgeHealth(Protocol)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *HealthReporter) tick() {
	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish health", err)
	}
	if h.stats != nil && h.receiver != nil {
		h.stats.WriteReceiverStats(h.receiver.Stats(), time.Now())
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.receiver == nil || !h.receiver.IsReceiving() {
		return HealthDegraded, "receiver not running"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	var stats *rf433.Stats
	if h.receiver != nil {
		s := h.receiver.Stats()
		stats = &s
	}

	msg := NewHealthMessage(h.version, status, stats, h.TransmitterCount(), h.startTime)
	msg.Reason = reason

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.LWTTopic(), payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
