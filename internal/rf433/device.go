package rf433

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Pin is the GPIO collaborator that delivers edges of the receive line.
type Pin interface {
	// Watch configures both-edge detection and registers fn as the edge
	// callback. Edges are not delivered until Enable.
	Watch(fn func()) error

	// Enable arms edge delivery.
	Enable() error

	// Disable disarms edge delivery. fn is not called after it returns.
	Disable() error

	// Release quiesces the pin (drives it as a low output) on shutdown.
	Release() error
}

// Logger is the optional logging interface.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// IntervalTap observes every interval the worker dequeues, before framing.
type IntervalTap func(interval uint32, sym Symbol)

// Option customises a Device.
type Option func(*Device)

// WithLogger sets the device logger.
func WithLogger(l Logger) Option {
	return func(d *Device) { d.logger = l }
}

// WithClock replaces the monotonic clock (tests, simulation).
func WithClock(c Clock) Option {
	return func(d *Device) { d.clock = c }
}

// WithProbe sets a function toggled on every edge, e.g. a debug output pin.
func WithProbe(fn func()) Option {
	return func(d *Device) { d.probe = fn }
}

// WithIntervalTap registers a raw interval observer (sniffer mode).
func WithIntervalTap(tap IntervalTap) Option {
	return func(d *Device) { d.tap = tap }
}

// Device is one receiver: a pin, its edge capture, a decode worker and a
// delivery channel.
//
// Lifecycle:
//
//	dev, err := Init(cfg, pin)
//	dev.StartReceiving()
//	dev.Read(ctx, frames, n)
//	dev.StopReceiving()
//	dev.Close()
//
// Thread Safety: all exported methods are safe for concurrent use.
type Device struct {
	cfg        Config
	thresholds Thresholds
	pin        Pin
	clock      Clock
	probe      func()
	tap        IntervalTap
	logger     Logger

	capture   *EdgeCapture
	assembler *Assembler
	validator *Validator
	delivery  *Delivery

	mu         sync.Mutex
	receiving  bool
	closed     bool
	stop       chan struct{}
	workerDone chan struct{}

	startedAt atomic.Int64
	asmState  atomic.Uint32

	frames           atomic.Uint64
	encodingErrors   atomic.Uint64
	validationErrors atomic.Uint64
	duplicates       atomic.Uint64
	discarded        atomic.Uint64
}

// Init validates the configuration and registers the edge callback on
// the pin. The pin stays disarmed until StartReceiving.
//
// Returns ErrInvalidConfig for bad settings and ErrInit when the pin
// cannot be configured; no state is retained on error.
func Init(cfg Config, pin Pin, opts ...Option) (*Device, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pin == nil {
		return nil, fmt.Errorf("%w: no pin", ErrInit)
	}

	d := &Device{
		cfg:        cfg,
		thresholds: cfg.Thresholds(),
		pin:        pin,
		delivery:   NewDelivery(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = NewMonotonicClock()
	}

	d.capture = NewEdgeCapture(d.clock, d.probe)
	d.assembler = NewAssembler(d.thresholds, cfg.PreambleMin, cfg.RawLength)
	d.validator = NewValidator(cfg.Variant, cfg.DedupWindow)

	if err := pin.Watch(d.capture.OnEdge); err != nil {
		return nil, fmt.Errorf("%w: pin %s: %w", ErrInit, cfg.Pin, err)
	}

	return d, nil
}

// StartReceiving spawns the decode worker and arms the pin.
func (d *Device) StartReceiving() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.receiving {
		return ErrAlreadyReceiving
	}

	queue := make(chan uint32, d.cfg.QueueSize)
	d.stop = make(chan struct{})
	d.workerDone = make(chan struct{})
	d.assembler.Reset()
	d.validator.Reset()
	d.delivery.Reopen()
	d.capture.Attach(queue)

	go d.run(queue, d.stop, d.workerDone)

	if err := d.pin.Enable(); err != nil {
		d.capture.Detach()
		close(d.stop)
		<-d.workerDone
		d.delivery.Shutdown()
		return fmt.Errorf("%w: enable pin %s: %w", ErrInit, d.cfg.Pin, err)
	}

	d.receiving = true
	d.startedAt.Store(time.Now().UnixNano())
	d.logInfo("receiver started",
		"pin", d.cfg.Pin,
		"protocol", d.cfg.Variant.String(),
		"raw_length", d.cfg.RawLength)
	return nil
}

// StopReceiving disarms the pin, stops the worker and wakes blocked
// readers with ErrShutdown. Intervals still queued are discarded.
func (d *Device) StopReceiving() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.receiving {
		return ErrNotReceiving
	}
	return d.stopLocked()
}

func (d *Device) stopLocked() error {
	disableErr := d.pin.Disable()
	d.capture.Detach()
	close(d.stop)
	<-d.workerDone
	d.delivery.Shutdown()
	d.receiving = false
	d.startedAt.Store(0)

	d.logInfo("receiver stopped", "pin", d.cfg.Pin)
	if disableErr != nil {
		return fmt.Errorf("rf433: disable pin %s: %w", d.cfg.Pin, disableErr)
	}
	return nil
}

// Close stops receiving if needed and releases the pin.
// Safe to call multiple times.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	var errs []error
	if d.receiving {
		errs = append(errs, d.stopLocked())
	}
	d.delivery.Shutdown()
	if err := d.pin.Release(); err != nil {
		errs = append(errs, fmt.Errorf("rf433: release pin %s: %w", d.cfg.Pin, err))
	}
	d.closed = true
	return errors.Join(errs...)
}

// Read blocks until n frames are received into out.
//
// Only one reader is served at a time; a concurrent call waits for the
// active one to return. On StopReceiving or Close it returns the frames
// gathered so far with ErrShutdown.
func (d *Device) Read(ctx context.Context, out []Frame, n int) (int, error) {
	return d.delivery.Read(ctx, out, n)
}

// run is the decode worker. It exits on stop without processing
// intervals still in the queue.
func (d *Device) run(queue <-chan uint32, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			d.discarded.Add(uint64(len(queue)))
			return
		default:
		}

		select {
		case <-stop:
			d.discarded.Add(uint64(len(queue)))
			return
		case interval := <-queue:
			d.process(interval)
		}
	}
}

// process runs one interval through the assembler and validator.
func (d *Device) process(interval uint32) {
	if d.tap != nil {
		d.tap(interval, d.thresholds.Classify(interval))
	}

	raw, full := d.assembler.Feed(interval)
	d.asmState.Store(uint32(d.assembler.State()))
	if !full {
		return
	}

	frame, ok, err := d.validator.Validate(raw)
	switch {
	case err == nil:
	case errors.Is(err, ErrEncoding):
		d.encodingErrors.Add(1)
		d.logDebug("frame discarded", "reason", err)
		return
	case errors.Is(err, ErrValidation):
		d.validationErrors.Add(1)
		d.logDebug("frame rejected", "reason", err)
		return
	case errors.Is(err, ErrDuplicate):
		d.duplicates.Add(1)
		return
	default:
		d.logWarn("unexpected validation error", "error", err)
		return
	}
	if !ok {
		return
	}

	d.frames.Add(1)
	d.delivery.Push(frame)
}

// Stats is a snapshot of receiver counters.
type Stats struct {
	Pin              string        `json:"pin"`
	Protocol         string        `json:"protocol"`
	Receiving        bool          `json:"receiving"`
	UptimeSeconds    int64         `json:"uptime_seconds"`
	State            string        `json:"state"`
	Edges            uint64        `json:"edges"`
	IntervalsDropped uint64        `json:"intervals_dropped"`
	Discarded        uint64        `json:"intervals_discarded"`
	Frames           uint64        `json:"frames"`
	EncodingErrors   uint64        `json:"encoding_errors"`
	ValidationErrors uint64        `json:"validation_errors"`
	Duplicates       uint64        `json:"duplicates"`
	Desyncs          uint64        `json:"desyncs"`
	Truncated        uint64        `json:"truncated"`
	Delivery         DeliveryStats `json:"delivery"`
}

// Stats returns current counters.
func (d *Device) Stats() Stats {
	s := Stats{
		Pin:              d.cfg.Pin,
		Protocol:         d.cfg.Variant.String(),
		State:            State(d.asmState.Load()).String(),
		Edges:            d.capture.Edges(),
		IntervalsDropped: d.capture.Dropped(),
		Discarded:        d.discarded.Load(),
		Frames:           d.frames.Load(),
		EncodingErrors:   d.encodingErrors.Load(),
		ValidationErrors: d.validationErrors.Load(),
		Duplicates:       d.duplicates.Load(),
		Desyncs:          d.assembler.Desyncs(),
		Truncated:        d.assembler.Truncated(),
		Delivery:         d.delivery.Stats(),
	}
	if started := d.startedAt.Load(); started != 0 {
		s.Receiving = true
		s.UptimeSeconds = int64(time.Since(time.Unix(0, started)).Seconds())
	}
	return s
}

// IsReceiving reports whether the worker is running.
func (d *Device) IsReceiving() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receiving
}

// Config returns the effective configuration with defaults applied.
func (d *Device) Config() Config {
	return d.cfg
}

func (d *Device) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Device) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Device) logDebug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
