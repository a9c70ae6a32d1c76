package sim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrReleased is returned when a released pin is reconfigured.
var ErrReleased = errors.New("sim: pin released")

// Clock is a manual microsecond clock. It only moves when advanced.
type Clock struct {
	now atomic.Uint32
}

// NewClock returns a clock at zero.
func NewClock() *Clock {
	return &Clock{}
}

// NowMicros implements rf433.Clock.
func (c *Clock) NowMicros() uint32 {
	return c.now.Load()
}

// Advance moves the clock forward, wrapping at 2^32 µs.
func (c *Clock) Advance(us uint32) {
	c.now.Add(us)
}

// Set places the clock at an absolute value.
func (c *Clock) Set(us uint32) {
	c.now.Store(us)
}

// Pin is a simulated receive pin. Injected intervals advance the clock
// and fire the edge callback while the pin is enabled.
//
// Thread Safety: all methods are safe for concurrent use. The callback is
// never invoked after Disable returns.
type Pin struct {
	clock *Clock

	mu       sync.Mutex
	fn       func()
	enabled  bool
	released bool

	// WatchErr and EnableErr, when set, are returned by Watch and Enable.
	WatchErr  error
	EnableErr error

	edges atomic.Uint64
}

// NewPin creates a pin that advances clock on every injected edge.
func NewPin(clock *Clock) *Pin {
	return &Pin{clock: clock}
}

// Watch implements rf433.Pin.
func (p *Pin) Watch(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.WatchErr != nil {
		return p.WatchErr
	}
	if p.released {
		return ErrReleased
	}
	p.fn = fn
	return nil
}

// Enable implements rf433.Pin.
func (p *Pin) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.EnableErr != nil {
		return p.EnableErr
	}
	if p.released {
		return ErrReleased
	}
	p.enabled = true
	return nil
}

// Disable implements rf433.Pin.
func (p *Pin) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	return nil
}

// Release implements rf433.Pin.
func (p *Pin) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	p.released = true
	p.fn = nil
	return nil
}

// Enabled reports whether edges are currently delivered.
func (p *Pin) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Released reports whether Release was called.
func (p *Pin) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Edges returns the number of edges delivered to the callback.
func (p *Pin) Edges() uint64 {
	return p.edges.Load()
}

// Inject produces one edge per interval: the clock advances by the
// interval, then the callback fires if the pin is enabled.
func (p *Pin) Inject(intervals ...uint32) {
	for _, iv := range intervals {
		p.edge(iv)
	}
}

// Play injects intervals in real time, sleeping for each interval before
// its edge. Sleeps shorter than the timer resolution are batched.
func (p *Pin) Play(ctx context.Context, intervals []uint32) error {
	var owed time.Duration
	for _, iv := range intervals {
		owed += time.Duration(iv) * time.Microsecond
		if owed >= time.Millisecond {
			t := time.NewTimer(owed)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			owed = 0
		}
		p.edge(iv)
	}
	return nil
}

func (p *Pin) edge(iv uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clock.Advance(iv)
	if !p.enabled || p.fn == nil {
		return
	}
	p.edges.Add(1)
	p.fn()
}
