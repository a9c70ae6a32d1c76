package rf433

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic microsecond clock. Wrap-around is tolerated
// because intervals are computed with unsigned subtraction.
type Clock interface {
	NowMicros() uint32
}

// monoClock reads the runtime's monotonic clock.
type monoClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock backed by time.Since.
func NewMonotonicClock() Clock {
	return &monoClock{start: time.Now()}
}

func (c *monoClock) NowMicros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// EdgeCapture turns pin edges into intervals.
//
// OnEdge is the edge callback. It reads the clock, stores the edge time
// and offers the interval to the attached queue without blocking. With no
// queue attached the interval is silently dropped; with a full queue the
// newest interval is dropped and counted.
//
// Thread Safety: OnEdge must be called from one goroutine at a time (the
// pin's edge callback). Attach, Detach and the counters are safe from any
// goroutine.
type EdgeCapture struct {
	clock Clock
	probe func()

	lastEdge atomic.Uint32
	queue    atomic.Pointer[chan uint32]

	edges   atomic.Uint64
	dropped atomic.Uint64
}

// NewEdgeCapture creates a capture reading the given clock. probe, if
// non-nil, is called on every edge (debug output pin toggle).
func NewEdgeCapture(clock Clock, probe func()) *EdgeCapture {
	c := &EdgeCapture{clock: clock, probe: probe}
	c.lastEdge.Store(clock.NowMicros())
	return c
}

// OnEdge records one edge.
func (c *EdgeCapture) OnEdge() {
	now := c.clock.NowMicros()
	interval := now - c.lastEdge.Load()
	c.lastEdge.Store(now)
	c.edges.Add(1)

	if c.probe != nil {
		c.probe()
	}

	q := c.queue.Load()
	if q == nil {
		return
	}

	select {
	case *q <- interval:
	default:
		c.dropped.Add(1)
	}
}

// Attach connects the worker's interval queue.
func (c *EdgeCapture) Attach(q chan uint32) {
	c.queue.Store(&q)
}

// Detach disconnects the queue; later edges are dropped silently.
func (c *EdgeCapture) Detach() {
	c.queue.Store(nil)
}

// LastEdge returns the clock value of the most recent edge.
func (c *EdgeCapture) LastEdge() uint32 {
	return c.lastEdge.Load()
}

// Edges returns the total number of edges seen.
func (c *EdgeCapture) Edges() uint64 {
	return c.edges.Load()
}

// Dropped returns the number of intervals lost to a full queue.
func (c *EdgeCapture) Dropped() uint64 {
	return c.dropped.Load()
}
