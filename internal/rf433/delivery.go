package rf433

import (
	"context"
	"sync"
	"sync/atomic"
)

// Delivery hands validated frames to exactly one reader at a time.
//
// Read takes a registration slot for its whole duration; a second Read
// blocks until the first returns. Push never blocks: frames with no
// registered reader, or arriving while the reader's single slot is still
// full, are dropped and counted.
//
// Thread Safety: all methods are safe for concurrent use.
type Delivery struct {
	// registration is a one-token semaphore held by the active reader.
	registration chan struct{}

	mu       sync.Mutex
	listener chan Frame
	done     chan struct{}
	closed   bool

	delivered  atomic.Uint64
	noListener atomic.Uint64
	slotBusy   atomic.Uint64
}

// NewDelivery creates an open delivery channel.
func NewDelivery() *Delivery {
	return &Delivery{
		registration: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Push offers a frame to the registered reader without blocking.
// It reports whether the frame was handed over.
func (d *Delivery) Push(f Frame) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listener == nil {
		d.noListener.Add(1)
		return false
	}

	select {
	case d.listener <- f:
		d.delivered.Add(1)
		return true
	default:
		d.slotBusy.Add(1)
		return false
	}
}

// Read registers as the single listener and blocks until n frames are
// received into out, the context ends, or the channel is shut down.
//
// It returns the number of frames written. On shutdown the error is
// ErrShutdown; on cancellation it is the context error. n is capped to
// len(out).
func (d *Delivery) Read(ctx context.Context, out []Frame, n int) (int, error) {
	if n > len(out) {
		n = len(out)
	}
	if n <= 0 {
		return 0, nil
	}

	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	select {
	case d.registration <- struct{}{}:
	case <-done:
		return 0, ErrShutdown
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-d.registration }()

	slot := make(chan Frame, 1)
	d.mu.Lock()
	if d.done != done {
		// Shut down and reopened while we waited for registration.
		d.mu.Unlock()
		return 0, ErrShutdown
	}
	d.listener = slot
	d.mu.Unlock()

	got := 0
	var err error
	for got < n && err == nil {
		select {
		case f := <-slot:
			out[got] = f
			got++
		case <-done:
			err = ErrShutdown
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	// A frame pushed after the last receive but before deregistration is
	// kept if there is room, otherwise it is counted as undelivered.
	if f, ok := d.release(slot); ok {
		if got < n {
			out[got] = f
			got++
		} else {
			d.delivered.Add(^uint64(0))
			d.noListener.Add(1)
		}
	}
	return got, err
}

// release deregisters the listener and returns a frame left in its slot.
func (d *Delivery) release(slot chan Frame) (Frame, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listener = nil
	select {
	case f := <-slot:
		return f, true
	default:
		return Frame{}, false
	}
}

// Shutdown wakes every blocked reader with ErrShutdown. Subsequent reads
// fail immediately until Reopen.
func (d *Delivery) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
}

// Reopen makes a shut down channel accept readers again.
func (d *Delivery) Reopen() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		return
	}
	d.closed = false
	d.done = make(chan struct{})
}

// Listening reports whether a reader is currently registered.
func (d *Delivery) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listener != nil
}

// DeliveryStats counts Push outcomes.
type DeliveryStats struct {
	Listening  bool   `json:"listening"`
	Delivered  uint64 `json:"delivered"`
	NoListener uint64 `json:"dropped_no_listener"`
	SlotBusy   uint64 `json:"dropped_slot_busy"`
}

// Stats returns a snapshot of the Push counters.
func (d *Delivery) Stats() DeliveryStats {
	return DeliveryStats{
		Listening:  d.Listening(),
		Delivered:  d.delivered.Load(),
		NoListener: d.noListener.Load(),
		SlotBusy:   d.slotBusy.Load(),
	}
}
