// Package periphgpio binds rf433.Pin to a Linux GPIO line through periph.io.
package periphgpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	// ErrNoPin is returned when no pin name is configured.
	ErrNoPin = errors.New("periphgpio: no pin name")

	// ErrUnknownPin is returned when the pin name is not registered.
	ErrUnknownPin = errors.New("periphgpio: unknown pin")

	// ErrNotWatched is returned by Enable before Watch.
	ErrNotWatched = errors.New("periphgpio: pin not watched")
)

// edgePoll bounds each WaitForEdge so Disable is noticed promptly even on
// drivers where Halt does not interrupt the wait.
const edgePoll = 100 * time.Millisecond

func lookup(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, ErrNoPin
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphgpio: host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPin, name)
	}
	return p, nil
}

// Pin is a receive line with both-edge detection.
type Pin struct {
	pin gpio.PinIO

	mu   sync.Mutex
	fn   func()
	stop chan struct{}
	done chan struct{}
}

// Open looks up a GPIO by name (e.g. "GPIO17").
func Open(name string) (*Pin, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return &Pin{pin: p}, nil
}

// Watch configures the line as an input on both edges.
func (p *Pin) Watch(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.pin.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return fmt.Errorf("periphgpio: configure %s: %w", p.pin.Name(), err)
	}
	p.fn = fn
	return nil
}

// Enable starts the edge loop.
func (p *Pin) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fn == nil {
		return ErrNotWatched
	}
	if p.stop != nil {
		return nil
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(p.fn, p.stop, p.done)
	return nil
}

func (p *Pin) loop(fn func(), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if p.pin.WaitForEdge(edgePoll) {
			select {
			case <-stop:
				return
			default:
			}
			fn()
		}
	}
}

// Disable stops the edge loop and waits for it to exit.
func (p *Pin) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disableLocked()
}

func (p *Pin) disableLocked() error {
	if p.stop == nil {
		return nil
	}
	close(p.stop)
	err := p.pin.Halt()
	<-p.done
	p.stop, p.done = nil, nil
	if err != nil {
		return fmt.Errorf("periphgpio: halt %s: %w", p.pin.Name(), err)
	}
	return nil
}

// Release stops edge detection and drives the line low.
func (p *Pin) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.disableLocked()
	p.fn = nil
	if outErr := p.pin.Out(gpio.Low); outErr != nil {
		return errors.Join(err, fmt.Errorf("periphgpio: quiesce %s: %w", p.pin.Name(), outErr))
	}
	return err
}

// Name returns the resolved pin name.
func (p *Pin) Name() string {
	return p.pin.Name()
}

// Probe is a debug output toggled on every received edge, for checking
// capture latency with a scope.
type Probe struct {
	pin   gpio.PinIO
	level gpio.Level
}

// OpenProbe configures a GPIO as a low output.
func OpenProbe(name string) (*Probe, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("periphgpio: configure probe %s: %w", name, err)
	}
	return &Probe{pin: p}, nil
}

// Toggle flips the output level. It runs on the edge path and ignores
// write errors.
func (p *Probe) Toggle() {
	p.level = !p.level
	_ = p.pin.Out(p.level)
}

// Close drives the probe low.
func (p *Probe) Close() error {
	return p.pin.Out(gpio.Low)
}
