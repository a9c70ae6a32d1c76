// Package modbus mirrors decoded frames into Modbus holding registers so
// a PLC can poll remote buttons and weather readings.
package modbus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// SlotSize is the number of holding registers per transmitter.
//
//	+0 kind          1 switch, 2 sensor
//	+1 id high       sensor device id bits 16..19, 0 for switches
//	+2 id low        sensor device id bits 0..15, or switch system id
//	+3 unit          switch button 1..5 (A..E), or sensor channel
//	+4 value         switch on (0/1), or temperature x10 as int16
//	+5 humidity      percent
//	+6 wind          km/h x10
//	+7 battery low   0/1
const SlotSize = 8

// Register kinds.
const (
	KindSwitch uint16 = 1
	KindSensor uint16 = 2
)

var (
	// ErrNoFreeSlot is returned when every slot is taken by another address.
	ErrNoFreeSlot = errors.New("modbus: no free register slot")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("modbus: writer closed")
)

// registerClient is the subset of the Modbus client the writer needs.
type registerClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
	Close() error
}

// Writer assigns each transmitter address a register slot in first-seen
// order and rewrites the slot on every frame.
//
// Thread Safety: All methods are safe for concurrent use.
type Writer struct {
	client registerClient
	unitID uint8
	base   uint16
	slots  int

	mu       sync.Mutex
	assigned map[string]int
	closed   bool
}

// NewWriter connects to the configured endpoint.
func NewWriter(cfg config.ModbusConfig) (*Writer, error) {
	c, err := dial(cfg.Endpoint, time.Duration(cfg.Timeout)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to modbus %s: %w", cfg.Endpoint, err)
	}
	return newWriter(c, cfg)
}

func newWriter(c registerClient, cfg config.ModbusConfig) (*Writer, error) {
	if cfg.Slots <= 0 {
		return nil, fmt.Errorf("modbus: slots must be positive, got %d", cfg.Slots)
	}
	last := cfg.BaseRegister + cfg.Slots*SlotSize - 1
	if cfg.BaseRegister < 0 || last > math.MaxUint16 {
		return nil, fmt.Errorf("modbus: register range %d..%d out of bounds", cfg.BaseRegister, last)
	}
	if cfg.UnitID < 0 || cfg.UnitID > math.MaxUint8 {
		return nil, fmt.Errorf("modbus: unit id %d out of range", cfg.UnitID)
	}

	return &Writer{
		client:   c,
		unitID:   uint8(cfg.UnitID),
		base:     uint16(cfg.BaseRegister),
		slots:    cfg.Slots,
		assigned: make(map[string]int),
	}, nil
}

// WriteFrame writes f into the slot of address, assigning one if needed.
func (w *Writer) WriteFrame(ctx context.Context, address string, f rf433.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slot, err := w.slotFor(address)
	if err != nil {
		return err
	}

	addr := w.base + uint16(slot*SlotSize)
	if err := w.client.WriteRegisters(w.unitID, addr, EncodeFrame(f)); err != nil {
		return fmt.Errorf("writing slot %d at %d: %w", slot, addr, err)
	}
	return nil
}

// Slot returns the slot assigned to address.
func (w *Writer) Slot(address string) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	slot, ok := w.assigned[address]
	return slot, ok
}

// Close closes the connection.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.client.Close()
}

func (w *Writer) slotFor(address string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if slot, ok := w.assigned[address]; ok {
		return slot, nil
	}
	if len(w.assigned) >= w.slots {
		return 0, fmt.Errorf("%w for %s (%d in use)", ErrNoFreeSlot, address, w.slots)
	}
	slot := len(w.assigned)
	w.assigned[address] = slot
	return slot, nil
}

// EncodeFrame lays f out as one register slot.
func EncodeFrame(f rf433.Frame) []uint16 {
	regs := make([]uint16, SlotSize)

	if f.Variant == rf433.VariantSensor {
		r := f.Sensor.Reading()
		regs[0] = KindSensor
		regs[1] = uint16(r.DeviceID >> 16)
		regs[2] = uint16(r.DeviceID)
		regs[3] = uint16(r.Channel)
		if r.HasTemperature {
			regs[4] = uint16(int16(math.Round(r.TemperatureC * 10)))
			regs[5] = uint16(r.Humidity)
		}
		if r.HasWind {
			regs[6] = uint16(math.Round(r.WindKPH * 10))
		}
		regs[7] = boolRegister(r.BatteryLow)
		return regs
	}

	regs[0] = KindSwitch
	regs[2] = uint16(f.Switch.SystemID())
	if d := f.Switch.Device(); d != 0 {
		regs[3] = uint16(d-'A') + 1
	}
	regs[4] = boolRegister(f.Switch.On())
	return regs
}

func boolRegister(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
