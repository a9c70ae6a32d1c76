package modbus

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// endpointClient is a single Modbus TCP connection. Requests are
// serialised because SlaveId is set per write.
type endpointClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func dial(endpoint string, timeout time.Duration) (*endpointClient, error) {
	if endpoint == "" {
		return nil, errors.New("modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(endpoint)
	h.Timeout = timeout
	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &endpointClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *endpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID
	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}

func (c *endpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// packRegisters encodes registers big-endian as Modbus requires.
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
