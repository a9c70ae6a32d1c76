package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds

	millisecondsPerSecond = 1000

	// bridgeTag is added to every point so RF433 series can be told apart
	// from other bridges writing to the same bucket.
	bridgeTag = "rf433"
)

// Client is the bridge's telemetry sink. Writes are batched by the
// InfluxDB client and never block the frame path; failures are reported
// through SetOnError.
//
// All methods are safe for concurrent use. A zero Client behaves as a
// closed one: writes are dropped and HealthCheck returns ErrNotConnected.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	connected atomic.Bool
	onError   atomic.Pointer[func(error)]
}

// Connect pings the server and opens a batched write API for the
// configured org and bucket. It returns ErrDisabled when influxdb.enabled
// is false.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	c.connected.Store(true)
	go c.handleWriteErrors(c.writeAPI.Errors())

	return c, nil
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// clientOptions maps the batch settings, falling back to 100 points and a
// 10 s flush, and tags every point with bridge=rf433.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)). // #nosec G115 -- positive
		SetFlushInterval(uint(flush) * millisecondsPerSecond).
		SetPrecision(time.Millisecond)
	opts.AddDefaultTag("bridge", bridgeTag)
	return opts
}

// handleWriteErrors forwards async batch errors to the callback, wrapped
// in ErrWriteFailed. It returns when the write API is closed.
func (c *Client) handleWriteErrors(errs <-chan error) {
	for err := range errs {
		if cb := c.onError.Load(); cb != nil {
			(*cb)(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetOnError sets the callback for asynchronous write failures. Passing
// nil removes it.
func (c *Client) SetOnError(callback func(err error)) {
	if callback == nil {
		c.onError.Store(nil)
		return
	}
	c.onError.Store(&callback)
}

// IsConnected reports whether the client is open. It does not ping; use
// HealthCheck for that.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// HealthCheck pings the server, bounded by ctx and a 5 s timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush blocks until buffered points are sent. It is a no-op once closed.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close flushes pending points and releases the client. Closing twice, or
// closing a zero Client, is a no-op.
func (c *Client) Close() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
