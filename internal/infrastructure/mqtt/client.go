package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

// Client is the bridge's connection to the MQTT bus.
//
// paho handles reconnection; Client tracks subscriptions so they are
// re-issued after every reconnect and recovers panicking handlers. All
// methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	connected    atomic.Bool
	onConnect    atomic.Pointer[func()]
	onDisconnect atomic.Pointer[func(error)]
	logger       atomic.Pointer[Logger]
}

// Logger receives connection and handler failures. *logging.Logger and
// *slog.Logger satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Will is the Last Will and Testament the broker publishes, retained at
// QoS 1, if the bridge drops off without a clean disconnect. A zero Will
// disables it.
type Will struct {
	Topic   string
	Payload []byte
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler handles one inbound message. paho runs handlers on its
// own goroutines; they should return quickly. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and waits up to 10 s for the first CONNACK.
func Connect(cfg config.MQTTConfig, will Will) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg).
		SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	if will.Topic != "" {
		opts.SetBinaryWill(will.Topic, will.Payload, 1, true)
	}

	c.client = pahomqtt.NewClient(opts)
	if err := wait(c.client.Connect(), ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The connect handler runs asynchronously; mark connected now so
	// callers can publish as soon as Connect returns.
	c.connected.Store(true)
	return c, nil
}

// wait blocks on a paho token for the publish timeout and wraps failures
// in sentinel.
func wait(token pahomqtt.Token, sentinel error) error {
	timeout := defaultPublishTimeout
	if sentinel == ErrConnectionFailed {
		timeout = defaultConnectTimeout
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.resubscribe()
	if cb := c.onConnect.Load(); cb != nil {
		(*cb)()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	if l := c.getLogger(); l != nil {
		l.Warn("MQTT connection lost", "error", err)
	}
	if cb := c.onDisconnect.Load(); cb != nil {
		(*cb)(err)
	}
}

// resubscribe re-issues every tracked subscription. It does not wait for
// the acknowledgements; paho queues them behind the CONNACK.
func (c *Client) resubscribe() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for topic, sub := range c.subscriptions {
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Close disconnects cleanly, giving in-flight messages a second to drain.
// The will is not published. Closing twice is harmless.
func (c *Client) Close() error {
	if c.client != nil {
		c.client.Disconnect(defaultDisconnectQuiesce)
	}
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while paho is reconnecting.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a callback run after the initial connect and every
// reconnect, once subscriptions have been re-issued.
func (c *Client) SetOnConnect(callback func()) {
	c.onConnect.Store(&callback)
}

// SetOnDisconnect sets a callback run when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.onDisconnect.Store(&callback)
}

// SetLogger sets the logger for connection and handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.logger.Store(&logger)
}

func (c *Client) getLogger() Logger {
	if l := c.logger.Load(); l != nil {
		return *l
	}
	return nil
}

func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

// dispatch runs handler, logging a returned error at warn and a panic at
// error. A panic never reaches paho's router goroutine.
func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if l := c.getLogger(); l != nil {
				l.Error("MQTT handler panic recovered", "topic", topic, "panic", r)
			}
		}
	}()

	if err := handler(topic, payload); err != nil {
		if l := c.getLogger(); l != nil {
			l.Warn("MQTT handler returned error", "topic", topic, "error", err)
		}
	}
}
