package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	rfbridge "github.com/nerrad567/gray-logic-rf433/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Frame channels. Every frame goes to ChannelFrames and to the channel of
// its kind; a client on both receives it twice.
const (
	ChannelFrames = "rf433.frame"
	ChannelSwitch = "rf433.switch"
	ChannelSensor = "rf433.sensor"
	channelPrefix = "rf433."
)

// wsSendBuffer is the per-client outbound queue. A client that falls this
// far behind loses frames.
const wsSendBuffer = 256

// WSMessage is the envelope of every message in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names channels and, optionally, the transmitter
// addresses a client wants. An empty address list means all transmitters.
type WSSubscribePayload struct {
	Channels  []string `json:"channels"`
	Addresses []string `json:"addresses,omitempty"`
}

// wsRequest is an inbound WSMessage with the payload left undecoded.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans decoded frames out to websocket clients. It implements the
// bridge's FrameObserver and never blocks it.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	broadcasts atomic.Uint64
}

// WSClient is one connected websocket.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu        sync.RWMutex
	channels  map[string]struct{}
	addresses map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by corsMiddleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub. Call Run to tie client lifetimes to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, c)
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes its send queue. Calling it
// twice, or after Run has closed the client, is a no-op.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// ObserveFrame publishes msg on ChannelFrames and on its kind channel.
func (h *Hub) ObserveFrame(msg rfbridge.StateMessage) {
	h.publish(ChannelFrames, msg.Address, msg)
	h.publish(channelPrefix+msg.Kind, msg.Address, msg)
}

// Broadcast sends payload to every client subscribed to channel,
// regardless of address filters.
func (h *Hub) Broadcast(channel string, payload any) {
	h.publish(channel, "", payload)
}

func (h *Hub) publish(channel, address string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients {
		if c.wants(channel, address) {
			c.enqueue(data)
			sent++
		}
	}
	if sent > 0 {
		h.broadcasts.Add(1)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcasts returns how many events reached at least one client.
func (h *Hub) Broadcasts() uint64 {
	return h.broadcasts.Load()
}

// handleWebSocket upgrades the request and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.requestLogger(r).Warn("websocket upgrade failed", "error", err)
		return
	}

	hub := s.Hub()
	c := &WSClient{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, wsSendBuffer),
		channels:  make(map[string]struct{}),
		addresses: make(map[string]struct{}),
	}
	hub.Register(c)

	t := newWSTimings(s.wsCfg)
	go c.writePump(t)
	go c.readPump(t, int64(s.wsCfg.MaxMessageSize))
}

// wsTimings are the keepalive settings derived from config.
type wsTimings struct {
	ping      time.Duration
	readWait  time.Duration
	writeWait time.Duration
}

func newWSTimings(cfg config.WebSocketConfig) wsTimings {
	ping := time.Duration(cfg.PingInterval) * time.Second
	pong := time.Duration(cfg.PongTimeout) * time.Second
	return wsTimings{ping: ping, readWait: ping + pong, writeWait: pong}
}

func (c *WSClient) readPump(t wsTimings, limit int64) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(t.readWait)) }
	c.conn.SetReadLimit(limit)
	//nolint:errcheck // a failed deadline surfaces as a read error
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces as a read error
		extend("")
		c.handle(data)
	}
}

func (c *WSClient) writePump(t wsTimings) {
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // peer may already be gone
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handle(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.subscribe(req, req.Type == WSTypeSubscribe)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, errorPayload("unknown message type: "+req.Type))
	}
}

// subscribe adds (on) or removes (!on) the channels and addresses in req.
func (c *WSClient) subscribe(req wsRequest, on bool) {
	var p WSSubscribePayload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			c.reply(req.ID, WSTypeError, errorPayload("invalid payload"))
			return
		}
	}
	if len(p.Channels) == 0 && len(p.Addresses) == 0 {
		c.reply(req.ID, WSTypeError, errorPayload("payload must list channels or addresses"))
		return
	}

	c.mu.Lock()
	for _, ch := range p.Channels {
		toggle(c.channels, ch, on)
	}
	for _, a := range p.Addresses {
		toggle(c.addresses, a, on)
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if on {
		key = "subscribed"
	}
	c.reply(req.ID, WSTypeResponse, map[string]any{key: p})
}

func toggle(set map[string]struct{}, key string, on bool) {
	if on {
		set[key] = struct{}{}
	} else {
		delete(set, key)
	}
}

// wants reports whether an event on channel from address should be sent.
// An empty address skips the address filter.
func (c *WSClient) wants(channel, address string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[channel]; !ok {
		return false
	}
	if address == "" || len(c.addresses) == 0 {
		return true
	}
	_, ok := c.addresses[address]
	return ok
}

// Subscriptions returns the client's channels, sorted.
func (c *WSClient) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	slices.Sort(out)
	return out
}

// enqueue drops data when the client is slow. Callers hold the hub read
// lock, so send is never closed underneath it.
func (c *WSClient) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// reply queues a response. The read pump calls it, and Unregister only
// runs after the read pump exits, so send is still open.
func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; ok {
		c.enqueue(data)
	}
}

func errorPayload(msg string) map[string]string {
	return map[string]string{"message": msg}
}
