package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	rfbridge "github.com/nerrad567/gray-logic-rf433/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

type fakeReceiver struct {
	receiving bool
}

func (f *fakeReceiver) Stats() rf433.Stats {
	return rf433.Stats{Pin: "GPIO17", Protocol: "sensor", Receiving: f.receiving, Frames: 12, Edges: 4096}
}

func (f *fakeReceiver) IsReceiving() bool { return f.receiving }

type fakeBridge struct {
	states  map[string]rfbridge.StateMessage
	listErr error
}

func (f *fakeBridge) Metrics() rfbridge.BridgeMetrics {
	return rfbridge.BridgeMetrics{Status: rfbridge.HealthHealthy, MQTTConnected: true, Frames: 12, Transmitters: len(f.states)}
}

func (f *fakeBridge) Transmitters(context.Context) ([]rfbridge.Transmitter, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []rfbridge.Transmitter
	for addr, msg := range f.states {
		out = append(out, rfbridge.Transmitter{Address: addr, Kind: msg.Kind, LastState: msg.State})
	}
	return out, nil
}

func (f *fakeBridge) LastState(address string) (rfbridge.StateMessage, bool) {
	msg, ok := f.states[address]
	return msg, ok
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testServer(t *testing.T) (*Server, *fakeBridge) {
	t.Helper()

	bridge := &fakeBridge{states: map[string]rfbridge.StateMessage{
		"switch-3-A": {
			Address: "switch-3-A",
			Kind:    rfbridge.KindSwitch,
			State:   map[string]any{"on": true, "system_id": 3, "button": "A"},
		},
	}}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   testLogger(),
		Receiver: &fakeReceiver{receiving: true},
		Bridge:   bridge,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, bridge
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresDependencies(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Receiver: &fakeReceiver{}, Bridge: &fakeBridge{}}},
		{"no receiver", Deps{Logger: testLogger(), Bridge: &fakeBridge{}}},
		{"no bridge", Deps{Logger: testLogger(), Receiver: &fakeReceiver{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil")
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t)
	rec := doGet(t, srv, "/api/v1/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["receiving"] != true || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHandleStats(t *testing.T) {
	srv, _ := testServer(t)
	rec := doGet(t, srv, "/api/v1/stats")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Receiver.Pin != "GPIO17" || body.Receiver.Frames != 12 {
		t.Errorf("receiver = %+v", body.Receiver)
	}
	if body.Bridge.Transmitters != 1 || !body.Bridge.MQTTConnected {
		t.Errorf("bridge = %+v", body.Bridge)
	}
}

func TestHandleMetrics(t *testing.T) {
	srv, _ := testServer(t)
	rec := doGet(t, srv, "/api/v1/metrics")

	var body SystemMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Runtime.Goroutines == 0 || body.Version != "test" {
		t.Errorf("metrics = %+v", body)
	}
	if body.Database != nil {
		t.Error("database metrics without a database")
	}
}

func TestHandleTransmitters(t *testing.T) {
	srv, bridge := testServer(t)

	rec := doGet(t, srv, "/api/v1/transmitters")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Transmitters []rfbridge.Transmitter `json:"transmitters"`
		Count        int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Transmitters[0].Address != "switch-3-A" {
		t.Errorf("list = %+v", list)
	}

	rec = doGet(t, srv, "/api/v1/transmitters/switch-3-A")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var msg rfbridge.StateMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.State["on"] != true {
		t.Errorf("state = %v", msg.State)
	}

	rec = doGet(t, srv, "/api/v1/transmitters/switch-9-E")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown address status = %d, want 404", rec.Code)
	}
	var apiErr Error
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != ErrCodeNotFound || apiErr.RequestID == "" || apiErr.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("error body = %+v", apiErr)
	}

	bridge.listErr = errors.New("database is locked")
	rec = doGet(t, srv, "/api/v1/transmitters")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("list error status = %d, want 500", rec.Code)
	}
}

func TestEmptyTransmitterListIsArray(t *testing.T) {
	srv, bridge := testServer(t)
	bridge.states = nil

	rec := doGet(t, srv, "/api/v1/transmitters")
	if !strings.Contains(rec.Body.String(), `"transmitters":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
}

func TestCORS(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed", http.MethodGet, "http://panel.local", "http://panel.local", http.StatusOK},
		{"denied", http.MethodGet, "http://evil.example", "", http.StatusOK},
		{"preflight", http.MethodOptions, "http://panel.local", "http://panel.local", http.StatusNoContent},
		{"preflight denied", http.MethodOptions, "http://evil.example", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			srv.buildRouter().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := testServer(t)
	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServerStartClose(t *testing.T) {
	srv, _ := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.Port() == 0 {
		t.Fatal("Port() = 0 after Start")
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocketFrameFeed(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{ChannelSwitch}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := readWS(t, conn); resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	hub := srv.Hub()
	hub.ObserveFrame(rfbridge.StateMessage{Address: "sensor-abcde-ch1", Kind: rfbridge.KindSensor})
	hub.ObserveFrame(rfbridge.StateMessage{Address: "switch-3-A", Kind: rfbridge.KindSwitch, State: map[string]any{"on": true}})

	ev := readWS(t, conn)
	if ev.Type != WSTypeEvent || ev.EventType != ChannelSwitch {
		t.Fatalf("event = %+v", ev)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok || payload["address"] != "switch-3-A" {
		t.Errorf("payload = %v", ev.Payload)
	}
	if hub.Broadcasts() != 1 {
		t.Errorf("Broadcasts() = %d, want 1", hub.Broadcasts())
	}
}

func TestWebSocketControlMessages(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)

	tests := []struct {
		name     string
		send     string
		wantType string
	}{
		{"ping", `{"type":"ping","id":"p"}`, WSTypePong},
		{"unknown type", `{"type":"reboot","id":"x"}`, WSTypeError},
		{"invalid json", `{`, WSTypeError},
		{"subscribe without channels", `{"type":"subscribe","id":"s","payload":{}}`, WSTypeError},
		{"unsubscribe", `{"type":"unsubscribe","id":"u","payload":{"channels":["rf433.frame"]}}`, WSTypeResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.send)); err != nil {
				t.Fatalf("write: %v", err)
			}
			if got := readWS(t, conn); got.Type != tt.wantType {
				t.Errorf("type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestHubClientCount(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)
	hub := srv.Hub()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketAddressFilter(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)

	sub := `{"type":"subscribe","id":"1","payload":{"channels":["rf433.frame"],"addresses":["sensor-abcde-ch1"]}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := readWS(t, conn); resp.Type != WSTypeResponse {
		t.Fatalf("subscribe response = %+v", resp)
	}

	hub := srv.Hub()
	hub.ObserveFrame(rfbridge.StateMessage{Address: "switch-3-A", Kind: rfbridge.KindSwitch})
	hub.ObserveFrame(rfbridge.StateMessage{Address: "sensor-abcde-ch1", Kind: rfbridge.KindSensor})

	ev := readWS(t, conn)
	payload, ok := ev.Payload.(map[string]any)
	if !ok || payload["address"] != "sensor-abcde-ch1" {
		t.Fatalf("event payload = %v", ev.Payload)
	}
	if hub.Broadcasts() != 1 {
		t.Errorf("Broadcasts() = %d, want 1", hub.Broadcasts())
	}

	// Broadcast ignores address filters.
	hub.Broadcast(ChannelFrames, map[string]string{"note": "hello"})
	if ev := readWS(t, conn); ev.EventType != ChannelFrames {
		t.Errorf("broadcast event = %+v", ev)
	}
}

func TestWSClientWants(t *testing.T) {
	c := &WSClient{
		channels:  map[string]struct{}{ChannelSensor: {}, ChannelFrames: {}},
		addresses: map[string]struct{}{},
	}

	tests := []struct {
		channel, address string
		want             bool
	}{
		{ChannelSensor, "sensor-abcde-ch1", true},
		{ChannelSwitch, "switch-3-A", false},
		{ChannelFrames, "", true},
	}
	for _, tt := range tests {
		if got := c.wants(tt.channel, tt.address); got != tt.want {
			t.Errorf("wants(%q, %q) = %v, want %v", tt.channel, tt.address, got, tt.want)
		}
	}

	c.addresses["switch-3-A"] = struct{}{}
	if c.wants(ChannelSensor, "sensor-abcde-ch1") {
		t.Error("address filter not applied")
	}
	if got := c.Subscriptions(); len(got) != 2 || got[0] != ChannelFrames || got[1] != ChannelSensor {
		t.Errorf("Subscriptions() = %v", got)
	}
}
