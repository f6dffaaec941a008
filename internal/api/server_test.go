package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/auth"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/bridge"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/history"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/platform"
)

const (
	testSecret       = "test-secret-key-at-least-32-characters-long"
	testIssuer       = "cloudbridge-test"
	testWebhookToken = "hook-secret"
)

// fakeBridge implements Bridge with one known device, "bf01".
type fakeBridge struct {
	mu       sync.Mutex
	requests []bridge.CommandRequest
	syncOK   bool
	synced   []string
}

func (f *fakeBridge) Devices() []bridge.Entry {
	descs, _ := f.Device("bf01")
	return []bridge.Entry{{CloudDeviceID: "bf01", Descriptors: descs}}
}

func (f *fakeBridge) Device(cloudID string) ([]platform.Descriptor, bool) {
	if cloudID != "bf01" {
		return nil, false
	}
	return []platform.Descriptor{{
		CloudDeviceID:    "bf01",
		PlatformDeviceID: "alexa_bf01",
		Platform:         "alexa",
		DisplayName:      "Living Room Blind",
		RoomName:         "Living",
	}}, true
}

func (f *fakeBridge) DeviceCount() int { return 1 }

func (f *fakeBridge) Execute(_ context.Context, req bridge.CommandRequest) bridge.CommandResult {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if req.PlatformDeviceID != "alexa_bf01" {
		return bridge.CommandResult{Err: fmt.Errorf("%w: %s", bridge.ErrUnknownDevice, req.PlatformDeviceID)}
	}
	if req.Command == "dance" {
		return bridge.CommandResult{CloudDeviceID: "bf01", Err: fmt.Errorf("%w: dance", bridge.ErrUnknownCommand)}
	}
	return bridge.CommandResult{Success: true, CloudDeviceID: "bf01", Action: bridge.ActionOpen}
}

func (f *fakeBridge) SyncDeviceStatus(_ context.Context, cloudID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, cloudID)
	return f.syncOK
}

func (f *fakeBridge) DiscoverAndSync(_ context.Context) (int, error) { return 1, nil }

func (f *fakeBridge) setSyncOK(ok bool) {
	f.mu.Lock()
	f.syncOK = ok
	f.mu.Unlock()
}

func (f *fakeBridge) lastRequest() bridge.CommandRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return bridge.CommandRequest{}
	}
	return f.requests[len(f.requests)-1]
}

// fakeCloud implements Cloud.
type fakeCloud struct {
	mu       sync.Mutex
	payloads []cloud.WebhookPayload
	stats    json.RawMessage
	from, to time.Time
}

func (f *fakeCloud) IngestWebhook(p cloud.WebhookPayload) ([]cloud.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.DevID == "" {
		return nil, cloud.ErrInvalidWebhook
	}
	f.payloads = append(f.payloads, p)
	var events []cloud.Event
	if p.Status != nil {
		events = append(events, cloud.Event{Kind: cloud.EventStatus, DeviceID: p.DevID})
	}
	if p.Online != nil {
		events = append(events, cloud.Event{Kind: cloud.EventOnline, DeviceID: p.DevID, Online: *p.Online})
	}
	return events, nil
}

func (f *fakeCloud) GetStatistics(_ context.Context, _ string, from, to time.Time) json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from, f.to = from, to
	return f.stats
}

func (f *fakeCloud) setStats(raw json.RawMessage) {
	f.mu.Lock()
	f.stats = raw
	f.mu.Unlock()
}

func (f *fakeCloud) window() (time.Time, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.from, f.to
}

// fakeCommandLog implements history.Repository.
type fakeCommandLog struct {
	mu      sync.Mutex
	filters []history.Filter
}

func (f *fakeCommandLog) Append(_ context.Context, _ *history.Entry) error { return nil }

func (f *fakeCommandLog) List(_ context.Context, filter history.Filter) (*history.ListResult, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	return &history.ListResult{
		Entries: []history.Entry{{ID: "cmd-1", Platform: "alexa", Command: "open", Success: true}},
		Total:   1,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func (f *fakeCommandLog) lastFilter() history.Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters[len(f.filters)-1]
}

type testEnv struct {
	srv    *Server
	http   *httptest.Server
	bridge *fakeBridge
	cloud  *fakeCloud
	log    *fakeCommandLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fb := &fakeBridge{syncOK: true}
	fc := &fakeCloud{stats: json.RawMessage(`{"points":[1,2,3]}`)}
	fl := &fakeCommandLog{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudbridge_test_total",
		Help: "Test counter.",
	}))

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1"},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT:     config.JWTConfig{Secret: testSecret, Issuer: testIssuer},
			Webhook: config.WebhookConfig{Token: testWebhookToken},
		},
		Logger:     logging.Discard(),
		Bridge:     fb,
		Cloud:      fc,
		CommandLog: fl,
		Gatherer:   reg,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, http: ts, bridge: fb, cloud: fc, log: fl}
}

func token(t *testing.T, scope auth.Scope) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken("tester", scope, testSecret, testIssuer, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func TestNewRequiresDependencies(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Bridge: &fakeBridge{}, Cloud: &fakeCloud{}}},
		{"no bridge", Deps{Logger: logging.Discard(), Cloud: &fakeCloud{}}},
		{"no cloud", Deps{Logger: logging.Discard(), Bridge: &fakeBridge{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestHealthIsPublic(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/api/v1/health", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if body["devices"] != float64(1) {
		t.Errorf("devices = %v, want 1", body["devices"])
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/api/v1/health", "", "", map[string]string{"X-Request-ID": "req-42"})
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/api/v1/metrics", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "cloudbridge_test_total") {
		t.Errorf("metrics output missing registered counter:\n%s", out)
	}
}

func TestAuthScopes(t *testing.T) {
	e := newTestEnv(t)
	read := token(t, auth.ScopeRead)
	control := token(t, auth.ScopeControl)
	wrongSecret, err := auth.GenerateAccessToken("tester", auth.ScopeControl, "another-secret-that-is-long-enough!!", testIssuer, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"list without token", http.MethodGet, "/api/v1/devices", "", "", http.StatusUnauthorized},
		{"list with garbage", http.MethodGet, "/api/v1/devices", "not-a-jwt", "", http.StatusUnauthorized},
		{"list with foreign secret", http.MethodGet, "/api/v1/devices", wrongSecret, "", http.StatusUnauthorized},
		{"list with read", http.MethodGet, "/api/v1/devices", read, "", http.StatusOK},
		{"list with control", http.MethodGet, "/api/v1/devices", control, "", http.StatusOK},
		{"command with read", http.MethodPost, "/api/v1/platforms/alexa/devices/alexa_bf01/commands", read, `{"command":"open"}`, http.StatusForbidden},
		{"command with control", http.MethodPost, "/api/v1/platforms/alexa/devices/alexa_bf01/commands", control, `{"command":"open"}`, http.StatusOK},
		{"sync with read", http.MethodPost, "/api/v1/sync", read, "", http.StatusForbidden},
		{"sync with control", http.MethodPost, "/api/v1/sync", control, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.do(t, tt.method, tt.path, tt.token, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestDevices(t *testing.T) {
	e := newTestEnv(t)
	read := token(t, auth.ScopeRead)

	resp := e.do(t, http.MethodGet, "/api/v1/devices", read, "", nil)
	body := decode(t, resp)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}

	resp = e.do(t, http.MethodGet, "/api/v1/devices/bf01", read, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	body = decode(t, resp)
	platforms, ok := body["platforms"].([]any)
	if !ok || len(platforms) != 1 {
		t.Fatalf("platforms = %v", body["platforms"])
	}

	resp = e.do(t, http.MethodGet, "/api/v1/devices/missing", read, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing device status = %d, want 404", resp.StatusCode)
	}
}

func TestSyncDevice(t *testing.T) {
	e := newTestEnv(t)
	control := token(t, auth.ScopeControl)

	resp := e.do(t, http.MethodPost, "/api/v1/devices/bf01/sync", control, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	e.bridge.setSyncOK(false)
	resp = e.do(t, http.MethodPost, "/api/v1/devices/bf01/sync", control, "", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("failed sync status = %d, want 502", resp.StatusCode)
	}

	resp = e.do(t, http.MethodPost, "/api/v1/devices/nope/sync", control, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", resp.StatusCode)
	}
}

func TestCommand(t *testing.T) {
	e := newTestEnv(t)
	control := token(t, auth.ScopeControl)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"open", "/api/v1/platforms/alexa/devices/alexa_bf01/commands", `{"command":"open"}`, http.StatusOK},
		{"unknown device", "/api/v1/platforms/alexa/devices/alexa_zz/commands", `{"command":"open"}`, http.StatusNotFound},
		{"unknown command", "/api/v1/platforms/alexa/devices/alexa_bf01/commands", `{"command":"dance"}`, http.StatusUnprocessableEntity},
		{"missing command", "/api/v1/platforms/alexa/devices/alexa_bf01/commands", `{"params":{}}`, http.StatusBadRequest},
		{"bad json", "/api/v1/platforms/alexa/devices/alexa_bf01/commands", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.do(t, http.MethodPost, tt.path, control, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	resp := e.do(t, http.MethodPost, "/api/v1/platforms/alexa/devices/alexa_bf01/commands", control,
		`{"command":"setPosition","params":{"position":40}}`, nil)
	body := decode(t, resp)
	if body["cloud_device_id"] != "bf01" || body["success"] != true {
		t.Errorf("body = %v", body)
	}
	req := e.bridge.lastRequest()
	if req.Platform != "alexa" || req.PlatformDeviceID != "alexa_bf01" || req.Command != "setPosition" {
		t.Errorf("request = %+v", req)
	}
	if req.Source != "api:tester" {
		t.Errorf("Source = %q, want api:tester", req.Source)
	}
	if req.Params["position"] != float64(40) {
		t.Errorf("position param = %v", req.Params["position"])
	}
}

func TestListCommands(t *testing.T) {
	e := newTestEnv(t)
	read := token(t, auth.ScopeRead)

	resp := e.do(t, http.MethodGet, "/api/v1/commands?platform=alexa&failed=true&limit=10&offset=5", read, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["total"] != float64(1) {
		t.Errorf("total = %v", body["total"])
	}
	f := e.log.lastFilter()
	if f.Platform != "alexa" || !f.OnlyFailed || f.Limit != 10 || f.Offset != 5 {
		t.Errorf("filter = %+v", f)
	}

	resp = e.do(t, http.MethodGet, "/api/v1/commands?limit=-1", read, "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", resp.StatusCode)
	}

	noLog, err := New(Deps{
		Security: e.srv.secCfg,
		Logger:   logging.Discard(),
		Bridge:   e.bridge,
		Cloud:    e.cloud,
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil)
	r.Header.Set("Authorization", "Bearer "+read)
	noLog.Handler().ServeHTTP(rec, r)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no log status = %d, want 503", rec.Code)
	}
}

func TestStatistics(t *testing.T) {
	e := newTestEnv(t)
	read := token(t, auth.ScopeRead)

	resp := e.do(t, http.MethodGet, "/api/v1/devices/bf01/statistics?from=1700000000000&to=2023-11-15T00:00:00Z", read, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	from, to := e.cloud.window()
	if got := from.UnixMilli(); got != 1700000000000 {
		t.Errorf("from = %d", got)
	}
	if want := time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}

	resp = e.do(t, http.MethodGet, "/api/v1/devices/bf01/statistics", read, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("default window status = %d", resp.StatusCode)
	}
	from, to = e.cloud.window()
	if d := to.Sub(from); d != defaultStatisticsWindow {
		t.Errorf("default window = %v, want %v", d, defaultStatisticsWindow)
	}

	resp = e.do(t, http.MethodGet, "/api/v1/devices/bf01/statistics?from=yesterday", read, "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad from status = %d, want 400", resp.StatusCode)
	}

	e.cloud.setStats(nil)
	resp = e.do(t, http.MethodGet, "/api/v1/devices/bf01/statistics", read, "", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("nil statistics status = %d, want 502", resp.StatusCode)
	}
}

func TestWebhook(t *testing.T) {
	e := newTestEnv(t)
	hdr := map[string]string{webhookTokenHeader: testWebhookToken}

	tests := []struct {
		name       string
		headers    map[string]string
		body       string
		want       int
		wantEvents float64
	}{
		{"status and online", hdr, `{"devId":"bf01","status":[{"code":"percent_control","value":20}],"online":true}`, http.StatusAccepted, 2},
		{"online only", hdr, `{"devId":"bf01","online":false}`, http.StatusAccepted, 1},
		{"no token", nil, `{"devId":"bf01","online":true}`, http.StatusUnauthorized, 0},
		{"wrong token", map[string]string{webhookTokenHeader: "nope"}, `{"devId":"bf01"}`, http.StatusUnauthorized, 0},
		{"missing devId", hdr, `{"online":true}`, http.StatusBadRequest, 0},
		{"bad json", hdr, `not json`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.do(t, http.MethodPost, "/api/v1/webhooks/tuya", "", tt.body, tt.headers)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusAccepted {
				body := decode(t, resp)
				if body["events"] != tt.wantEvents {
					t.Errorf("events = %v, want %v", body["events"], tt.wantEvents)
				}
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodOptions, "/api/v1/devices", "", "", map[string]string{
		"Origin":                        "http://dashboard.local",
		"Access-Control-Request-Method": "GET",
	})
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("Access-Control-Allow-Origin missing on preflight")
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	e := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/api/v1/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("dial without token should fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated dial: resp=%v err=%v", resp, err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?access_token="+token(t, auth.ScopeRead), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{bridge.StateChannel}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading subscribe ack: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("ack = %+v", ack)
	}

	e.srv.Hub().Broadcast(bridge.StateChannel, map[string]any{"cloud_device_id": "bf01", "position": 42})
	e.srv.Hub().Broadcast("other.channel", map[string]any{"ignored": true})

	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.Type != WSTypeEvent || ev.EventType != bridge.StateChannel {
		t.Errorf("event = %+v", ev)
	}
	payload, _ := ev.Payload.(map[string]any)
	if payload["position"] != float64(42) {
		t.Errorf("payload = %v", ev.Payload)
	}
}

func TestWebSocketFrames(t *testing.T) {
	e := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/api/v1/ws?access_token=" + token(t, auth.ScopeRead)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline

	tests := []struct {
		name    string
		frame   string
		wantID  string
		wantMsg string
	}{
		{"bad json", `{not json`, "", "invalid JSON message"},
		{"unknown type", `{"type":"ping","id":"7"}`, "7", "unknown message type: ping"},
	}
	for _, tt := range tests {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
			t.Fatalf("%s: write: %v", tt.name, err)
		}
		var reply WSMessage
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatalf("%s: read: %v", tt.name, err)
		}
		payload, _ := reply.Payload.(map[string]any)
		if reply.Type != WSTypeError || reply.ID != tt.wantID || payload["message"] != tt.wantMsg {
			t.Errorf("%s: reply = %+v", tt.name, reply)
		}
	}

	if got := e.srv.Hub().ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}

	sub := WSMessage{Type: WSTypeSubscribe, ID: "all", Payload: WSSubscribePayload{Channels: []string{"*"}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil || ack.ID != "all" {
		t.Fatalf("ack = %+v err = %v", ack, err)
	}
	e.srv.Hub().Broadcast("any.channel", map[string]any{"n": 1})
	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil || ev.EventType != "any.channel" {
		t.Errorf("wildcard event = %+v err = %v", ev, err)
	}
}
