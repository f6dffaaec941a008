package cloud

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testClientID = "test-client"
	testSecret   = "test-secret"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeCloud is an in-memory device cloud that verifies every signature.
type fakeCloud struct {
	t *testing.T

	mu           sync.Mutex
	devices      []Device
	authCalls    int
	refreshCalls int
	commands     map[string][][]Command
	paths        []string
	tokenSeq     int
	expireTime   int64
	failAuth     bool
	failRefresh  bool
	refreshDelay time.Duration
	failCommands bool
}

func newFakeCloud(t *testing.T, devices ...Device) (*fakeCloud, *httptest.Server) {
	t.Helper()
	fc := &fakeCloud{
		t:          t,
		devices:    devices,
		commands:   make(map[string][][]Command),
		expireTime: 7200,
	}
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	uri := r.URL.RequestURI()

	fc.mu.Lock()
	fc.paths = append(fc.paths, r.Method+" "+uri)
	fc.mu.Unlock()

	if r.Header.Get("client_id") != testClientID || r.Header.Get("sign_method") != SignMethod {
		writeEnvelope(w, false, nil, "bad headers")
		return
	}
	t, nonce := r.Header.Get("t"), r.Header.Get("nonce")

	switch {
	case r.Method == http.MethodPost && uri == tokenPath:
		if r.Header.Get("sign") != Sign(testSecret, testClientID+t+nonce) {
			writeEnvelope(w, false, nil, "sign invalid")
			return
		}
		fc.handleToken(w, false)
		return
	case r.Method == http.MethodGet && strings.HasPrefix(uri, refreshPathPrefix):
		rt := strings.TrimPrefix(uri, refreshPathPrefix)
		if r.Header.Get("sign") != Sign(testSecret, testClientID+t+nonce+rt) {
			writeEnvelope(w, false, nil, "sign invalid")
			return
		}
		fc.handleToken(w, true)
		return
	}

	token := r.Header.Get("access_token")
	want := Sign(testSecret, testClientID+token+t+nonce+requestStringToSign(r.Method, body, uri))
	if token == "" || r.Header.Get("sign") != want {
		writeEnvelope(w, false, nil, "sign invalid")
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/v1.0/devices":
		writeEnvelope(w, true, fc.devices, "")
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/status"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v1.0/devices/"), "/status")
		for _, d := range fc.devices {
			if d.ID == id {
				writeEnvelope(w, true, d.Status, "")
				return
			}
		}
		writeEnvelope(w, false, nil, "device not found")
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/functions"):
		d, ok := fc.deviceLocked(strings.TrimSuffix(strings.TrimPrefix(path, "/v1.0/devices/"), "/functions"))
		if !ok {
			writeEnvelope(w, false, nil, "device not found")
			return
		}
		writeEnvelope(w, true, Functions{Category: d.Category, Functions: blindFunctions()}, "")
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/specifications"):
		d, ok := fc.deviceLocked(strings.TrimSuffix(strings.TrimPrefix(path, "/v1.0/devices/"), "/specifications"))
		if !ok {
			writeEnvelope(w, false, nil, "device not found")
			return
		}
		writeEnvelope(w, true, Specifications{Category: d.Category, Functions: blindFunctions(), Status: blindFunctions()}, "")
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1.0/devices/") && !strings.Contains(strings.TrimPrefix(path, "/v1.0/devices/"), "/"):
		d, ok := fc.deviceLocked(strings.TrimPrefix(path, "/v1.0/devices/"))
		if !ok {
			writeEnvelope(w, false, nil, "device not found")
			return
		}
		writeEnvelope(w, true, d, "")
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/statistics"):
		writeEnvelope(w, true, map[string]string{
			"start_time": r.URL.Query().Get("start_time"),
			"end_time":   r.URL.Query().Get("end_time"),
		}, "")
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/commands"):
		if fc.failCommands {
			writeEnvelope(w, false, nil, "device offline")
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v1.0/devices/"), "/commands")
		var cb commandBody
		if err := json.Unmarshal(body, &cb); err != nil {
			writeEnvelope(w, false, nil, "bad body")
			return
		}
		fc.commands[id] = append(fc.commands[id], cb.Commands)
		fc.applyLocked(id, cb.Commands)
		writeEnvelope(w, true, true, "")
	case r.Method == http.MethodPost && path == "/v1.0/device-groups":
		writeEnvelope(w, true, map[string]int{"id": 1001}, "")
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/issued"):
		writeEnvelope(w, true, true, "")
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/scenes"):
		writeEnvelope(w, true, map[string]string{"scene_id": "scene-1"}, "")
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/trigger"):
		writeEnvelope(w, true, true, "")
	default:
		http.NotFound(w, r)
	}
}

func (fc *fakeCloud) handleToken(w http.ResponseWriter, refresh bool) {
	fc.mu.Lock()
	if refresh {
		fc.refreshCalls++
	} else {
		fc.authCalls++
	}
	fail := (refresh && fc.failRefresh) || (!refresh && fc.failAuth)
	delay := fc.refreshDelay
	fc.tokenSeq++
	seq := fc.tokenSeq
	expire := fc.expireTime
	fc.mu.Unlock()

	if refresh && delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		writeEnvelope(w, false, nil, "token invalid")
		return
	}
	writeEnvelope(w, true, tokenResult{
		AccessToken:  "access-" + strconv.Itoa(seq),
		RefreshToken: "refresh-" + strconv.Itoa(seq),
		ExpireTime:   expire,
		UID:          "uid-1",
	}, "")
}

func (fc *fakeCloud) deviceLocked(id string) (Device, bool) {
	for _, d := range fc.devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// blindFunctions is the instruction set the fake cloud reports for covers.
func blindFunctions() []Function {
	return []Function{
		{Code: CodeControl, Type: "Enum", Values: `{"range":["open","stop","close"]}`},
		{Code: CodePercentControl, Type: "Integer", Values: `{"unit":"%","min":0,"max":100,"scale":0,"step":1}`},
	}
}

// applyLocked reflects accepted commands in the device status.
func (fc *fakeCloud) applyLocked(id string, cmds []Command) {
	for i := range fc.devices {
		if fc.devices[i].ID != id {
			continue
		}
		for _, cmd := range cmds {
			replaced := false
			for j := range fc.devices[i].Status {
				if fc.devices[i].Status[j].Code == cmd.Code {
					fc.devices[i].Status[j].Value = cmd.Value
					replaced = true
				}
			}
			if !replaced {
				fc.devices[i].Status = append(fc.devices[i].Status, StatusEntry{Code: cmd.Code, Value: cmd.Value})
			}
		}
	}
}

func (fc *fakeCloud) counts() (auth, refresh int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.authCalls, fc.refreshCalls
}

func (fc *fakeCloud) sentCommands(id string) [][]Command {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([][]Command(nil), fc.commands[id]...)
}

func writeEnvelope(w http.ResponseWriter, success bool, result any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	env := map[string]any{"success": success, "t": time.Now().UnixMilli()}
	if success {
		env["result"] = result
	} else {
		env["code"] = 1010
		env["msg"] = msg
	}
	_ = json.NewEncoder(w).Encode(env)
}

func newTestClient(t *testing.T, srv *httptest.Server, clock *fakeClock) *Client {
	t.Helper()
	opts := Options{
		ClientID: testClientID,
		Secret:   testSecret,
		BaseURL:  srv.URL,
		HomeID:   "home-1",
	}
	if clock != nil {
		opts.Clock = clock.Now
	}
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func blindDevice(id, name string, status ...StatusEntry) Device {
	return Device{ID: id, Name: name, Category: CategoryCurtain, Online: true, Status: status}
}
