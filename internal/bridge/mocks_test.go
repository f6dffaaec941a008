package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/history"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/platform"
)

// mockCloud is an in-memory device cloud. SetPosition updates the
// percent_control status the next sync reads.
type mockCloud struct {
	mu       sync.Mutex
	authErr  error
	reject   bool
	status   map[string][]cloud.StatusEntry
	online   map[string]bool
	commands []mockCommand
	reads    int
}

type mockCommand struct {
	DeviceID string
	Action   Action
	Position int
}

func newMockCloud() *mockCloud {
	return &mockCloud{
		status: make(map[string][]cloud.StatusEntry),
		online: make(map[string]bool),
	}
}

func (m *mockCloud) Authenticate(context.Context) error {
	return m.authErr
}

func (m *mockCloud) GetDeviceStatus(_ context.Context, id string) []cloud.StatusEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	s, ok := m.status[id]
	if !ok {
		return nil
	}
	return append([]cloud.StatusEntry(nil), s...)
}

func (m *mockCloud) IsOnline(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online[id]
}

func (m *mockCloud) record(id string, a Action, pos int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reject {
		return false
	}
	m.commands = append(m.commands, mockCommand{DeviceID: id, Action: a, Position: pos})
	if a == ActionSetPosition {
		m.setStatus(id, cloud.CodePercentControl, pos)
	}
	return true
}

// setStatus replaces or appends a status entry. Caller holds mu.
func (m *mockCloud) setStatus(id, code string, v any) {
	for i, e := range m.status[id] {
		if e.Code == code {
			m.status[id][i].Value = v
			return
		}
	}
	m.status[id] = append(m.status[id], cloud.StatusEntry{Code: code, Value: v})
}

func (m *mockCloud) Open(_ context.Context, id string) bool  { return m.record(id, ActionOpen, 0) }
func (m *mockCloud) Close(_ context.Context, id string) bool { return m.record(id, ActionClose, 0) }
func (m *mockCloud) Stop(_ context.Context, id string) bool  { return m.record(id, ActionStop, 0) }

func (m *mockCloud) SetPosition(_ context.Context, id string, pct int) bool {
	return m.record(id, ActionSetPosition, pct)
}

func (m *mockCloud) getCommands() []mockCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockCommand(nil), m.commands...)
}

func (m *mockCloud) getReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// mockDirectory returns a fixed device list.
type mockDirectory struct {
	mu      sync.Mutex
	devices []cloud.Device
}

func (d *mockDirectory) ListBlindDevices(context.Context) []cloud.Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]cloud.Device{}, d.devices...)
}

// recordingAdapter wraps a real adapter and records pushed states.
type recordingAdapter struct {
	platform.Adapter

	mu         sync.Mutex
	registered []platform.Descriptor
	states     []platform.State
}

func (r *recordingAdapter) Register(ctx context.Context, d platform.Descriptor) error {
	r.mu.Lock()
	r.registered = append(r.registered, d)
	r.mu.Unlock()
	return r.Adapter.Register(ctx, d)
}

func (r *recordingAdapter) PushState(ctx context.Context, d platform.Descriptor, s platform.State) error {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	return r.Adapter.PushState(ctx, d, s)
}

func (r *recordingAdapter) getStates() []platform.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]platform.State(nil), r.states...)
}

func (r *recordingAdapter) registrations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}

// mockCommandLog implements history.Repository.
type mockCommandLog struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *mockCommandLog) Append(_ context.Context, e *history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockCommandLog) List(context.Context, history.Filter) (*history.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &history.ListResult{Entries: append([]history.Entry(nil), m.entries...), Total: len(m.entries)}, nil
}

func (m *mockCommandLog) all() []history.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Entry(nil), m.entries...)
}

// mockHistory implements HistoryWriter.
type mockHistory struct {
	mu       sync.Mutex
	states   []int
	commands []bool
}

func (m *mockHistory) WriteCoverState(_ string, position int, _ bool, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, position)
}

func (m *mockHistory) WriteCommand(_, _ string, success bool, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, success)
}

// mockBroadcaster implements Broadcaster.
type mockBroadcaster struct {
	mu      sync.Mutex
	updates []StateUpdate
}

func (m *mockBroadcaster) Broadcast(channel string, payload any) {
	if channel != StateChannel {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := payload.(StateUpdate); ok {
		m.updates = append(m.updates, u)
	}
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
