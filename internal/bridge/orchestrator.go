package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/eventbus"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/history"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/platform"
)

// Orchestrator defaults.
const (
	DefaultSyncInterval = 5 * time.Minute
	DefaultResyncDelay  = 2 * time.Second

	// eventBuffer is the bridge's subscription buffer on the cloud event bus.
	eventBuffer = 64

	// logTimeout bounds command log writes made after the caller returned.
	logTimeout = 5 * time.Second
)

// Sync triggers, used as metric labels.
const (
	triggerDiscovery = "discovery"
	triggerCommand   = "command"
	triggerEvent     = "event"
	triggerPeriodic  = "periodic"
	triggerManual    = "manual"
)

// Command sources recorded in the command log.
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
)

// WebSocket channel the orchestrator broadcasts state on.
const StateChannel = "device.state"

// Cloud is the subset of *cloud.Client the orchestrator drives.
type Cloud interface {
	Authenticate(ctx context.Context) error
	GetDeviceStatus(ctx context.Context, deviceID string) []cloud.StatusEntry
	IsOnline(ctx context.Context, deviceID string) bool
	Open(ctx context.Context, deviceID string) bool
	Close(ctx context.Context, deviceID string) bool
	Stop(ctx context.Context, deviceID string) bool
	SetPosition(ctx context.Context, deviceID string, percent int) bool
}

// Directory lists the window coverings to expose. *cloud.Directory
// satisfies it.
type Directory interface {
	ListBlindDevices(ctx context.Context) []cloud.Device
}

// HistoryWriter records time series points. *influxdb.Client satisfies it.
type HistoryWriter interface {
	WriteCoverState(cloudDeviceID string, position int, online bool, at time.Time)
	WriteCommand(platform, action string, success bool, at time.Time)
}

// Broadcaster fans state out to live subscribers. *api.Hub satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger is the logging interface used by the orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures an Orchestrator.
type Options struct {
	// Cloud and Directory are required.
	Cloud     Cloud
	Directory Directory

	// Adapters are the ecosystems devices are registered with.
	Adapters []platform.Adapter

	// Events delivers webhook-derived cloud events. Optional.
	Events *eventbus.Bus[cloud.Event]

	// CommandLog records every handled command. Optional.
	CommandLog history.Repository

	// History receives cover state and command points. Optional.
	History HistoryWriter

	// Broadcaster receives every synced state. Optional.
	Broadcaster Broadcaster

	Logger Logger

	// SyncInterval defaults to DefaultSyncInterval.
	SyncInterval time.Duration

	// ResyncDelay defaults to DefaultResyncDelay.
	ResyncDelay time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// CommandRequest is one ecosystem command.
type CommandRequest struct {
	Platform         string
	PlatformDeviceID string
	Command          string
	Params           map[string]any
	Source           string
}

// CommandResult is the outcome of Execute. Err is nil exactly when Success
// is true.
type CommandResult struct {
	Success       bool
	CloudDeviceID string
	Action        Action
	Err           error
}

// StateUpdate is broadcast after every successful sync.
type StateUpdate struct {
	CloudDeviceID string         `json:"cloud_device_id"`
	State         platform.State `json:"state"`
}

// Orchestrator discovers devices, registers them with every ecosystem and
// keeps ecosystem state in step with the cloud.
//
// Thread Safety: All methods are safe for concurrent use.
type Orchestrator struct {
	cloud       Cloud
	directory   Directory
	adapters    map[string]platform.Adapter
	order       []string
	events      *eventbus.Bus[cloud.Event]
	commandLog  history.Repository
	history     HistoryWriter
	broadcaster Broadcaster
	logger      Logger

	syncInterval time.Duration
	resyncDelay  time.Duration
	now          func() time.Time

	registry *Registry

	// Shutdown coordination
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once

	// Pending post-command resyncs
	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
	stopped  bool

	periodicOnce sync.Once
	eventsOnce   sync.Once
}

// New creates an orchestrator. Call Initialize to authenticate and start.
func New(opts Options) (*Orchestrator, error) {
	if opts.Cloud == nil {
		return nil, fmt.Errorf("cloud client is required")
	}
	if opts.Directory == nil {
		return nil, fmt.Errorf("device directory is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		cloud:        opts.Cloud,
		directory:    opts.Directory,
		adapters:     make(map[string]platform.Adapter, len(opts.Adapters)),
		events:       opts.Events,
		commandLog:   opts.CommandLog,
		history:      opts.History,
		broadcaster:  opts.Broadcaster,
		logger:       opts.Logger,
		syncInterval: opts.SyncInterval,
		resyncDelay:  opts.ResyncDelay,
		now:          opts.Clock,
		registry:     NewRegistry(),
		ctx:          ctx,
		ctxCancel:    ctxCancel,
		timers:       make(map[*time.Timer]struct{}),
	}
	for _, a := range opts.Adapters {
		if _, dup := o.adapters[a.Name()]; dup {
			continue
		}
		o.adapters[a.Name()] = a
		o.order = append(o.order, a.Name())
	}
	if o.logger == nil {
		o.logger = noopLogger{}
	}
	if o.syncInterval <= 0 {
		o.syncInterval = DefaultSyncInterval
	}
	if o.resyncDelay <= 0 {
		o.resyncDelay = DefaultResyncDelay
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Initialize authenticates with the cloud, discovers and registers devices,
// subscribes to cloud events and starts periodic sync.
//
// Returns:
//   - error: ErrAuthentication wrapping the cause if the cloud rejects the
//     credentials; discovery problems are logged, not returned
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if o.ctx.Err() != nil {
		return ErrStopped
	}
	if err := o.cloud.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	o.logger.Info("authenticated with device cloud")

	count, err := o.DiscoverAndSync(ctx)
	if err != nil {
		return err
	}

	o.subscribeEvents()
	o.StartPeriodicSync(ctx)

	o.logger.Info("bridge initialized",
		"devices", count,
		"platforms", o.order,
		"sync_interval", o.syncInterval.String(),
	)
	return nil
}

// DiscoverAndSync lists window coverings, registers each with every
// adapter and syncs each device once. Rediscovery replaces a device's
// descriptors rather than adding to them.
//
// Returns:
//   - int: Number of devices discovered
//   - error: Only when ctx is cancelled
func (o *Orchestrator) DiscoverAndSync(ctx context.Context) (int, error) {
	devices := o.directory.ListBlindDevices(ctx)
	o.logger.Info("discovered blind devices", "count", len(devices))

	for _, dev := range devices {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		o.registerDevice(ctx, dev)
	}
	devicesRegistered.Set(float64(o.registry.Len()))

	for _, dev := range devices {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		o.syncDevice(ctx, dev.ID, triggerDiscovery)
	}
	return len(devices), nil
}

// registerDevice builds and registers a descriptor per adapter.
// A failed registration is logged; the descriptor is still kept so that
// commands and state pushes keep working once the ecosystem recovers.
func (o *Orchestrator) registerDevice(ctx context.Context, dev cloud.Device) {
	descs := make([]platform.Descriptor, 0, len(o.order))
	for _, name := range o.order {
		a := o.adapters[name]
		d := a.Build(dev)
		if err := a.Register(ctx, d); err != nil {
			o.logger.Warn("platform registration failed",
				"platform", name,
				"cloud_device_id", dev.ID,
				"error", err,
			)
		}
		descs = append(descs, d)
	}
	o.registry.Put(dev.ID, descs)
	o.logger.Debug("device registered",
		"cloud_device_id", dev.ID,
		"name", dev.Name,
		"platforms", len(descs),
	)
}

// ExecuteCommand runs an ecosystem command and reports whether the cloud
// accepted it.
func (o *Orchestrator) ExecuteCommand(ctx context.Context, platformName, platformDeviceID, command string, params map[string]any) bool {
	return o.Execute(ctx, CommandRequest{
		Platform:         platformName,
		PlatformDeviceID: platformDeviceID,
		Command:          command,
		Params:           params,
		Source:           SourceAPI,
	}).Success
}

// Execute runs an ecosystem command: reverse lookup, normalisation, cloud
// call, and on success a resync after the resync delay. Every outcome is
// appended to the command log.
func (o *Orchestrator) Execute(ctx context.Context, req CommandRequest) CommandResult {
	res := o.execute(ctx, req)

	outcome := "ok"
	if !res.Success {
		outcome = "error"
	}
	action := string(res.Action)
	if action == "" {
		action = "unknown"
	}
	commandsTotal.WithLabelValues(req.Platform, action, outcome).Inc()
	if o.history != nil {
		o.history.WriteCommand(req.Platform, action, res.Success, o.now())
	}
	o.appendLog(ctx, req, res)
	return res
}

func (o *Orchestrator) execute(ctx context.Context, req CommandRequest) CommandResult {
	desc, ok := o.registry.Find(req.Platform, req.PlatformDeviceID)
	if !ok {
		o.logger.Warn("command for unknown device",
			"platform", req.Platform,
			"platform_device_id", req.PlatformDeviceID,
			"command", req.Command,
		)
		return CommandResult{Err: fmt.Errorf("%w: %s", ErrUnknownDevice, req.PlatformDeviceID)}
	}
	cloudID := desc.CloudDeviceID

	n, ok := NormalizeCommand(req.Command, req.Params)
	if !ok {
		o.logger.Warn("unknown command",
			"platform", req.Platform,
			"cloud_device_id", cloudID,
			"command", req.Command,
		)
		return CommandResult{CloudDeviceID: cloudID, Err: fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)}
	}

	var accepted bool
	switch n.Action {
	case ActionOpen:
		accepted = o.cloud.Open(ctx, cloudID)
	case ActionClose:
		accepted = o.cloud.Close(ctx, cloudID)
	case ActionStop:
		accepted = o.cloud.Stop(ctx, cloudID)
	case ActionSetPosition:
		accepted = o.cloud.SetPosition(ctx, cloudID, n.Position)
	}

	res := CommandResult{Success: accepted, CloudDeviceID: cloudID, Action: n.Action}
	if !accepted {
		res.Err = fmt.Errorf("%w: %s %s", ErrCommandRejected, n.Action, cloudID)
		o.logger.Warn("command not accepted",
			"platform", req.Platform,
			"cloud_device_id", cloudID,
			"action", n.Action,
		)
		return res
	}

	o.logger.Info("command executed",
		"platform", req.Platform,
		"cloud_device_id", cloudID,
		"action", n.Action,
		"position", n.Position,
	)
	o.scheduleResync(cloudID)
	return res
}

// appendLog writes the command outcome to the command log.
func (o *Orchestrator) appendLog(ctx context.Context, req CommandRequest, res CommandResult) {
	if o.commandLog == nil {
		return
	}
	entry := &history.Entry{
		Platform:         req.Platform,
		PlatformDeviceID: req.PlatformDeviceID,
		CloudDeviceID:    res.CloudDeviceID,
		Command:          req.Command,
		Action:           string(res.Action),
		Params:           req.Params,
		Success:          res.Success,
		Source:           req.Source,
		CreatedAt:        o.now(),
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}

	// The command already happened; record it even if the caller has gone.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logTimeout)
	defer cancel()
	if err := o.commandLog.Append(logCtx, entry); err != nil {
		o.logger.Warn("failed to append command log", "error", err)
	}
}

// scheduleResync syncs a device once after the resync delay.
func (o *Orchestrator) scheduleResync(cloudID string) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()
	if o.stopped {
		return
	}

	var t *time.Timer
	o.wg.Add(1)
	t = time.AfterFunc(o.resyncDelay, func() {
		defer o.wg.Done()
		o.timersMu.Lock()
		delete(o.timers, t)
		o.timersMu.Unlock()
		o.syncDevice(o.ctx, cloudID, triggerCommand)
	})
	o.timers[t] = struct{}{}
}

// SyncDeviceStatus fetches a device's status and online flag and pushes the
// resulting state to every ecosystem it is registered with.
//
// Returns:
//   - bool: false if the device is unknown or its status could not be read
func (o *Orchestrator) SyncDeviceStatus(ctx context.Context, cloudID string) bool {
	return o.syncDevice(ctx, cloudID, triggerManual)
}

func (o *Orchestrator) syncDevice(ctx context.Context, cloudID, trigger string) bool {
	ok := o.sync(ctx, cloudID)
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	syncsTotal.WithLabelValues(trigger, outcome).Inc()
	return ok
}

func (o *Orchestrator) sync(ctx context.Context, cloudID string) bool {
	descs, ok := o.registry.Get(cloudID)
	if !ok {
		o.logger.Debug("sync skipped for unregistered device", "cloud_device_id", cloudID)
		return false
	}

	status := o.cloud.GetDeviceStatus(ctx, cloudID)
	if status == nil {
		o.logger.Warn("device status unavailable", "cloud_device_id", cloudID)
		return false
	}
	position, _ := cloud.PositionFromStatus(status)
	online := o.cloud.IsOnline(ctx, cloudID)

	now := o.now()
	state := platform.State{
		Position:  position,
		Online:    online,
		WorkState: workState(status),
		Status:    status,
		UpdatedAt: now,
	}

	for _, d := range descs {
		a, ok := o.adapters[d.Platform]
		if !ok {
			continue
		}
		if err := a.PushState(ctx, d, state); err != nil {
			o.logger.Warn("state push failed",
				"platform", d.Platform,
				"cloud_device_id", cloudID,
				"error", err,
			)
		}
	}
	o.registry.MarkSynced(cloudID, now)

	if o.history != nil {
		o.history.WriteCoverState(cloudID, position, online, now)
	}
	if o.broadcaster != nil {
		o.broadcaster.Broadcast(StateChannel, StateUpdate{CloudDeviceID: cloudID, State: state})
	}

	o.logger.Debug("device synced",
		"cloud_device_id", cloudID,
		"position", position,
		"online", online,
		"platforms", len(descs),
	)
	return true
}

// workState returns the string work_state status value, if any.
func workState(status []cloud.StatusEntry) string {
	v, ok := cloud.StatusValue(status, cloud.CodeWorkState)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.ToLower(s)
}

// StartPeriodicSync resyncs every registered device at the sync interval
// until ctx is cancelled or Stop is called. Only the first call starts a
// loop.
func (o *Orchestrator) StartPeriodicSync(ctx context.Context) {
	o.periodicOnce.Do(func() {
		o.timersMu.Lock()
		defer o.timersMu.Unlock()
		if o.stopped {
			return
		}
		o.wg.Add(1)
		go o.periodicLoop(ctx)
	})
}

func (o *Orchestrator) periodicLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			ids := o.registry.CloudIDs()
			o.logger.Debug("periodic sync", "devices", len(ids))
			for _, id := range ids {
				if o.ctx.Err() != nil {
					return
				}
				o.syncDevice(o.ctx, id, triggerPeriodic)
			}
		}
	}
}

// subscribeEvents starts the cloud event loop. Events for devices outside
// the registry are ignored.
func (o *Orchestrator) subscribeEvents() {
	if o.events == nil {
		return
	}
	o.eventsOnce.Do(func() {
		o.timersMu.Lock()
		defer o.timersMu.Unlock()
		if o.stopped {
			return
		}
		ch, unsubscribe := o.events.Subscribe(eventBuffer)
		o.wg.Add(1)
		go o.eventLoop(ch, unsubscribe)
	})
}

func (o *Orchestrator) eventLoop(ch <-chan cloud.Event, unsubscribe func()) {
	defer o.wg.Done()
	defer unsubscribe()

	for {
		select {
		case <-o.ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if !o.registry.Has(ev.DeviceID) {
				o.logger.Debug("event for unregistered device",
					"cloud_device_id", ev.DeviceID,
					"kind", ev.Kind,
				)
				continue
			}
			o.syncDevice(o.ctx, ev.DeviceID, triggerEvent)
		}
	}
}

// Stop cancels pending resyncs and background loops and waits for them to
// finish. Safe to call multiple times.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.timersMu.Lock()
		o.stopped = true
		for t := range o.timers {
			if t.Stop() {
				o.wg.Done()
			}
		}
		clear(o.timers)
		o.timersMu.Unlock()

		o.ctxCancel()
		o.wg.Wait()
		o.logger.Info("bridge stopped")
	})
}

// Devices returns a snapshot of the registry sorted by cloud device id.
func (o *Orchestrator) Devices() []Entry {
	return o.registry.Snapshot()
}

// Device returns the descriptors registered for one cloud device.
func (o *Orchestrator) Device(cloudID string) ([]platform.Descriptor, bool) {
	return o.registry.Get(cloudID)
}

// Lookup returns the descriptor for an ecosystem device id.
func (o *Orchestrator) Lookup(platformName, platformDeviceID string) (platform.Descriptor, bool) {
	return o.registry.Find(platformName, platformDeviceID)
}

// DeviceCount returns the number of registered cloud devices.
func (o *Orchestrator) DeviceCount() int {
	return o.registry.Len()
}

// Platforms returns the configured ecosystem names in registration order.
func (o *Orchestrator) Platforms() []string {
	return append([]string(nil), o.order...)
}

// IsUnknownDevice reports whether err is a lookup failure.
func IsUnknownDevice(err error) bool {
	return errors.Is(err, ErrUnknownDevice)
}
