package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/mqtt"
)

// DefaultHealthInterval is used when HealthReporterConfig.Interval is zero.
const DefaultHealthInterval = 30 * time.Second

// HealthPublisher publishes health messages. *mqtt.Client satisfies it.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// SessionState reports whether a cloud session is held.
// *cloud.SessionManager satisfies it.
type SessionState interface {
	HasSession() bool
}

// DeviceCounter reports how many devices are managed. *Orchestrator
// satisfies it.
type DeviceCounter interface {
	DeviceCount() int
	Platforms() []string
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	BridgeID string
	Version  string

	// Interval defaults to DefaultHealthInterval.
	Interval time.Duration

	Publisher HealthPublisher
	Session   SessionState
	Devices   DeviceCounter
	Logger    Logger
}

// HealthReporter publishes bridge status to MQTT at a fixed interval.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	session   SessionState
	devices   DeviceCounter
	logger    Logger
	topics    mqtt.Topics
	now       func() time.Time

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a health reporter. Call Start to begin.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		session:   cfg.Session,
		devices:   cfg.Devices,
		logger:    logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus evaluates the broker connection and cloud session.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.session != nil && !h.session.HasSession() {
		return HealthDegraded, "no cloud session"
	}
	return HealthHealthy, ""
}

// Message builds the health message for a status.
func (h *HealthReporter) Message(status HealthStatus, reason string) HealthMessage {
	now := h.now()
	msg := HealthMessage{
		Bridge:        h.bridgeID,
		Timestamp:     now.UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		Reason:        reason,
	}
	if h.devices != nil {
		msg.DevicesManaged = h.devices.DeviceCount()
		msg.Platforms = h.devices.Platforms()
	}
	return msg
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(h.Message(status, reason))
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.topics.Health(), payload, 1, true)
}
