package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/mqtt"
)

// Ingress constants.
const (
	// commandTopicParts is the part count of cloudbridge/{platform}/command/{id}.
	commandTopicParts = 4

	// commandTimeout bounds a single MQTT-originated command.
	commandTimeout = 15 * time.Second

	ackQoS = 1
)

// MQTTClient is the subset of *mqtt.Client used for command ingress.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Executor runs commands. *Orchestrator satisfies it.
type Executor interface {
	Execute(ctx context.Context, req CommandRequest) CommandResult
}

// CommandIngress executes ecosystem commands received over MQTT and
// publishes an acknowledgement for each.
type CommandIngress struct {
	client MQTTClient
	exec   Executor
	logger Logger
	topics mqtt.Topics
	now    func() time.Time

	// Known ecosystems; commands for other names are rejected.
	platforms map[string]bool

	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// NewCommandIngress returns an ingress for the given ecosystems.
func NewCommandIngress(client MQTTClient, exec Executor, platforms []string, logger Logger) *CommandIngress {
	if logger == nil {
		logger = noopLogger{}
	}
	known := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		known[p] = true
	}
	ctx, ctxCancel := context.WithCancel(context.Background())
	return &CommandIngress{
		client:    client,
		exec:      exec,
		logger:    logger,
		now:       time.Now,
		platforms: known,
		ctx:       ctx,
		ctxCancel: ctxCancel,
	}
}

// Start subscribes to the command topics of every ecosystem.
func (ci *CommandIngress) Start() error {
	topic := ci.topics.AllCommands()
	if err := ci.client.Subscribe(topic, ackQoS, ci.handleMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	ci.logger.Info("subscribed to commands", "topic", topic)
	return nil
}

// Stop unsubscribes and cancels in-flight commands.
func (ci *CommandIngress) Stop() {
	ci.stopOnce.Do(func() {
		ci.ctxCancel()
		if err := ci.client.Unsubscribe(ci.topics.AllCommands()); err != nil {
			ci.logger.Warn("failed to unsubscribe from commands", "error", err)
		}
	})
}

// handleMessage parses, executes and acknowledges one command.
// Malformed topics are dropped; every other failure is acknowledged.
func (ci *CommandIngress) handleMessage(topic string, payload []byte) error {
	platformName, deviceID, ok := parseCommandTopic(topic)
	if !ok {
		return fmt.Errorf("invalid command topic: %s", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		ci.publishAck(platformName, deviceID, newAckError(cmd, platformName, deviceID,
			ErrCodeInvalidPayload, fmt.Sprintf("invalid command payload: %v", err), ci.now()))
		return fmt.Errorf("parse command: %w", err)
	}
	if !ci.platforms[platformName] {
		ci.publishAck(platformName, deviceID, newAckError(cmd, platformName, deviceID,
			ErrCodeDeviceNotFound, fmt.Sprintf("platform %s not enabled", platformName), ci.now()))
		return nil
	}

	ci.logger.Info("received command",
		"command_id", cmd.ID,
		"platform", platformName,
		"platform_device_id", deviceID,
		"command", cmd.Command,
	)

	source := SourceMQTT
	if cmd.Source != "" {
		source = SourceMQTT + ":" + cmd.Source
	}

	ctx, cancel := context.WithTimeout(ci.ctx, commandTimeout)
	defer cancel()
	res := ci.exec.Execute(ctx, CommandRequest{
		Platform:         platformName,
		PlatformDeviceID: deviceID,
		Command:          cmd.Command,
		Params:           cmd.Parameters,
		Source:           source,
	})

	ci.publishAck(platformName, deviceID, newAck(cmd, platformName, deviceID, res, ci.now()))
	return nil
}

func (ci *CommandIngress) publishAck(platformName, deviceID string, ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		ci.logger.Error("failed to marshal ack", "error", err)
		return
	}
	if err := ci.client.Publish(ci.topics.PlatformAck(platformName, deviceID), payload, ackQoS, false); err != nil {
		ci.logger.Error("failed to publish ack", "error", err)
	}
}

// parseCommandTopic splits cloudbridge/{platform}/command/{id}.
func parseCommandTopic(topic string) (platformName, deviceID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[0] != mqtt.TopicPrefix || parts[2] != "command" {
		return "", "", false
	}
	if parts[1] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[1], parts[3], true
}
