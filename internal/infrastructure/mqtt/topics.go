package mqtt

import "fmt"

// TopicPrefix is the root of every cloud bridge topic.
//
// Per-ecosystem topics use: cloudbridge/{platform}/{kind}/{platform_device_id}
const TopicPrefix = "cloudbridge"

// TopicPrefixSystem is the base for system topics.
const TopicPrefixSystem = TopicPrefix + "/system"

// Topics provides builders for cloud bridge MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.PlatformState("google", "google_tuya_ABC123")
//	// Returns: "cloudbridge/google/state/google_tuya_ABC123"
type Topics struct{}

// PlatformRegister returns the retained registration topic of one ecosystem device.
//
// Example: cloudbridge/alexa/register/alexa_tuya_ABC123
func (Topics) PlatformRegister(platform, deviceID string) string {
	return fmt.Sprintf("%s/%s/register/%s", TopicPrefix, platform, deviceID)
}

// PlatformState returns the state topic of one ecosystem device.
//
// Example: cloudbridge/homekit/state/homekit_tuya_ABC123
func (Topics) PlatformState(platform, deviceID string) string {
	return fmt.Sprintf("%s/%s/state/%s", TopicPrefix, platform, deviceID)
}

// PlatformCommand returns the topic ecosystem connectors send commands on.
//
// Example: cloudbridge/matter/command/matter_tuya_ABC123
func (Topics) PlatformCommand(platform, deviceID string) string {
	return fmt.Sprintf("%s/%s/command/%s", TopicPrefix, platform, deviceID)
}

// PlatformAck returns the topic command acknowledgements are published on.
//
// Example: cloudbridge/matter/ack/matter_tuya_ABC123
func (Topics) PlatformAck(platform, deviceID string) string {
	return fmt.Sprintf("%s/%s/ack/%s", TopicPrefix, platform, deviceID)
}

// Health returns the bridge health topic.
//
// Example: cloudbridge/health
func (Topics) Health() string {
	return TopicPrefix + "/health"
}

// SystemStatus returns the online/offline status topic used for the LWT.
//
// Example: cloudbridge/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllCommands matches commands for every ecosystem and device.
//
// Pattern: cloudbridge/+/command/+
func (Topics) AllCommands() string {
	return TopicPrefix + "/+/command/+"
}

// AllStates matches state updates for every ecosystem and device.
//
// Pattern: cloudbridge/+/state/+
func (Topics) AllStates() string {
	return TopicPrefix + "/+/state/+"
}

// AllTopics returns a pattern matching all cloud bridge topics.
//
// Pattern: cloudbridge/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
