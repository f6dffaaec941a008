// Package bridge ties the cloud client to the ecosystem adapters.
//
// The Orchestrator discovers window coverings through the device directory,
// registers each one with every configured ecosystem adapter and keeps the
// resulting descriptors in an in-memory Registry. It then keeps ecosystem
// state in step with the cloud from three directions:
//
//   - commands: an ecosystem command is normalised, sent to the cloud and
//     followed by a delayed resync of the device
//   - events: webhook-derived status and online events trigger a resync
//   - polling: every known device is resynced on a fixed interval
//
// # Command vocabulary
//
// Command names are matched case-insensitively:
//
//	open, up, upopen, uporopen                         -> open
//	close, down, downclose, downorclose                -> close
//	stop, stopmotion                                   -> stop
//	setposition, gotoliftpercentage, percent_control   -> set position
//
// The target of a set position command is taken from the first numeric
// parameter among position, rangeValue, openPercent and
// liftPercent100thsValue, defaulting to 0.
//
// # MQTT
//
// CommandIngress accepts commands on cloudbridge/<platform>/command/<id>
// and acknowledges on cloudbridge/<platform>/ack/<id>. HealthReporter
// publishes retained status to cloudbridge/health.
//
// # Thread Safety
//
// All exported types are safe for concurrent use.
package bridge
