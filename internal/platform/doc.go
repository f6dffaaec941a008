// Package platform presents cloud covers to smart-home ecosystems.
//
// One Adapter exists per ecosystem (Alexa, Google, HomeKit, SmartThings,
// Matter). Each derives a Descriptor from a cloud device, carrying the
// ecosystem's own registration document as Payload, and translates the
// shared State into that ecosystem's state vocabulary.
//
// Platform device ids are always "<platform>_tuya_<cloudDeviceId>", so
// DeviceID and CloudID convert in both directions without a lookup table.
//
// Documents are published through a Publisher, normally the MQTT client:
//
//	cloudbridge/<platform>/register/<platformDeviceId>  (retained)
//	cloudbridge/<platform>/state/<platformDeviceId>     (retained)
package platform
