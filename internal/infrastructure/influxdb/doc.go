// Package influxdb records cover history in InfluxDB v2.
//
// Two measurements are written:
//
//	cover_state    tags: cloud_device_id       fields: position, online
//	cover_command  tags: platform, action      fields: success
//
// History is optional. When disabled, Connect returns ErrDisabled and
// callers run without a client.
package influxdb
