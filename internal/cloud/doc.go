// Package cloud is a client for the Tuya-protocol device cloud OpenAPI.
//
// Every request is signed with HMAC-SHA256 over the client id, access token,
// timestamp, nonce and a canonical request string. The client keeps one
// session per instance and renews it transparently when less than
// RefreshMargin of token life remains.
//
// Failure policy:
//
//   - Reads (ListDevices, GetDeviceStatus, ...) log and return empty values.
//   - Commands (SendCommand, Open, SetPosition, ...) return false.
//   - Authentication failures return ErrAuthFailed and are fatal.
//
// Webhook deliveries are converted to Event values and published on an
// eventbus.Bus so consumers do not need to poll.
//
// Usage:
//
//	client, err := cloud.NewClient(cloud.Options{
//	    ClientID: cfg.Cloud.ClientID,
//	    Secret:   cfg.Cloud.Secret,
//	    Region:   cfg.Cloud.Region,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := client.Authenticate(ctx); err != nil {
//	    return err
//	}
//	blinds := cloud.NewDirectory(client).ListBlindDevices(ctx)
package cloud
