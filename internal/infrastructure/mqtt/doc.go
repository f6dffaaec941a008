// Package mqtt provides MQTT connectivity for the cloud bridge.
//
// The bridge uses MQTT as the surface ecosystem connectors attach to:
// descriptors and state are published per ecosystem, commands arrive on
// per-device command topics and are acknowledged on ack topics.
//
//	Ecosystem connectors ↔ MQTT Broker ↔ Cloud Bridge ↔ Device Cloud
//
// The client reconnects with backoff, restores subscriptions after a
// reconnect, and registers an LWT on cloudbridge/system/status so a crashed
// bridge is reported offline by the broker.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt
