// Package mqtt provides MQTT client connectivity for lampfx.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament on lampfx/system/status
//
// The engine uses MQTT to reach networked lamp arrays. Arrays announce
// themselves with a retained descriptor and receive colour frames:
//
//	lampfx engine ↔ MQTT broker ↔ networked lamp arrays
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceAnnounces(), 1,
//	    func(topic string, payload []byte) error {
//	        id, _, _ := mqtt.ParseDeviceTopic(topic)
//	        logger.Info("announce", "device", id)
//	        return nil
//	    })
//
// Use TLS (cfg.Broker.TLS) whenever the broker is not on localhost.
package mqtt
