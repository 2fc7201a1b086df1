// Package mqtt provides the MQTT connection used as the host channel between
// the Scanlink gateway and the desktop host application.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions, restored after every reconnect
//   - Last Will and Testament (LWT) so the host sees gateway crashes
//
// # Topic layout
//
// All topics live under a configurable prefix (default "scanlink"):
//
//	scanlink/gateway/status          retained online/offline status
//	scanlink/host/event/{name}       gateway -> host lifecycle events (wsClose, wsError)
//	scanlink/host/frame/{action}     scanner frames relayed verbatim to the host
//	scanlink/host/command/{name}     host -> gateway (kick, settings)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllHostCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        name, _ := topics.CommandName(topic)
//	        log.Printf("command %s: %s", name, payload)
//	        return nil
//	    })
package mqtt
