// Package mqttlamp discovers and drives networked lamp arrays over MQTT.
//
// A device announces itself with a retained JSON descriptor and reports
// availability on its own topic:
//
//	lampfx/device/{id}/announce      {"name":"desk","lamps":[{"index":0,...}]}
//	lampfx/device/{id}/availability  online | offline
//
// An empty retained announce removes the device. The engine sends colour
// frames to lampfx/device/{id}/frame as CBOR maps at QoS 0.
//
// Source implements hotplug.Source. Its watchers subscribe when started and
// report EnumerationCompleted once a settle delay has passed, which gives
// the broker time to replay retained descriptors.
package mqttlamp
