package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots for the lampfx bus.
//
// Networked lamp arrays live under lampfx/device/{id}/...:
//
//	lampfx/device/{id}/announce      retained descriptor, empty when gone
//	lampfx/device/{id}/availability  "online" or "offline"
//	lampfx/device/{id}/frame         CBOR colour frames from the engine
const (
	TopicPrefix       = "lampfx"
	TopicPrefixDevice = "lampfx/device"
	TopicPrefixSystem = "lampfx/system"
)

// Device topic leaves.
const (
	LeafAnnounce     = "announce"
	LeafAvailability = "availability"
	LeafFrame        = "frame"
)

// Topics provides builders for lampfx MQTT topics.
type Topics struct{}

// DeviceAnnounce returns the retained descriptor topic for a lamp array.
//
// Example: lampfx/device/kbd-desk/announce
func (Topics) DeviceAnnounce(deviceID string) string {
	return deviceTopic(deviceID, LeafAnnounce)
}

// DeviceAvailability returns the availability topic for a lamp array.
//
// Example: lampfx/device/kbd-desk/availability
func (Topics) DeviceAvailability(deviceID string) string {
	return deviceTopic(deviceID, LeafAvailability)
}

// DeviceFrame returns the topic the engine publishes colour frames to.
//
// Example: lampfx/device/kbd-desk/frame
func (Topics) DeviceFrame(deviceID string) string {
	return deviceTopic(deviceID, LeafFrame)
}

// AllDeviceAnnounces matches every device descriptor.
//
// Pattern: lampfx/device/+/announce
func (Topics) AllDeviceAnnounces() string {
	return deviceTopic("+", LeafAnnounce)
}

// AllDeviceAvailability matches every device availability topic.
//
// Pattern: lampfx/device/+/availability
func (Topics) AllDeviceAvailability() string {
	return deviceTopic("+", LeafAvailability)
}

// SystemStatus returns the engine's own online/offline topic.
//
// Example: lampfx/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ParseDeviceTopic splits lampfx/device/{id}/{leaf}. ok is false for any
// other shape.
func ParseDeviceTopic(topic string) (deviceID, leaf string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixDevice+"/")
	if !found {
		return "", "", false
	}
	deviceID, leaf, found = strings.Cut(rest, "/")
	if !found || deviceID == "" || leaf == "" || strings.Contains(leaf, "/") {
		return "", "", false
	}
	return deviceID, leaf, true
}

func deviceTopic(deviceID, leaf string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixDevice, deviceID, leaf)
}
