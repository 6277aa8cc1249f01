package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/api"
	"github.com/nerrad567/gray-logic-lampfx/internal/bridges/mqttlamp"
	"github.com/nerrad567/gray-logic-lampfx/internal/console"
	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/mqtt"
)

// errNoSource is returned when neither MQTT nor the console device is enabled.
var errNoSource = errors.New("no lamp source configured: enable mqtt or console")

// buildSource picks the hotplug source: the terminal in preview, otherwise
// MQTT when enabled, falling back to the console device.
//
// Returns:
//   - hotplug.Source: the source handed to the engine
//   - func(): releases the transport; always non-nil
//   - error: if the transport cannot be reached
func buildSource(cfg *config.Config, opts runOptions, log *logging.Logger, checks map[string]api.HealthChecker) (hotplug.Source, func(), error) {
	if !opts.preview && cfg.MQTT.Enabled {
		return mqttSource(cfg.MQTT, log, checks)
	}

	if opts.preview || cfg.Console.Enabled {
		arr := console.NewArray(opts.out, cfg.Console.Lamps, cfg.Console.Columns)
		if opts.forceColor {
			arr.ForceColor()
		}
		log.Info("console lamp array enabled", "lamps", arr.LampCount())
		return console.NewSource(arr), func() {}, nil
	}

	return nil, func() {}, errNoSource
}

func mqttSource(cfg config.MQTTConfig, log *logging.Logger, checks map[string]api.HealthChecker) (hotplug.Source, func(), error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	checks["mqtt"] = client

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", client.ClientID(),
	)

	src := mqttlamp.NewSource(client, time.Duration(cfg.Bridge.SettleDelay)*time.Millisecond)
	src.SetLogger(log.Component("mqttlamp"))

	closeFn := func() {
		log.Info("disconnecting from MQTT")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}
	return src, closeFn, nil
}
