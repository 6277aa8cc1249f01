// Package influxdb records lampfx render telemetry in InfluxDB v2.
//
// The engine reports every frame to an engine.FrameObserver. FrameRecorder
// samples those reports and writes them as lampfx_frame points tagged with
// the active effect:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	controller.SetObserver(influxdb.NewFrameRecorder(client, cfg.InfluxDB.SampleEvery))
//
// Writes are batched and non-blocking so the render loop never waits on
// the network. Write failures arrive through Client.SetOnError.
package influxdb
