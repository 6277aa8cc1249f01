// Package config handles loading and validating lampfx configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (LAMPFX_*)
//   - Validation of ranges, effect specs and override index ranges
//   - Default value handling
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/lampfx.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Engine.FrameRate)
package config
