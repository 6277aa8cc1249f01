package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-lampfx/internal/api"
	"github.com/nerrad567/gray-logic-lampfx/internal/audit"
	"github.com/nerrad567/gray-logic-lampfx/internal/device"
	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-lampfx/internal/process"
	"github.com/nerrad567/gray-logic-lampfx/internal/screen"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
	"github.com/nerrad567/gray-logic-lampfx/migrations"
)

// runOptions adjusts run for the preview command and for tests.
type runOptions struct {
	out        io.Writer
	preview    bool
	forceColor bool
}

// loadConfig reads and validates the configuration file.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// previewConfig loads (or defaults) the configuration and narrows it to a
// terminal-only session. Logs move to stderr so they do not tear the
// preview.
func previewConfig(path string, noConfig bool) (*config.Config, error) {
	cfg := config.Default()
	if !noConfig {
		loaded, err := loadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.MQTT.Enabled = false
	cfg.Database.Enabled = false
	cfg.Console.Enabled = true
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	return cfg, nil
}

// run is the service body shared by run and preview.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - cfg: Validated configuration
//   - opts: Output and preview switches
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	log := logging.New(cfg.Logging, version)
	log.Info("starting lampfx",
		"version", version,
		"commit", commit,
		"build_date", date,
		"preview", opts.preview,
	)

	checks := make(map[string]api.HealthChecker)

	// One AuroraSync instance receives the screen feed and backs every
	// aurora_sync effect built from config or the API.
	aurora := effect.NewAuroraSync()
	effectOpts := []effect.Option{effect.WithAuroraSync(aurora)}

	source, closeSource, err := buildSource(cfg, opts, log, checks)
	if err != nil {
		return err
	}
	defer closeSource()

	controller := engine.New(source, engine.Config{
		Brightness:         cfg.Engine.Brightness,
		Speed:              cfg.Engine.Speed,
		SmoothTransition:   cfg.Engine.SmoothTransition,
		TransitionDuration: cfg.TransitionDuration(),
	})
	controller.SetLogger(log.Component("engine"))
	defer func() {
		if closeErr := controller.Close(); closeErr != nil {
			log.Error("error stopping engine", "error", closeErr)
		}
	}()

	// Device inventory and audit log (optional)
	var auditLog audit.Repository
	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg.Database)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", db.Path())

		inv := device.NewSQLiteInventory(db.DB)
		if n, detachErr := inv.DetachAll(ctx); detachErr != nil {
			log.Warn("failed to reset stale inventory", "error", detachErr)
		} else if n > 0 {
			log.Info("marked stale devices detached", "count", n)
		}
		controller.SetInventory(inv)
		auditLog = audit.NewSQLiteRepository(db.DB)
		checks["database"] = db
	}

	// Render telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		controller.SetObserver(influxdb.NewFrameRecorder(influxClient, cfg.InfluxDB.SampleEvery))
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
			"sample_every", cfg.InfluxDB.SampleEvery,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Layout.Path != "" {
		layout, layoutErr := zone.LoadLayout(cfg.Layout.Path)
		if layoutErr != nil {
			return fmt.Errorf("loading layout: %w", layoutErr)
		}
		if layoutErr = controller.SetLayout(layout.Width, layout.Height, layout.Keys); layoutErr != nil {
			return fmt.Errorf("applying layout: %w", layoutErr)
		}
		log.Info("key layout loaded", "path", cfg.Layout.Path, "keys", len(layout.Keys))
	}

	if err := applyEffects(controller, cfg, effectOpts); err != nil {
		return err
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return controller.Run(gctx, cfg.FrameInterval())
	})

	if cfg.Screen.Enabled {
		feed := screen.NewFeed(
			screen.FileSource{Path: cfg.Screen.Path},
			aurora,
			cfg.Screen.Width,
			cfg.Screen.Height,
			time.Duration(cfg.Screen.Interval)*time.Millisecond,
		)
		feed.SetLogger(log.Component("screen"))
		g.Go(func() error {
			return feed.Run(gctx)
		})
		log.Info("screen feed started", "path", cfg.Screen.Path)

		if capture := cfg.Screen.Capture; len(capture.Command) > 0 {
			sup := process.NewSupervisor(process.Config{
				Name:         "screen-capture",
				Command:      capture.Command,
				RestartDelay: time.Duration(capture.RestartDelay) * time.Millisecond,
				MaxRestarts:  capture.MaxRestarts,
				HealthCheck: screen.FreshnessCheck(cfg.Screen.Path,
					time.Duration(capture.MaxAge)*time.Millisecond),
				HealthCheckInterval: time.Duration(capture.MaxAge) * time.Millisecond,
			})
			sup.SetLogger(log.Component("capture"))
			checks["screen_capture"] = sup
			g.Go(func() error {
				return sup.Run(gctx)
			})
		}
	}

	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:        cfg.API,
			Logger:        log.Component("api"),
			Controller:    controller,
			EffectOptions: effectOpts,
			Checks:        checks,
			Audit:         auditLog,
			Version:       version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr = srv.Start(); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	err = g.Wait()

	log.Info("lampfx stopped")
	return err
}

// openDatabase opens the inventory database and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// applyEffects installs the configured global effect and overrides.
func applyEffects(c *engine.Controller, cfg *config.Config, opts []effect.Option) error {
	if cfg.Effect.Type != "" {
		e, err := effect.New(cfg.Effect, opts...)
		if err != nil {
			return fmt.Errorf("building effect: %w", err)
		}
		c.SetEffect(e)
	}

	for i, o := range cfg.Overrides {
		indices, err := zone.ParseIndices(o.Indices)
		if err != nil {
			return fmt.Errorf("overrides[%d]: %w", i, err)
		}
		e, err := effect.New(o.Effect, opts...)
		if err != nil {
			return fmt.Errorf("overrides[%d]: %w", i, err)
		}
		c.SetEffectForIndices(indices, e)
	}
	return nil
}

// healthCheck verifies every configured dependency before the engine starts.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, hc := range checks {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
