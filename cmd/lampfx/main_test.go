package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/api"
	"github.com/nerrad567/gray-logic-lampfx/internal/device"
	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug/hotplugtest"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/logging"
)

// execute runs the command tree with args and returns its output.
func execute(ctx context.Context, args ...string) (string, error) {
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// TestRootCommand_ShowsHelp verifies the bare command prints usage.
func TestRootCommand_ShowsHelp(t *testing.T) {
	out, err := execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(out, "Usage:") || !strings.Contains(out, "preview") {
		t.Errorf("help output missing usage or subcommands:\n%s", out)
	}
}

// TestVersionCommand verifies build info is printed.
func TestVersionCommand(t *testing.T) {
	out, err := execute(context.Background(), "version")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(out, "lampfx "+version) || !strings.Contains(out, commit) {
		t.Errorf("version output = %q", out)
	}
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	_, err := execute(context.Background(), "run", "--config", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want loading config failure", err)
	}
}

// TestRun_NoSource verifies run refuses to start without a lamp source.
func TestRun_NoSource(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: error\n  output: discard\n")

	_, err := execute(context.Background(), "run", "--config", path)
	if !errors.Is(err, errNoSource) {
		t.Errorf("error = %v, want errNoSource", err)
	}
}

// TestPreview_RendersToTerminal runs the preview until the context ends and
// checks the virtual keyboard was drawn.
func TestPreview_RendersToTerminal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	out, err := execute(ctx, "preview", "--no-config", "--force-color", "--lamps", "4", "--columns", "4")
	if err != nil {
		t.Fatalf("preview error: %v", err)
	}
	if !strings.Contains(out, "\x1b[48;2;255;255;255m") {
		t.Errorf("preview output has no white lamp cells: %q", out)
	}
}

// TestPreviewConfig_DisablesNetworking verifies preview strips MQTT and the
// inventory and keeps logs off stdout.
func TestPreviewConfig_DisablesNetworking(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  enabled: true
  broker:
    host: broker.local
database:
  enabled: true
  path: /tmp/lampfx-test.db
`)

	cfg, err := previewConfig(path, false)
	if err != nil {
		t.Fatalf("previewConfig() error: %v", err)
	}
	if cfg.MQTT.Enabled || cfg.Database.Enabled {
		t.Error("preview should disable MQTT and database")
	}
	if !cfg.Console.Enabled {
		t.Error("preview should enable the console device")
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Logging.Output = %q, want stderr", cfg.Logging.Output)
	}
}

// TestDevices_ListsInventory verifies the devices command reads the inventory.
func TestDevices_ListsInventory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lampfx.db")
	path := writeConfig(t, "database:\n  enabled: true\n  path: "+dbPath+"\n")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	db, err := openDatabase(context.Background(), cfg.Database)
	if err != nil {
		t.Fatalf("openDatabase() error: %v", err)
	}
	inv := device.NewSQLiteInventory(db.DB)
	if err := inv.RecordAttached(context.Background(), "desk-keyboard", 104); err != nil {
		t.Fatalf("RecordAttached() error: %v", err)
	}
	if err := inv.RecordAttached(context.Background(), "mouse", 3); err != nil {
		t.Fatalf("RecordAttached() error: %v", err)
	}
	if err := inv.RecordDetached(context.Background(), "mouse"); err != nil {
		t.Fatalf("RecordDetached() error: %v", err)
	}
	db.Close()

	out, err := execute(context.Background(), "devices", "--config", path)
	if err != nil {
		t.Fatalf("devices error: %v", err)
	}
	for _, want := range []string{"desk-keyboard", "104", "attached", "mouse", "detached"} {
		if !strings.Contains(out, want) {
			t.Errorf("devices output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(context.Background(), "devices", "--config", path, "--history", "mouse")
	if err != nil {
		t.Fatalf("devices --history error: %v", err)
	}
	if !strings.Contains(out, "attach") || !strings.Contains(out, "detach") {
		t.Errorf("history output missing events:\n%s", out)
	}
}

// TestApplyEffects installs the global effect and overrides from config.
func TestApplyEffects(t *testing.T) {
	c := engine.New(hotplugtest.NewSource(), engine.DefaultConfig())
	defer c.Close()

	cfg := config.Default()
	cfg.Effect = effect.Spec{Type: effect.KindRainbowWave}
	cfg.Overrides = []config.OverrideConfig{
		{Indices: "0-2", Effect: effect.Spec{Type: effect.KindStatic, Color: "#ff0000"}},
	}

	if err := applyEffects(c, cfg, nil); err != nil {
		t.Fatalf("applyEffects() error: %v", err)
	}

	current, _ := c.Effects()
	if current == nil || current.Kind() != effect.KindRainbowWave {
		t.Errorf("current effect = %v, want rainbow_wave", current)
	}
	if got := len(c.Overrides()); got != 3 {
		t.Errorf("overrides = %d, want 3", got)
	}
}

// TestApplyEffects_BadOverride reports the failing override.
func TestApplyEffects_BadOverride(t *testing.T) {
	c := engine.New(hotplugtest.NewSource(), engine.DefaultConfig())
	defer c.Close()

	cfg := config.Default()
	cfg.Overrides = []config.OverrideConfig{{Indices: "9-1", Effect: effect.Spec{Type: effect.KindStatic}}}

	err := applyEffects(c, cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "overrides[0]") {
		t.Errorf("applyEffects() error = %v, want overrides[0] failure", err)
	}
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("down") }

// TestHealthCheck names the failing dependency.
func TestHealthCheck(t *testing.T) {
	err := healthCheck(context.Background(), map[string]api.HealthChecker{"mqtt": failingCheck{}})
	if err == nil || !strings.Contains(err.Error(), "mqtt: down") {
		t.Errorf("healthCheck() error = %v", err)
	}
}

// TestBuildSource_ConsoleFallback uses the console when MQTT is off.
func TestBuildSource_ConsoleFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Console.Enabled = true

	src, closeFn, err := buildSource(cfg, runOptions{out: new(bytes.Buffer)}, logging.Default(), map[string]api.HealthChecker{})
	if err != nil {
		t.Fatalf("buildSource() error: %v", err)
	}
	defer closeFn()
	if src.Selector() != "console" {
		t.Errorf("Selector() = %q, want console", src.Selector())
	}
}
