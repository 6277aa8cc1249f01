package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-lampfx/internal/audit"
	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug/hotplugtest"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp/lamptest"
	"github.com/nerrad567/gray-logic-lampfx/migrations"
)

type stubCheck struct{ err error }

func (s stubCheck) HealthCheck(context.Context) error { return s.err }

// testServer wires a Server to a real controller with one fake keyboard.
func testServer(t *testing.T) (*Server, *engine.Controller, *lamptest.FakeArray) {
	t.Helper()

	cfg := engine.DefaultConfig()
	cfg.SmoothTransition = false
	c := engine.New(hotplugtest.NewSource(), cfg)
	t.Cleanup(func() { _ = c.Close() })

	kb := lamptest.NewArray("kb", lamptest.Row(8, 0.02, 0.01)...)
	c.Registry().Add(kb.ID(), kb)

	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	srv, err := New(Deps{
		Logger:     log,
		Controller: c,
		Checks: map[string]HealthChecker{
			"mqtt":     stubCheck{},
			"influxdb": stubCheck{err: errors.New("not connected")},
		},
		Version: "test",
	})
	require.NoError(t, err)

	return srv, c, kb
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)

	_, err = New(Deps{Logger: logging.Default()})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRequestID_EchoesClientHeader(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	srv, c, _ := testServer(t)
	c.SetEffect(effect.NewStatic(lamp.RGB(1, 2, 3)))

	rec := do(t, srv, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[Status](t, rec)
	assert.True(t, st.Available)
	assert.Equal(t, 1, st.Devices)
	assert.Equal(t, 8, st.Lamps)
	assert.Equal(t, effect.KindStatic, st.Effect.Current)
	assert.Empty(t, st.Effect.Target)
	assert.Equal(t, 1.0, st.Settings.Brightness)
	assert.Equal(t, int64(500), st.Settings.TransitionDuration)
	assert.NotNil(t, st.Overrides)
	assert.Equal(t, "ok", st.Checks["mqtt"])
	assert.Equal(t, "not connected", st.Checks["influxdb"])
}

func TestUpdateSettings(t *testing.T) {
	srv, c, _ := testServer(t)

	rec := do(t, srv, http.MethodPut, "/api/v1/settings", map[string]any{
		"brightness":             0.5,
		"speed":                  9.0,
		"smooth_transition":      true,
		"transition_duration_ms": 250,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[Settings](t, rec)
	assert.Equal(t, 0.5, got.Brightness)
	assert.Equal(t, engine.MaxSpeed, got.Speed, "speed is clamped")
	assert.True(t, got.SmoothTransition)
	assert.Equal(t, int64(250), got.TransitionDuration)
	assert.Equal(t, 250*time.Millisecond, c.TransitionDuration())
}

func TestUpdateSettings_PartialLeavesOthers(t *testing.T) {
	srv, c, _ := testServer(t)
	c.SetSpeed(2)

	rec := do(t, srv, http.MethodPut, "/api/v1/settings", map[string]any{"brightness": 0.25})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.25, c.Brightness())
	assert.Equal(t, 2.0, c.Speed())
}

func TestUpdateSettings_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body any
		code int
	}{
		{"unknown field", map[string]any{"volume": 11}, http.StatusBadRequest},
		{"wrong type", map[string]any{"brightness": "high"}, http.StatusBadRequest},
		{"negative duration", map[string]any{"transition_duration_ms": -1}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := testServer(t)
			rec := do(t, srv, http.MethodPut, "/api/v1/settings", tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestSetEffect(t *testing.T) {
	srv, c, kb := testServer(t)

	rec := do(t, srv, http.MethodPut, "/api/v1/effect", map[string]any{
		"effect": map[string]any{"type": "static", "color": "#00ff00"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, effect.KindStatic, decode[EffectState](t, rec).Current)

	c.UpdateEffect()
	frame := kb.LastFrame()
	require.Len(t, frame, 8)
	assert.Equal(t, lamp.RGB(0, 0xff, 0), frame[3])
}

func TestSetEffect_NullClears(t *testing.T) {
	srv, c, _ := testServer(t)
	c.SetEffect(effect.NewStatic(lamp.RGB(1, 1, 1)))

	rec := do(t, srv, http.MethodPut, "/api/v1/effect", map[string]any{"effect": nil})
	require.Equal(t, http.StatusOK, rec.Code)

	current, target := c.Effects()
	assert.Nil(t, current)
	assert.Nil(t, target)
}

func TestSetEffect_InvalidSpec(t *testing.T) {
	srv, c, _ := testServer(t)

	for _, spec := range []map[string]any{
		{"type": "disco"},
		{"type": "static", "color": "chartreuse-ish"},
	} {
		rec := do(t, srv, http.MethodPut, "/api/v1/effect", map[string]any{"effect": spec})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}

	current, _ := c.Effects()
	assert.Nil(t, current)
}

func TestSetEffect_UsesEffectOptions(t *testing.T) {
	srv, _, _ := testServer(t)
	aurora := effect.NewAuroraSync()
	srv.effectOpts = []effect.Option{effect.WithAuroraSync(aurora)}

	rec := do(t, srv, http.MethodPut, "/api/v1/effect", map[string]any{
		"effect": map[string]any{"type": "aurora_sync"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	current, _ := srv.controller.Effects()
	assert.Same(t, aurora, current)
}

func TestOverrides(t *testing.T) {
	srv, c, kb := testServer(t)
	c.SetEffect(effect.NewStatic(lamp.RGB(0, 0, 0xff)))

	rec := do(t, srv, http.MethodPut, "/api/v1/overrides", map[string]any{
		"indices": "0-1;5",
		"effect":  map[string]any{"type": "static", "color": "#ff0000"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Overrides []engine.Override `json:"overrides"`
		Count     int               `json:"count"`
	}](t, rec)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, []int{0, 1, 5}, []int{body.Overrides[0].Index, body.Overrides[1].Index, body.Overrides[2].Index})

	c.UpdateEffect()
	frame := kb.LastFrame()
	require.Len(t, frame, 8)
	assert.Equal(t, lamp.RGB(0xff, 0, 0), frame[0])
	assert.Equal(t, lamp.RGB(0, 0, 0xff), frame[2])
	assert.Equal(t, lamp.RGB(0xff, 0, 0), frame[5])

	rec = do(t, srv, http.MethodPut, "/api/v1/overrides", map[string]any{"indices": "1", "effect": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, c.Overrides(), 2)

	rec = do(t, srv, http.MethodDelete, "/api/v1/overrides", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, c.Overrides())
}

func TestOverrides_BadIndices(t *testing.T) {
	srv, _, _ := testServer(t)

	for _, indices := range []string{"", "5-2", "x"} {
		rec := do(t, srv, http.MethodPut, "/api/v1/overrides", map[string]any{
			"indices": indices,
			"effect":  map[string]any{"type": "static"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "indices %q", indices)
	}
}

func TestListLamps(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/lamps", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Lamps []engine.LampRef `json:"lamps"`
		Count int              `json:"count"`
	}](t, rec)
	assert.Equal(t, 8, body.Count)
	assert.Equal(t, "kb", body.Lamps[0].DeviceID)
	assert.Equal(t, 7, body.Lamps[7].Info.Index)
}

func TestGetLampColor(t *testing.T) {
	srv, c, _ := testServer(t)
	c.SetEffect(effect.NewStatic(lamp.RGB(0x12, 0x34, 0x56)))
	c.UpdateEffect()

	rec := do(t, srv, http.MethodGet, "/api/v1/lamps/2/color", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[LampColor](t, rec)
	assert.Equal(t, 2, got.Index)
	assert.Equal(t, "#ff123456", got.Hex)
	assert.Equal(t, lamp.RGB(0x12, 0x34, 0x56), got.Color)

	rec = do(t, srv, http.MethodGet, "/api/v1/lamps/99/color", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/lamps/abc/color", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetColor(t *testing.T) {
	t.Run("all lamps", func(t *testing.T) {
		srv, _, kb := testServer(t)

		rec := do(t, srv, http.MethodPut, "/api/v1/color", map[string]any{"color": "#ff8000"})
		require.Equal(t, http.StatusOK, rec.Code)

		fill, ok := kb.Fill()
		require.True(t, ok)
		assert.Equal(t, lamp.RGB(0xff, 0x80, 0), fill)
	})

	t.Run("indices", func(t *testing.T) {
		srv, _, kb := testServer(t)

		rec := do(t, srv, http.MethodPut, "/api/v1/color", map[string]any{"color": "#00ff00", "indices": "6-9"})
		require.Equal(t, http.StatusOK, rec.Code)

		frame := kb.LastFrame()
		require.Len(t, frame, 8)
		assert.Equal(t, lamp.RGB(0, 0xff, 0), frame[6])
		assert.Equal(t, lamp.RGB(0, 0xff, 0), frame[7])
		assert.True(t, frame[5].IsTransparent())
	})

	t.Run("rejects", func(t *testing.T) {
		srv, _, _ := testServer(t)

		rec := do(t, srv, http.MethodPut, "/api/v1/color", map[string]any{"color": "nope"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = do(t, srv, http.MethodPut, "/api/v1/color", map[string]any{
			"color": "#fff", "indices": "1", "keys": []int{30},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRouter_Fallbacks(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, decode[Error](t, rec).Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartClose(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.cfg = config.APIConfig{Host: "127.0.0.1", Port: 0, Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5}}

	require.Error(t, srv.HealthCheck(context.Background()))
	require.NoError(t, srv.Start())
	require.NoError(t, srv.HealthCheck(context.Background()))

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Close())
}

// withAudit attaches an in-memory audit log to srv.
func withAudit(t *testing.T, srv *Server) *audit.SQLiteRepository {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background(), migrations.FS))

	repo := audit.NewSQLiteRepository(db.DB)
	srv.audit = repo
	return repo
}

func TestAudit_RecordsControlChanges(t *testing.T) {
	srv, _, _ := testServer(t)
	withAudit(t, srv)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/effect",
		bytes.NewReader([]byte(`{"effect":{"type":"static","color":"#ff0000"}}`)))
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/settings", map[string]any{"brightness": 0.5}).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/overrides", map[string]any{
		"indices": "0-2", "effect": map[string]any{"type": "static"},
	}).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/v1/overrides", nil).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/color", map[string]any{"color": "#123456", "keys": []int{30}}).Code)

	// Rejected requests leave no trace
	require.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPut, "/api/v1/effect", map[string]any{
		"effect": map[string]any{"type": "disco"},
	}).Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[audit.ListResult](t, rec)
	require.Equal(t, 5, result.Total)

	actions := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{
		audit.ActionSetEffect,
		audit.ActionUpdateSettings,
		audit.ActionSetOverride,
		audit.ActionClearOverrides,
		audit.ActionSetColor,
	}, actions)

	rec = do(t, srv, http.MethodGet, "/api/v1/audit?action=set_effect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	effects := decode[audit.ListResult](t, rec)
	require.Len(t, effects.Entries, 1)
	assert.Equal(t, "req-42", effects.Entries[0].RequestID)
	assert.Equal(t, "static", effects.Entries[0].Details["kind"])
}

func TestAudit_ListRejectsBadPaging(t *testing.T) {
	srv, _, _ := testServer(t)
	withAudit(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/v1/audit?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAudit_Disabled(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/audit", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrCodeUnavailable, decode[Error](t, rec).Code)
}
