package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/audit"
	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
)

// healthCheckTimeout bounds each dependency check made by /status.
const healthCheckTimeout = 2 * time.Second

// Settings is the engine tuning exposed over the API.
type Settings struct {
	Brightness         float64 `json:"brightness"`
	Speed              float64 `json:"speed"`
	SmoothTransition   bool    `json:"smooth_transition"`
	TransitionDuration int64   `json:"transition_duration_ms"`
}

// SettingsUpdate is a partial settings change. Absent fields are untouched.
type SettingsUpdate struct {
	Brightness         *float64 `json:"brightness,omitempty"`
	Speed              *float64 `json:"speed,omitempty"`
	SmoothTransition   *bool    `json:"smooth_transition,omitempty"`
	TransitionDuration *int64   `json:"transition_duration_ms,omitempty"`
}

// EffectState names the effects currently scheduled.
type EffectState struct {
	Current effect.Kind `json:"current,omitempty"`
	Target  effect.Kind `json:"target,omitempty"`
}

// Status is the /status response body.
type Status struct {
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Available     bool              `json:"available"`
	Devices       int               `json:"devices"`
	Lamps         int               `json:"lamps"`
	Settings      Settings          `json:"settings"`
	Effect        EffectState       `json:"effect"`
	Overrides     []engine.Override `json:"overrides"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// EffectRequest selects the global effect. A null effect clears it.
type EffectRequest struct {
	Effect *effect.Spec `json:"effect"`
}

// OverrideRequest pins an effect to a set of lamp indices. A null effect
// removes the overrides for those indices.
type OverrideRequest struct {
	Indices string       `json:"indices"`
	Effect  *effect.Spec `json:"effect"`
}

func (s *Server) settings() Settings {
	return Settings{
		Brightness:         s.controller.Brightness(),
		Speed:              s.controller.Speed(),
		SmoothTransition:   s.controller.SmoothTransition(),
		TransitionDuration: s.controller.TransitionDuration().Milliseconds(),
	}
}

func (s *Server) effectState() EffectState {
	current, target := s.controller.Effects()
	var st EffectState
	if current != nil {
		st.Current = current.Kind()
	}
	if target != nil {
		st.Target = target.Kind()
	}
	return st
}

// handleStatus reports engine state and dependency health.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lamps := s.controller.Lamps()
	devices := make(map[string]struct{})
	for _, l := range lamps {
		devices[l.DeviceID] = struct{}{}
	}

	overrides := s.controller.Overrides()
	if overrides == nil {
		overrides = []engine.Override{}
	}

	st := Status{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Available:     s.controller.IsAvailable(),
		Devices:       len(devices),
		Lamps:         len(lamps),
		Settings:      s.settings(),
		Effect:        s.effectState(),
		Overrides:     overrides,
	}

	if len(s.checks) > 0 {
		st.Checks = make(map[string]string, len(s.checks))
		for name, hc := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			if err := hc.HealthCheck(ctx); err != nil {
				st.Checks[name] = err.Error()
			} else {
				st.Checks[name] = "ok"
			}
			cancel()
		}
	}

	writeJSON(w, http.StatusOK, st)
}

// handleUpdateSettings applies a partial settings change. Brightness and
// speed are clamped by the engine.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TransitionDuration != nil && *req.TransitionDuration < 0 {
		writeValidationError(w, "transition_duration_ms must not be negative")
		return
	}

	if req.Brightness != nil {
		s.controller.SetBrightness(*req.Brightness)
	}
	if req.Speed != nil {
		s.controller.SetSpeed(*req.Speed)
	}
	if req.SmoothTransition != nil {
		s.controller.SetSmoothTransition(*req.SmoothTransition)
	}
	if req.TransitionDuration != nil {
		s.controller.SetTransitionDuration(time.Duration(*req.TransitionDuration) * time.Millisecond)
	}

	settings := s.settings()
	s.record(r, audit.ActionUpdateSettings, "settings", map[string]any{
		"brightness":             settings.Brightness,
		"speed":                  settings.Speed,
		"smooth_transition":      settings.SmoothTransition,
		"transition_duration_ms": settings.TransitionDuration,
	})
	writeJSON(w, http.StatusOK, settings)
}

// handleSetEffect switches the global effect.
func (s *Server) handleSetEffect(w http.ResponseWriter, r *http.Request) {
	var req EffectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Effect == nil {
		s.controller.SetEffect(nil)
		s.record(r, audit.ActionClearEffect, "effect", nil)
		writeJSON(w, http.StatusOK, s.effectState())
		return
	}

	e, err := effect.New(*req.Effect, s.effectOpts...)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	s.controller.SetEffect(e)

	s.logger.Info("effect changed via API", "kind", e.Kind())
	s.record(r, audit.ActionSetEffect, "effect", map[string]any{"kind": string(e.Kind())})
	writeJSON(w, http.StatusOK, s.effectState())
}

// handleSetOverrides installs or removes per-lamp overrides.
func (s *Server) handleSetOverrides(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	indices, err := zone.ParseIndices(req.Indices)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if len(indices) == 0 {
		writeValidationError(w, "indices field is required")
		return
	}

	var e effect.Effect
	if req.Effect != nil {
		e, err = effect.New(*req.Effect, s.effectOpts...)
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}
	}
	s.controller.SetEffectForIndices(indices, e)

	if e == nil {
		s.record(r, audit.ActionClearOverride, "overrides", map[string]any{"indices": req.Indices})
	} else {
		s.record(r, audit.ActionSetOverride, "overrides", map[string]any{
			"indices": req.Indices,
			"kind":    string(e.Kind()),
		})
	}
	s.writeOverrides(w)
}

// handleClearOverrides removes every per-lamp override.
func (s *Server) handleClearOverrides(w http.ResponseWriter, r *http.Request) {
	s.controller.ClearOverrides()
	s.record(r, audit.ActionClearOverrides, "overrides", nil)
	s.writeOverrides(w)
}

func (s *Server) writeOverrides(w http.ResponseWriter) {
	overrides := s.controller.Overrides()
	if overrides == nil {
		overrides = []engine.Override{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"overrides": overrides,
		"count":     len(overrides),
	})
}
