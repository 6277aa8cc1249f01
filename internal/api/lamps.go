package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-lampfx/internal/audit"
	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
)

// LampColor is the /lamps/{index}/color response body.
type LampColor struct {
	Index int        `json:"index"`
	Hex   string     `json:"hex"`
	Color lamp.Color `json:"color"`
}

// ColorRequest paints lamps directly, bypassing the effect engine.
//
// With neither Indices nor Keys set every lamp is painted. Setting both is
// rejected.
type ColorRequest struct {
	Color   string   `json:"color"`
	Indices string   `json:"indices,omitempty"`
	Keys    []uint16 `json:"keys,omitempty"`
}

// handleListLamps lists every lamp of every available device.
func (s *Server) handleListLamps(w http.ResponseWriter, _ *http.Request) {
	lamps := s.controller.Lamps()
	if lamps == nil {
		lamps = []engine.LampRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lamps": lamps,
		"count": len(lamps),
	})
}

// handleGetLampColor returns the last colour rendered for a lamp index.
func (s *Server) handleGetLampColor(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeBadRequest(w, "index must be a non-negative integer")
		return
	}

	c, ok := s.controller.CurrentColor(index)
	if !ok {
		writeNotFound(w, "no colour rendered for lamp")
		return
	}

	writeJSON(w, http.StatusOK, LampColor{Index: index, Hex: c.String(), Color: c})
}

// handleSetColor paints all lamps, an index set, or the lamps mapped to
// key codes.
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	var req ColorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	col, err := lamp.ParseHex(req.Color)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if req.Indices != "" && len(req.Keys) > 0 {
		writeValidationError(w, "indices and keys are mutually exclusive")
		return
	}

	switch {
	case len(req.Keys) > 0:
		s.controller.SetColorForKeys(req.Keys, col)

	case req.Indices != "":
		indices, err := zone.ParseIndices(req.Indices)
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}
		colors := make(map[int]lamp.Color, len(indices))
		for _, i := range indices {
			colors[i] = col
		}
		s.controller.SetLampColors(colors)

	default:
		s.controller.SetAllLampsColor(col)
	}

	details := map[string]any{"color": col.String()}
	switch {
	case len(req.Keys) > 0:
		details["keys"] = req.Keys
	case req.Indices != "":
		details["indices"] = req.Indices
	}
	s.record(r, audit.ActionSetColor, "lamps", details)

	writeJSON(w, http.StatusOK, map[string]any{
		"applied": s.controller.IsAvailable(),
		"color":   col.String(),
	})
}
