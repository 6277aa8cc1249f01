package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-lampfx/internal/audit"
)

// record writes a control change to the audit log. Failures are logged and
// never fail the request.
func (s *Server) record(r *http.Request, action, target string, details map[string]any) {
	if s.audit == nil {
		return
	}

	requestID, _ := r.Context().Value(ctxKeyRequestID).(string) //nolint:errcheck // absent outside the middleware chain
	entry := &audit.Entry{
		Action:    action,
		Target:    target,
		Source:    "api",
		RequestID: requestID,
		Details:   details,
	}
	if err := s.audit.Record(r.Context(), entry); err != nil {
		s.logger.Warn("failed to record audit entry", "action", action, "error", err)
	}
}

// handleListAudit returns recorded control changes, newest first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit log is disabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Target: q.Get("target"),
	}
	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit log failed", "error", err)
		writeInternalError(w, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
