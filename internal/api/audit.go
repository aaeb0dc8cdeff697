package api

import (
	"net/http"
	"strconv"

	"github.com/dkemmer/servicegate/internal/audit"
)

// handleAuditList returns audit events, newest first, with optional
// action and service filters and limit/offset pagination.
func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "audit store is not configured")
		return
	}

	filter := audit.Filter{
		Action:  r.URL.Query().Get("action"),
		Service: r.URL.Query().Get("service"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit events", "error", err)
		writeInternalError(w, "failed to list audit events")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
