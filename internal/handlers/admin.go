package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"flagpost/internal/access"
	"flagpost/internal/report"
	"flagpost/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// visibilityRequest is the body of hide and unhide calls.
type visibilityRequest struct {
	ContentID string `json:"content_id"`
	Reason    string `json:"reason"`
}

func parseVisibilityRequest(r *http.Request) (visibilityRequest, bool) {
	var req visibilityRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, false
		}
		req.ContentID = r.FormValue("content_id")
		req.Reason = r.FormValue("reason")
	}
	return req, true
}

// HandleHideContent hides a content item as an administrative override.
func (h *Handler) HandleHideContent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requirePermission(w, r, access.PermissionHideContent)
	if !ok {
		return
	}

	req, ok := parseVisibilityRequest(r)
	if !ok {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentID == "" {
		writeError(w, "content_id is required", http.StatusBadRequest)
		return
	}

	ctx, span := tracing.LifecycleSpan(r.Context(), "hide", req.ContentID)
	defer span.End()

	if err := h.service.HideContent(ctx, req.ContentID, userID, req.Reason); err != nil {
		tracing.EndWithError(span, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "hidden",
		"content_id": req.ContentID,
	})
}

// HandleUnhideContent restores a hidden content item.
func (h *Handler) HandleUnhideContent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requirePermission(w, r, access.PermissionUnhideContent)
	if !ok {
		return
	}

	req, ok := parseVisibilityRequest(r)
	if !ok {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentID == "" {
		writeError(w, "content_id is required", http.StatusBadRequest)
		return
	}

	ctx, span := tracing.LifecycleSpan(r.Context(), "unhide", req.ContentID)
	defer span.End()

	if err := h.service.UnhideContent(ctx, req.ContentID, userID); err != nil {
		tracing.EndWithError(span, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "visible",
		"content_id": req.ContentID,
	})
}

// HandleListHidden returns all currently hidden content, newest first.
func (h *Handler) HandleListHidden(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, access.PermissionViewReports); !ok {
		return
	}

	hidden, err := h.service.ListHidden(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if hidden == nil {
		hidden = []report.HiddenContent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": hidden})
}

// HandleGetReasons returns the active reason catalog.
func (h *Handler) HandleGetReasons(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, access.PermissionManageReasons); !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reasons": h.service.Reasons()})
}

// reasonsUpdateRequest carries the raw catalog, one "key|label" per line.
type reasonsUpdateRequest struct {
	Lines string `json:"lines"`
}

// HandleUpdateReasons replaces the reason catalog.
func (h *Handler) HandleUpdateReasons(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, access.PermissionManageReasons); !ok {
		return
	}

	var req reasonsUpdateRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		req.Lines = r.FormValue("lines")
	}

	entries, err := h.service.UpdateReasons(r.Context(), req.Lines)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reasons": entries})
}

// HandleAuditLog returns the most recent moderation actions.
func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, access.PermissionViewAuditLog); !ok {
		return
	}

	limit := queryInt(r, "limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	entries, err := h.service.AuditLog(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []report.AuditEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// HandleStats returns a JSON summary of report counts plus selected
// lifecycle counters gathered from the Prometheus registry.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, access.PermissionViewReports); !ok {
		return
	}

	counts, err := h.service.ReportCounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	stats := map[string]any{
		"reports": counts,
	}

	if families, err := prometheus.DefaultGatherer.Gather(); err == nil {
		stats["counters"] = lifecycleCounters(families)
	}

	writeJSON(w, http.StatusOK, stats)
}

// lifecycleCounters extracts the flagpost counter totals from gathered
// metric families.
func lifecycleCounters(families []*dto.MetricFamily) map[string]float64 {
	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, "flagpost_") || mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		out[strings.TrimPrefix(name, "flagpost_")] = total
	}
	return out
}
