package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"flagpost/internal/access"
	"flagpost/internal/metrics"
	"flagpost/internal/middleware"
	"flagpost/internal/report"
	"flagpost/internal/tracing"
)

// ReportRequest represents the JSON request for submitting a report
type ReportRequest struct {
	ContentID  string `json:"content_id"`
	ReasonKey  string `json:"reason"`
	ReasonText string `json:"reason_text"`
}

// ReportResponse represents the JSON response from report submission
type ReportResponse struct {
	ID      string `json:"id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleSubmitReport handles content report submissions.
// Accepts JSON and form bodies, validates input, and persists the report.
// Auto-moderation runs as part of the submission.
func (h *Handler) HandleSubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse request (supports both JSON and form data)
	var req ReportRequest
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
		req.ContentID = r.FormValue("content_id")
		req.ReasonKey = r.FormValue("reason")
		req.ReasonText = r.FormValue("reason_text")
	}

	// Reporter identity is optional; anonymous submissions carry id 0.
	var reporterID int64
	if userID := middleware.UserID(r); userID != "" {
		id, err := strconv.ParseInt(userID, 10, 64)
		if err != nil {
			writeError(w, "Invalid user id", http.StatusBadRequest)
			return
		}
		reporterID = id
	}

	ctx, span := tracing.LifecycleSpan(ctx, "submit", req.ContentID)
	defer span.End()

	rep, err := h.service.SubmitReport(ctx, report.SubmitRequest{
		ContentID:  req.ContentID,
		ReporterID: reporterID,
		ReasonKey:  req.ReasonKey,
		ReasonText: req.ReasonText,
		IPAddress:  middleware.GetClientIP(r),
	})
	if err != nil {
		tracing.EndWithError(span, err)
		switch {
		case errors.Is(err, report.ErrDuplicateReport):
			metrics.ReportsRejectedTotal.WithLabelValues(metrics.CauseDuplicate).Inc()
		default:
			var validationErr *report.ValidationError
			if errors.As(err, &validationErr) {
				metrics.ReportsRejectedTotal.WithLabelValues(metrics.CauseValidation).Inc()
			}
		}
		writeServiceError(w, err)
		return
	}

	metrics.ReportsSubmittedTotal.Inc()

	writeJSON(w, http.StatusOK, ReportResponse{
		ID:      rep.ID,
		Status:  "received",
		Message: "Thank you for your report. It will be reviewed by a moderator.",
	})
}

// HandleListReports returns one page of reports, optionally filtered by status.
// Query parameters: status, page, page_size.
func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, access.PermissionViewReports); !ok {
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	status := report.Status(r.URL.Query().Get("status"))

	result, err := h.service.ListReports(r.Context(), status, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleReportCounts returns report totals grouped by status.
func (h *Handler) HandleReportCounts(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, access.PermissionViewReports); !ok {
		return
	}

	counts, err := h.service.ReportCounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// statusUpdateRequest is the body of resolve and dismiss calls.
type statusUpdateRequest struct {
	Notes string `json:"notes"`
}

// HandleResolveReport marks a report resolved.
func (h *Handler) HandleResolveReport(w http.ResponseWriter, r *http.Request) {
	h.handleStatusUpdate(w, r, access.PermissionResolveReport, report.StatusResolved)
}

// HandleDismissReport marks a report dismissed.
func (h *Handler) HandleDismissReport(w http.ResponseWriter, r *http.Request) {
	h.handleStatusUpdate(w, r, access.PermissionDismissReport, report.StatusDismissed)
}

func (h *Handler) handleStatusUpdate(w http.ResponseWriter, r *http.Request, perm access.Permission, status report.Status) {
	userID, ok := h.requirePermission(w, r, perm)
	if !ok {
		return
	}

	reportID := r.PathValue("id")
	if reportID == "" {
		writeError(w, "Report id is required", http.StatusBadRequest)
		return
	}

	var req statusUpdateRequest
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	} else if err := r.ParseForm(); err == nil {
		req.Notes = r.FormValue("notes")
	}

	ctx, span := tracing.LifecycleSpan(r.Context(), "status_update", reportID)
	defer span.End()

	var (
		rep *report.Report
		err error
	)
	if status == report.StatusResolved {
		rep, err = h.service.Resolve(ctx, reportID, userID, req.Notes)
	} else {
		rep, err = h.service.Dismiss(ctx, reportID, userID, req.Notes)
	}
	if err != nil {
		tracing.EndWithError(span, err)
		writeServiceError(w, err)
		return
	}

	metrics.ReportsResolvedTotal.WithLabelValues(string(status)).Inc()
	writeJSON(w, http.StatusOK, rep)
}

// HandleContentVisibility reports the visibility of one content item.
func (h *Handler) HandleContentVisibility(w http.ResponseWriter, r *http.Request) {
	contentID := r.PathValue("id")
	if contentID == "" {
		writeError(w, "Content id is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content_id": contentID,
		"hidden":     h.service.IsHidden(r.Context(), contentID),
	})
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
