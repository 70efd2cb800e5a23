package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flagpost/internal/access"
	"flagpost/internal/content"
	"flagpost/internal/database/memstore"
	"flagpost/internal/middleware"
	"flagpost/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID     = "1001"
	moderatorID = "2002"
	outsiderID  = "9999"
)

const moderatorsJSON = `{
	"roles": {
		"admin": {
			"description": "Full moderation access",
			"permissions": [
				"view_reports", "resolve_report", "dismiss_report",
				"hide_content", "unhide_content", "manage_reasons", "view_audit_log"
			]
		},
		"moderator": {
			"description": "Day-to-day report handling",
			"permissions": [
				"view_reports", "resolve_report", "dismiss_report",
				"hide_content", "unhide_content"
			]
		}
	},
	"users": [
		{"user_id": "1001", "name": "Alice", "role": "admin"},
		{"user_id": "2002", "name": "Bob", "role": "moderator"}
	]
}`

func newTestHandler(t *testing.T, autoMod report.AutoModerationConfig) (*Handler, *memstore.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "moderators.json")
	require.NoError(t, os.WriteFile(path, []byte(moderatorsJSON), 0o600))

	accessService, err := access.NewService(path)
	require.NoError(t, err)

	store := memstore.New()
	registry := content.NewRegistry()
	service := report.NewService(report.ServiceConfig{
		Store:   store,
		Gate:    report.NewVisibilityGate(report.VisibilityConfig{}, store, registry),
		Policy:  report.NewPolicy(autoMod, store),
		Content: registry,
	})

	return NewHandler(service, accessService, Config{}), store
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHandleSubmitReport(t *testing.T) {
	t.Run("json submission", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})

		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "42",
			`{"content_id": "post-1", "reason": "spam"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ReportResponse
		decodeBody(t, rec, &resp)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "received", resp.Status)
	})

	t.Run("form submission", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})

		form := "content_id=post-1&reason=other&reason_text=spam+bot"
		req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.HandleSubmitReport(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("anonymous submission allowed", func(t *testing.T) {
		h, store := newTestHandler(t, report.AutoModerationConfig{})

		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "",
			`{"content_id": "post-1", "reason": "spam"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ReportResponse
		decodeBody(t, rec, &resp)
		stored, err := store.GetReport(context.Background(), resp.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, report.AnonymousReporter, stored.ReporterID)
	})

	t.Run("duplicate returns conflict", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})
		body := `{"content_id": "post-1", "reason": "spam"}`

		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "42", body)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "42", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("validation error returns bad request", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})

		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "42",
			`{"reason": "spam"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})

		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "42", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-numeric user id", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})

		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "did:plc:abc",
			`{"content_id": "post-1", "reason": "spam"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPermissionChecks(t *testing.T) {
	h, _ := newTestHandler(t, report.AutoModerationConfig{})

	t.Run("missing identity", func(t *testing.T) {
		rec := doJSON(t, h.HandleListReports, http.MethodGet, "/api/reports", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := doJSON(t, h.HandleListReports, http.MethodGet, "/api/reports", outsiderID, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("moderator lacks admin-only permissions", func(t *testing.T) {
		rec := doJSON(t, h.HandleAuditLog, http.MethodGet, "/admin/audit", moderatorID, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(t, h.HandleGetReasons, http.MethodGet, "/admin/reasons", moderatorID, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes everywhere", func(t *testing.T) {
		rec := doJSON(t, h.HandleAuditLog, http.MethodGet, "/admin/audit", adminID, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandleStatusUpdate(t *testing.T) {
	submit := func(t *testing.T, h *Handler, contentID string) string {
		t.Helper()
		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "42",
			`{"content_id": "`+contentID+`", "reason": "spam"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ReportResponse
		decodeBody(t, rec, &resp)
		return resp.ID
	}

	resolve := func(t *testing.T, h *Handler, reportID, userID, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/reports/"+reportID+"/resolve", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.UserIDHeader, userID)
		req.SetPathValue("id", reportID)
		rec := httptest.NewRecorder()
		h.HandleResolveReport(rec, req)
		return rec
	}

	t.Run("resolve", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})
		id := submit(t, h, "post-1")

		rec := resolve(t, h, id, moderatorID, `{"notes": "confirmed"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var rep report.Report
		decodeBody(t, rec, &rep)
		assert.Equal(t, report.StatusResolved, rep.Status)
		assert.Equal(t, "confirmed", rep.AdminNotes)
	})

	t.Run("unknown report", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})
		rec := resolve(t, h, "no-such-id", moderatorID, `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cross-terminal transition rejected", func(t *testing.T) {
		h, _ := newTestHandler(t, report.AutoModerationConfig{})
		id := submit(t, h, "post-1")

		rec := resolve(t, h, id, moderatorID, `{}`)
		require.Equal(t, http.StatusOK, rec.Code)

		req := httptest.NewRequest(http.MethodPost, "/api/reports/"+id+"/dismiss", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.UserIDHeader, moderatorID)
		req.SetPathValue("id", id)
		out := httptest.NewRecorder()
		h.HandleDismissReport(out, req)
		assert.Equal(t, http.StatusBadRequest, out.Code)
	})
}

func TestHandleContentVisibility(t *testing.T) {
	h, _ := newTestHandler(t, report.AutoModerationConfig{})

	hide := doJSON(t, h.HandleHideContent, http.MethodPost, "/admin/hide", adminID,
		`{"content_id": "post-1", "reason": "spam wave"}`)
	require.Equal(t, http.StatusOK, hide.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/content/post-1/visibility", nil)
	req.SetPathValue("id", "post-1")
	rec := httptest.NewRecorder()
	h.HandleContentVisibility(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeBody(t, rec, &resp)
	assert.Equal(t, "post-1", resp["content_id"])
	assert.Equal(t, true, resp["hidden"])

	unhide := doJSON(t, h.HandleUnhideContent, http.MethodPost, "/admin/unhide", adminID,
		`{"content_id": "post-1"}`)
	require.Equal(t, http.StatusOK, unhide.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/content/post-1/visibility", nil)
	req.SetPathValue("id", "post-1")
	h.HandleContentVisibility(rec, req)
	decodeBody(t, rec, &resp)
	assert.Equal(t, false, resp["hidden"])
}

func TestHandleListHidden(t *testing.T) {
	h, _ := newTestHandler(t, report.AutoModerationConfig{})

	rec := doJSON(t, h.HandleListHidden, http.MethodGet, "/admin/hidden", moderatorID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []report.HiddenContent `json:"items"`
	}
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Items)

	hide := doJSON(t, h.HandleHideContent, http.MethodPost, "/admin/hide", adminID,
		`{"content_id": "post-1"}`)
	require.Equal(t, http.StatusOK, hide.Code)

	rec = doJSON(t, h.HandleListHidden, http.MethodGet, "/admin/hidden", moderatorID, "")
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "post-1", resp.Items[0].ContentID)
}

func TestHandleReasons(t *testing.T) {
	h, _ := newTestHandler(t, report.AutoModerationConfig{})

	rec := doJSON(t, h.HandleGetReasons, http.MethodGet, "/admin/reasons", adminID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reasons []report.ReasonEntry `json:"reasons"`
	}
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Reasons, 5)

	rec = doJSON(t, h.HandleUpdateReasons, http.MethodPut, "/admin/reasons", adminID,
		`{"lines": "spam|Spam\nabuse|Abusive Behavior"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Reasons, 2)
	assert.Equal(t, "abuse", resp.Reasons[1].Key)
}

func TestHandleReportCountsAndList(t *testing.T) {
	h, _ := newTestHandler(t, report.AutoModerationConfig{})

	for _, contentID := range []string{"post-1", "post-2", "post-3"} {
		rec := doJSON(t, h.HandleSubmitReport, http.MethodPost, "/api/reports", "42",
			`{"content_id": "`+contentID+`", "reason": "spam"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, h.HandleReportCounts, http.MethodGet, "/api/reports/counts", moderatorID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts report.StatusCounts
	decodeBody(t, rec, &counts)
	assert.Equal(t, 3, counts.Pending)
	assert.Equal(t, 3, counts.Total)

	rec = doJSON(t, h.HandleListReports, http.MethodGet, "/api/reports?page=1&page_size=2", moderatorID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page report.ReportPage
	decodeBody(t, rec, &page)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	rec = doJSON(t, h.HandleListReports, http.MethodGet, "/api/reports?status=bogus", moderatorID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthz(t *testing.T) {
	h, _ := newTestHandler(t, report.AutoModerationConfig{})

	rec := doJSON(t, h.HandleHealthz, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
}
