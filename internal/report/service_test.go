package report_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"flagpost/internal/content"
	"flagpost/internal/database/memstore"
	"flagpost/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	got []report.Notification
	err error
}

func (c *captureNotifier) NewReport(_ context.Context, n report.Notification) error {
	c.got = append(c.got, n)
	return c.err
}

type serviceFixture struct {
	service  *report.Service
	store    *memstore.Store
	registry *content.Registry
	notifier *captureNotifier
}

func newFixture(t *testing.T, autoMod report.AutoModerationConfig) *serviceFixture {
	t.Helper()

	store := memstore.New()
	registry := content.NewRegistry()
	notifier := &captureNotifier{}

	svc := report.NewService(report.ServiceConfig{
		Store:    store,
		Gate:     report.NewVisibilityGate(report.VisibilityConfig{}, store, registry),
		Policy:   report.NewPolicy(autoMod, store),
		Notifier: notifier,
		Content:  registry,
	})

	return &serviceFixture{service: svc, store: store, registry: registry, notifier: notifier}
}

func TestSubmitReport(t *testing.T) {
	ctx := context.Background()

	t.Run("valid submission", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{Enabled: true, MinReports: 3})

		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID:  "post-1",
			ReporterID: 42,
			ReasonKey:  "spam",
			IPAddress:  "198.51.100.7",
		})
		require.NoError(t, err)
		require.NotNil(t, rep)

		assert.NotEmpty(t, rep.ID)
		assert.Equal(t, report.StatusPending, rep.Status)
		assert.Equal(t, "Spam", rep.Reason)
		assert.Equal(t, int64(42), rep.ReporterID)
		assert.False(t, rep.SubmittedAt.IsZero())
		assert.Nil(t, rep.ResolvedAt)
	})

	t.Run("other requires free text", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		_, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "other",
		})
		var verr *report.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "reason", verr.Field)
	})

	t.Run("other prefixes free text", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "other", ReasonText: "  spam bot  ",
		})
		require.NoError(t, err)
		assert.Equal(t, "Other: spam bot", rep.Reason)
	})

	t.Run("unknown reason key is kept verbatim", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "harassment",
		})
		require.NoError(t, err)
		assert.Equal(t, "harassment", rep.Reason)
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		cases := []struct {
			name  string
			req   report.SubmitRequest
			field string
		}{
			{"missing content id", report.SubmitRequest{ReporterID: 1, ReasonKey: "spam"}, "content_id"},
			{"negative reporter id", report.SubmitRequest{ContentID: "post-1", ReporterID: -1, ReasonKey: "spam"}, "reporter_id"},
			{"blank reason", report.SubmitRequest{ContentID: "post-1", ReporterID: 1, ReasonKey: "  "}, "reason"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.service.SubmitReport(ctx, tc.req)
				var verr *report.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tc.field, verr.Field)
			})
		}
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		req := report.SubmitRequest{ContentID: "post-1", ReporterID: 42, ReasonKey: "spam"}

		_, err := f.service.SubmitReport(ctx, req)
		require.NoError(t, err)

		_, err = f.service.SubmitReport(ctx, req)
		assert.ErrorIs(t, err, report.ErrDuplicateReport)

		// Same reporter on other content and other reporters on the same
		// content are both fine.
		_, err = f.service.SubmitReport(ctx, report.SubmitRequest{ContentID: "post-2", ReporterID: 42, ReasonKey: "spam"})
		require.NoError(t, err)
		_, err = f.service.SubmitReport(ctx, report.SubmitRequest{ContentID: "post-1", ReporterID: 43, ReasonKey: "spam"})
		require.NoError(t, err)
	})

	t.Run("anonymous reporters share one identity", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: report.AnonymousReporter, ReasonKey: "spam",
		})
		require.NoError(t, err)
		assert.Equal(t, report.AnonymousReporter, rep.ReporterID)

		_, err = f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: report.AnonymousReporter, ReasonKey: "offensive",
		})
		assert.ErrorIs(t, err, report.ErrDuplicateReport)
	})

	t.Run("notification fires with content title", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		f.registry.Put(report.ContentInfo{ID: "post-1", Title: "Hello World", Published: true})

		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "spam",
		})
		require.NoError(t, err)

		require.Len(t, f.notifier.got, 1)
		n := f.notifier.got[0]
		assert.Equal(t, rep.ID, n.ReportID)
		assert.Equal(t, "post-1", n.ContentID)
		assert.Equal(t, "Hello World", n.ContentTitle)
		assert.Equal(t, "Spam", n.Reason)
	})

	t.Run("notification failure does not fail submission", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		f.notifier.err = errors.New("smtp down")

		_, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "spam",
		})
		require.NoError(t, err)
	})
}

func TestAutoHide(t *testing.T) {
	ctx := context.Background()

	submit := func(t *testing.T, f *serviceFixture, contentID string, reporterID int64) {
		t.Helper()
		_, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: contentID, ReporterID: reporterID, ReasonKey: "spam",
		})
		require.NoError(t, err)
	}

	t.Run("hides at the threshold", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{Enabled: true, MinReports: 3})

		submit(t, f, "post-1", 1)
		assert.False(t, f.service.IsHidden(ctx, "post-1"))
		submit(t, f, "post-1", 2)
		assert.False(t, f.service.IsHidden(ctx, "post-1"))
		submit(t, f, "post-1", 3)
		assert.True(t, f.service.IsHidden(ctx, "post-1"))

		hidden, err := f.service.ListHidden(ctx)
		require.NoError(t, err)
		require.Len(t, hidden, 1)
		assert.Equal(t, report.AutomodActor, hidden[0].HiddenBy)
		assert.True(t, hidden[0].AutoHidden)
		assert.Equal(t, "Auto-hidden: 3 pending reports", hidden[0].Reason)
	})

	t.Run("further reports leave the hide record alone", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{Enabled: true, MinReports: 3})

		for id := int64(1); id <= 4; id++ {
			submit(t, f, "post-1", id)
		}

		hidden, err := f.service.ListHidden(ctx)
		require.NoError(t, err)
		require.Len(t, hidden, 1)
		assert.Equal(t, "Auto-hidden: 3 pending reports", hidden[0].Reason)
	})

	t.Run("disabled never hides", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{Enabled: false, MinReports: 3})

		for id := int64(1); id <= 10; id++ {
			submit(t, f, "post-1", id)
		}
		assert.False(t, f.service.IsHidden(ctx, "post-1"))
	})

	t.Run("thresholds are per content item", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{Enabled: true, MinReports: 3})

		submit(t, f, "post-1", 1)
		submit(t, f, "post-1", 2)
		submit(t, f, "post-2", 1)
		submit(t, f, "post-2", 2)

		assert.False(t, f.service.IsHidden(ctx, "post-1"))
		assert.False(t, f.service.IsHidden(ctx, "post-2"))
	})
}

func TestResolveAndDismiss(t *testing.T) {
	ctx := context.Background()

	submitOne := func(t *testing.T, f *serviceFixture) *report.Report {
		t.Helper()
		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "spam",
		})
		require.NoError(t, err)
		return rep
	}

	t.Run("resolve sets terminal state", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		rep := submitOne(t, f)

		updated, err := f.service.Resolve(ctx, rep.ID, "mod-7", "confirmed spam")
		require.NoError(t, err)
		assert.Equal(t, report.StatusResolved, updated.Status)
		require.NotNil(t, updated.ResolvedAt)
		assert.Equal(t, "confirmed spam", updated.AdminNotes)
	})

	t.Run("re-resolving refreshes without reverting", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		rep := submitOne(t, f)

		_, err := f.service.Resolve(ctx, rep.ID, "mod-7", "first pass")
		require.NoError(t, err)

		updated, err := f.service.Resolve(ctx, rep.ID, "mod-8", "")
		require.NoError(t, err)
		assert.Equal(t, report.StatusResolved, updated.Status)
		// Empty notes do not clobber the earlier ones.
		assert.Equal(t, "first pass", updated.AdminNotes)
	})

	t.Run("terminal states never cross over", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		rep := submitOne(t, f)

		_, err := f.service.Resolve(ctx, rep.ID, "mod-7", "")
		require.NoError(t, err)

		_, err = f.service.Dismiss(ctx, rep.ID, "mod-7", "")
		var verr *report.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "status", verr.Field)
	})

	t.Run("dismiss", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		rep := submitOne(t, f)

		updated, err := f.service.Dismiss(ctx, rep.ID, "mod-7", "not actionable")
		require.NoError(t, err)
		assert.Equal(t, report.StatusDismissed, updated.Status)
		require.NotNil(t, updated.ResolvedAt)
	})

	t.Run("unknown report id", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		_, err := f.service.Resolve(ctx, "no-such-id", "mod-7", "")
		assert.ErrorIs(t, err, report.ErrReportNotFound)
	})

	t.Run("status changes are audited", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		rep := submitOne(t, f)

		_, err := f.service.Resolve(ctx, rep.ID, "mod-7", "done")
		require.NoError(t, err)

		entries, err := f.service.AuditLog(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, report.AuditActionResolveReport, entries[0].Action)
		assert.Equal(t, "mod-7", entries[0].Actor)
		assert.Equal(t, rep.ID, entries[0].Target)
		assert.Equal(t, "done", entries[0].Reason)
	})
}

func TestVisibilityIndependentOfResolution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, report.AutoModerationConfig{Enabled: true, MinReports: 3})

	var ids []string
	for reporter := int64(1); reporter <= 3; reporter++ {
		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: reporter, ReasonKey: "spam",
		})
		require.NoError(t, err)
		ids = append(ids, rep.ID)
	}
	require.True(t, f.service.IsHidden(ctx, "post-1"))

	// Resolving every report does not restore visibility.
	for _, id := range ids {
		_, err := f.service.Resolve(ctx, id, "mod-7", "")
		require.NoError(t, err)
	}
	assert.True(t, f.service.IsHidden(ctx, "post-1"))

	// Only the explicit unhide does.
	require.NoError(t, f.service.UnhideContent(ctx, "post-1", "mod-7"))
	assert.False(t, f.service.IsHidden(ctx, "post-1"))
}

func TestManualHideUnhide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, report.AutoModerationConfig{})

	require.NoError(t, f.service.HideContent(ctx, "post-1", "mod-7", "policy violation"))
	assert.True(t, f.service.IsHidden(ctx, "post-1"))

	hidden, err := f.service.ListHidden(ctx)
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.Equal(t, "mod-7", hidden[0].HiddenBy)
	assert.False(t, hidden[0].AutoHidden)

	require.NoError(t, f.service.UnhideContent(ctx, "post-1", "mod-7"))
	assert.False(t, f.service.IsHidden(ctx, "post-1"))
}

func TestListReports(t *testing.T) {
	ctx := context.Background()

	t.Run("pagination", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		for i := 1; i <= 45; i++ {
			_, err := f.service.SubmitReport(ctx, report.SubmitRequest{
				ContentID: fmt.Sprintf("post-%d", i), ReporterID: 1, ReasonKey: "spam",
			})
			require.NoError(t, err)
		}

		page, err := f.service.ListReports(ctx, "", 1, 20)
		require.NoError(t, err)
		assert.Len(t, page.Items, 20)
		assert.Equal(t, 45, page.Total)
		assert.Equal(t, 3, page.TotalPages)

		page, err = f.service.ListReports(ctx, "", 3, 20)
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
		assert.Equal(t, 3, page.Page)

		// Past the end: empty page, totals intact.
		page, err = f.service.ListReports(ctx, "", 4, 20)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 45, page.Total)
	})

	t.Run("status filter", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		var ids []string
		for i := 1; i <= 4; i++ {
			rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
				ContentID: fmt.Sprintf("post-%d", i), ReporterID: 1, ReasonKey: "spam",
			})
			require.NoError(t, err)
			ids = append(ids, rep.ID)
		}
		_, err := f.service.Resolve(ctx, ids[0], "mod-7", "")
		require.NoError(t, err)

		page, err := f.service.ListReports(ctx, report.StatusPending, 1, 20)
		require.NoError(t, err)
		assert.Len(t, page.Items, 3)

		page, err = f.service.ListReports(ctx, report.StatusResolved, 1, 20)
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("input validation", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		var verr *report.ValidationError
		_, err := f.service.ListReports(ctx, "bogus", 1, 20)
		require.ErrorAs(t, err, &verr)

		_, err = f.service.ListReports(ctx, "", 0, 20)
		require.ErrorAs(t, err, &verr)

		_, err = f.service.ListReports(ctx, "", 1, 0)
		require.ErrorAs(t, err, &verr)
	})
}

func TestReportCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, report.AutoModerationConfig{})

	var ids []string
	for i := 1; i <= 5; i++ {
		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: fmt.Sprintf("post-%d", i), ReporterID: 1, ReasonKey: "spam",
		})
		require.NoError(t, err)
		ids = append(ids, rep.ID)
	}
	_, err := f.service.Resolve(ctx, ids[0], "mod-7", "")
	require.NoError(t, err)
	_, err = f.service.Dismiss(ctx, ids[1], "mod-7", "")
	require.NoError(t, err)

	counts, err := f.service.ReportCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.StatusCounts{Pending: 3, Resolved: 1, Dismissed: 1, Total: 5}, counts)
}

func TestReasonCatalogLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("update persists and takes effect", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		entries, err := f.service.UpdateReasons(ctx, "spam|Spam\nabuse|Abusive Behavior")
		require.NoError(t, err)
		require.Len(t, entries, 2)

		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "abuse",
		})
		require.NoError(t, err)
		assert.Equal(t, "Abusive Behavior", rep.Reason)
	})

	t.Run("garbage input self-heals", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		entries, err := f.service.UpdateReasons(ctx, "no pipes anywhere\n\n")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "inappropriate", entries[0].Key)
	})

	t.Run("load from store", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})
		require.NoError(t, f.store.SaveReasonLines(ctx, "scam|Scam or Fraud"))

		require.NoError(t, f.service.LoadCatalogFromStore(ctx))
		entries := f.service.Reasons()
		require.Len(t, entries, 1)
		assert.Equal(t, "Scam or Fraud", entries[0].Label)
	})

	t.Run("empty store keeps defaults", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		require.NoError(t, f.service.LoadCatalogFromStore(ctx))
		assert.Len(t, f.service.Reasons(), 5)
	})

	t.Run("stored reports keep their snapshot", func(t *testing.T) {
		f := newFixture(t, report.AutoModerationConfig{})

		rep, err := f.service.SubmitReport(ctx, report.SubmitRequest{
			ContentID: "post-1", ReporterID: 1, ReasonKey: "spam",
		})
		require.NoError(t, err)

		_, err = f.service.UpdateReasons(ctx, "spam|Unsolicited Advertising")
		require.NoError(t, err)

		stored, err := f.store.GetReport(ctx, rep.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "Spam", stored.Reason)
	})
}
