package report

import "context"

// Store defines the persistence contract for reports, visibility state, the
// reason-catalog slot, and the audit log. Implementations must be safe for
// concurrent use.
//
// The duplicate invariant — at most one report per (contentID, reporterID)
// pair — must be enforced atomically by CreateReport; the HasReported
// pre-check in the lifecycle is a fast path, not the guard.
type Store interface {
	// CreateReport persists a new report. It fails with ErrDuplicateReport
	// if the reporter already reported this content, even when a concurrent
	// submission won the race after the caller's pre-check passed.
	CreateReport(ctx context.Context, r Report) error

	// GetReport returns the report with the given id, or nil if absent.
	GetReport(ctx context.Context, id string) (*Report, error)

	// HasReported checks whether the reporter already reported the content.
	HasReported(ctx context.Context, contentID string, reporterID int64) (bool, error)

	// SetReportStatus transitions a report and returns the updated row.
	// ResolvedAt is set (or refreshed) whenever the new status is terminal;
	// notes overwrite the stored notes only when non-empty. Re-applying the
	// current status is allowed; any other transition out of a terminal
	// state fails with a StatusTransitionError. Fails with ErrReportNotFound
	// if no such report exists.
	SetReportStatus(ctx context.Context, id string, status Status, notes string) (*Report, error)

	// CountByStatus counts reports for one content item with the given status.
	CountByStatus(ctx context.Context, contentID string, status Status) (int, error)

	// ListReports returns one page of reports ordered by submission time
	// descending, plus the total count for the filter. An empty status
	// means no filter. Page is 1-indexed.
	ListReports(ctx context.Context, status Status, page, pageSize int) ([]Report, int, error)

	// CountsByStatus returns report totals grouped by status.
	CountsByStatus(ctx context.Context) (StatusCounts, error)

	// HideContent records a content item as hidden. It returns false without
	// modifying the existing record when the item is already hidden.
	HideContent(ctx context.Context, entry HiddenContent) (bool, error)

	// UnhideContent removes the hidden record and returns it, or nil if the
	// item was not hidden.
	UnhideContent(ctx context.Context, contentID string) (*HiddenContent, error)

	// IsContentHidden checks whether a content item is hidden.
	IsContentHidden(ctx context.Context, contentID string) bool

	// ListHiddenContent returns all hidden items, newest first.
	ListHiddenContent(ctx context.Context) ([]HiddenContent, error)

	// LoadReasonLines returns the persisted reason catalog in "key|label"
	// line form, or "" if none has been saved.
	LoadReasonLines(ctx context.Context) (string, error)

	// SaveReasonLines persists the reason catalog.
	SaveReasonLines(ctx context.Context, raw string) error

	// AppendAudit stores a moderation action in the audit log.
	AppendAudit(ctx context.Context, entry AuditEntry) error

	// ListAudit returns the most recent audit entries, newest first.
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// ContentStore is the external content repository consumed, but not
// implemented, by this package. It resolves content ids to display metadata
// and toggles the publish state used by the make-private mode.
type ContentStore interface {
	Resolve(ctx context.Context, contentID string) (*ContentInfo, error)
	SetPublished(ctx context.Context, contentID string, published bool) error
}
