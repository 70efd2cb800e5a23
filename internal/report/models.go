// Package report implements the report lifecycle and auto-moderation engine:
// report submission with duplicate suppression, the pending/resolved/dismissed
// status workflow, and threshold-based automatic hiding of reported content.
package report

import "time"

// Status represents the workflow state of a report.
type Status string

const (
	StatusPending   Status = "pending"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// Terminal returns true if the status is an end state of the workflow.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// Valid returns true if s is one of the known workflow states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusResolved || s == StatusDismissed
}

// AnonymousReporter is the reporter ID recorded for unauthenticated users.
const AnonymousReporter int64 = 0

// Report is one user's flag against one content item.
type Report struct {
	ID          string     `json:"id"`
	ContentID   string     `json:"content_id"`
	ReporterID  int64      `json:"reporter_id"` // AnonymousReporter if unauthenticated
	Reason      string     `json:"reason"`      // display text, snapshotted at submission
	Status      Status     `json:"status"`
	IPAddress   string     `json:"ip_address"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	AdminNotes  string     `json:"admin_notes,omitempty"`
}

// HiddenContent records that a content item is hidden from view.
// Absence of a record means the item is visible.
type HiddenContent struct {
	ContentID    string    `json:"content_id"`
	HiddenAt     time.Time `json:"hidden_at"`
	HiddenBy     string    `json:"hidden_by"` // moderator identifier, or "automod"
	Reason       string    `json:"reason"`
	AutoHidden   bool      `json:"auto_hidden"`
	WasPublished bool      `json:"was_published"` // publish state to restore on unhide
}

// StatusCounts holds per-status report totals.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Resolved  int `json:"resolved"`
	Dismissed int `json:"dismissed"`
	Total     int `json:"total"`
}

// AutoModerationConfig controls threshold-based automatic hiding.
// It is read on every submission and never mutated by this package.
type AutoModerationConfig struct {
	Enabled    bool `json:"enabled"`
	MinReports int  `json:"min_reports"` // values below 1 are treated as 1
}

// VisibilityConfig controls how hiding affects the external content store.
type VisibilityConfig struct {
	// MakePrivate requests a publish-state change on the content item in
	// addition to the internal hidden flag.
	MakePrivate bool `json:"make_private"`
}

// ContentInfo describes a content item as known to the external content store.
type ContentInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
	Published bool   `json:"published"`
}

// AuditAction represents a type of moderation action.
type AuditAction string

const (
	AuditActionHideContent   AuditAction = "hide_content"
	AuditActionUnhideContent AuditAction = "unhide_content"
	AuditActionResolveReport AuditAction = "resolve_report"
	AuditActionDismissReport AuditAction = "dismiss_report"
)

// AuditEntry is a logged moderation action.
type AuditEntry struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	Actor     string      `json:"actor"` // moderator identifier, or "automod"
	Target    string      `json:"target"`
	Reason    string      `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	AutoMod   bool        `json:"auto_mod"`
}
