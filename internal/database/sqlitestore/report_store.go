package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"flagpost/internal/report"

	"github.com/google/uuid"
)

// ReportStore implements report.Store using SQLite. The duplicate invariant
// is enforced by the UNIQUE(content_id, reporter_id) constraint.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore creates a ReportStore backed by the given database.
// The database must already have the schema applied.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Ensure ReportStore implements the interface at compile time.
var _ report.Store = (*ReportStore)(nil)

// settingsReasonsKey is the settings row holding the reason catalog.
const settingsReasonsKey = "report_reasons"

// mapErr translates driver-level failures into store errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", report.ErrStoreUnavailable, err)
	}
	return err
}

// ========== Reports ==========

func (s *ReportStore) CreateReport(ctx context.Context, r report.Report) error {
	var resolvedAt any
	if r.ResolvedAt != nil {
		resolvedAt = r.ResolvedAt.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports
			(id, content_id, reporter_id, reason, status, ip_address, submitted_at, resolved_at, admin_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ContentID, r.ReporterID, r.Reason, string(r.Status), r.IPAddress,
		r.SubmittedAt.Format(time.RFC3339Nano), resolvedAt, r.AdminNotes)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return report.ErrDuplicateReport
		}
		return mapErr(fmt.Errorf("create report: %w", err))
	}
	return nil
}

func (s *ReportStore) GetReport(ctx context.Context, id string) (*report.Report, error) {
	r, err := s.queryReport(ctx, `WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, mapErr(err)
}

func (s *ReportStore) queryReport(ctx context.Context, clause string, args ...any) (*report.Report, error) {
	var r report.Report
	var submittedAtStr string
	var resolvedAtStr sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content_id, reporter_id, reason, status, ip_address, submitted_at, resolved_at, admin_notes
		FROM reports `+clause, args...,
	).Scan(&r.ID, &r.ContentID, &r.ReporterID, &r.Reason, &r.Status, &r.IPAddress,
		&submittedAtStr, &resolvedAtStr, &r.AdminNotes)
	if err != nil {
		return nil, err
	}
	r.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submittedAtStr)
	if resolvedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339Nano, resolvedAtStr.String)
		r.ResolvedAt = &t
	}
	return &r, nil
}

func (s *ReportStore) HasReported(ctx context.Context, contentID string, reporterID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM reports WHERE content_id = ? AND reporter_id = ? LIMIT 1
	`, contentID, reporterID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return exists == 1, mapErr(err)
}

func (s *ReportStore) SetReportStatus(ctx context.Context, id string, status report.Status, notes string) (*report.Report, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM reports WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, report.ErrReportNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}

	from := report.Status(current)
	if from.Terminal() && from != status {
		return nil, &report.StatusTransitionError{From: from, To: status}
	}

	var resolvedAt any
	if status.Terminal() {
		resolvedAt = time.Now().Format(time.RFC3339Nano)
	}
	if notes != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE reports SET status = ?, resolved_at = ?, admin_notes = ? WHERE id = ?
		`, string(status), resolvedAt, notes, id)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE reports SET status = ?, resolved_at = ? WHERE id = ?
		`, string(status), resolvedAt, id)
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("set report status: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr(err)
	}
	return s.GetReport(ctx, id)
}

func (s *ReportStore) CountByStatus(ctx context.Context, contentID string, status report.Status) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reports WHERE content_id = ? AND status = ?
	`, contentID, string(status)).Scan(&count)
	return count, mapErr(err)
}

func (s *ReportStore) ListReports(ctx context.Context, status report.Status, page, pageSize int) ([]report.Report, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = `WHERE status = ?`
		args = append(args, string(status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	offset := (page - 1) * pageSize
	args = append(args, pageSize, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_id, reporter_id, reason, status, ip_address, submitted_at, resolved_at, admin_notes
		FROM reports `+where+` ORDER BY submitted_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	reports, err := scanReports(rows)
	return reports, total, mapErr(err)
}

func scanReports(rows *sql.Rows) ([]report.Report, error) {
	var reports []report.Report
	for rows.Next() {
		var r report.Report
		var submittedAtStr string
		var resolvedAtStr sql.NullString
		if err := rows.Scan(&r.ID, &r.ContentID, &r.ReporterID, &r.Reason, &r.Status, &r.IPAddress,
			&submittedAtStr, &resolvedAtStr, &r.AdminNotes); err != nil {
			continue
		}
		r.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submittedAtStr)
		if resolvedAtStr.Valid {
			t, _ := time.Parse(time.RFC3339Nano, resolvedAtStr.String)
			r.ResolvedAt = &t
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *ReportStore) CountsByStatus(ctx context.Context) (report.StatusCounts, error) {
	var counts report.StatusCounts
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return counts, mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			continue
		}
		switch report.Status(status) {
		case report.StatusPending:
			counts.Pending = n
		case report.StatusResolved:
			counts.Resolved = n
		case report.StatusDismissed:
			counts.Dismissed = n
		}
		counts.Total += n
	}
	return counts, mapErr(rows.Err())
}

// ========== Hidden Content ==========

func (s *ReportStore) HideContent(ctx context.Context, entry report.HiddenContent) (bool, error) {
	autoHidden := 0
	if entry.AutoHidden {
		autoHidden = 1
	}
	wasPublished := 0
	if entry.WasPublished {
		wasPublished = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO hidden_content (content_id, hidden_at, hidden_by, reason, auto_hidden, was_published)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO NOTHING
	`, entry.ContentID, entry.HiddenAt.Format(time.RFC3339Nano), entry.HiddenBy, entry.Reason, autoHidden, wasPublished)
	if err != nil {
		return false, mapErr(fmt.Errorf("hide content: %w", err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *ReportStore) UnhideContent(ctx context.Context, contentID string) (*report.HiddenContent, error) {
	rec, err := s.getHiddenContent(ctx, contentID)
	if err != nil || rec == nil {
		return nil, mapErr(err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hidden_content WHERE content_id = ?`, contentID); err != nil {
		return nil, mapErr(err)
	}
	return rec, nil
}

func (s *ReportStore) getHiddenContent(ctx context.Context, contentID string) (*report.HiddenContent, error) {
	var rec report.HiddenContent
	var hiddenAtStr string
	var autoHidden, wasPublished int
	err := s.db.QueryRowContext(ctx, `
		SELECT content_id, hidden_at, hidden_by, reason, auto_hidden, was_published
		FROM hidden_content WHERE content_id = ?
	`, contentID).Scan(&rec.ContentID, &hiddenAtStr, &rec.HiddenBy, &rec.Reason, &autoHidden, &wasPublished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.HiddenAt, _ = time.Parse(time.RFC3339Nano, hiddenAtStr)
	rec.AutoHidden = autoHidden == 1
	rec.WasPublished = wasPublished == 1
	return &rec, nil
}

func (s *ReportStore) IsContentHidden(ctx context.Context, contentID string) bool {
	var exists int
	_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM hidden_content WHERE content_id = ?`, contentID).Scan(&exists)
	return exists == 1
}

func (s *ReportStore) ListHiddenContent(ctx context.Context) ([]report.HiddenContent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, hidden_at, hidden_by, reason, auto_hidden, was_published
		FROM hidden_content ORDER BY hidden_at DESC
	`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var records []report.HiddenContent
	for rows.Next() {
		var rec report.HiddenContent
		var hiddenAtStr string
		var autoHidden, wasPublished int
		if err := rows.Scan(&rec.ContentID, &hiddenAtStr, &rec.HiddenBy, &rec.Reason, &autoHidden, &wasPublished); err != nil {
			continue
		}
		rec.HiddenAt, _ = time.Parse(time.RFC3339Nano, hiddenAtStr)
		rec.AutoHidden = autoHidden == 1
		rec.WasPublished = wasPublished == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ========== Settings ==========

func (s *ReportStore) LoadReasonLines(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsReasonsKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, mapErr(err)
}

func (s *ReportStore) SaveReasonLines(ctx context.Context, raw string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingsReasonsKey, raw)
	return mapErr(err)
}

// ========== Audit Log ==========

func (s *ReportStore) AppendAudit(ctx context.Context, entry report.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	autoMod := 0
	if entry.AutoMod {
		autoMod = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, actor, target, reason, auto_mod, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, string(entry.Action), entry.Actor, entry.Target, entry.Reason,
		autoMod, entry.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return mapErr(fmt.Errorf("append audit: %w", err))
	}
	return nil
}

func (s *ReportStore) ListAudit(ctx context.Context, limit int) ([]report.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, actor, target, reason, auto_mod, timestamp
		FROM audit_log ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var entries []report.AuditEntry
	for rows.Next() {
		var e report.AuditEntry
		var timestampStr string
		var autoMod int
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &e.Target, &e.Reason, &autoMod, &timestampStr); err != nil {
			continue
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestampStr)
		e.AutoMod = autoMod == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
