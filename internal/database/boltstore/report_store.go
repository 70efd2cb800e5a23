package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"flagpost/internal/report"

	bolt "go.etcd.io/bbolt"
)

// ReportStore implements report.Store on top of BoltDB. The duplicate
// invariant is enforced inside the write transaction that inserts the
// report, so the index check and the insert are atomic.
type ReportStore struct {
	db *bolt.DB
}

var _ report.Store = (*ReportStore)(nil)

// settingsKeyReasons is the settings slot holding the reason catalog.
var settingsKeyReasons = []byte("report_reasons")

// dupeKey builds the uniqueness key for a (contentID, reporterID) pair.
// Content ids are opaque and may contain any byte except NUL.
func dupeKey(contentID string, reporterID int64) []byte {
	return []byte(contentID + "\x00" + strconv.FormatInt(reporterID, 10))
}

// contentIndexKey builds the per-content index key for a report.
func contentIndexKey(contentID, reportID string) []byte {
	return []byte(contentID + "\x00" + reportID)
}

// CreateReport persists a new report, failing with report.ErrDuplicateReport
// when the (contentID, reporterID) pair already exists.
func (s *ReportStore) CreateReport(ctx context.Context, r report.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		dupes := tx.Bucket(BucketReportDupes)
		key := dupeKey(r.ContentID, r.ReporterID)
		if dupes.Get(key) != nil {
			return report.ErrDuplicateReport
		}

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}

		if err := dupes.Put(key, []byte(r.ID)); err != nil {
			return err
		}
		if err := tx.Bucket(BucketReports).Put([]byte(r.ID), data); err != nil {
			return err
		}
		return tx.Bucket(BucketReportsByContent).Put(contentIndexKey(r.ContentID, r.ID), []byte(r.ID))
	})
}

// GetReport retrieves a report by id, or nil if absent.
func (s *ReportStore) GetReport(ctx context.Context, id string) (*report.Report, error) {
	var rep *report.Report

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(BucketReports).Get([]byte(id))
		if data == nil {
			return nil
		}

		rep = &report.Report{}
		return json.Unmarshal(data, rep)
	})

	return rep, err
}

// HasReported checks the uniqueness index for an existing report.
func (s *ReportStore) HasReported(ctx context.Context, contentID string, reporterID int64) (bool, error) {
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(BucketReportDupes).Get(dupeKey(contentID, reporterID)) != nil
		return nil
	})

	return found, err
}

// SetReportStatus transitions a report's status inside one write transaction.
func (s *ReportStore) SetReportStatus(ctx context.Context, id string, status report.Status, notes string) (*report.Report, error) {
	var rep *report.Report

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketReports)
		data := bucket.Get([]byte(id))
		if data == nil {
			return report.ErrReportNotFound
		}

		var r report.Report
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}

		if r.Status.Terminal() && r.Status != status {
			return &report.StatusTransitionError{From: r.Status, To: status}
		}

		r.Status = status
		if status.Terminal() {
			now := time.Now()
			r.ResolvedAt = &now
		}
		if notes != "" {
			r.AdminNotes = notes
		}

		newData, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(id), newData); err != nil {
			return err
		}

		rep = &r
		return nil
	})

	return rep, err
}

// CountByStatus counts reports for a content item with the given status,
// walking the per-content index.
func (s *ReportStore) CountByStatus(ctx context.Context, contentID string, status report.Status) (int, error) {
	var count int

	err := s.db.View(func(tx *bolt.Tx) error {
		reports := tx.Bucket(BucketReports)
		cursor := tx.Bucket(BucketReportsByContent).Cursor()
		prefix := []byte(contentID + "\x00")

		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			data := reports.Get(v)
			if data == nil {
				continue
			}

			var r report.Report
			if err := json.Unmarshal(data, &r); err != nil {
				continue
			}
			if r.Status == status {
				count++
			}
		}

		return nil
	})

	return count, err
}

// ListReports returns one page of reports ordered by submission time
// descending, plus the total count for the filter.
func (s *ReportStore) ListReports(ctx context.Context, status report.Status, page, pageSize int) ([]report.Report, int, error) {
	var all []report.Report

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketReports).ForEach(func(k, v []byte) error {
			var r report.Report
			if err := json.Unmarshal(v, &r); err != nil {
				return nil // Skip malformed entries
			}
			if status == "" || r.Status == status {
				all = append(all, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].SubmittedAt.After(all[j].SubmittedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// CountsByStatus returns report totals grouped by status.
func (s *ReportStore) CountsByStatus(ctx context.Context) (report.StatusCounts, error) {
	var counts report.StatusCounts

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketReports).ForEach(func(k, v []byte) error {
			var r report.Report
			if err := json.Unmarshal(v, &r); err != nil {
				return nil // Skip malformed entries
			}
			switch r.Status {
			case report.StatusPending:
				counts.Pending++
			case report.StatusResolved:
				counts.Resolved++
			case report.StatusDismissed:
				counts.Dismissed++
			}
			counts.Total++
			return nil
		})
	})

	return counts, err
}

// HideContent stores a hidden-content record unless one already exists.
func (s *ReportStore) HideContent(ctx context.Context, entry report.HiddenContent) (bool, error) {
	var first bool

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketHiddenContent)
		if bucket.Get([]byte(entry.ContentID)) != nil {
			return nil
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal hidden content: %w", err)
		}

		first = true
		return bucket.Put([]byte(entry.ContentID), data)
	})

	return first, err
}

// UnhideContent removes and returns the hidden-content record, or nil if the
// item was not hidden.
func (s *ReportStore) UnhideContent(ctx context.Context, contentID string) (*report.HiddenContent, error) {
	var rec *report.HiddenContent

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketHiddenContent)
		data := bucket.Get([]byte(contentID))
		if data == nil {
			return nil
		}

		rec = &report.HiddenContent{}
		if err := json.Unmarshal(data, rec); err != nil {
			return err
		}
		return bucket.Delete([]byte(contentID))
	})

	return rec, err
}

// IsContentHidden checks if a content item is hidden.
func (s *ReportStore) IsContentHidden(ctx context.Context, contentID string) bool {
	var hidden bool

	s.db.View(func(tx *bolt.Tx) error {
		hidden = tx.Bucket(BucketHiddenContent).Get([]byte(contentID)) != nil
		return nil
	})

	return hidden
}

// ListHiddenContent returns all hidden items, newest first.
func (s *ReportStore) ListHiddenContent(ctx context.Context) ([]report.HiddenContent, error) {
	var records []report.HiddenContent

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketHiddenContent).ForEach(func(k, v []byte) error {
			var rec report.HiddenContent
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].HiddenAt.After(records[j].HiddenAt)
	})
	return records, nil
}

// LoadReasonLines returns the persisted reason catalog, or "" if unset.
func (s *ReportStore) LoadReasonLines(ctx context.Context) (string, error) {
	var raw string

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(BucketSettings).Get(settingsKeyReasons)
		if data != nil {
			raw = string(data)
		}
		return nil
	})

	return raw, err
}

// SaveReasonLines persists the reason catalog.
func (s *ReportStore) SaveReasonLines(ctx context.Context, raw string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketSettings).Put(settingsKeyReasons, []byte(raw))
	})
}

// AppendAudit stores a moderation action in the audit log.
func (s *ReportStore) AppendAudit(ctx context.Context, entry report.AuditEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}

		// Zero-padded timestamp key keeps bucket iteration chronological.
		key := fmt.Sprintf("%020d:%s", entry.Timestamp.UnixNano(), entry.ID)
		return tx.Bucket(BucketAuditLog).Put([]byte(key), data)
	})
}

// ListAudit returns the most recent audit log entries, newest first.
func (s *ReportStore) ListAudit(ctx context.Context, limit int) ([]report.AuditEntry, error) {
	var entries []report.AuditEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(BucketAuditLog).Cursor()
		for k, v := cursor.Last(); k != nil && len(entries) < limit; k, v = cursor.Prev() {
			var entry report.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue // Skip malformed entries
			}
			entries = append(entries, entry)
		}
		return nil
	})

	return entries, err
}
