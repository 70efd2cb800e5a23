// Package memstore provides an in-memory report.Store implementation used in
// tests and for development without a database file.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"flagpost/internal/report"
)

// Store implements report.Store with plain maps guarded by a mutex. The
// duplicate invariant is enforced under the same lock as the insert, so
// concurrent submissions for one (contentID, reporterID) pair cannot both
// succeed.
type Store struct {
	mu      sync.RWMutex
	reports map[string]report.Report
	dupes   map[dupeKey]string // -> report id
	hidden  map[string]report.HiddenContent
	reasons *string
	audit   []report.AuditEntry
}

type dupeKey struct {
	contentID  string
	reporterID int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		reports: make(map[string]report.Report),
		dupes:   make(map[dupeKey]string),
		hidden:  make(map[string]report.HiddenContent),
	}
}

var _ report.Store = (*Store)(nil)

func (s *Store) CreateReport(ctx context.Context, r report.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dupeKey{contentID: r.ContentID, reporterID: r.ReporterID}
	if _, exists := s.dupes[key]; exists {
		return report.ErrDuplicateReport
	}

	s.dupes[key] = r.ID
	s.reports[r.ID] = r
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) HasReported(ctx context.Context, contentID string, reporterID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.dupes[dupeKey{contentID: contentID, reporterID: reporterID}]
	return ok, nil
}

func (s *Store) SetReportStatus(ctx context.Context, id string, status report.Status, notes string) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	if r.Status.Terminal() && r.Status != status {
		return nil, &report.StatusTransitionError{From: r.Status, To: status}
	}

	r.Status = status
	if status.Terminal() {
		now := time.Now()
		r.ResolvedAt = &now
	}
	if notes != "" {
		r.AdminNotes = notes
	}

	s.reports[id] = r
	return &r, nil
}

func (s *Store) CountByStatus(ctx context.Context, contentID string, status report.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.reports {
		if r.ContentID == contentID && r.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListReports(ctx context.Context, status report.Status, page, pageSize int) ([]report.Report, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []report.Report
	for _, r := range s.reports {
		if status == "" || r.Status == status {
			all = append(all, r)
		}
	}

	// Newest first; id as tiebreaker for stable pagination.
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

func (s *Store) CountsByStatus(ctx context.Context) (report.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts report.StatusCounts
	for _, r := range s.reports {
		switch r.Status {
		case report.StatusPending:
			counts.Pending++
		case report.StatusResolved:
			counts.Resolved++
		case report.StatusDismissed:
			counts.Dismissed++
		}
		counts.Total++
	}
	return counts, nil
}

func (s *Store) HideContent(ctx context.Context, entry report.HiddenContent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.hidden[entry.ContentID]; exists {
		return false, nil
	}
	s.hidden[entry.ContentID] = entry
	return true, nil
}

func (s *Store) UnhideContent(ctx context.Context, contentID string) (*report.HiddenContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.hidden[contentID]
	if !ok {
		return nil, nil
	}
	delete(s.hidden, contentID)
	return &rec, nil
}

func (s *Store) IsContentHidden(ctx context.Context, contentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.hidden[contentID]
	return ok
}

func (s *Store) ListHiddenContent(ctx context.Context) ([]report.HiddenContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]report.HiddenContent, 0, len(s.hidden))
	for _, rec := range s.hidden {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].HiddenAt.After(out[j].HiddenAt)
	})
	return out, nil
}

func (s *Store) LoadReasonLines(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.reasons == nil {
		return "", nil
	}
	return *s.reasons, nil
}

func (s *Store) SaveReasonLines(ctx context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reasons = &raw
	return nil
}

func (s *Store) AppendAudit(ctx context.Context, entry report.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]report.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []report.AuditEntry
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}
