package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"flagpost/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notification carries the details handed to the notification sink after a
// successful submission.
type Notification struct {
	ReportID     string
	ContentID    string
	ContentTitle string
	Reason       string
}

// Notifier is the external notification sink. Delivery is best-effort: a
// failed notification never fails the submission that triggered it.
type Notifier interface {
	NewReport(ctx context.Context, n Notification) error
}

// reasonKeyOther requires a free-text explanation from the reporter.
const reasonKeyOther = "other"

// SubmitRequest is the input to SubmitReport. Identity and client address
// are supplied by the caller.
type SubmitRequest struct {
	ContentID  string
	ReporterID int64
	ReasonKey  string
	ReasonText string // required when ReasonKey is "other"
	IPAddress  string
}

// ReportPage is one page of a report listing.
type ReportPage struct {
	Items      []Report `json:"items"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Page       int      `json:"page"`
}

// Service is the public entry point for the report lifecycle. It composes
// the reason catalog, the store, the auto-moderation policy, and the
// visibility gate, and enforces the status state machine.
type Service struct {
	store    Store
	gate     *VisibilityGate
	policy   *Policy
	notifier Notifier     // may be nil
	content  ContentStore // may be nil, used to enrich notifications

	mu      sync.RWMutex
	catalog *ReasonCatalog
}

// ServiceConfig collects the dependencies of a Service. Store, Gate and
// Policy are required; the rest are optional collaborators.
type ServiceConfig struct {
	Store    Store
	Gate     *VisibilityGate
	Policy   *Policy
	Notifier Notifier
	Content  ContentStore
	Catalog  *ReasonCatalog // DefaultReasons if nil
}

// NewService creates a report lifecycle service.
func NewService(cfg ServiceConfig) *Service {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultReasons()
	}
	return &Service{
		store:    cfg.Store,
		gate:     cfg.Gate,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
		content:  cfg.Content,
		catalog:  catalog,
	}
}

// LoadCatalogFromStore replaces the active reason catalog with the persisted
// one, keeping the defaults when nothing has been saved yet.
func (s *Service) LoadCatalogFromStore(ctx context.Context) error {
	raw, err := s.store.LoadReasonLines(ctx)
	if err != nil {
		return fmt.Errorf("load reason catalog: %w", err)
	}
	if raw == "" {
		return nil
	}

	s.mu.Lock()
	s.catalog = NormalizeReasons(raw)
	s.mu.Unlock()
	return nil
}

// Reasons returns the active reason catalog entries in presentation order.
func (s *Service) Reasons() []ReasonEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Entries()
}

// UpdateReasons normalizes the raw "key|label" lines, persists the result,
// and swaps the active catalog. Already-stored reports keep their snapshotted
// reason text.
func (s *Service) UpdateReasons(ctx context.Context, raw string) ([]ReasonEntry, error) {
	catalog := NormalizeReasons(raw)
	if err := s.store.SaveReasonLines(ctx, catalog.Lines()); err != nil {
		return nil, fmt.Errorf("save reason catalog: %w", err)
	}

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()

	log.Info().Int("entries", len(catalog.Entries())).Msg("report: reason catalog updated")
	return catalog.Entries(), nil
}

// SubmitReport validates and persists a new report, then runs the
// auto-moderation policy and fires the notification sink. Auto-hide and
// notification failures never fail a submission whose report was persisted.
func (s *Service) SubmitReport(ctx context.Context, req SubmitRequest) (*Report, error) {
	if req.ContentID == "" {
		return nil, &ValidationError{Field: "content_id", Message: "must not be empty"}
	}
	if req.ReporterID < 0 {
		return nil, &ValidationError{Field: "reporter_id", Message: "must not be negative"}
	}

	catalog := s.currentCatalog()
	key := strings.TrimSpace(req.ReasonKey)
	if !catalog.Validate(key) {
		return nil, &ValidationError{Field: "reason", Message: "a report reason is required"}
	}

	var reason string
	if key == reasonKeyOther {
		text := strings.TrimSpace(req.ReasonText)
		if text == "" {
			return nil, &ValidationError{Field: "reason", Message: "an explanation is required for \"other\""}
		}
		reason = "Other: " + text
	} else {
		reason = catalog.Resolve(key)
	}

	// Fast path; the store's uniqueness guard is the real invariant.
	if dup, err := s.store.HasReported(ctx, req.ContentID, req.ReporterID); err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	} else if dup {
		return nil, ErrDuplicateReport
	}

	rep := Report{
		ID:          uuid.NewString(),
		ContentID:   req.ContentID,
		ReporterID:  req.ReporterID,
		Reason:      reason,
		Status:      StatusPending,
		IPAddress:   req.IPAddress,
		SubmittedAt: time.Now(),
	}

	if err := s.store.CreateReport(ctx, rep); err != nil {
		if errors.Is(err, ErrDuplicateReport) {
			return nil, ErrDuplicateReport
		}
		return nil, fmt.Errorf("create report: %w", err)
	}

	log.Info().
		Str("report_id", rep.ID).
		Str("content_id", rep.ContentID).
		Int64("reporter_id", rep.ReporterID).
		Str("reason", rep.Reason).
		Msg("report: created")

	s.maybeAutoHide(ctx, rep.ContentID)
	s.notify(ctx, rep)

	return &rep, nil
}

// maybeAutoHide re-evaluates the pending-count threshold for the content
// item. Evaluation or hide failures are logged, never propagated: the report
// is already saved and visibility convergence is retryable.
func (s *Service) maybeAutoHide(ctx context.Context, contentID string) {
	// Already hidden content needs no re-evaluation.
	if s.gate.IsHidden(ctx, contentID) {
		return
	}

	decision, err := s.policy.Evaluate(ctx, contentID)
	if err != nil {
		log.Error().Err(err).Str("content_id", contentID).
			Msg("report: auto-moderation evaluation failed")
		return
	}
	if !decision.ShouldHide {
		return
	}

	reason := fmt.Sprintf("Auto-hidden: %d pending reports", decision.PendingCount)
	if err := s.gate.Hide(ctx, contentID, AutomodActor, reason, true); err != nil {
		log.Error().Err(err).Str("content_id", contentID).
			Msg("report: auto-hide failed")
		return
	}
	metrics.AutoHidesTotal.Inc()
}

// notify fires the notification sink. Errors are swallowed by design.
func (s *Service) notify(ctx context.Context, rep Report) {
	if s.notifier == nil {
		return
	}

	n := Notification{
		ReportID:  rep.ID,
		ContentID: rep.ContentID,
		Reason:    rep.Reason,
	}
	if s.content != nil {
		if info, err := s.content.Resolve(ctx, rep.ContentID); err == nil {
			n.ContentTitle = info.Title
		}
	}

	if err := s.notifier.NewReport(ctx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("report_id", rep.ID).
			Msg("report: notification failed")
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}

// Resolve marks a report resolved. Re-resolving a resolved report refreshes
// its resolution timestamp; no other transition leaves a terminal state.
func (s *Service) Resolve(ctx context.Context, id, actor, notes string) (*Report, error) {
	return s.setStatus(ctx, id, actor, StatusResolved, notes)
}

// Dismiss marks a report dismissed.
func (s *Service) Dismiss(ctx context.Context, id, actor, notes string) (*Report, error) {
	return s.setStatus(ctx, id, actor, StatusDismissed, notes)
}

func (s *Service) setStatus(ctx context.Context, id, actor string, status Status, notes string) (*Report, error) {
	rep, err := s.store.SetReportStatus(ctx, id, status, notes)
	if err != nil {
		var transition *StatusTransitionError
		if errors.As(err, &transition) {
			return nil, &ValidationError{Field: "status", Message: transition.Error()}
		}
		if errors.Is(err, ErrReportNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("set report status: %w", err)
	}

	action := AuditActionResolveReport
	if status == StatusDismissed {
		action = AuditActionDismissReport
	}
	if err := s.store.AppendAudit(ctx, AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Actor:     actor,
		Target:    id,
		Reason:    notes,
		Timestamp: time.Now(),
	}); err != nil {
		log.Error().Err(err).Str("report_id", id).Msg("report: failed to append audit entry")
	}

	log.Info().
		Str("report_id", id).
		Str("status", string(status)).
		Str("by", actor).
		Msg("report: status updated")

	return rep, nil
}

// HideContent is the direct administrative override, independent of report
// counts or statuses.
func (s *Service) HideContent(ctx context.Context, contentID, actor, reason string) error {
	return s.gate.Hide(ctx, contentID, actor, reason, false)
}

// UnhideContent reverses HideContent. Resolving or dismissing reports never
// unhides on its own; this explicit call is required.
func (s *Service) UnhideContent(ctx context.Context, contentID, actor string) error {
	return s.gate.Unhide(ctx, contentID, actor)
}

// IsHidden checks whether a content item is hidden.
func (s *Service) IsHidden(ctx context.Context, contentID string) bool {
	return s.gate.IsHidden(ctx, contentID)
}

// ListHidden returns all hidden content items, newest first.
func (s *Service) ListHidden(ctx context.Context) ([]HiddenContent, error) {
	return s.store.ListHiddenContent(ctx)
}

// ListReports returns one page of reports, newest first, optionally filtered
// by status. Page numbering is 1-indexed.
func (s *Service) ListReports(ctx context.Context, status Status, page, pageSize int) (*ReportPage, error) {
	if status != "" && !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}
	if page < 1 {
		return nil, &ValidationError{Field: "page", Message: "must be at least 1"}
	}
	if pageSize < 1 {
		return nil, &ValidationError{Field: "page_size", Message: "must be at least 1"}
	}

	items, total, err := s.store.ListReports(ctx, status, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	return &ReportPage{
		Items:      items,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Page:       page,
	}, nil
}

// ReportCounts returns report totals grouped by status.
func (s *Service) ReportCounts(ctx context.Context) (StatusCounts, error) {
	return s.store.CountsByStatus(ctx)
}

// AuditLog returns the most recent moderation actions, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	return s.store.ListAudit(ctx, limit)
}

func (s *Service) currentCatalog() *ReasonCatalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}
