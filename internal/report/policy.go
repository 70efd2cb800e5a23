package report

import (
	"context"
	"fmt"
)

// Decision is the outcome of an auto-moderation evaluation.
type Decision struct {
	ShouldHide   bool
	PendingCount int
}

// Policy evaluates whether accumulated pending reports on a content item
// cross the configured threshold. It is invoked once per successful report
// creation, never on status transitions.
type Policy struct {
	cfg   AutoModerationConfig
	store Store
}

// NewPolicy creates an auto-moderation policy over the given store.
func NewPolicy(cfg AutoModerationConfig, store Store) *Policy {
	return &Policy{cfg: cfg, store: store}
}

// Evaluate counts pending reports for the content item and compares against
// the configured minimum. With auto-moderation disabled it always decides
// not to hide. Only pending reports count: resolved and dismissed reports
// never contribute to the threshold.
func (p *Policy) Evaluate(ctx context.Context, contentID string) (Decision, error) {
	if !p.cfg.Enabled {
		return Decision{}, nil
	}

	pending, err := p.store.CountByStatus(ctx, contentID, StatusPending)
	if err != nil {
		return Decision{}, fmt.Errorf("count pending reports: %w", err)
	}

	min := p.cfg.MinReports
	if min < 1 {
		min = 1
	}

	return Decision{
		ShouldHide:   pending >= min,
		PendingCount: pending,
	}, nil
}
