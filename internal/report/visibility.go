package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AutomodActor is recorded as the acting moderator when the auto-moderation
// policy hides content.
const AutomodActor = "automod"

// VisibilityGate tracks and mutates whether a content item is hidden,
// independent of the reports that caused it. When make-private mode is
// configured it also requests a publish-state change on the external content
// store, remembering the prior state so unhide can restore it.
type VisibilityGate struct {
	store   Store
	content ContentStore // may be nil
	cfg     VisibilityConfig
}

// NewVisibilityGate creates a gate over the given store. content may be nil
// when no external content repository is wired; make-private mode is then a
// no-op beyond the internal hidden flag.
func NewVisibilityGate(cfg VisibilityConfig, store Store, content ContentStore) *VisibilityGate {
	return &VisibilityGate{store: store, content: content, cfg: cfg}
}

// IsHidden checks whether the content item is hidden.
func (g *VisibilityGate) IsHidden(ctx context.Context, contentID string) bool {
	return g.store.IsContentHidden(ctx, contentID)
}

// Hide marks a content item hidden. Hiding an already-hidden item is a
// no-op. The current publish state is captured before hiding so Unhide can
// restore it.
func (g *VisibilityGate) Hide(ctx context.Context, contentID, actor, reason string, auto bool) error {
	entry := HiddenContent{
		ContentID:  contentID,
		HiddenAt:   time.Now(),
		HiddenBy:   actor,
		Reason:     reason,
		AutoHidden: auto,
	}

	if g.cfg.MakePrivate && g.content != nil {
		info, err := g.content.Resolve(ctx, contentID)
		if err != nil {
			log.Warn().Err(err).Str("content_id", contentID).
				Msg("visibility: could not resolve publish state, assuming unpublished")
		} else {
			entry.WasPublished = info.Published
		}
	}

	first, err := g.store.HideContent(ctx, entry)
	if err != nil {
		return fmt.Errorf("hide content: %w", err)
	}
	if !first {
		return nil
	}

	if g.cfg.MakePrivate && g.content != nil {
		// The internal hidden flag is authoritative; a failed publish-state
		// change is retryable and must not undo the hide.
		if err := g.content.SetPublished(ctx, contentID, false); err != nil {
			log.Warn().Err(err).Str("content_id", contentID).
				Msg("visibility: failed to make content private")
		}
	}

	g.audit(ctx, AuditEntry{
		ID:        uuid.NewString(),
		Action:    AuditActionHideContent,
		Actor:     actor,
		Target:    contentID,
		Reason:    reason,
		Timestamp: time.Now(),
		AutoMod:   auto,
	})

	log.Info().
		Str("content_id", contentID).
		Str("by", actor).
		Bool("auto", auto).
		Msg("visibility: content hidden")

	return nil
}

// Unhide removes the hidden flag. Unhiding a visible item is a no-op. If the
// item was published before it was hidden and make-private mode is active,
// the publish state is restored.
func (g *VisibilityGate) Unhide(ctx context.Context, contentID, actor string) error {
	rec, err := g.store.UnhideContent(ctx, contentID)
	if err != nil {
		return fmt.Errorf("unhide content: %w", err)
	}
	if rec == nil {
		return nil
	}

	if g.cfg.MakePrivate && g.content != nil && rec.WasPublished {
		if err := g.content.SetPublished(ctx, contentID, true); err != nil {
			log.Warn().Err(err).Str("content_id", contentID).
				Msg("visibility: failed to restore publish state")
		}
	}

	g.audit(ctx, AuditEntry{
		ID:        uuid.NewString(),
		Action:    AuditActionUnhideContent,
		Actor:     actor,
		Target:    contentID,
		Timestamp: time.Now(),
	})

	log.Info().
		Str("content_id", contentID).
		Str("by", actor).
		Msg("visibility: content unhidden")

	return nil
}

func (g *VisibilityGate) audit(ctx context.Context, entry AuditEntry) {
	if err := g.store.AppendAudit(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", string(entry.Action)).
			Msg("visibility: failed to append audit entry")
	}
}
