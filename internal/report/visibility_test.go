package report_test

import (
	"context"
	"testing"

	"flagpost/internal/content"
	"flagpost/internal/database/memstore"
	"flagpost/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityGateHideUnhide(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	gate := report.NewVisibilityGate(report.VisibilityConfig{}, store, nil)

	assert.False(t, gate.IsHidden(ctx, "post-1"))

	require.NoError(t, gate.Hide(ctx, "post-1", "mod-7", "spam wave", false))
	assert.True(t, gate.IsHidden(ctx, "post-1"))

	// Hiding again keeps the original record.
	require.NoError(t, gate.Hide(ctx, "post-1", "mod-9", "also spam", false))
	hidden, err := store.ListHiddenContent(ctx)
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.Equal(t, "mod-7", hidden[0].HiddenBy)
	assert.Equal(t, "spam wave", hidden[0].Reason)
	assert.False(t, hidden[0].AutoHidden)

	require.NoError(t, gate.Unhide(ctx, "post-1", "mod-7"))
	assert.False(t, gate.IsHidden(ctx, "post-1"))

	// Unhiding visible content is a no-op.
	require.NoError(t, gate.Unhide(ctx, "post-1", "mod-7"))
}

func TestVisibilityGateAudit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	gate := report.NewVisibilityGate(report.VisibilityConfig{}, store, nil)

	require.NoError(t, gate.Hide(ctx, "post-1", report.AutomodActor, "threshold reached", true))
	require.NoError(t, gate.Unhide(ctx, "post-1", "mod-7"))

	entries, err := store.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, report.AuditActionUnhideContent, entries[0].Action)
	assert.Equal(t, "mod-7", entries[0].Actor)

	assert.Equal(t, report.AuditActionHideContent, entries[1].Action)
	assert.Equal(t, report.AutomodActor, entries[1].Actor)
	assert.Equal(t, "post-1", entries[1].Target)
	assert.True(t, entries[1].AutoMod)
}

func TestVisibilityGateMakePrivate(t *testing.T) {
	ctx := context.Background()

	t.Run("published content is restored on unhide", func(t *testing.T) {
		store := memstore.New()
		registry := content.NewRegistry()
		registry.Put(report.ContentInfo{ID: "post-1", Title: "A Post", Published: true})

		gate := report.NewVisibilityGate(report.VisibilityConfig{MakePrivate: true}, store, registry)

		require.NoError(t, gate.Hide(ctx, "post-1", "mod-7", "spam", false))
		info, err := registry.Resolve(ctx, "post-1")
		require.NoError(t, err)
		assert.False(t, info.Published)

		hidden, err := store.ListHiddenContent(ctx)
		require.NoError(t, err)
		require.Len(t, hidden, 1)
		assert.True(t, hidden[0].WasPublished)

		require.NoError(t, gate.Unhide(ctx, "post-1", "mod-7"))
		info, err = registry.Resolve(ctx, "post-1")
		require.NoError(t, err)
		assert.True(t, info.Published)
	})

	t.Run("unpublished content stays unpublished", func(t *testing.T) {
		store := memstore.New()
		registry := content.NewRegistry()
		registry.Put(report.ContentInfo{ID: "draft-1", Title: "Draft", Published: false})

		gate := report.NewVisibilityGate(report.VisibilityConfig{MakePrivate: true}, store, registry)

		require.NoError(t, gate.Hide(ctx, "draft-1", "mod-7", "spam", false))
		require.NoError(t, gate.Unhide(ctx, "draft-1", "mod-7"))

		info, err := registry.Resolve(ctx, "draft-1")
		require.NoError(t, err)
		assert.False(t, info.Published)
	})

	t.Run("unknown content still hides", func(t *testing.T) {
		store := memstore.New()
		registry := content.NewRegistry()

		gate := report.NewVisibilityGate(report.VisibilityConfig{MakePrivate: true}, store, registry)

		require.NoError(t, gate.Hide(ctx, "ghost-1", "mod-7", "spam", false))
		assert.True(t, gate.IsHidden(ctx, "ghost-1"))
	})
}
