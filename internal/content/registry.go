// Package content provides an in-memory content repository. It backs the
// visibility gate's publish-state toggling when no external CMS is wired in.
package content

import (
	"context"
	"fmt"
	"sync"

	"flagpost/internal/report"
)

// Registry is a concurrency-safe in-memory report.ContentStore.
type Registry struct {
	mu    sync.RWMutex
	items map[string]report.ContentInfo
}

var _ report.ContentStore = (*Registry)(nil)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]report.ContentInfo)}
}

// Put registers or replaces a content item.
func (r *Registry) Put(info report.ContentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[info.ID] = info
}

// Resolve returns the content item's metadata.
func (r *Registry) Resolve(ctx context.Context, contentID string) (*report.ContentInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.items[contentID]
	if !ok {
		return nil, fmt.Errorf("content not found: %s", contentID)
	}
	return &info, nil
}

// SetPublished toggles the publish state of a content item.
func (r *Registry) SetPublished(ctx context.Context, contentID string, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.items[contentID]
	if !ok {
		return fmt.Errorf("content not found: %s", contentID)
	}
	info.Published = published
	r.items[contentID] = info
	return nil
}
