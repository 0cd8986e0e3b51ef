// Package model caches the dashboard's view of a profile.
package model

import (
	"context"
	"strconv"
	"sync"

	"github.com/matheus3301/postbot/internal/control"
	"github.com/matheus3301/postbot/internal/store"
)

// Loader takes a fresh snapshot of the profile.
type Loader func(ctx context.Context) (*control.Snapshot, error)

// ViewModel holds the last snapshot. Safe for concurrent use.
type ViewModel struct {
	mu   sync.RWMutex
	load Loader
	snap *control.Snapshot
}

// NewViewModel creates a view model backed by load.
func NewViewModel(load Loader) *ViewModel {
	return &ViewModel{load: load}
}

// Refresh replaces the snapshot. On error the previous one is kept.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	s, err := vm.load(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.snap = s
	vm.mu.Unlock()
	return nil
}

// Snapshot returns the last snapshot, or nil before the first refresh.
func (vm *ViewModel) Snapshot() *control.Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.snap
}

// Scheduled returns the cached scheduled posts.
func (vm *ViewModel) Scheduled() []store.ScheduledPost {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.snap == nil {
		return nil
	}
	return vm.snap.Scheduled
}

// Published returns the cached published posts.
func (vm *ViewModel) Published() []store.PublishedPost {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.snap == nil {
		return nil
	}
	return vm.snap.Published
}

// ScheduledKey and PublishedKey name a row in the dashboard tables.
func ScheduledKey(p store.ScheduledPost) string { return "s:" + strconv.FormatInt(p.ID, 10) }
func PublishedKey(p store.PublishedPost) string { return "p:" + p.ChannelID + ":" + p.MessageID }

// Lookup finds the post a table key refers to. Exactly one of the results is
// non-nil when the post is still cached.
func (vm *ViewModel) Lookup(key string) (*store.ScheduledPost, *store.PublishedPost) {
	for _, p := range vm.Scheduled() {
		if ScheduledKey(p) == key {
			return &p, nil
		}
	}
	for _, p := range vm.Published() {
		if PublishedKey(p) == key {
			return nil, &p
		}
	}
	return nil, nil
}
