package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/waffle/pantry/storage"
)

// ErrDocStoreFailure is returned by RecordingDocStore for paths marked as failing.
var ErrDocStoreFailure = errors.New("document store unavailable")

// RecordingDocStore is an in-memory waffle store that records deletions
// and presigns with a fake host.
type RecordingDocStore struct {
	*storage.Memory

	mu      sync.Mutex
	deleted []string
	failing map[string]bool
}

// NewRecordingDocStore creates an empty RecordingDocStore.
func NewRecordingDocStore() *RecordingDocStore {
	return &RecordingDocStore{
		Memory:  storage.NewMemory(storage.MemoryConfig{BaseURL: "/media"}),
		failing: map[string]bool{},
	}
}

// FailOn makes Delete return ErrDocStoreFailure for path.
func (d *RecordingDocStore) FailOn(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failing[path] = true
}

// Delete records the attempt, fails for paths marked with FailOn and
// otherwise deletes from memory.
func (d *RecordingDocStore) Delete(ctx context.Context, path string) error {
	d.mu.Lock()
	d.deleted = append(d.deleted, path)
	fail := d.failing[path]
	d.mu.Unlock()
	if fail {
		return ErrDocStoreFailure
	}
	return d.Memory.Delete(ctx, path)
}

// PresignedURL returns a fake signed link for path.
func (d *RecordingDocStore) PresignedURL(ctx context.Context, path string, opts *storage.PresignOptions) (string, error) {
	return "https://signed.example.com/" + path + "?expires=" + opts.Expires.String(), nil
}

// Deleted returns every path Delete was called with, in call order.
func (d *RecordingDocStore) Deleted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.deleted))
	copy(out, d.deleted)
	return out
}
