package testsupport

import (
	"context"
	"testing"

	"distill/internal/config"
	"distill/internal/tasks"
)

// MustOpenStore opens a task store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tasks.Store {
	t.Helper()

	store, err := tasks.Open(cfg)
	if err != nil {
		t.Fatalf("tasks.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewTask creates a queued task for tests using the provided store.
func NewTask(t testing.TB, store *tasks.Store, sourcePath string, opts tasks.Options) *tasks.Task {
	t.Helper()

	task, err := store.NewTask(context.Background(), sourcePath, opts)
	if err != nil {
		t.Fatalf("store.NewTask: %v", err)
	}
	return task
}
