package testsupport

import (
	"context"
	"testing"

	"themesubmit/internal/config"
	"themesubmit/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddItem enqueues a single-file item for tests.
func AddItem(t testing.TB, store *queue.Store, kind, identifier, repoPath string, content []byte) *queue.Item {
	t.Helper()

	item, err := store.Add(context.Background(), queue.NewItem{
		Kind:       kind,
		Identifier: identifier,
		Name:       identifier,
		Author:     "tester",
		Files:      []queue.NewFile{{RepoPath: repoPath, SourceName: repoPath, Content: content}},
	})
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return item
}
