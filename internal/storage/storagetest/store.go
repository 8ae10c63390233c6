// Package storagetest provides an in-memory store for tests.
package storagetest

import (
	"testing"

	"deadlinebot/internal/storage"
	logx "deadlinebot/pkg/logx"
)

// NewTestStore opens an in-memory SQLite store with the schema applied.
// It is closed when the test completes.
func NewTestStore(t testing.TB) storage.Store {
	t.Helper()

	s, err := storage.Open(storage.Config{Driver: "sqlite", Path: ":memory:"}, logx.Nop())
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}
