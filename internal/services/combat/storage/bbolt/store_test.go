package bbolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage/storagetest"
)

func TestSessionStore(t *testing.T) {
	storagetest.RunSessionStoreTests(t, func(t *testing.T) storage.SessionStore {
		return openTempStore(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestReopenKeepsSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combat.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.CreateSession(context.Background(), storagetest.NewSession(t, "g1", "a", 3)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetSession(context.Background(), "g1"); err != nil {
		t.Fatalf("GetSession() after reopen error = %v", err)
	}
	if _, err := reopened.GetSession(context.Background(), "g2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetSession(g2) error = %v, want %v", err, storage.ErrNotFound)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "combat.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
