package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage/storagetest"
)

func TestSessionStore(t *testing.T) {
	storagetest.RunSessionStoreTests(t, func(t *testing.T) storage.SessionStore {
		return NewStore()
	})
}

func TestWithClockStampsUpdatedAt(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewStore().WithClock(func() time.Time { return fixed })

	created, err := store.CreateSession(context.Background(), storagetest.NewSession(t, "g1", "a", 1))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if !created.UpdatedAt.Equal(fixed) {
		t.Fatalf("UpdatedAt = %v, want %v", created.UpdatedAt, fixed)
	}
}

func TestReturnedSessionsAreCopies(t *testing.T) {
	store := NewStore()
	created, err := store.CreateSession(context.Background(), storagetest.NewSession(t, "g1", "a", 5, "b", 1))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	created.Participants[0].Initiative = -100

	got, err := store.GetSession(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Participants[0].Initiative != 5 {
		t.Fatalf("stored initiative = %d, want 5", got.Participants[0].Initiative)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStore().GetSession(ctx, "g1"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestLocksReleasedAfterUse(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("g%d", i)
		if _, err := store.CreateSession(ctx, storagetest.NewSession(t, id, "a", 2, "b", 1)); err != nil {
			t.Fatalf("CreateSession(%s) error = %v", id, err)
		}
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.UpdateSession(ctx, id, combat.Advance); err != nil {
					t.Errorf("UpdateSession(%s) error = %v", id, err)
				}
			}()
		}
	}
	wg.Wait()

	got, err := store.GetSession(ctx, "g0")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Round != 3 || got.TurnIndex != 0 {
		t.Fatalf("after 4 advances = round %d index %d, want round 3 index 0", got.Round, got.TurnIndex)
	}
	for i := 0; i < 20; i++ {
		if err := store.DeleteSession(ctx, fmt.Sprintf("g%d", i)); err != nil {
			t.Fatalf("DeleteSession() error = %v", err)
		}
	}
	if n := store.lockCount(); n != 0 {
		t.Fatalf("lock entries = %d, want 0", n)
	}
}
