// Package storagetest runs the shared behavioural checks every combat
// SessionStore backend must pass.
package storagetest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.SessionStore

// RunSessionStoreTests exercises store behaviour through the public contract.
func RunSessionStoreTests(t *testing.T, open Factory) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) { testGetMissing(t, open(t)) })
	t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, open(t)) })
	t.Run("create never overwrites", func(t *testing.T) { testCreateNeverOverwrites(t, open(t)) })
	t.Run("update applies mutator", func(t *testing.T) { testUpdateAppliesMutator(t, open(t)) })
	t.Run("update missing", func(t *testing.T) { testUpdateMissing(t, open(t)) })
	t.Run("failed mutator writes nothing", func(t *testing.T) { testFailedMutatorWritesNothing(t, open(t)) })
	t.Run("delete is idempotent", func(t *testing.T) { testDeleteIdempotent(t, open(t)) })
	t.Run("sessions are isolated", func(t *testing.T) { testSessionsIsolated(t, open(t)) })
	t.Run("empty roster round trips", func(t *testing.T) { testEmptyRosterRoundTrip(t, open(t)) })
	t.Run("concurrent advances", func(t *testing.T) { testConcurrentAdvances(t, open(t)) })
	t.Run("concurrent creates", func(t *testing.T) { testConcurrentCreates(t, open(t)) })
	t.Run("scenario", func(t *testing.T) { testScenario(t, open(t)) })
	t.Run("blank id", func(t *testing.T) { testBlankID(t, open(t)) })
}

// NewSession builds a round 1 session for id from alternating id/initiative pairs.
func NewSession(t *testing.T, id string, pairs ...any) combat.Session {
	t.Helper()
	list := make([]roster.Participant, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		list = append(list, roster.Participant{CharacterID: pairs[i].(string), Initiative: pairs[i+1].(int)})
	}
	session, err := combat.New(id, "mobility", list)
	if err != nil {
		t.Fatalf("combat.New() error = %v", err)
	}
	return session
}

func mustCreate(t *testing.T, store storage.SessionStore, session combat.Session) combat.Session {
	t.Helper()
	created, err := store.CreateSession(context.Background(), session)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return created
}

func mustGet(t *testing.T, store storage.SessionStore, id string) combat.Session {
	t.Helper()
	got, err := store.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession(%q) error = %v", id, err)
	}
	return got
}

func assertSame(t *testing.T, got, want combat.Session) {
	t.Helper()
	if got.ID != want.ID || got.Round != want.Round || got.TurnIndex != want.TurnIndex ||
		got.InitiativeAttributeID != want.InitiativeAttributeID || got.Version != want.Version {
		t.Fatalf("session = %+v, want %+v", got, want)
	}
	if !slices.Equal(got.Participants, want.Participants) {
		t.Fatalf("participants = %v, want %v", got.Participants, want.Participants)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("updated at = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
}

func testGetMissing(t *testing.T, store storage.SessionStore) {
	if _, err := store.GetSession(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetSession() error = %v, want %v", err, storage.ErrNotFound)
	}
}

func testCreateAndGet(t *testing.T, store storage.SessionStore) {
	created := mustCreate(t, store, NewSession(t, "g1", "a", 12, "b", 20, "c", 4))
	if created.Version != 1 {
		t.Fatalf("created version = %d, want 1", created.Version)
	}
	if created.UpdatedAt.IsZero() {
		t.Fatal("expected created session to carry UpdatedAt")
	}
	assertSame(t, mustGet(t, store, "g1"), created)
}

func testCreateNeverOverwrites(t *testing.T, store storage.SessionStore) {
	first := mustCreate(t, store, NewSession(t, "g1", "a", 1))
	_, err := store.CreateSession(context.Background(), NewSession(t, "g1", "z", 9))
	if !errors.Is(err, storage.ErrSessionAlreadyActive) {
		t.Fatalf("second CreateSession() error = %v, want %v", err, storage.ErrSessionAlreadyActive)
	}
	assertSame(t, mustGet(t, store, "g1"), first)
}

func testUpdateAppliesMutator(t *testing.T, store storage.SessionStore) {
	created := mustCreate(t, store, NewSession(t, "g1", "a", 3, "b", 2))
	updated, err := store.UpdateSession(context.Background(), "g1", combat.Advance)
	if err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	if updated.TurnIndex != 1 || updated.Version != created.Version+1 {
		t.Fatalf("turn/version = %d/%d, want 1/%d", updated.TurnIndex, updated.Version, created.Version+1)
	}
	assertSame(t, mustGet(t, store, "g1"), updated)
}

func testUpdateMissing(t *testing.T, store storage.SessionStore) {
	called := false
	_, err := store.UpdateSession(context.Background(), "nobody", func(s combat.Session) (combat.Session, error) {
		called = true
		return s, nil
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("UpdateSession() error = %v, want %v", err, storage.ErrNotFound)
	}
	if called {
		t.Fatal("mutator should not run for a missing session")
	}
}

func testFailedMutatorWritesNothing(t *testing.T, store storage.SessionStore) {
	created := mustCreate(t, store, NewSession(t, "g1", "a", 3))
	_, err := store.UpdateSession(context.Background(), "g1", func(s combat.Session) (combat.Session, error) {
		return combat.RemoveParticipant(s, "missing")
	})
	if !errors.Is(err, combat.ErrParticipantNotFound) {
		t.Fatalf("UpdateSession() error = %v, want %v", err, combat.ErrParticipantNotFound)
	}

	_, err = store.UpdateSession(context.Background(), "g1", func(s combat.Session) (combat.Session, error) {
		s.Round = 0
		return s, nil
	})
	if err == nil {
		t.Fatal("expected invalid mutator result to be rejected")
	}
	assertSame(t, mustGet(t, store, "g1"), created)
}

func testDeleteIdempotent(t *testing.T, store storage.SessionStore) {
	mustCreate(t, store, NewSession(t, "g1", "a", 3))
	for i := 0; i < 2; i++ {
		if err := store.DeleteSession(context.Background(), "g1"); err != nil {
			t.Fatalf("DeleteSession() pass %d error = %v", i+1, err)
		}
	}
	if _, err := store.GetSession(context.Background(), "g1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetSession() after delete error = %v, want %v", err, storage.ErrNotFound)
	}
	mustCreate(t, store, NewSession(t, "g1", "b", 1))
}

func testSessionsIsolated(t *testing.T, store storage.SessionStore) {
	mustCreate(t, store, NewSession(t, "g1", "a", 3, "b", 1))
	other := mustCreate(t, store, NewSession(t, "g2", "a", 3, "b", 1))
	if _, err := store.UpdateSession(context.Background(), "g1", combat.Advance); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	if err := store.DeleteSession(context.Background(), "g1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	assertSame(t, mustGet(t, store, "g2"), other)
}

func testEmptyRosterRoundTrip(t *testing.T, store storage.SessionStore) {
	mustCreate(t, store, NewSession(t, "g1", "a", 3))
	updated, err := store.UpdateSession(context.Background(), "g1", func(s combat.Session) (combat.Session, error) {
		return combat.RemoveParticipant(s, "a")
	})
	if err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	got := mustGet(t, store, "g1")
	if len(got.Participants) != 0 {
		t.Fatalf("participants = %v, want none", got.Participants)
	}
	if got.Version != updated.Version {
		t.Fatalf("version = %d, want %d", got.Version, updated.Version)
	}
}

func testConcurrentAdvances(t *testing.T, store storage.SessionStore) {
	mustCreate(t, store, NewSession(t, "g1", "a", 5, "b", 4, "c", 3, "d", 2, "e", 1))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.UpdateSession(context.Background(), "g1", combat.Advance); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent UpdateSession() error = %v", err)
	}

	got := mustGet(t, store, "g1")
	if got.TurnIndex != workers%5 || got.Round != 1+workers/5 {
		t.Fatalf("turn/round = %d/%d, want %d/%d", got.TurnIndex, got.Round, workers%5, 1+workers/5)
	}
	if got.Version != 1+workers {
		t.Fatalf("version = %d, want %d", got.Version, 1+workers)
	}
}

func testConcurrentCreates(t *testing.T, store storage.SessionStore) {
	const workers = 6
	session := NewSession(t, "g1", "a", 1)
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateSession(context.Background(), session)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, storage.ErrSessionAlreadyActive):
				rejected++
			default:
				t.Errorf("CreateSession() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if created != 1 || rejected != workers-1 {
		t.Fatalf("created/rejected = %d/%d, want 1/%d", created, rejected, workers-1)
	}
}

func testScenario(t *testing.T, store storage.SessionStore) {
	mustCreate(t, store, NewSession(t, "g1", "a", 12, "b", 20, "c", 4))
	if ids := roster.IDs(mustGet(t, store, "g1").Participants); !slices.Equal(ids, []string{"b", "a", "c"}) {
		t.Fatalf("order = %v, want [b a c]", ids)
	}

	wantTurns := []int{1, 2, 0}
	wantRounds := []int{1, 1, 2}
	for i := range wantTurns {
		s, err := store.UpdateSession(context.Background(), "g1", combat.Advance)
		if err != nil {
			t.Fatalf("advance %d error = %v", i+1, err)
		}
		if s.TurnIndex != wantTurns[i] || s.Round != wantRounds[i] {
			t.Fatalf("advance %d: turn/round = %d/%d, want %d/%d", i+1, s.TurnIndex, s.Round, wantTurns[i], wantRounds[i])
		}
	}

	s, err := store.UpdateSession(context.Background(), "g1", func(s combat.Session) (combat.Session, error) {
		return combat.RemoveParticipant(s, "b")
	})
	if err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if ids := roster.IDs(s.Participants); !slices.Equal(ids, []string{"a", "c"}) || s.TurnIndex != 0 {
		t.Fatalf("after remove: order %v turn %d, want [a c] turn 0", ids, s.TurnIndex)
	}
}

func testBlankID(t *testing.T, store storage.SessionStore) {
	if _, err := store.GetSession(context.Background(), "  "); !errors.Is(err, combat.ErrSessionIDRequired) {
		t.Fatalf("GetSession(blank) error = %v, want %v", err, combat.ErrSessionIDRequired)
	}
	if err := store.DeleteSession(context.Background(), ""); !errors.Is(err, combat.ErrSessionIDRequired) {
		t.Fatalf("DeleteSession(blank) error = %v, want %v", err, combat.ErrSessionIDRequired)
	}
}
