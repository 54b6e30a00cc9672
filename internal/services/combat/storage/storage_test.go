package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
)

func TestPrepareCreateStampsVersion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session, err := combat.New("g", "mobility", []roster.Participant{{CharacterID: "a", Initiative: 1}})
	if err != nil {
		t.Fatalf("combat.New() error = %v", err)
	}
	session.ID = "  g  "

	got, err := PrepareCreate(session, now)
	if err != nil {
		t.Fatalf("PrepareCreate() error = %v", err)
	}
	if got.ID != "g" || got.Version != 1 || !got.UpdatedAt.Equal(now) {
		t.Fatalf("prepared = %+v, want id g version 1 at %v", got, now)
	}
}

func TestApplyMutatorBumpsVersion(t *testing.T) {
	current, _ := combat.New("g", "mobility", []roster.Participant{{CharacterID: "a", Initiative: 2}, {CharacterID: "b", Initiative: 1}})
	current.Version = 4

	next, err := ApplyMutator(current, combat.Advance, time.Now())
	if err != nil {
		t.Fatalf("ApplyMutator() error = %v", err)
	}
	if next.Version != 5 || next.TurnIndex != 1 {
		t.Fatalf("version/turn = %d/%d, want 5/1", next.Version, next.TurnIndex)
	}
	if current.TurnIndex != 0 {
		t.Fatal("ApplyMutator changed its input")
	}
}

func TestApplyMutatorRejects(t *testing.T) {
	current, _ := combat.New("g", "mobility", []roster.Participant{{CharacterID: "a", Initiative: 2}})
	boom := errors.New("boom")

	tests := []struct {
		name   string
		mutate Mutator
	}{
		{name: "nil mutator"},
		{name: "mutator error", mutate: func(combat.Session) (combat.Session, error) { return combat.Session{}, boom }},
		{name: "id change", mutate: func(s combat.Session) (combat.Session, error) { s.ID = "other"; return s, nil }},
		{name: "invalid result", mutate: func(s combat.Session) (combat.Session, error) { s.Round = 0; return s, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ApplyMutator(current, tt.mutate, time.Now()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
