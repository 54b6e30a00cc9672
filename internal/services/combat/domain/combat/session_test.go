package combat

import (
	"errors"
	"slices"
	"testing"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
)

func participants(pairs ...any) []roster.Participant {
	list := make([]roster.Participant, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		list = append(list, roster.Participant{CharacterID: pairs[i].(string), Initiative: pairs[i+1].(int)})
	}
	return list
}

func mustNew(t *testing.T, list []roster.Participant) Session {
	t.Helper()
	s, err := New("guild-1", "mobility", list)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func assertValid(t *testing.T, s Session) {
	t.Helper()
	if err := s.Validate(); err != nil {
		t.Fatalf("invariant violated: %v (session %+v)", err, s)
	}
}

func TestNewSortsAndStartsAtRoundOne(t *testing.T) {
	s := mustNew(t, participants("a", 12, "b", 20, "c", 4))

	if ids := roster.IDs(s.Participants); !slices.Equal(ids, []string{"b", "a", "c"}) {
		t.Fatalf("order = %v, want [b a c]", ids)
	}
	if s.Round != 1 || s.TurnIndex != 0 {
		t.Fatalf("round/turn = %d/%d, want 1/0", s.Round, s.TurnIndex)
	}
	if current, _ := s.Current(); current.CharacterID != "b" {
		t.Fatalf("current = %q, want b", current.CharacterID)
	}
	assertValid(t, s)
}

func TestNewCollapsesDuplicates(t *testing.T) {
	s := mustNew(t, participants("a", 3, "a", 18, "b", 5))
	if len(s.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(s.Participants))
	}
	if i, _ := roster.IndexOf(s.Participants, "a"); s.Participants[i].Initiative != 3 {
		t.Fatalf("a initiative = %d, want first occurrence 3", s.Participants[i].Initiative)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(" ", "mobility", participants("a", 1)); !errors.Is(err, ErrSessionIDRequired) {
		t.Fatalf("blank id error = %v, want %v", err, ErrSessionIDRequired)
	}
	if _, err := New("g", "mobility", nil); !errors.Is(err, ErrEmptyRoster) {
		t.Fatalf("empty roster error = %v, want %v", err, ErrEmptyRoster)
	}
	if _, err := New("g", "mobility", participants("", 1)); !errors.Is(err, ErrCharacterIDRequired) {
		t.Fatalf("blank character error = %v, want %v", err, ErrCharacterIDRequired)
	}
}

func TestNewDefaultsAttribute(t *testing.T) {
	s, err := New("g", "", participants("a", 1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.InitiativeAttributeID != DefaultInitiativeAttributeID {
		t.Fatalf("attribute = %q, want %q", s.InitiativeAttributeID, DefaultInitiativeAttributeID)
	}
}

func TestValidateRejectsBrokenSessions(t *testing.T) {
	base := mustNew(t, participants("a", 2, "b", 1))
	tests := []struct {
		name   string
		mutate func(*Session)
	}{
		{name: "round zero", mutate: func(s *Session) { s.Round = 0 }},
		{name: "turn past end", mutate: func(s *Session) { s.TurnIndex = 2 }},
		{name: "negative turn", mutate: func(s *Session) { s.TurnIndex = -1 }},
		{name: "unsorted", mutate: func(s *Session) { s.Participants[0].Initiative = 0 }},
		{name: "empty with turn", mutate: func(s *Session) { s.Participants = nil; s.TurnIndex = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base.Clone()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsInvalidState(err) {
				t.Fatalf("IsInvalidState(%v) = false, want true", err)
			}
		})
	}
}
