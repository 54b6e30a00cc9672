package combat

import (
	"strings"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
)

// Advance moves the turn to the next participant, starting a new round when
// the turn wraps past the last one.
func Advance(s Session) (Session, error) {
	n := len(s.Participants)
	if n == 0 {
		return s, ErrEmptyRoster
	}
	next := s.Clone()
	next.TurnIndex = (s.TurnIndex + 1) % n
	if next.TurnIndex == 0 {
		next.Round++
	}
	return next, nil
}

// Rewind moves the turn back one participant. Wrapping to the last
// participant steps the round back, but never below 1.
func Rewind(s Session) (Session, error) {
	n := len(s.Participants)
	if n == 0 {
		return s, ErrEmptyRoster
	}
	next := s.Clone()
	next.TurnIndex = (s.TurnIndex - 1 + n) % n
	if next.TurnIndex == n-1 && next.Round > 1 {
		next.Round--
	}
	return next, nil
}

// SetParticipants replaces the roster with incoming. Characters already in
// combat keep their initiative; new ones take the initiative supplied in
// incoming. The current participant stays current when it survives; otherwise
// the turn passes to the next survivor in the old order, as Advance would.
func SetParticipants(s Session, incoming []roster.Participant) (Session, error) {
	next := s.Clone()

	merged := make([]roster.Participant, 0, len(incoming))
	for _, p := range incoming {
		id := strings.TrimSpace(p.CharacterID)
		if id == "" {
			return s, ErrCharacterIDRequired
		}
		if roster.Contains(merged, id) {
			continue
		}
		if i, ok := roster.IndexOf(s.Participants, id); ok {
			merged = append(merged, s.Participants[i])
			continue
		}
		merged = append(merged, roster.Participant{CharacterID: id, Initiative: p.Initiative})
	}
	next.Participants = roster.SortByInitiative(merged)

	if len(next.Participants) == 0 {
		next.TurnIndex = 0
		return next, nil
	}

	current, ok := s.Current()
	if !ok {
		next.TurnIndex = 0
		return next, nil
	}
	if i, ok := roster.IndexOf(next.Participants, current.CharacterID); ok {
		next.TurnIndex = i
		return next, nil
	}

	n := len(s.Participants)
	for step := 1; step < n; step++ {
		old := (s.TurnIndex + step) % n
		i, ok := roster.IndexOf(next.Participants, s.Participants[old].CharacterID)
		if !ok {
			continue
		}
		next.TurnIndex = i
		if old < s.TurnIndex {
			next.Round++
		}
		return next, nil
	}

	next.TurnIndex = 0
	return next, nil
}

// AddParticipant inserts p by initiative, keeping the current participant.
func AddParticipant(s Session, p roster.Participant) (Session, error) {
	p.CharacterID = strings.TrimSpace(p.CharacterID)
	if p.CharacterID == "" {
		return s, ErrCharacterIDRequired
	}
	if roster.Contains(s.Participants, p.CharacterID) {
		return s, ErrParticipantExists
	}

	next := s.Clone()
	next.Participants = roster.SortByInitiative(append(next.Participants, p))
	next.TurnIndex = keepCurrent(s, next.Participants)
	return next, nil
}

// RemoveParticipant drops characterID from the roster. Removing the current
// participant hands the turn to the next one; removing the last participant
// while it is current wraps to the top and starts a new round.
func RemoveParticipant(s Session, characterID string) (Session, error) {
	idx, ok := roster.IndexOf(s.Participants, strings.TrimSpace(characterID))
	if !ok {
		return s, ErrParticipantNotFound
	}

	next := s.Clone()
	next.Participants = append(next.Participants[:idx], next.Participants[idx+1:]...)

	switch n := len(next.Participants); {
	case n == 0:
		next.TurnIndex = 0
	case idx < s.TurnIndex:
		next.TurnIndex = s.TurnIndex - 1
	case idx == s.TurnIndex && idx == n:
		next.TurnIndex = 0
		next.Round++
	}
	return next, nil
}

// SetInitiative changes one participant's initiative and re-sorts, keeping
// the current participant.
func SetInitiative(s Session, characterID string, initiative int) (Session, error) {
	idx, ok := roster.IndexOf(s.Participants, strings.TrimSpace(characterID))
	if !ok {
		return s, ErrParticipantNotFound
	}

	next := s.Clone()
	next.Participants[idx].Initiative = initiative
	next.Participants = roster.SortByInitiative(next.Participants)
	next.TurnIndex = keepCurrent(s, next.Participants)
	return next, nil
}

func keepCurrent(prev Session, participants []roster.Participant) int {
	current, ok := prev.Current()
	if !ok {
		return 0
	}
	if i, ok := roster.IndexOf(participants, current.CharacterID); ok {
		return i
	}
	return 0
}
