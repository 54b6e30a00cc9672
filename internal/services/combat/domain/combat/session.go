package combat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
)

// DefaultInitiativeAttributeID is the attribute rolled for initiative when
// setup does not pick one.
const DefaultInitiativeAttributeID = "mobility"

// Session is the running combat of one guild.
type Session struct {
	// ID is the guild id; a guild has at most one session.
	ID string `json:"id"`
	// Round starts at 1 and increments each time the turn wraps to the top.
	Round int `json:"round"`
	// TurnIndex points at the current participant.
	TurnIndex int `json:"turn_index"`
	// InitiativeAttributeID names the attribute whose die was rolled.
	InitiativeAttributeID string `json:"initiative_attribute_id"`
	// Participants are ordered by initiative, highest first.
	Participants []roster.Participant `json:"participants"`
	// Version increments on every committed write.
	Version int64 `json:"version"`
	// UpdatedAt is the time of the last committed write.
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds a session at round 1 with the first participant up. Duplicate
// character ids keep their first occurrence.
func New(id, attributeID string, participants []roster.Participant) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrSessionIDRequired
	}
	attributeID = strings.TrimSpace(attributeID)
	if attributeID == "" {
		attributeID = DefaultInitiativeAttributeID
	}

	unique := make([]roster.Participant, 0, len(participants))
	for _, p := range participants {
		p.CharacterID = strings.TrimSpace(p.CharacterID)
		if p.CharacterID == "" {
			return Session{}, ErrCharacterIDRequired
		}
		if roster.Contains(unique, p.CharacterID) {
			continue
		}
		unique = append(unique, p)
	}
	if len(unique) == 0 {
		return Session{}, ErrEmptyRoster
	}

	return Session{
		ID:                    id,
		Round:                 1,
		TurnIndex:             0,
		InitiativeAttributeID: attributeID,
		Participants:          roster.SortByInitiative(unique),
	}, nil
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	s.Participants = roster.Clone(s.Participants)
	return s
}

// Current returns the participant whose turn it is.
func (s Session) Current() (roster.Participant, bool) {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Participants) {
		return roster.Participant{}, false
	}
	return s.Participants[s.TurnIndex], true
}

// Validate checks the session invariants.
func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrSessionIDRequired
	}
	if s.Round < 1 {
		return invalidState(fmt.Errorf("round %d is below 1", s.Round))
	}
	if err := roster.Validate(s.Participants); err != nil {
		return invalidState(err)
	}
	n := len(s.Participants)
	if n == 0 && s.TurnIndex != 0 {
		return invalidState(fmt.Errorf("turn index %d with empty roster", s.TurnIndex))
	}
	if n > 0 && (s.TurnIndex < 0 || s.TurnIndex >= n) {
		return invalidState(fmt.Errorf("turn index %d out of range [0, %d)", s.TurnIndex, n))
	}
	return nil
}

// IsInvalidState reports whether err came from Validate.
func IsInvalidState(err error) bool {
	return errors.Is(err, invalidState(nil))
}
