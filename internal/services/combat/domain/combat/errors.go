package combat

import apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"

var (
	// ErrNoActiveSession is returned when a guild has no running combat.
	ErrNoActiveSession = apperrors.New(apperrors.CodeCombatNoActiveSession, "no active combat session")
	// ErrSessionAlreadyActive is returned when starting combat over a running one.
	ErrSessionAlreadyActive = apperrors.New(apperrors.CodeCombatAlreadyActive, "combat session already active")
	// ErrParticipantNotFound is returned when a character is not in the roster.
	ErrParticipantNotFound = apperrors.New(apperrors.CodeCombatParticipantNotFound, "participant not found")
	// ErrParticipantExists is returned when adding a character already in the roster.
	ErrParticipantExists = apperrors.New(apperrors.CodeCombatParticipantExists, "participant already in combat")
	// ErrEmptyRoster is returned when a transition needs at least one participant.
	ErrEmptyRoster = apperrors.New(apperrors.CodeCombatEmptyRoster, "combat has no participants")
	// ErrSessionIDRequired is returned for a blank session id.
	ErrSessionIDRequired = apperrors.New(apperrors.CodeCombatSessionIDRequired, "session id is required")
	// ErrCharacterIDRequired is returned for a blank character id.
	ErrCharacterIDRequired = apperrors.New(apperrors.CodeCombatCharacterIDRequired, "character id is required")
)

func invalidState(err error) error {
	return apperrors.Wrap(apperrors.CodeCombatInvalidState, "invalid combat session", err)
}
