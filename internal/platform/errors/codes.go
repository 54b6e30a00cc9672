// Package errors provides coded domain errors shared by turnkeeper services.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Combat errors
	CodeCombatNoActiveSession     Code = "COMBAT_NO_ACTIVE_SESSION"
	CodeCombatAlreadyActive       Code = "COMBAT_ALREADY_ACTIVE"
	CodeCombatParticipantNotFound Code = "COMBAT_PARTICIPANT_NOT_FOUND"
	CodeCombatParticipantExists   Code = "COMBAT_PARTICIPANT_EXISTS"
	CodeCombatEmptyRoster         Code = "COMBAT_EMPTY_ROSTER"
	CodeCombatInvalidState        Code = "COMBAT_INVALID_STATE"
	CodeCombatCharacterNotFound   Code = "COMBAT_CHARACTER_NOT_FOUND"
	CodeCombatAttributeNotFound   Code = "COMBAT_ATTRIBUTE_NOT_FOUND"
	CodeCombatSessionIDRequired   Code = "COMBAT_SESSION_ID_REQUIRED"
	CodeCombatCharacterIDRequired Code = "COMBAT_CHARACTER_ID_REQUIRED"
	CodeCombatInitiativeRequired  Code = "COMBAT_INITIATIVE_REQUIRED"
	CodeCombatUpdateConflict      Code = "COMBAT_UPDATE_CONFLICT"

	// Interaction errors
	CodeCombatOutsideGuild   Code = "COMBAT_OUTSIDE_GUILD"
	CodeCombatNotModerator   Code = "COMBAT_NOT_MODERATOR"
	CodeInteractionExpired   Code = "INTERACTION_EXPIRED"
	CodeInteractionUnhandled Code = "INTERACTION_UNHANDLED"
	CodeInvalidRequest       Code = "INVALID_REQUEST"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Dice errors
	CodeDiceInvalidSpec Code = "DICE_INVALID_SPEC"
)

// UserFacing reports whether errors with this code are caller-recoverable and
// should be shown to the requesting user instead of logged as failures.
func (c Code) UserFacing() bool {
	switch c {
	case CodeCombatNoActiveSession,
		CodeCombatAlreadyActive,
		CodeCombatParticipantNotFound,
		CodeCombatParticipantExists,
		CodeCombatEmptyRoster,
		CodeCombatCharacterNotFound,
		CodeCombatAttributeNotFound,
		CodeCombatSessionIDRequired,
		CodeCombatCharacterIDRequired,
		CodeCombatInitiativeRequired,
		CodeCombatOutsideGuild,
		CodeCombatNotModerator,
		CodeInteractionExpired,
		CodeInvalidRequest,
		CodeDiceInvalidSpec:
		return true
	default:
		return false
	}
}
