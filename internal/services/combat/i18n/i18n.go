// Package i18n holds the translated text combat shows to players.
package i18n

import (
	"embed"

	apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"
	"github.com/louisbranch/turnkeeper/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	KeyErrorGeneric             = "combat.error.generic"
	KeyErrorNoActiveSession     = "combat.error.no_active_session"
	KeyErrorAlreadyActive       = "combat.error.already_active"
	KeyErrorParticipantNotFound = "combat.error.participant_not_found"
	KeyErrorParticipantExists   = "combat.error.participant_exists"
	KeyErrorEmptyRoster         = "combat.error.empty_roster"
	KeyErrorCharacterNotFound   = "combat.error.character_not_found"
	KeyErrorAttributeNotFound   = "combat.error.attribute_not_found"
	KeyErrorOutsideGuild        = "combat.error.outside_guild"
	KeyErrorNotModerator        = "combat.error.not_moderator"
	KeyErrorExpired             = "combat.error.expired"
	KeyErrorInvalidRequest      = "combat.error.invalid_request"

	KeyTrackerTitle       = "combat.tracker.title"
	KeyTrackerInactive    = "combat.tracker.inactive"
	KeyTrackerEmptyRoster = "combat.tracker.empty_roster"
	KeyTrackerHeader      = "combat.tracker.header"
	KeyTrackerFooter      = "combat.tracker.footer"
	KeyTrackerStats       = "combat.tracker.stats"
	KeyTrackerRewind      = "combat.tracker.rewind"
	KeyTrackerAdvance     = "combat.tracker.advance"
	KeyTrackerEnd         = "combat.tracker.end"
	KeyTrackerEnded       = "combat.tracker.ended"
	KeyTrackerDismiss     = "combat.tracker.dismiss"

	KeySetupContent               = "combat.setup.content"
	KeySetupCharactersPlaceholder = "combat.setup.characters_placeholder"
	KeySetupAttributePlaceholder  = "combat.setup.attribute_placeholder"
	KeySetupStart                 = "combat.setup.start"

	KeyEditorContent = "combat.editor.content"
	KeyEditorDone    = "combat.editor.done"

	KeyCommandAdded      = "combat.command.added"
	KeyCommandRemoved    = "combat.command.removed"
	KeyCommandInitiative = "combat.command.initiative"

	KeyDescriptionRoot             = "combat.description.combat"
	KeyDescriptionOptionCharacter  = "combat.description.option_character"
	KeyDescriptionOptionInitiative = "combat.description.option_initiative"
)

var errorKeys = map[apperrors.Code]string{
	apperrors.CodeCombatNoActiveSession:     KeyErrorNoActiveSession,
	apperrors.CodeCombatAlreadyActive:       KeyErrorAlreadyActive,
	apperrors.CodeCombatParticipantNotFound: KeyErrorParticipantNotFound,
	apperrors.CodeCombatParticipantExists:   KeyErrorParticipantExists,
	apperrors.CodeCombatEmptyRoster:         KeyErrorEmptyRoster,
	apperrors.CodeCombatCharacterNotFound:   KeyErrorCharacterNotFound,
	apperrors.CodeCombatAttributeNotFound:   KeyErrorAttributeNotFound,
	apperrors.CodeCombatOutsideGuild:        KeyErrorOutsideGuild,
	apperrors.CodeCombatNotModerator:        KeyErrorNotModerator,
	apperrors.CodeInteractionExpired:        KeyErrorExpired,
	apperrors.CodeCombatSessionIDRequired:   KeyErrorInvalidRequest,
	apperrors.CodeCombatCharacterIDRequired: KeyErrorInvalidRequest,
	apperrors.CodeCombatInitiativeRequired:  KeyErrorInvalidRequest,
	apperrors.CodeDiceInvalidSpec:           KeyErrorInvalidRequest,
	apperrors.CodeInvalidRequest:            KeyErrorInvalidRequest,
}

//go:embed locales/*/*.yaml
var localeFS embed.FS

var bundle = mustLoad()

func mustLoad() *catalog.Bundle {
	b, err := catalog.LoadFromFS(localeFS)
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}

// Bundle returns the combat catalog.
func Bundle() *catalog.Bundle {
	return bundle
}

// DescriptionKey returns the key describing the named subcommand.
func DescriptionKey(command string) string {
	return "combat.description." + command
}

// Translations returns key's text in every locale other than the base one,
// keyed by locale.
func Translations(key string) map[string]string {
	out := map[string]string{}
	for _, locale := range bundle.Locales() {
		if locale == catalog.BaseLocale {
			continue
		}
		if text, ok := bundle.Message(locale, key); ok {
			out[locale] = text
		}
	}
	return out
}

// Printer formats combat messages for one locale.
type Printer struct {
	locale  string
	printer *message.Printer
}

// NewPrinter returns a printer for the closest supported locale.
// Unknown locales fall back to catalog.BaseLocale.
func NewPrinter(locale string) Printer {
	resolved := bundle.Resolve(locale)
	return Printer{
		locale:  resolved,
		printer: message.NewPrinter(language.MustParse(resolved)),
	}
}

// Locale returns the resolved locale.
func (p Printer) Locale() string {
	if p.locale == "" {
		return catalog.BaseLocale
	}
	return p.locale
}

// Sprintf formats the message stored under key.
func (p Printer) Sprintf(key string, args ...any) string {
	if p.printer == nil {
		p = NewPrinter(catalog.BaseLocale)
	}
	return p.printer.Sprintf(key, args...)
}

// Error returns the text shown for err. Errors that are not user-facing get
// the generic message.
func (p Printer) Error(err error) string {
	return p.Sprintf(ErrorKey(err))
}

// ErrorKey returns the message key for err.
func ErrorKey(err error) string {
	if !apperrors.IsUserFacing(err) {
		return KeyErrorGeneric
	}
	if key, ok := errorKeys[apperrors.CodeOf(err)]; ok {
		return key
	}
	return KeyErrorGeneric
}
