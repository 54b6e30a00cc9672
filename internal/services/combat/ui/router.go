package ui

import (
	"context"
	"log"
	"strings"

	apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"
	"github.com/louisbranch/turnkeeper/internal/services/combat/app"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/i18n"
)

var (
	// ErrOutsideGuild is returned for commands and events without a guild.
	ErrOutsideGuild = apperrors.New(apperrors.CodeCombatOutsideGuild, "combat requires a guild")
	// ErrNotModerator is returned when a moderator-only action comes from
	// someone else.
	ErrNotModerator = apperrors.New(apperrors.CodeCombatNotModerator, "moderator permission required")
	// ErrInitiativeRequired is returned when /combat initiative has no value.
	ErrInitiativeRequired = apperrors.New(apperrors.CodeCombatInitiativeRequired, "initiative is required")
	// ErrUnhandled is returned for custom ids and commands nothing handles.
	ErrUnhandled = apperrors.New(apperrors.CodeInteractionUnhandled, "unhandled interaction")
)

// Combat is the slice of the combat service the flows drive.
// *app.Service implements it.
type Combat interface {
	Directory() directory.Directory
	Get(ctx context.Context, guildID string) (combat.Session, error)
	Start(ctx context.Context, guildID string, specs []app.ParticipantSpec, attributeID string) (combat.Session, error)
	Advance(ctx context.Context, guildID string) (combat.Session, error)
	Rewind(ctx context.Context, guildID string) (combat.Session, error)
	End(ctx context.Context, guildID string) error
	SetParticipants(ctx context.Context, guildID string, specs []app.ParticipantSpec) (combat.Session, error)
	AddParticipant(ctx context.Context, guildID, characterID string, initiative *int) (combat.Session, error)
	RemoveParticipant(ctx context.Context, guildID, characterID string) (combat.Session, error)
	SetParticipantInitiative(ctx context.Context, guildID, characterID string, initiative int) (combat.Session, error)
}

type flow interface {
	Handle(ctx context.Context, ev Event) (Response, error)
}

// Router dispatches commands and component events to the combat flows.
type Router struct {
	combat  Combat
	tracker *Tracker
	setup   *Setup
	editor  *Editor
	flows   map[string]flow
	// moderated lists the custom id prefixes only moderators may use.
	moderated map[string]bool
}

// NewRouter wires the flows around c. A nil logf uses log.Printf.
func NewRouter(c Combat, logf func(format string, args ...any)) *Router {
	if logf == nil {
		logf = log.Printf
	}
	tracker := &Tracker{combat: c, logf: logf}
	setup := &Setup{combat: c, tracker: tracker}
	editor := &Editor{combat: c, tracker: tracker}
	return &Router{
		combat:  c,
		tracker: tracker,
		setup:   setup,
		editor:  editor,
		flows: map[string]flow{
			prefix(SetupStartID): setup,
			prefix(TrackerEndID): tracker,
			prefix(EditorDoneID): editor,
		},
		moderated: map[string]bool{
			prefix(SetupStartID): true,
			prefix(EditorDoneID): true,
		},
	}
}

// Tracker returns the tracker flow.
func (r *Router) Tracker() *Tracker { return r.tracker }

// Setup returns the setup flow.
func (r *Router) Setup() *Setup { return r.setup }

// Editor returns the participant editor flow.
func (r *Router) Editor() *Editor { return r.editor }

// Handles reports whether customID belongs to a combat flow.
func (r *Router) Handles(customID string) bool {
	_, ok := r.flows[prefix(customID)]
	return ok
}

// HandleEvent routes ev by its custom id prefix.
func (r *Router) HandleEvent(ctx context.Context, ev Event) (Response, error) {
	f, ok := r.flows[prefix(ev.CustomID)]
	if !ok {
		return Response{}, ErrUnhandled
	}
	if strings.TrimSpace(ev.GuildID) == "" {
		return Response{}, ErrOutsideGuild
	}
	if r.moderated[prefix(ev.CustomID)] && !ev.Moderator {
		return Response{}, ErrNotModerator
	}
	return f.Handle(ctx, ev)
}

// ErrorResponse turns a failed command or event into the reply shown to the
// user. It reports false when err is not user-facing and should be logged.
func ErrorResponse(locale string, err error) (Response, bool) {
	p := i18n.NewPrinter(locale)
	msg := Message{Content: p.Error(err), Ephemeral: true}
	return New(msg), apperrors.IsUserFacing(err)
}
