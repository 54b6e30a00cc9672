package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/i18n"
)

// Subcommands of /combat.
const (
	CommandStart        = "start"
	CommandStatus       = "status"
	CommandParticipants = "participants"
	CommandAdd          = "add"
	CommandRemove       = "remove"
	CommandInitiative   = "initiative"
	CommandEnd          = "end"
)

// Command is a parsed /combat invocation.
type Command struct {
	Name        string
	GuildID     string
	UserID      string
	Locale      string
	Moderator   bool
	CharacterID string
	// Initiative is optional for add and required for initiative.
	Initiative *int
}

// CommandSpec describes one subcommand for registration.
type CommandSpec struct {
	Name      string
	Moderator bool
	// Character and Initiative say which options the command takes.
	Character          bool
	Initiative         bool
	InitiativeRequired bool
}

// Commands lists the /combat subcommands in display order.
func Commands() []CommandSpec {
	return []CommandSpec{
		{Name: CommandStart, Moderator: true},
		{Name: CommandStatus},
		{Name: CommandParticipants, Moderator: true},
		{Name: CommandAdd, Moderator: true, Character: true, Initiative: true},
		{Name: CommandRemove, Moderator: true, Character: true},
		{Name: CommandInitiative, Moderator: true, Character: true, Initiative: true, InitiativeRequired: true},
		{Name: CommandEnd, Moderator: true},
	}
}

// HandleCommand runs cmd and returns the reply.
func (r *Router) HandleCommand(ctx context.Context, cmd Command) (Response, error) {
	spec, ok := commandSpec(cmd.Name)
	if !ok {
		return Response{}, ErrUnhandled
	}
	if strings.TrimSpace(cmd.GuildID) == "" {
		return Response{}, ErrOutsideGuild
	}
	if spec.Moderator && !cmd.Moderator {
		return Response{}, ErrNotModerator
	}
	cmd.CharacterID = strings.TrimSpace(cmd.CharacterID)
	if spec.Character && cmd.CharacterID == "" {
		return Response{}, combat.ErrCharacterIDRequired
	}

	p := i18n.NewPrinter(cmd.Locale)
	switch cmd.Name {
	case CommandStart:
		if _, err := r.combat.Get(ctx, cmd.GuildID); err == nil {
			return Response{}, combat.ErrSessionAlreadyActive
		} else if !errors.Is(err, combat.ErrNoActiveSession) {
			return Response{}, err
		}
		msg, err := r.setup.Render(ctx, p, cmd.GuildID, nil, "")
		return New(msg), err
	case CommandStatus:
		msg, err := r.tracker.Status(ctx, p, cmd.GuildID)
		return New(msg), err
	case CommandParticipants:
		msg, err := r.editor.Render(ctx, p, cmd.GuildID, nil)
		return New(msg), err
	case CommandAdd:
		session, err := r.combat.AddParticipant(ctx, cmd.GuildID, cmd.CharacterID, cmd.Initiative)
		if err != nil {
			return Response{}, err
		}
		return r.participantReply(ctx, p, session, cmd.CharacterID, i18n.KeyCommandAdded)
	case CommandRemove:
		if _, err := r.combat.RemoveParticipant(ctx, cmd.GuildID, cmd.CharacterID); err != nil {
			return Response{}, err
		}
		name := r.characterName(ctx, cmd.CharacterID)
		return New(Message{Content: p.Sprintf(i18n.KeyCommandRemoved, name), Ephemeral: true}), nil
	case CommandInitiative:
		if cmd.Initiative == nil {
			return Response{}, ErrInitiativeRequired
		}
		session, err := r.combat.SetParticipantInitiative(ctx, cmd.GuildID, cmd.CharacterID, *cmd.Initiative)
		if err != nil {
			return Response{}, err
		}
		return r.participantReply(ctx, p, session, cmd.CharacterID, i18n.KeyCommandInitiative)
	case CommandEnd:
		if err := r.combat.End(ctx, cmd.GuildID); err != nil {
			return Response{}, err
		}
		return New(Message{Content: p.Sprintf(i18n.KeyTrackerEnded)}), nil
	}
	return Response{}, ErrUnhandled
}

func (r *Router) participantReply(ctx context.Context, p i18n.Printer, session combat.Session, characterID, key string) (Response, error) {
	initiative := 0
	for _, participant := range session.Participants {
		if participant.CharacterID == characterID {
			initiative = participant.Initiative
		}
	}
	name := r.characterName(ctx, characterID)
	return New(Message{Content: p.Sprintf(key, name, initiative), Ephemeral: true}), nil
}

func (r *Router) characterName(ctx context.Context, characterID string) string {
	character, err := r.combat.Directory().Lookup(ctx, characterID)
	if err != nil {
		if !errors.Is(err, directory.ErrCharacterNotFound) {
			r.tracker.logf("warn: lookup character %q: %v", characterID, err)
		}
		return characterID
	}
	return character.Name
}

func commandSpec(name string) (CommandSpec, bool) {
	for _, spec := range Commands() {
		if spec.Name == name {
			return spec, true
		}
	}
	return CommandSpec{}, false
}

// CharacterChoices returns up to limit characters in guildID whose name or id
// contains query, for option autocompletion.
func (r *Router) CharacterChoices(ctx context.Context, guildID, query string, limit int) ([]directory.Character, error) {
	characters, err := r.combat.Directory().ListCharacters(ctx, guildID)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	var out []directory.Character
	for _, c := range characters {
		if len(out) >= limit {
			break
		}
		if query == "" || strings.Contains(strings.ToLower(c.Name), query) || strings.Contains(c.ID, query) {
			out = append(out, c)
		}
	}
	return out, nil
}
