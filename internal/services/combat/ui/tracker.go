package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/i18n"
)

// Tracker renders a running combat and handles its buttons.
type Tracker struct {
	combat Combat
	logf   func(format string, args ...any)
}

// Status renders the guild's combat, or the inactive notice.
func (t *Tracker) Status(ctx context.Context, p i18n.Printer, guildID string) (Message, error) {
	session, err := t.combat.Get(ctx, guildID)
	if errors.Is(err, combat.ErrNoActiveSession) {
		return Message{Content: p.Sprintf(i18n.KeyTrackerInactive)}, nil
	}
	if err != nil {
		return Message{}, err
	}
	return t.Render(ctx, p, session)
}

// Render draws session.
func (t *Tracker) Render(ctx context.Context, p i18n.Printer, session combat.Session) (Message, error) {
	if _, ok := session.Current(); !ok {
		return Message{Content: p.Sprintf(i18n.KeyTrackerEmptyRoster)}, nil
	}

	dir := t.combat.Directory()
	attributeName, err := t.attributeName(ctx, dir, session.InitiativeAttributeID)
	if err != nil {
		return Message{}, err
	}

	var header string
	lines := make([]string, 0, len(session.Participants))
	for i, participant := range session.Participants {
		character, err := t.lookup(ctx, dir, participant.CharacterID)
		if err != nil {
			return Message{}, err
		}
		name := character.Name
		if i == session.TurnIndex {
			name = bold(name)
			header = p.Sprintf(i18n.KeyTrackerHeader, character.Name, mention(character.PlayerID))
		}

		initiative := strconv.Itoa(participant.Initiative)
		if die, ok := character.AttributeDie(session.InitiativeAttributeID); ok {
			initiative = fmt.Sprintf("d%d ⇒ %d", die, participant.Initiative)
		}
		title := strings.TrimSpace(fmt.Sprintf("%s %s (%s)", character.RaceEmoji, name, initiative))
		stats := p.Sprintf(i18n.KeyTrackerStats, character.Health, maxHealth(character), character.Fatigue, aspectName(character))
		lines = append(lines, title+"\n"+stats)
	}

	return Message{
		Content: strings.TrimSpace(header),
		Embeds: []Embed{{
			Title:       p.Sprintf(i18n.KeyTrackerTitle),
			Description: strings.Join(lines, "\n\n"),
			Fields: []EmbedField{{
				Name:  " ",
				Value: p.Sprintf(i18n.KeyTrackerFooter, session.Round, attributeName),
			}},
		}},
		Rows: []Row{{Buttons: []Button{
			{CustomID: TrackerRewindID, Label: p.Sprintf(i18n.KeyTrackerRewind), Emoji: "⏪", Style: ButtonSecondary},
			{CustomID: TrackerAdvanceID, Label: p.Sprintf(i18n.KeyTrackerAdvance), Emoji: "⏩", Style: ButtonPrimary},
			{CustomID: TrackerEndID, Label: p.Sprintf(i18n.KeyTrackerEnd), Emoji: "⏹️", Style: ButtonDanger},
		}}},
	}, nil
}

// Ended is the message left behind after combat ends.
func (t *Tracker) Ended(p i18n.Printer) Message {
	return Message{
		Content: p.Sprintf(i18n.KeyTrackerEnded),
		Rows: []Row{{Buttons: []Button{
			{CustomID: TrackerDismissID, Label: p.Sprintf(i18n.KeyTrackerDismiss), Style: ButtonSecondary},
		}}},
	}
}

// Handle answers tracker button clicks.
func (t *Tracker) Handle(ctx context.Context, ev Event) (Response, error) {
	p := i18n.NewPrinter(ev.Locale)
	switch ev.CustomID {
	case TrackerAdvanceID:
		return t.step(ctx, p, ev.GuildID, t.combat.Advance)
	case TrackerRewindID:
		return t.step(ctx, p, ev.GuildID, t.combat.Rewind)
	case TrackerEndID:
		if err := t.combat.End(ctx, ev.GuildID); err != nil {
			return Response{}, err
		}
		return Update(t.Ended(p)), nil
	case TrackerDismissID:
		return Response{Kind: Delete}, nil
	default:
		return Response{}, ErrUnhandled
	}
}

func (t *Tracker) step(ctx context.Context, p i18n.Printer, guildID string, move func(context.Context, string) (combat.Session, error)) (Response, error) {
	session, err := move(ctx, guildID)
	if errors.Is(err, combat.ErrNoActiveSession) {
		return Update(expired(p)), nil
	}
	if err != nil {
		return Response{}, err
	}
	msg, err := t.Render(ctx, p, session)
	if err != nil {
		return Response{}, err
	}
	return Update(msg), nil
}

func (t *Tracker) attributeName(ctx context.Context, dir directory.Directory, attributeID string) (string, error) {
	attributes, err := dir.ListAttributes(ctx)
	if err != nil {
		return "", fmt.Errorf("list attributes: %w", err)
	}
	for _, attribute := range attributes {
		if attribute.ID == attributeID {
			return attribute.Name, nil
		}
	}
	return attributeID, nil
}

// A character deleted from the directory mid-combat still renders by id.
func (t *Tracker) lookup(ctx context.Context, dir directory.Directory, characterID string) (directory.Character, error) {
	character, err := dir.Lookup(ctx, characterID)
	if errors.Is(err, directory.ErrCharacterNotFound) {
		t.logf("warn: combat participant %q is missing from the directory", characterID)
		return directory.Character{ID: characterID, Name: characterID}, nil
	}
	if err != nil {
		return directory.Character{}, fmt.Errorf("lookup character %q: %w", characterID, err)
	}
	return character, nil
}

func expired(p i18n.Printer) Message {
	return Message{Content: p.Sprintf(i18n.KeyErrorExpired)}
}

func maxHealth(c directory.Character) int {
	if c.MaxHealth > 0 {
		return c.MaxHealth
	}
	return directory.MaxHealth(c.Dice)
}

func aspectName(c directory.Character) string {
	if strings.TrimSpace(c.Aspect) == "" {
		return "?"
	}
	return c.Aspect
}

func bold(s string) string {
	return "**" + s + "**"
}

func mention(userID string) string {
	if strings.TrimSpace(userID) == "" {
		return ""
	}
	return "<@" + userID + ">"
}
