package ui

import (
	"context"
	"fmt"
	"slices"

	"github.com/louisbranch/turnkeeper/internal/services/combat/app"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/i18n"
)

const (
	minParticipants = 2
	// maxSelectOptions is the chat platform's select menu limit.
	maxSelectOptions = 25
)

// Setup picks participants and the initiative attribute before combat.
type Setup struct {
	combat  Combat
	tracker *Tracker
}

// Render draws the setup message. A nil characterIDs selects every character
// with a player, padded with unassigned characters up to two. A blank
// attributeID selects combat.DefaultInitiativeAttributeID.
func (s *Setup) Render(ctx context.Context, p i18n.Printer, guildID string, characterIDs []string, attributeID string) (Message, error) {
	dir := s.combat.Directory()
	characters, err := dir.ListCharacters(ctx, guildID)
	if err != nil {
		return Message{}, fmt.Errorf("list characters: %w", err)
	}
	attributes, err := dir.ListAttributes(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("list attributes: %w", err)
	}
	if characterIDs == nil {
		characterIDs, err = dir.ListAssigned(ctx, guildID)
		if err != nil {
			return Message{}, fmt.Errorf("list assigned characters: %w", err)
		}
	}
	if attributeID == "" {
		attributeID = combat.DefaultInitiativeAttributeID
	}

	characters = selectable(characters, characterIDs)
	selected := padSelection(characterIDs, characters, minParticipants)

	msg := Message{Content: p.Sprintf(i18n.KeySetupContent)}
	if len(characters) > 0 {
		msg.Rows = append(msg.Rows, Row{Select: &Select{
			CustomID:    SetupCharactersID,
			Placeholder: p.Sprintf(i18n.KeySetupCharactersPlaceholder),
			MinValues:   min(minParticipants, len(characters)),
			MaxValues:   len(characters),
			Options:     characterOptions(characters, selected),
		}})
	}
	if len(attributes) > 0 {
		options := make([]SelectOption, 0, len(attributes))
		for _, attribute := range attributes[:min(len(attributes), maxSelectOptions)] {
			options = append(options, SelectOption{
				Value:   attribute.ID,
				Label:   attribute.Name,
				Emoji:   attribute.Emoji,
				Default: attribute.ID == attributeID,
			})
		}
		msg.Rows = append(msg.Rows, Row{Select: &Select{
			CustomID:    SetupAttributeID,
			Placeholder: p.Sprintf(i18n.KeySetupAttributePlaceholder),
			MinValues:   1,
			MaxValues:   1,
			Options:     options,
		}})
	}
	msg.Rows = append(msg.Rows, Row{Buttons: []Button{
		{CustomID: SetupStartID, Label: p.Sprintf(i18n.KeySetupStart), Emoji: "⚔️", Style: ButtonPrimary},
	}})
	return msg, nil
}

// Handle answers setup selections and the start button.
func (s *Setup) Handle(ctx context.Context, ev Event) (Response, error) {
	p := i18n.NewPrinter(ev.Locale)
	switch ev.CustomID {
	case SetupCharactersID:
		msg, err := s.Render(ctx, p, ev.GuildID, nonNil(ev.Values), first(SelectedValues(ev.Source, SetupAttributeID)))
		if err != nil {
			return Response{}, err
		}
		return Update(msg), nil
	case SetupAttributeID:
		msg, err := s.Render(ctx, p, ev.GuildID, SelectedValues(ev.Source, SetupCharactersID), first(ev.Values))
		if err != nil {
			return Response{}, err
		}
		return Update(msg), nil
	case SetupStartID:
		attributeID := first(SelectedValues(ev.Source, SetupAttributeID))
		if attributeID == "" {
			attributeID = combat.DefaultInitiativeAttributeID
		}
		session, err := s.combat.Start(ctx, ev.GuildID, specsFor(SelectedValues(ev.Source, SetupCharactersID)), attributeID)
		if err != nil {
			return Response{}, err
		}
		msg, err := s.tracker.Render(ctx, p, session)
		if err != nil {
			return Response{}, err
		}
		return Update(msg), nil
	default:
		return Response{}, ErrUnhandled
	}
}

// selectable trims characters to the select menu limit. Characters in
// selected keep their option so a redraw never drops them; the rest fill the
// remaining slots in directory order.
func selectable(characters []directory.Character, selected []string) []directory.Character {
	if len(characters) <= maxSelectOptions {
		return characters
	}
	keep := make(map[string]bool, maxSelectOptions)
	for _, c := range characters {
		if len(keep) < maxSelectOptions && slices.Contains(selected, c.ID) {
			keep[c.ID] = true
		}
	}
	for _, c := range characters {
		if len(keep) >= maxSelectOptions {
			break
		}
		keep[c.ID] = true
	}
	out := make([]directory.Character, 0, maxSelectOptions)
	for _, c := range characters {
		if keep[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// padSelection keeps the known ids of selected in directory order and adds
// unselected characters until there are at least n.
func padSelection(selected []string, characters []directory.Character, n int) map[string]bool {
	out := make(map[string]bool, len(selected))
	for _, c := range characters {
		if slices.Contains(selected, c.ID) {
			out[c.ID] = true
		}
	}
	for _, c := range characters {
		if len(out) >= n {
			break
		}
		out[c.ID] = true
	}
	return out
}

func characterOptions(characters []directory.Character, selected map[string]bool) []SelectOption {
	options := make([]SelectOption, 0, len(characters))
	for _, c := range characters {
		options = append(options, SelectOption{
			Value:   c.ID,
			Label:   c.Name,
			Emoji:   c.RaceEmoji,
			Default: selected[c.ID],
		})
	}
	return options
}

func specsFor(ids []string) []app.ParticipantSpec {
	specs := make([]app.ParticipantSpec, 0, len(ids))
	for _, id := range ids {
		specs = append(specs, app.ParticipantSpec{CharacterID: id})
	}
	return specs
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// An empty selection is still an explicit choice.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
