package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
	"github.com/louisbranch/turnkeeper/internal/services/combat/i18n"
)

// Editor changes the roster of a running combat.
type Editor struct {
	combat  Combat
	tracker *Tracker
}

// Render draws the participant picker. A nil selected preloads the current
// roster.
func (e *Editor) Render(ctx context.Context, p i18n.Printer, guildID string, selected []string) (Message, error) {
	if selected == nil {
		session, err := e.combat.Get(ctx, guildID)
		if err != nil {
			return Message{}, err
		}
		selected = roster.IDs(session.Participants)
	}
	characters, err := e.combat.Directory().ListCharacters(ctx, guildID)
	if err != nil {
		return Message{}, fmt.Errorf("list characters: %w", err)
	}
	characters = selectable(characters, selected)
	chosen := padSelection(selected, characters, 0)

	msg := Message{Content: p.Sprintf(i18n.KeyEditorContent), Ephemeral: true}
	if len(characters) > 0 {
		msg.Rows = append(msg.Rows, Row{Select: &Select{
			CustomID:  EditorSelectID,
			MinValues: 1,
			MaxValues: len(characters),
			Options:   characterOptions(characters, chosen),
		}})
	}
	msg.Rows = append(msg.Rows, Row{Buttons: []Button{
		{CustomID: EditorDoneID, Label: p.Sprintf(i18n.KeyEditorDone), Style: ButtonPrimary},
	}})
	return msg, nil
}

// Handle answers picker selections and the done button.
func (e *Editor) Handle(ctx context.Context, ev Event) (Response, error) {
	p := i18n.NewPrinter(ev.Locale)
	switch ev.CustomID {
	case EditorSelectID:
		msg, err := e.Render(ctx, p, ev.GuildID, nonNil(ev.Values))
		if err != nil {
			return Response{}, err
		}
		return Update(msg), nil
	case EditorDoneID:
		session, err := e.combat.SetParticipants(ctx, ev.GuildID, specsFor(SelectedValues(ev.Source, EditorSelectID)))
		if errors.Is(err, combat.ErrNoActiveSession) {
			return Update(expired(p)), nil
		}
		if err != nil {
			return Response{}, err
		}
		msg, err := e.tracker.Render(ctx, p, session)
		if err != nil {
			return Response{}, err
		}
		return Update(msg), nil
	default:
		return Response{}, ErrUnhandled
	}
}
