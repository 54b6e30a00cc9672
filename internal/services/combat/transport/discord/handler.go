package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/louisbranch/turnkeeper/internal/platform/timeouts"
	"github.com/louisbranch/turnkeeper/internal/services/combat/ui"
)

const maxChoices = 25

// Session is the slice of *discordgo.Session the handler answers through.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
}

// Handler answers combat interactions.
type Handler struct {
	router  *ui.Router
	logf    func(format string, args ...any)
	timeout time.Duration
}

// NewHandler returns a Handler over router. A nil logf uses log.Printf.
func NewHandler(router *ui.Router, logf func(format string, args ...any)) *Handler {
	if logf == nil {
		logf = log.Printf
	}
	return &Handler{router: router, logf: logf, timeout: timeouts.Interaction}
}

// OnInteraction is registered with discordgo's AddHandler. discordgo runs
// each event on its own goroutine.
func (h *Handler) OnInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.Handle(ctx, s, i.Interaction); err != nil {
		h.logf("discord interaction %s: %v", i.ID, err)
	}
}

// Handle answers one interaction. Interactions that are not for combat are
// ignored. The returned error is a failure to reply; flow errors are turned
// into replies.
func (h *Handler) Handle(ctx context.Context, s Session, i *discordgo.Interaction) error {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		cmd, _, ok := parseCommand(i.ApplicationCommandData())
		if !ok {
			return nil
		}
		cmd.GuildID = i.GuildID
		cmd.UserID = userID(i)
		cmd.Locale = string(i.Locale)
		cmd.Moderator = isModerator(i)
		resp, err := h.router.HandleCommand(ctx, cmd)
		if err != nil {
			return h.respondError(s, i, cmd.Name, err)
		}
		return h.respond(s, i, resp)
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		if !h.router.Handles(data.CustomID) {
			return nil
		}
		ev := ui.Event{
			Kind:      ui.Click,
			CustomID:  data.CustomID,
			Values:    data.Values,
			Source:    sourceMessage(i.Message),
			GuildID:   i.GuildID,
			UserID:    userID(i),
			Locale:    string(i.Locale),
			Moderator: isModerator(i),
		}
		if data.ComponentType == discordgo.SelectMenuComponent {
			ev.Kind = ui.SelectionChanged
		}
		resp, err := h.router.HandleEvent(ctx, ev)
		if err != nil {
			return h.respondError(s, i, data.CustomID, err)
		}
		return h.respond(s, i, resp)
	case discordgo.InteractionApplicationCommandAutocomplete:
		return h.autocomplete(ctx, s, i)
	default:
		return nil
	}
}

func (h *Handler) respond(s Session, i *discordgo.Interaction, resp ui.Response) error {
	switch resp.Kind {
	case ui.RenderNew:
		return s.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: responseData(resp.Message),
		})
	case ui.UpdateInPlace:
		return s.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: responseData(resp.Message),
		})
	case ui.Delete:
		if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}); err != nil {
			return err
		}
		return s.InteractionResponseDelete(i)
	default:
		return fmt.Errorf("unknown response kind %v", resp.Kind)
	}
}

func (h *Handler) respondError(s Session, i *discordgo.Interaction, what string, err error) error {
	resp, userFacing := ui.ErrorResponse(string(i.Locale), err)
	if !userFacing {
		h.logf("combat %s in guild %s failed: %v", what, i.GuildID, err)
	}
	return h.respond(s, i, resp)
}

func (h *Handler) autocomplete(ctx context.Context, s Session, i *discordgo.Interaction) error {
	_, focused, ok := parseCommand(i.ApplicationCommandData())
	if !ok || focused == nil || focused.Name != optionCharacter {
		return nil
	}
	query, _ := focused.Value.(string)
	characters, err := h.router.CharacterChoices(ctx, i.GuildID, query, maxChoices)
	if err != nil {
		h.logf("combat autocomplete in guild %s failed: %v", i.GuildID, err)
		characters = nil
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(characters))
	for _, c := range characters {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.ID})
	}
	return s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}

func userID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Moderators are members who can manage the guild.
func isModerator(i *discordgo.Interaction) bool {
	if i.Member == nil {
		return false
	}
	const mask = discordgo.PermissionManageGuild | discordgo.PermissionAdministrator
	return i.Member.Permissions&mask != 0
}
