package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/louisbranch/turnkeeper/internal/services/combat/i18n"
	"github.com/louisbranch/turnkeeper/internal/services/combat/ui"
)

// CommandName is the top-level slash command.
const CommandName = "combat"

const (
	optionCharacter  = "character"
	optionInitiative = "initiative"
)

// CommandRegistrar is the slice of *discordgo.Session that registers
// application commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// ApplicationCommands returns the /combat command with one subcommand per
// ui.Commands entry. Permission checks happen per subcommand at run time
// since Discord only gates whole commands.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	dmPermission := false
	rootLocalizations := localizations(i18n.KeyDescriptionRoot)
	command := &discordgo.ApplicationCommand{
		Type:                     discordgo.ChatApplicationCommand,
		Name:                     CommandName,
		Description:              describe(i18n.KeyDescriptionRoot),
		DescriptionLocalizations: &rootLocalizations,
		DMPermission:             &dmPermission,
	}
	for _, spec := range ui.Commands() {
		key := i18n.DescriptionKey(spec.Name)
		sub := &discordgo.ApplicationCommandOption{
			Type:                     discordgo.ApplicationCommandOptionSubCommand,
			Name:                     spec.Name,
			Description:              describe(key),
			DescriptionLocalizations: localizations(key),
		}
		if spec.Character {
			sub.Options = append(sub.Options, &discordgo.ApplicationCommandOption{
				Type:                     discordgo.ApplicationCommandOptionString,
				Name:                     optionCharacter,
				Description:              describe(i18n.KeyDescriptionOptionCharacter),
				DescriptionLocalizations: localizations(i18n.KeyDescriptionOptionCharacter),
				Required:                 true,
				Autocomplete:             true,
			})
		}
		if spec.Initiative {
			sub.Options = append(sub.Options, &discordgo.ApplicationCommandOption{
				Type:                     discordgo.ApplicationCommandOptionInteger,
				Name:                     optionInitiative,
				Description:              describe(i18n.KeyDescriptionOptionInitiative),
				DescriptionLocalizations: localizations(i18n.KeyDescriptionOptionInitiative),
				Required:                 spec.InitiativeRequired,
			})
		}
		command.Options = append(command.Options, sub)
	}
	return []*discordgo.ApplicationCommand{command}
}

// RegisterCommands overwrites the application's commands. A blank guildID
// registers them globally.
func RegisterCommands(r CommandRegistrar, appID, guildID string) error {
	if _, err := r.ApplicationCommandBulkOverwrite(appID, guildID, ApplicationCommands()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

// parseCommand reads the /combat subcommand from data.
func parseCommand(data discordgo.ApplicationCommandInteractionData) (ui.Command, *discordgo.ApplicationCommandInteractionDataOption, bool) {
	if data.Name != CommandName || len(data.Options) == 0 {
		return ui.Command{}, nil, false
	}
	sub := data.Options[0]
	if sub.Type != discordgo.ApplicationCommandOptionSubCommand {
		return ui.Command{}, nil, false
	}
	cmd := ui.Command{Name: sub.Name}
	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range sub.Options {
		if opt.Focused {
			focused = opt
		}
		switch {
		case opt.Name == optionCharacter && opt.Type == discordgo.ApplicationCommandOptionString:
			if v, ok := opt.Value.(string); ok {
				cmd.CharacterID = v
			}
		case opt.Name == optionInitiative && opt.Type == discordgo.ApplicationCommandOptionInteger:
			if v, ok := opt.Value.(float64); ok {
				n := int(v)
				cmd.Initiative = &n
			}
		}
	}
	return cmd, focused, true
}

// describe returns the base locale text Discord shows when a client locale
// has no translation.
func describe(key string) string {
	return i18n.NewPrinter("").Sprintf(key)
}

func localizations(key string) map[discordgo.Locale]string {
	out := map[discordgo.Locale]string{}
	for locale, text := range i18n.Translations(key) {
		out[discordgo.Locale(locale)] = text
	}
	return out
}
