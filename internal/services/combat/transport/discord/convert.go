package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/louisbranch/turnkeeper/internal/services/combat/ui"
)

var buttonStyles = map[ui.ButtonStyle]discordgo.ButtonStyle{
	ui.ButtonPrimary:   discordgo.PrimaryButton,
	ui.ButtonSecondary: discordgo.SecondaryButton,
	ui.ButtonDanger:    discordgo.DangerButton,
}

// responseData converts msg into an interaction payload. Embeds and
// components are always sent so an update clears what the old message had.
func responseData(msg ui.Message) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    msg.Content,
		Embeds:     []*discordgo.MessageEmbed{},
		Components: []discordgo.MessageComponent{},
	}
	if msg.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	for _, embed := range msg.Embeds {
		out := &discordgo.MessageEmbed{Title: embed.Title, Description: embed.Description}
		for _, field := range embed.Fields {
			out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: field.Name, Value: field.Value})
		}
		data.Embeds = append(data.Embeds, out)
	}
	for _, row := range msg.Rows {
		data.Components = append(data.Components, actionsRow(row))
	}
	return data
}

func actionsRow(row ui.Row) discordgo.ActionsRow {
	var components []discordgo.MessageComponent
	if row.Select != nil {
		minValues := row.Select.MinValues
		menu := discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    row.Select.CustomID,
			Placeholder: row.Select.Placeholder,
			MinValues:   &minValues,
			MaxValues:   row.Select.MaxValues,
		}
		for _, opt := range row.Select.Options {
			menu.Options = append(menu.Options, discordgo.SelectMenuOption{
				Label:   opt.Label,
				Value:   opt.Value,
				Emoji:   emoji(opt.Emoji),
				Default: opt.Default,
			})
		}
		components = append(components, menu)
	}
	for _, b := range row.Buttons {
		style, ok := buttonStyles[b.Style]
		if !ok {
			style = discordgo.SecondaryButton
		}
		components = append(components, discordgo.Button{
			Label:    b.Label,
			Style:    style,
			CustomID: b.CustomID,
			Emoji:    emoji(b.Emoji),
		})
	}
	return discordgo.ActionsRow{Components: components}
}

func emoji(name string) *discordgo.ComponentEmoji {
	if name == "" {
		return nil
	}
	return &discordgo.ComponentEmoji{Name: name}
}

// sourceMessage recovers the parts of a received message the flows read back.
// Components decoded from the gateway are pointers; ones built locally are
// values.
func sourceMessage(m *discordgo.Message) ui.Message {
	if m == nil {
		return ui.Message{}
	}
	out := ui.Message{Content: m.Content}
	for _, component := range m.Components {
		var row discordgo.ActionsRow
		switch c := component.(type) {
		case *discordgo.ActionsRow:
			row = *c
		case discordgo.ActionsRow:
			row = c
		default:
			continue
		}
		out.Rows = append(out.Rows, sourceRow(row))
	}
	return out
}

func sourceRow(row discordgo.ActionsRow) ui.Row {
	var out ui.Row
	for _, component := range row.Components {
		switch c := component.(type) {
		case *discordgo.SelectMenu:
			out.Select = sourceSelect(*c)
		case discordgo.SelectMenu:
			out.Select = sourceSelect(c)
		case *discordgo.Button:
			out.Buttons = append(out.Buttons, ui.Button{CustomID: c.CustomID, Label: c.Label})
		case discordgo.Button:
			out.Buttons = append(out.Buttons, ui.Button{CustomID: c.CustomID, Label: c.Label})
		}
	}
	return out
}

func sourceSelect(menu discordgo.SelectMenu) *ui.Select {
	out := &ui.Select{
		CustomID:    menu.CustomID,
		Placeholder: menu.Placeholder,
		MaxValues:   menu.MaxValues,
	}
	if menu.MinValues != nil {
		out.MinValues = *menu.MinValues
	}
	for _, opt := range menu.Options {
		out.Options = append(out.Options, ui.SelectOption{Value: opt.Value, Label: opt.Label, Default: opt.Default})
	}
	return out
}
