package ui

import "strings"

// Custom ids. The part before the colon routes the event to a flow.
const (
	SetupCharactersID = "combatSetup:characters"
	SetupAttributeID  = "combatSetup:initiativeAttribute"
	SetupStartID      = "combatSetup:start"

	TrackerAdvanceID = "combatTracker:advance"
	TrackerRewindID  = "combatTracker:rewind"
	TrackerEndID     = "combatTracker:endCombat"
	TrackerDismissID = "combatTracker:dismiss"

	EditorSelectID = "participantEditor:select"
	EditorDoneID   = "participantEditor:done"
)

// ButtonStyle is the visual weight of a button.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonDanger
)

// Button is a clickable component.
type Button struct {
	CustomID string      `json:"custom_id"`
	Label    string      `json:"label"`
	Emoji    string      `json:"emoji,omitempty"`
	Style    ButtonStyle `json:"style"`
}

// SelectOption is one choice in a Select.
type SelectOption struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Emoji   string `json:"emoji,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// Select is a string select menu.
type Select struct {
	CustomID    string         `json:"custom_id"`
	Placeholder string         `json:"placeholder,omitempty"`
	MinValues   int            `json:"min_values"`
	MaxValues   int            `json:"max_values"`
	Options     []SelectOption `json:"options"`
}

// Row is one line of components: either a select or up to five buttons.
type Row struct {
	Select  *Select  `json:"select,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`
}

// EmbedField is a titled block inside an Embed.
type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Embed is a rich content block.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// Message is a renderable chat message.
type Message struct {
	Content   string  `json:"content"`
	Embeds    []Embed `json:"embeds,omitempty"`
	Rows      []Row   `json:"rows,omitempty"`
	Ephemeral bool    `json:"ephemeral,omitempty"`
}

// ResponseKind says what the transport does with a Response.
type ResponseKind int

const (
	// RenderNew posts Message as a new message.
	RenderNew ResponseKind = iota + 1
	// UpdateInPlace replaces the message the event came from.
	UpdateInPlace
	// Delete removes the message the event came from.
	Delete
)

func (k ResponseKind) String() string {
	switch k {
	case RenderNew:
		return "render_new"
	case UpdateInPlace:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Response is the answer to a command or component event.
type Response struct {
	Kind    ResponseKind `json:"kind"`
	Message Message      `json:"message"`
}

// New answers with a new message.
func New(msg Message) Response {
	return Response{Kind: RenderNew, Message: msg}
}

// Update answers by replacing the source message.
func Update(msg Message) Response {
	return Response{Kind: UpdateInPlace, Message: msg}
}

// EventKind distinguishes component events.
type EventKind int

const (
	Click EventKind = iota + 1
	SelectionChanged
)

// Event is a component interaction.
type Event struct {
	Kind     EventKind
	CustomID string
	// Values holds the new selection for SelectionChanged.
	Values []string
	// Source is the message holding the component.
	Source    Message
	GuildID   string
	UserID    string
	Locale    string
	Moderator bool
}

// SelectedValues returns the default option values of the select customID in
// msg, in option order.
func SelectedValues(msg Message, customID string) []string {
	for _, row := range msg.Rows {
		if row.Select == nil || row.Select.CustomID != customID {
			continue
		}
		var out []string
		for _, opt := range row.Select.Options {
			if opt.Default {
				out = append(out, opt.Value)
			}
		}
		return out
	}
	return nil
}

func prefix(customID string) string {
	head, _, _ := strings.Cut(customID, ":")
	return head
}
