package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/turnkeeper/internal/platform/timeouts"
	"github.com/louisbranch/turnkeeper/internal/services/combat/app"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Combat is the slice of the combat service the tools call.
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

// ParticipantInput names a character and optionally fixes its initiative.
type ParticipantInput struct {
	CharacterID string `json:"character_id" jsonschema:"character identifier"`
	Initiative  *int   `json:"initiative,omitempty" jsonschema:"initiative to use instead of rolling"`
}

// ParticipantResult is one roster entry.
type ParticipantResult struct {
	CharacterID string `json:"character_id" jsonschema:"character identifier"`
	Name        string `json:"name" jsonschema:"character display name"`
	Initiative  int    `json:"initiative" jsonschema:"initiative value"`
	Current     bool   `json:"current,omitempty" jsonschema:"true for the participant whose turn it is"`
}

// SessionResult describes a guild's combat.
type SessionResult struct {
	GuildID               string              `json:"guild_id" jsonschema:"guild identifier"`
	Active                bool                `json:"active" jsonschema:"whether combat is running"`
	Round                 int                 `json:"round,omitempty" jsonschema:"current round, starting at 1"`
	TurnIndex             int                 `json:"turn_index" jsonschema:"index of the current participant"`
	InitiativeAttributeID string              `json:"initiative_attribute_id,omitempty" jsonschema:"attribute rolled for initiative"`
	Participants          []ParticipantResult `json:"participants,omitempty" jsonschema:"participants in turn order"`
}

// GuildInput targets one guild's combat.
type GuildInput struct {
	GuildID string `json:"guild_id" jsonschema:"guild identifier"`
}

// StartInput starts combat.
type StartInput struct {
	GuildID               string             `json:"guild_id" jsonschema:"guild identifier"`
	Participants          []ParticipantInput `json:"participants" jsonschema:"characters joining combat"`
	InitiativeAttributeID string             `json:"initiative_attribute_id,omitempty" jsonschema:"attribute to roll for initiative (default mobility)"`
}

// SetParticipantsInput replaces the roster.
type SetParticipantsInput struct {
	GuildID      string             `json:"guild_id" jsonschema:"guild identifier"`
	Participants []ParticipantInput `json:"participants" jsonschema:"the full new roster; existing characters keep their initiative"`
}

// AddParticipantInput adds one character.
type AddParticipantInput struct {
	GuildID     string `json:"guild_id" jsonschema:"guild identifier"`
	CharacterID string `json:"character_id" jsonschema:"character identifier"`
	Initiative  *int   `json:"initiative,omitempty" jsonschema:"initiative to use instead of rolling"`
}

// RemoveParticipantInput removes one character.
type RemoveParticipantInput struct {
	GuildID     string `json:"guild_id" jsonschema:"guild identifier"`
	CharacterID string `json:"character_id" jsonschema:"character identifier"`
}

// SetInitiativeInput changes one participant's initiative.
type SetInitiativeInput struct {
	GuildID     string `json:"guild_id" jsonschema:"guild identifier"`
	CharacterID string `json:"character_id" jsonschema:"character identifier"`
	Initiative  int    `json:"initiative" jsonschema:"new initiative value"`
}

// EndResult reports an ended combat.
type EndResult struct {
	GuildID string `json:"guild_id" jsonschema:"guild identifier"`
	Ended   bool   `json:"ended" jsonschema:"true once no combat is running"`
}

// StartTool defines combat_start.
func StartTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_start",
		Description: "Starts combat in a guild. Participants without an initiative roll their initiative attribute die. Fails if combat is already running.",
	}
}

// StatusTool defines combat_status.
func StatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_status",
		Description: "Returns the guild's combat: round, turn order and whose turn it is. active is false when no combat is running.",
	}
}

// AdvanceTool defines combat_advance.
func AdvanceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_advance",
		Description: "Moves to the next participant, starting a new round after the last one.",
	}
}

// RewindTool defines combat_rewind.
func RewindTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_rewind",
		Description: "Moves back to the previous participant. Stays put at the first turn of round 1.",
	}
}

// EndTool defines combat_end.
func EndTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_end",
		Description: "Ends the guild's combat. Ending when nothing is running succeeds.",
	}
}

// AddParticipantTool defines combat_add_participant.
func AddParticipantTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_add_participant",
		Description: "Adds a character to running combat, rolling initiative unless one is given.",
	}
}

// RemoveParticipantTool defines combat_remove_participant.
func RemoveParticipantTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_remove_participant",
		Description: "Removes a character from running combat. The turn passes on if it was theirs.",
	}
}

// SetInitiativeTool defines combat_set_initiative.
func SetInitiativeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_set_initiative",
		Description: "Changes a participant's initiative and reorders the roster. The current participant keeps the turn.",
	}
}

// SetParticipantsTool defines combat_set_participants.
func SetParticipantsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_set_participants",
		Description: "Replaces the roster. Characters already in combat keep their initiative; newcomers roll.",
	}
}

// StartHandler runs combat_start.
func StartHandler(c Combat) mcp.ToolHandlerFor[StartInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StartInput) (*mcp.CallToolResult, SessionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		session, err := c.Start(ctx, input.GuildID, specs(input.Participants), input.InitiativeAttributeID)
		if err != nil {
			return nil, SessionResult{}, toolError("start combat", err)
		}
		return nil, sessionResult(ctx, c.Directory(), session), nil
	}
}

// StatusHandler runs combat_status.
func StatusHandler(c Combat) mcp.ToolHandlerFor[GuildInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GuildInput) (*mcp.CallToolResult, SessionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		session, err := c.Get(ctx, input.GuildID)
		if errors.Is(err, combat.ErrNoActiveSession) {
			return nil, SessionResult{GuildID: input.GuildID}, nil
		}
		if err != nil {
			return nil, SessionResult{}, toolError("combat status", err)
		}
		return nil, sessionResult(ctx, c.Directory(), session), nil
	}
}

// AdvanceHandler runs combat_advance.
func AdvanceHandler(c Combat) mcp.ToolHandlerFor[GuildInput, SessionResult] {
	return guildHandler(c, "advance turn", c.Advance)
}

// RewindHandler runs combat_rewind.
func RewindHandler(c Combat) mcp.ToolHandlerFor[GuildInput, SessionResult] {
	return guildHandler(c, "rewind turn", c.Rewind)
}

func guildHandler(c Combat, what string, move func(context.Context, string) (combat.Session, error)) mcp.ToolHandlerFor[GuildInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GuildInput) (*mcp.CallToolResult, SessionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		session, err := move(ctx, input.GuildID)
		if err != nil {
			return nil, SessionResult{}, toolError(what, err)
		}
		return nil, sessionResult(ctx, c.Directory(), session), nil
	}
}

// EndHandler runs combat_end.
func EndHandler(c Combat) mcp.ToolHandlerFor[GuildInput, EndResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GuildInput) (*mcp.CallToolResult, EndResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		if err := c.End(ctx, input.GuildID); err != nil {
			return nil, EndResult{}, toolError("end combat", err)
		}
		return nil, EndResult{GuildID: input.GuildID, Ended: true}, nil
	}
}

// AddParticipantHandler runs combat_add_participant.
func AddParticipantHandler(c Combat) mcp.ToolHandlerFor[AddParticipantInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AddParticipantInput) (*mcp.CallToolResult, SessionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		session, err := c.AddParticipant(ctx, input.GuildID, input.CharacterID, input.Initiative)
		if err != nil {
			return nil, SessionResult{}, toolError("add participant", err)
		}
		return nil, sessionResult(ctx, c.Directory(), session), nil
	}
}

// RemoveParticipantHandler runs combat_remove_participant.
func RemoveParticipantHandler(c Combat) mcp.ToolHandlerFor[RemoveParticipantInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RemoveParticipantInput) (*mcp.CallToolResult, SessionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		session, err := c.RemoveParticipant(ctx, input.GuildID, input.CharacterID)
		if err != nil {
			return nil, SessionResult{}, toolError("remove participant", err)
		}
		return nil, sessionResult(ctx, c.Directory(), session), nil
	}
}

// SetInitiativeHandler runs combat_set_initiative.
func SetInitiativeHandler(c Combat) mcp.ToolHandlerFor[SetInitiativeInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SetInitiativeInput) (*mcp.CallToolResult, SessionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		session, err := c.SetParticipantInitiative(ctx, input.GuildID, input.CharacterID, input.Initiative)
		if err != nil {
			return nil, SessionResult{}, toolError("set initiative", err)
		}
		return nil, sessionResult(ctx, c.Directory(), session), nil
	}
}

// SetParticipantsHandler runs combat_set_participants.
func SetParticipantsHandler(c Combat) mcp.ToolHandlerFor[SetParticipantsInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SetParticipantsInput) (*mcp.CallToolResult, SessionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Interaction)
		defer cancel()
		session, err := c.SetParticipants(ctx, input.GuildID, specs(input.Participants))
		if err != nil {
			return nil, SessionResult{}, toolError("set participants", err)
		}
		return nil, sessionResult(ctx, c.Directory(), session), nil
	}
}

func specs(in []ParticipantInput) []app.ParticipantSpec {
	out := make([]app.ParticipantSpec, 0, len(in))
	for _, p := range in {
		out = append(out, app.ParticipantSpec{CharacterID: p.CharacterID, Initiative: p.Initiative})
	}
	return out
}

// sessionResult names each participant from dir. Unknown characters keep
// their id as name.
func sessionResult(ctx context.Context, dir directory.Directory, session combat.Session) SessionResult {
	out := SessionResult{
		GuildID:               session.ID,
		Active:                true,
		Round:                 session.Round,
		TurnIndex:             session.TurnIndex,
		InitiativeAttributeID: session.InitiativeAttributeID,
		Participants:          make([]ParticipantResult, 0, len(session.Participants)),
	}
	for i, p := range session.Participants {
		name := p.CharacterID
		if character, err := dir.Lookup(ctx, p.CharacterID); err == nil {
			name = character.Name
		}
		out.Participants = append(out.Participants, ParticipantResult{
			CharacterID: p.CharacterID,
			Name:        name,
			Initiative:  p.Initiative,
			Current:     i == session.TurnIndex,
		})
	}
	return out
}

func toolError(what string, err error) error {
	return fmt.Errorf("%s failed: %w", what, err)
}
