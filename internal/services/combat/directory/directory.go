// Package directory describes the characters and attributes combat reads from.
//
// The combat service never writes to the directory. Characters are loaded
// from a YAML roster (see LoadRoster) into either the in-memory Static
// directory or the SQLite-backed one in the sqlite subpackage.
package directory

import (
	"context"
	"strings"

	apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"
)

// ErrCharacterNotFound is returned when a character id is unknown.
var ErrCharacterNotFound = apperrors.New(apperrors.CodeCombatCharacterNotFound, "character not found")

// Attribute is a rollable character attribute such as mobility.
type Attribute struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Emoji string `yaml:"emoji,omitempty" json:"emoji,omitempty"`
}

// Character is the read model combat renders and rolls for.
type Character struct {
	ID        string
	GuildID   string
	Name      string
	PlayerID  string
	RaceEmoji string
	Aspect    string
	Health    int
	MaxHealth int
	Fatigue   int
	// Dice maps attribute id to die sides.
	Dice map[string]int
}

// AttributeDie returns the die rolled for attributeID.
func (c Character) AttributeDie(attributeID string) (int, bool) {
	die, ok := c.Dice[strings.TrimSpace(attributeID)]
	if !ok || die <= 0 {
		return 0, false
	}
	return die, true
}

// Assigned reports whether a player controls the character.
func (c Character) Assigned() bool {
	return strings.TrimSpace(c.PlayerID) != ""
}

// VisibleIn reports whether the character can join combat in guildID.
// Characters without a guild are shared by every guild.
func (c Character) VisibleIn(guildID string) bool {
	return c.GuildID == "" || c.GuildID == guildID
}

// Directory is the read-only character oracle.
type Directory interface {
	// Lookup returns one character or ErrCharacterNotFound.
	Lookup(ctx context.Context, characterID string) (Character, error)
	// ListCharacters returns the characters available in guildID, by name.
	ListCharacters(ctx context.Context, guildID string) ([]Character, error)
	// ListAssigned returns the ids of characters in guildID that have a player.
	ListAssigned(ctx context.Context, guildID string) ([]string, error)
	// ListAttributes returns the attributes in display order.
	ListAttributes(ctx context.Context) ([]Attribute, error)
}
