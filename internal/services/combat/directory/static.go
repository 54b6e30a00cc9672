package directory

import (
	"context"
	"maps"
	"slices"
	"strings"
)

// Static is an immutable in-memory directory.
type Static struct {
	attributes []Attribute
	characters map[string]Character
}

// NewStatic builds a directory from already resolved characters.
func NewStatic(attributes []Attribute, characters []Character) *Static {
	byID := make(map[string]Character, len(characters))
	for _, c := range characters {
		c.Dice = maps.Clone(c.Dice)
		byID[c.ID] = c
	}
	return &Static{
		attributes: slices.Clone(attributes),
		characters: byID,
	}
}

// NewStaticFromRoster resolves roster into a Static directory.
func NewStaticFromRoster(roster Roster) *Static {
	return NewStatic(roster.Attributes, roster.Resolve())
}

// Lookup returns one character.
func (s *Static) Lookup(ctx context.Context, characterID string) (Character, error) {
	if err := ctx.Err(); err != nil {
		return Character{}, err
	}
	c, ok := s.characters[strings.TrimSpace(characterID)]
	if !ok {
		return Character{}, ErrCharacterNotFound
	}
	c.Dice = maps.Clone(c.Dice)
	return c, nil
}

// ListCharacters returns the characters visible in guildID sorted by name.
func (s *Static) ListCharacters(ctx context.Context, guildID string) ([]Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Character
	for _, c := range s.characters {
		if !c.VisibleIn(guildID) {
			continue
		}
		c.Dice = maps.Clone(c.Dice)
		out = append(out, c)
	}
	SortByName(out)
	return out, nil
}

// ListAssigned returns the ids of visible characters with a player.
func (s *Static) ListAssigned(ctx context.Context, guildID string) ([]string, error) {
	characters, err := s.ListCharacters(ctx, guildID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, c := range characters {
		if c.Assigned() {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// ListAttributes returns the attribute table.
func (s *Static) ListAttributes(ctx context.Context) ([]Attribute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.attributes), nil
}

// SortByName orders characters by name, then id.
func SortByName(characters []Character) {
	slices.SortFunc(characters, func(a, b Character) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

var _ Directory = (*Static)(nil)
