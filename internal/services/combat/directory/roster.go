package directory

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roster is the YAML document used to seed a directory.
type Roster struct {
	Attributes []Attribute       `yaml:"attributes"`
	Characters []RosterCharacter `yaml:"characters"`
}

// RosterCharacter is one character entry. Dice and MaxHealth are derived from
// the aspect and secondary attributes when omitted.
type RosterCharacter struct {
	ID                   string         `yaml:"id"`
	GuildID              string         `yaml:"guild_id"`
	Name                 string         `yaml:"name"`
	PlayerID             string         `yaml:"player_id"`
	Race                 string         `yaml:"race"`
	RaceEmoji            string         `yaml:"race_emoji"`
	Aspect               string         `yaml:"aspect"`
	AspectAttributeID    string         `yaml:"aspect_attribute"`
	SecondaryAttributeID string         `yaml:"secondary_attribute"`
	Health               *int           `yaml:"health"`
	MaxHealth            int            `yaml:"max_health"`
	Fatigue              int            `yaml:"fatigue"`
	Dice                 map[string]int `yaml:"dice"`
}

// LoadRosterFile reads a roster from path.
func LoadRosterFile(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return Roster{}, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return LoadRoster(f)
}

// LoadRoster decodes and validates a roster document.
func LoadRoster(r io.Reader) (Roster, error) {
	var roster Roster
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&roster); err != nil && err != io.EOF {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	if len(roster.Attributes) == 0 {
		roster.Attributes = DefaultAttributes()
	}
	if err := roster.validate(); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

func (r Roster) validate() error {
	attributes := make(map[string]struct{}, len(r.Attributes))
	for i, attribute := range r.Attributes {
		if strings.TrimSpace(attribute.ID) == "" {
			return fmt.Errorf("attribute %d: id is required", i)
		}
		if _, ok := attributes[attribute.ID]; ok {
			return fmt.Errorf("attribute %q is defined twice", attribute.ID)
		}
		attributes[attribute.ID] = struct{}{}
	}

	ids := make(map[string]struct{}, len(r.Characters))
	for i, c := range r.Characters {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = Slug(c.Name)
		}
		if id == "" {
			return fmt.Errorf("character %d: id or name is required", i)
		}
		if _, ok := ids[id]; ok {
			return fmt.Errorf("character %q is defined twice", id)
		}
		ids[id] = struct{}{}
		for _, ref := range []string{c.AspectAttributeID, c.SecondaryAttributeID} {
			if ref == "" {
				continue
			}
			if _, ok := attributes[ref]; !ok {
				return fmt.Errorf("character %q references unknown attribute %q", id, ref)
			}
		}
		for attributeID, die := range c.Dice {
			if die <= 0 {
				return fmt.Errorf("character %q: die for %q must be positive", id, attributeID)
			}
		}
	}
	return nil
}

// Resolve fills derived fields and returns the directory characters.
func (r Roster) Resolve() []Character {
	characters := make([]Character, 0, len(r.Characters))
	for _, c := range r.Characters {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = Slug(c.Name)
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = id
		}

		dice := DeriveDice(r.Attributes, c.AspectAttributeID, c.SecondaryAttributeID)
		for attributeID, die := range c.Dice {
			dice[attributeID] = die
		}

		maxHealth := c.MaxHealth
		if maxHealth <= 0 {
			maxHealth = MaxHealth(dice)
		}
		health := maxHealth
		if c.Health != nil {
			health = *c.Health
		}

		emoji := strings.TrimSpace(c.RaceEmoji)
		if emoji == "" {
			emoji = RaceEmoji(c.Race)
		}

		characters = append(characters, Character{
			ID:        id,
			GuildID:   strings.TrimSpace(c.GuildID),
			Name:      name,
			PlayerID:  strings.TrimSpace(c.PlayerID),
			RaceEmoji: emoji,
			Aspect:    strings.TrimSpace(c.Aspect),
			Health:    health,
			MaxHealth: maxHealth,
			Fatigue:   c.Fatigue,
			Dice:      dice,
		})
	}
	return characters
}

// Slug lowercases name and joins its words with dashes.
func Slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
