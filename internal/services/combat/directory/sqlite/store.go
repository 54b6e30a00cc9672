// Package sqlite stores the character directory in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlitemigrate "github.com/louisbranch/turnkeeper/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory/sqlite/migrations"
	combatsqlite "github.com/louisbranch/turnkeeper/internal/services/combat/storage/sqlite"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed character directory. It may share a database file
// with the combat session store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the directory at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sql.Open("sqlite", combatsqlite.DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ImportRoster replaces the attribute table and upserts every roster
// character in one transaction.
func (s *Store) ImportRoster(ctx context.Context, roster directory.Roster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM directory_attributes"); err != nil {
		return fmt.Errorf("clear attributes: %w", err)
	}
	for i, attribute := range roster.Attributes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO directory_attributes (id, name, emoji, position) VALUES (?, ?, ?, ?)",
			attribute.ID, attribute.Name, attribute.Emoji, i,
		); err != nil {
			return fmt.Errorf("insert attribute %s: %w", attribute.ID, err)
		}
	}

	for _, c := range roster.Resolve() {
		if err := putCharacter(ctx, tx, c); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// PutCharacter inserts or replaces one character and its dice.
func (s *Store) PutCharacter(ctx context.Context, c directory.Character) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put character: %w", err)
	}
	defer tx.Rollback()

	if err := putCharacter(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put character: %w", err)
	}
	return nil
}

func putCharacter(ctx context.Context, tx *sql.Tx, c directory.Character) error {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return fmt.Errorf("character id is required")
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO directory_characters (
	id,
	guild_id,
	name,
	player_id,
	race_emoji,
	aspect,
	health,
	max_health,
	fatigue
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	guild_id = excluded.guild_id,
	name = excluded.name,
	player_id = excluded.player_id,
	race_emoji = excluded.race_emoji,
	aspect = excluded.aspect,
	health = excluded.health,
	max_health = excluded.max_health,
	fatigue = excluded.fatigue
`,
		c.ID,
		c.GuildID,
		c.Name,
		c.PlayerID,
		c.RaceEmoji,
		c.Aspect,
		c.Health,
		c.MaxHealth,
		c.Fatigue,
	); err != nil {
		return fmt.Errorf("upsert character %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM directory_character_dice WHERE character_id = ?", c.ID); err != nil {
		return fmt.Errorf("clear dice %s: %w", c.ID, err)
	}
	for attributeID, die := range c.Dice {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO directory_character_dice (character_id, attribute_id, die) VALUES (?, ?, ?)",
			c.ID, attributeID, die,
		); err != nil {
			return fmt.Errorf("insert die %s/%s: %w", c.ID, attributeID, err)
		}
	}
	return nil
}

// Lookup returns one character with its dice.
func (s *Store) Lookup(ctx context.Context, characterID string) (directory.Character, error) {
	if err := ctx.Err(); err != nil {
		return directory.Character{}, err
	}
	if s == nil || s.sqlDB == nil {
		return directory.Character{}, fmt.Errorf("storage is not configured")
	}

	characters, err := s.queryCharacters(ctx, "WHERE c.id = ?", strings.TrimSpace(characterID))
	if err != nil {
		return directory.Character{}, err
	}
	if len(characters) == 0 {
		return directory.Character{}, directory.ErrCharacterNotFound
	}
	return characters[0], nil
}

// ListCharacters returns characters in guildID plus shared ones, by name.
func (s *Store) ListCharacters(ctx context.Context, guildID string) ([]directory.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	characters, err := s.queryCharacters(ctx, "WHERE c.guild_id = '' OR c.guild_id = ?", guildID)
	if err != nil {
		return nil, err
	}
	directory.SortByName(characters)
	return characters, nil
}

// ListAssigned returns ids of characters in guildID that have a player.
func (s *Store) ListAssigned(ctx context.Context, guildID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id
FROM directory_characters
WHERE (guild_id = '' OR guild_id = ?) AND player_id <> ''
ORDER BY name COLLATE NOCASE, id
`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list assigned: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assigned: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned: %w", err)
	}
	return ids, nil
}

// ListAttributes returns the attribute table in import order.
func (s *Store) ListAttributes(ctx context.Context) ([]directory.Attribute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT id, name, emoji FROM directory_attributes ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	var attributes []directory.Attribute
	for rows.Next() {
		var a directory.Attribute
		if err := rows.Scan(&a.ID, &a.Name, &a.Emoji); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attributes = append(attributes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	return attributes, nil
}

func (s *Store) queryCharacters(ctx context.Context, where string, args ...any) ([]directory.Character, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT c.id, c.guild_id, c.name, c.player_id, c.race_emoji, c.aspect, c.health, c.max_health, c.fatigue,
	d.attribute_id, d.die
FROM directory_characters c
LEFT JOIN directory_character_dice d ON d.character_id = c.id
`+where+`
ORDER BY c.id, d.attribute_id
`, args...)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var characters []directory.Character
	for rows.Next() {
		var (
			c           directory.Character
			attributeID sql.NullString
			die         sql.NullInt64
		)
		if err := rows.Scan(
			&c.ID, &c.GuildID, &c.Name, &c.PlayerID, &c.RaceEmoji, &c.Aspect,
			&c.Health, &c.MaxHealth, &c.Fatigue,
			&attributeID, &die,
		); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		if n := len(characters); n == 0 || characters[n-1].ID != c.ID {
			c.Dice = make(map[string]int)
			characters = append(characters, c)
		}
		if attributeID.Valid && die.Valid {
			characters[len(characters)-1].Dice[attributeID.String] = int(die.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}
	return characters, nil
}

var _ directory.Directory = (*Store)(nil)
