// Package sqlite persists combat sessions in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"
	sqlitemigrate "github.com/louisbranch/turnkeeper/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/turnkeeper/internal/platform/timeouts"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage/sqlite/migrations"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const maxUpdateAttempts = 16

// ErrUpdateConflict is returned when an update keeps losing the version race.
var ErrUpdateConflict = apperrors.New(apperrors.CodeCombatUpdateConflict, "combat session changed concurrently")

var errVersionConflict = errors.New("version conflict")

// Store provides SQLite-backed combat session persistence.
type Store struct {
	sqlDB *sql.DB
	clk   func() time.Time
}

// Open opens the combat SQLite store at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sql.Open("sqlite", DSN(path))
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
	return &Store{sqlDB: sqlDB, clk: time.Now}, nil
}

// DSN builds the connection string used by turnkeeper SQLite stores. Every
// transaction takes the write lock up front so concurrent updates queue on
// busy_timeout instead of failing at upgrade time.
func DSN(path string) string {
	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", timeouts.StoreBusy.Milliseconds()),
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
		"_txlock=immediate",
	}
	return filepath.Clean(path) + "?" + strings.Join(params, "&")
}

// WithClock replaces the time source used to stamp UpdatedAt.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.clk = clock
	}
	return s
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetSession loads the session and its participants in position order.
func (s *Store) GetSession(ctx context.Context, id string) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return combat.Session{}, fmt.Errorf("storage is not configured")
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return combat.Session{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return combat.Session{}, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	return loadSession(ctx, tx, id)
}

// CreateSession inserts session unless a row already exists for its id.
func (s *Store) CreateSession(ctx context.Context, session combat.Session) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return combat.Session{}, fmt.Errorf("storage is not configured")
	}
	next, err := storage.PrepareCreate(session, s.now())
	if err != nil {
		return combat.Session{}, err
	}

	err = s.retryBusy(ctx, func() error {
		tx, err := s.sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, `
INSERT INTO combat_sessions (
	id,
	round,
	turn_index,
	initiative_attribute_id,
	version,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`,
			next.ID,
			next.Round,
			next.TurnIndex,
			next.InitiativeAttributeID,
			next.Version,
			next.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("insert session rows: %w", err)
		} else if n == 0 {
			return storage.ErrSessionAlreadyActive
		}
		if err := writeParticipants(ctx, tx, next.ID, next.Participants); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit create: %w", err)
		}
		return nil
	})
	if err != nil {
		return combat.Session{}, err
	}
	return next, nil
}

// UpdateSession applies mutate inside a write transaction and commits only if
// the stored version is unchanged, retrying from a fresh read otherwise.
func (s *Store) UpdateSession(ctx context.Context, id string, mutate storage.Mutator) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return combat.Session{}, fmt.Errorf("storage is not configured")
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return combat.Session{}, err
	}

	backoff := 5 * time.Millisecond
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		next, err := s.tryUpdate(ctx, id, mutate)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, errVersionConflict) && !isBusyError(err) {
			return combat.Session{}, err
		}
		if err := sleep(ctx, backoff); err != nil {
			return combat.Session{}, err
		}
		backoff = min(backoff*2, 200*time.Millisecond)
	}
	return combat.Session{}, ErrUpdateConflict
}

func (s *Store) tryUpdate(ctx context.Context, id string, mutate storage.Mutator) (combat.Session, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return combat.Session{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := loadSession(ctx, tx, id)
	if err != nil {
		return combat.Session{}, err
	}
	next, err := storage.ApplyMutator(current, mutate, s.now())
	if err != nil {
		return combat.Session{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE combat_sessions
SET round = ?, turn_index = ?, initiative_attribute_id = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?
`,
		next.Round,
		next.TurnIndex,
		next.InitiativeAttributeID,
		next.Version,
		next.UpdatedAt.UnixMilli(),
		id,
		current.Version,
	)
	if err != nil {
		return combat.Session{}, fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return combat.Session{}, fmt.Errorf("update session rows: %w", err)
	} else if n == 0 {
		return combat.Session{}, errVersionConflict
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM combat_participants WHERE session_id = ?", id); err != nil {
		return combat.Session{}, fmt.Errorf("clear participants: %w", err)
	}
	if err := writeParticipants(ctx, tx, id, next.Participants); err != nil {
		return combat.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return combat.Session{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

// DeleteSession removes the session and its participants.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return err
	}

	return s.retryBusy(ctx, func() error {
		tx, err := s.sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, "DELETE FROM combat_participants WHERE session_id = ?", id); err != nil {
			return fmt.Errorf("delete participants: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM combat_sessions WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit delete: %w", err)
		}
		return nil
	})
}

func (s *Store) retryBusy(ctx context.Context, fn func() error) error {
	backoff := 5 * time.Millisecond
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = fn()
		if err == nil || !isBusyError(err) {
			return err
		}
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, 200*time.Millisecond)
	}
	return err
}

func (s *Store) now() time.Time {
	clk := s.clk
	if clk == nil {
		clk = time.Now
	}
	return clk().UTC().Truncate(time.Millisecond)
}

func loadSession(ctx context.Context, tx *sql.Tx, id string) (combat.Session, error) {
	var (
		session   combat.Session
		updatedAt int64
	)
	err := tx.QueryRowContext(ctx, `
SELECT id, round, turn_index, initiative_attribute_id, version, updated_at
FROM combat_sessions
WHERE id = ?
`, id).Scan(
		&session.ID,
		&session.Round,
		&session.TurnIndex,
		&session.InitiativeAttributeID,
		&session.Version,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return combat.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return combat.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	rows, err := tx.QueryContext(ctx, `
SELECT character_id, initiative
FROM combat_participants
WHERE session_id = ?
ORDER BY position ASC
`, id)
	if err != nil {
		return combat.Session{}, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p roster.Participant
		if err := rows.Scan(&p.CharacterID, &p.Initiative); err != nil {
			return combat.Session{}, fmt.Errorf("scan participant: %w", err)
		}
		session.Participants = append(session.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return combat.Session{}, fmt.Errorf("iterate participants: %w", err)
	}
	return session, nil
}

func writeParticipants(ctx context.Context, tx *sql.Tx, sessionID string, participants []roster.Participant) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO combat_participants (session_id, character_id, initiative, position)
VALUES (?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare participant insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range participants {
		if _, err := stmt.ExecContext(ctx, sessionID, p.CharacterID, p.Initiative, i); err != nil {
			return fmt.Errorf("insert participant %s: %w", p.CharacterID, err)
		}
	}
	return nil
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ storage.SessionStore = (*Store)(nil)
