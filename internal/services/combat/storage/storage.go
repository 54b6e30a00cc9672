// Package storage defines the persistence contract for combat sessions.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "combat session not found")

// ErrSessionAlreadyActive is returned by CreateSession when the id is taken.
var ErrSessionAlreadyActive = combat.ErrSessionAlreadyActive

// Mutator computes the next session from the persisted one. It must be pure:
// backends may call it more than once for a single update.
type Mutator func(current combat.Session) (combat.Session, error)

// SessionStore persists at most one combat session per guild.
type SessionStore interface {
	// GetSession returns the session for id or ErrNotFound.
	GetSession(ctx context.Context, id string) (combat.Session, error)
	// CreateSession stores session if none exists for its id, else
	// ErrSessionAlreadyActive. It never overwrites.
	CreateSession(ctx context.Context, session combat.Session) (combat.Session, error)
	// UpdateSession applies mutate to the stored session and writes the result
	// atomically with respect to other updates of the same id. Nothing is
	// written when mutate fails.
	UpdateSession(ctx context.Context, id string, mutate Mutator) (combat.Session, error)
	// DeleteSession removes the session; deleting a missing id succeeds.
	DeleteSession(ctx context.Context, id string) error
}

// NormalizeID trims id and rejects blanks.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", combat.ErrSessionIDRequired
	}
	return id, nil
}

// PrepareCreate validates a new session and stamps its first version.
func PrepareCreate(session combat.Session, now time.Time) (combat.Session, error) {
	id, err := NormalizeID(session.ID)
	if err != nil {
		return combat.Session{}, err
	}
	next := session.Clone()
	next.ID = id
	next.Version = 1
	next.UpdatedAt = now.UTC()
	if err := next.Validate(); err != nil {
		return combat.Session{}, err
	}
	return next, nil
}

// ApplyMutator runs mutate against current and stamps the result as the next
// version. The mutator may not change the session id.
func ApplyMutator(current combat.Session, mutate Mutator, now time.Time) (combat.Session, error) {
	if mutate == nil {
		return combat.Session{}, fmt.Errorf("mutator is required")
	}
	next, err := mutate(current.Clone())
	if err != nil {
		return combat.Session{}, err
	}
	if next.ID != current.ID {
		return combat.Session{}, fmt.Errorf("mutator changed session id from %q to %q", current.ID, next.ID)
	}
	next.Version = current.Version + 1
	next.UpdatedAt = now.UTC()
	if err := next.Validate(); err != nil {
		return combat.Session{}, err
	}
	return next, nil
}
