// Package bbolt persists combat sessions as JSON documents in a BoltDB file.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/turnkeeper/internal/platform/timeouts"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
	"go.etcd.io/bbolt"
)

const sessionBucket = "combat_sessions"

// Store provides a BoltDB-backed combat session store. bbolt allows a single
// writer at a time, so each update runs inside one db.Update transaction.
type Store struct {
	db  *bbolt.DB
	clk func() time.Time
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: timeouts.BoltOpen})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db, clk: time.Now}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// WithClock replaces the time source used to stamp UpdatedAt.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.clk = clock
	}
	return s
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetSession fetches a session by guild id.
func (s *Store) GetSession(ctx context.Context, id string) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	if s == nil || s.db == nil {
		return combat.Session{}, fmt.Errorf("storage is not configured")
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return combat.Session{}, err
	}

	var session combat.Session
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := sessions(tx)
		if err != nil {
			return err
		}
		session, err = readSession(bucket, id)
		return err
	})
	if err != nil {
		return combat.Session{}, err
	}
	return session, nil
}

// CreateSession stores session unless its id is already taken.
func (s *Store) CreateSession(ctx context.Context, session combat.Session) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	if s == nil || s.db == nil {
		return combat.Session{}, fmt.Errorf("storage is not configured")
	}
	next, err := storage.PrepareCreate(session, s.now())
	if err != nil {
		return combat.Session{}, err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := sessions(tx)
		if err != nil {
			return err
		}
		if bucket.Get(sessionKey(next.ID)) != nil {
			return storage.ErrSessionAlreadyActive
		}
		return writeSession(bucket, next)
	})
	if err != nil {
		return combat.Session{}, err
	}
	return next, nil
}

// UpdateSession reads, mutates, and writes the session in one write
// transaction. A mutator error aborts the transaction.
func (s *Store) UpdateSession(ctx context.Context, id string, mutate storage.Mutator) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	if s == nil || s.db == nil {
		return combat.Session{}, fmt.Errorf("storage is not configured")
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return combat.Session{}, err
	}

	var next combat.Session
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := sessions(tx)
		if err != nil {
			return err
		}
		current, err := readSession(bucket, id)
		if err != nil {
			return err
		}
		next, err = storage.ApplyMutator(current, mutate, s.now())
		if err != nil {
			return err
		}
		return writeSession(bucket, next)
	})
	if err != nil {
		return combat.Session{}, err
	}
	return next, nil
}

// DeleteSession removes the session if present.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := sessions(tx)
		if err != nil {
			return err
		}
		return bucket.Delete(sessionKey(id))
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(sessionBucket)); err != nil {
			return fmt.Errorf("create session bucket: %w", err)
		}
		return nil
	})
}

func (s *Store) now() time.Time {
	if s.clk == nil {
		return time.Now().UTC()
	}
	return s.clk().UTC()
}

func sessions(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket([]byte(sessionBucket))
	if bucket == nil {
		return nil, fmt.Errorf("session bucket is missing")
	}
	return bucket, nil
}

func readSession(bucket *bbolt.Bucket, id string) (combat.Session, error) {
	payload := bucket.Get(sessionKey(id))
	if payload == nil {
		return combat.Session{}, storage.ErrNotFound
	}
	var session combat.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return combat.Session{}, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return session, nil
}

func writeSession(bucket *bbolt.Bucket, session combat.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	return bucket.Put(sessionKey(session.ID), payload)
}

func sessionKey(id string) []byte {
	return []byte("session/" + id)
}

var _ storage.SessionStore = (*Store)(nil)
