// Package memory provides an in-process combat session store for tests and
// single-process dev runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
)

// Store keeps sessions in a map. Writes to one session id are serialized by a
// per-id mutex so mutators for different guilds never wait on each other.
// A lock entry lives only while some call holds or waits for it.
type Store struct {
	clk func() time.Time

	mu       sync.Mutex
	sessions map[string]combat.Session
	locks    map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		clk:      time.Now,
		sessions: make(map[string]combat.Session),
		locks:    make(map[string]*idLock),
	}
}

// WithClock replaces the time source used to stamp UpdatedAt.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.clk = clock
	}
	return s
}

// GetSession returns a copy of the stored session.
func (s *Store) GetSession(ctx context.Context, id string) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return combat.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return combat.Session{}, storage.ErrNotFound
	}
	return session.Clone(), nil
}

// CreateSession stores session unless its id is already taken.
func (s *Store) CreateSession(ctx context.Context, session combat.Session) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	next, err := storage.PrepareCreate(session, s.now())
	if err != nil {
		return combat.Session{}, err
	}

	unlock := s.lock(next.ID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[next.ID]; ok {
		return combat.Session{}, storage.ErrSessionAlreadyActive
	}
	s.sessions[next.ID] = next
	return next.Clone(), nil
}

// UpdateSession applies mutate while holding the session's lock.
func (s *Store) UpdateSession(ctx context.Context, id string, mutate storage.Mutator) (combat.Session, error) {
	if err := ctx.Err(); err != nil {
		return combat.Session{}, err
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return combat.Session{}, err
	}

	unlock := s.lock(id)
	defer unlock()

	s.mu.Lock()
	current, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return combat.Session{}, storage.ErrNotFound
	}

	next, err := storage.ApplyMutator(current, mutate, s.now())
	if err != nil {
		return combat.Session{}, err
	}

	s.mu.Lock()
	s.sessions[id] = next
	s.mu.Unlock()
	return next.Clone(), nil
}

// DeleteSession removes the session if present.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := storage.NormalizeID(id)
	if err != nil {
		return err
	}

	unlock := s.lock(id)
	defer unlock()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &idLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// lockCount reports how many per-id locks are held or awaited.
func (s *Store) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *Store) now() time.Time {
	if s.clk == nil {
		return time.Now()
	}
	return s.clk()
}

var _ storage.SessionStore = (*Store)(nil)
