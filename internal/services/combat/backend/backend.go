// Package backend opens the stores a combat process runs on and builds the
// combat service over them.
package backend

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/louisbranch/turnkeeper/internal/core/dice"
	platformotel "github.com/louisbranch/turnkeeper/internal/platform/otel"
	"github.com/louisbranch/turnkeeper/internal/services/combat/app"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	dirsqlite "github.com/louisbranch/turnkeeper/internal/services/combat/directory/sqlite"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage/bbolt"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage/memory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage/sqlite"
)

// Session store engines.
const (
	StoreSQLite = "sqlite"
	StoreBolt   = "bbolt"
	StoreMemory = "memory"
)

// Config selects the session store and the character directory.
type Config struct {
	// Store is one of StoreSQLite, StoreBolt or StoreMemory.
	Store      string
	SQLitePath string
	BoltPath   string
	// DirectoryPath is the SQLite directory database. It defaults to
	// SQLitePath so one file can hold both.
	DirectoryPath string
	// RosterPath, when set, serves the directory from a YAML roster in memory
	// instead of SQLite.
	RosterPath string
	// DiceSeed makes initiative rolls reproducible; 0 seeds from crypto/rand.
	DiceSeed int64
	Logf     func(format string, args ...any)
}

// Backend owns the open stores and the service built on them.
type Backend struct {
	Service *app.Service
	closers []io.Closer
}

// Open opens the configured stores. Close releases them.
func Open(cfg Config) (_ *Backend, err error) {
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	b := &Backend{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	store, err := b.openStore(cfg)
	if err != nil {
		return nil, err
	}
	dir, err := b.openDirectory(cfg)
	if err != nil {
		return nil, err
	}
	roller, err := newRoller(cfg.DiceSeed)
	if err != nil {
		return nil, err
	}

	svc, err := app.NewService(app.Config{
		Store:     store,
		Directory: dir,
		Roller:    roller,
		Tracer:    platformotel.Tracer(app.TracerName),
		Logf:      cfg.Logf,
	})
	if err != nil {
		return nil, err
	}
	b.Service = svc
	return b, nil
}

func (b *Backend) openStore(cfg Config) (storage.SessionStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case StoreSQLite, "":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite session store: %w", err)
		}
		b.closers = append(b.closers, store)
		return store, nil
	case StoreBolt:
		store, err := bbolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bbolt session store: %w", err)
		}
		b.closers = append(b.closers, store)
		return store, nil
	case StoreMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q (want %s, %s or %s)", cfg.Store, StoreSQLite, StoreBolt, StoreMemory)
	}
}

func (b *Backend) openDirectory(cfg Config) (directory.Directory, error) {
	if path := strings.TrimSpace(cfg.RosterPath); path != "" {
		roster, err := directory.LoadRosterFile(path)
		if err != nil {
			return nil, err
		}
		return directory.NewStaticFromRoster(roster), nil
	}
	path := cfg.DirectoryPath
	if strings.TrimSpace(path) == "" {
		path = cfg.SQLitePath
	}
	dir, err := dirsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	b.closers = append(b.closers, dir)
	return dir, nil
}

func newRoller(seed int64) (app.Roller, error) {
	if seed != 0 {
		return dice.NewRoller(seed), nil
	}
	roller, err := dice.NewRandomRoller()
	if err != nil {
		return nil, fmt.Errorf("seed dice: %w", err)
	}
	return roller, nil
}

// Close releases every store in reverse open order.
func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
