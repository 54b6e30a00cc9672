package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/turnkeeper/internal/services/combat/app"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	dirsqlite "github.com/louisbranch/turnkeeper/internal/services/combat/directory/sqlite"
)

const testRoster = `
characters:
  - id: ash
    name: Ash
    player_id: "1"
    dice:
      mobility: 8
  - id: bram
    name: Bram
    player_id: "2"
    dice:
      mobility: 6
`

func writeRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(testRoster), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func startAndReopen(t *testing.T, cfg Config) {
	t.Helper()
	ctx := context.Background()

	b, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ten, two := 10, 2
	specs := []app.ParticipantSpec{{CharacterID: "ash", Initiative: &ten}, {CharacterID: "bram", Initiative: &two}}
	if _, err := b.Service.Start(ctx, "g1", specs, ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer b.Close()
	session, err := b.Service.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if len(session.Participants) != 2 || session.Participants[0].CharacterID != "ash" {
		t.Fatalf("participants = %+v", session.Participants)
	}
}

func TestOpenSQLiteWithRoster(t *testing.T) {
	startAndReopen(t, Config{
		Store:      StoreSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "combat.db"),
		RosterPath: writeRoster(t),
		DiceSeed:   7,
	})
}

func TestOpenBoltWithRoster(t *testing.T) {
	startAndReopen(t, Config{
		Store:      StoreBolt,
		BoltPath:   filepath.Join(t.TempDir(), "combat.bolt"),
		RosterPath: writeRoster(t),
		DiceSeed:   7,
	})
}

func TestOpenSharesSQLiteFileWithDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turnkeeper.db")
	roster, err := directory.LoadRosterFile(writeRoster(t))
	if err != nil {
		t.Fatalf("LoadRosterFile() error = %v", err)
	}
	dir, err := dirsqlite.Open(path)
	if err != nil {
		t.Fatalf("open directory: %v", err)
	}
	if err := dir.ImportRoster(context.Background(), roster); err != nil {
		t.Fatalf("ImportRoster() error = %v", err)
	}
	if err := dir.Close(); err != nil {
		t.Fatalf("close directory: %v", err)
	}

	startAndReopen(t, Config{Store: StoreSQLite, SQLitePath: path, DiceSeed: 7})
}

func TestOpenMemory(t *testing.T) {
	b, err := Open(Config{Store: StoreMemory, RosterPath: writeRoster(t)})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()
	characters, err := b.Service.Directory().ListCharacters(context.Background(), "g1")
	if err != nil {
		t.Fatalf("ListCharacters() error = %v", err)
	}
	if len(characters) != 2 {
		t.Fatalf("characters = %d, want 2", len(characters))
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown store", Config{Store: "redis"}, "unknown session store"},
		{"missing sqlite path", Config{Store: StoreSQLite}, "open sqlite session store"},
		{"missing bolt path", Config{Store: StoreBolt}, "open bbolt session store"},
		{"missing roster", Config{Store: StoreMemory, RosterPath: filepath.Join(t.TempDir(), "nope.yaml")}, "nope.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Open() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
