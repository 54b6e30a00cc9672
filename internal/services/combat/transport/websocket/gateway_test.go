package websocket

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/louisbranch/turnkeeper/internal/services/combat/app"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage/memory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/ui"
)

type fixedRoller struct{}

func (fixedRoller) Roll(sides int) (int, error) { return sides, nil }

type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) Logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logRecorder) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func newTestServer(t *testing.T) (*httptest.Server, *logRecorder) {
	t.Helper()
	dir := directory.NewStatic(directory.DefaultAttributes(), []directory.Character{
		{ID: "a", Name: "Ash", PlayerID: "u1", Dice: map[string]int{"mobility": 8}},
		{ID: "b", Name: "Bram", PlayerID: "u2", Dice: map[string]int{"mobility": 6}},
	})
	logs := &logRecorder{}
	svc, err := app.NewService(app.Config{
		Store:     memory.NewStore(),
		Directory: dir,
		Roller:    fixedRoller{},
		Logf:      logs.Logf,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	gateway := NewGateway(ui.NewRouter(svc, logs.Logf), logs.Logf)
	var ids atomic.Int64
	gateway.newID = func() string {
		return fmt.Sprintf("r%d", ids.Add(1))
	}
	srv := httptest.NewServer(gateway)
	t.Cleanup(srv.Close)
	return srv, logs
}

func dial(t *testing.T, srv *httptest.Server, query string) *ws.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close(ws.StatusNormalClosure, "") })
	return conn
}

func roundTrip(t *testing.T, conn *ws.Conn, req any) Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.Fatalf("write error = %v", err)
	}
	var reply Reply
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatalf("read error = %v", err)
	}
	return reply
}

func TestGatewayCombatFlow(t *testing.T) {
	srv, logs := newTestServer(t)
	conn := dial(t, srv, "guild=g1&user=u1&moderator=true")

	setup := roundTrip(t, conn, Request{ID: "1", Command: &CommandRequest{Name: ui.CommandStart}})
	if setup.ReplyTo != "1" || setup.Kind != "render_new" || setup.ID != "r1" {
		t.Fatalf("setup reply = %+v", setup)
	}

	tracker := roundTrip(t, conn, Request{ID: "2", Event: &EventRequest{CustomID: ui.SetupStartID, Source: *setup.Message}})
	if tracker.Kind != "update" {
		t.Fatalf("kind = %q, want update", tracker.Kind)
	}
	if tracker.Message.Content != "**Ash**, you're up! <@u1>" {
		t.Fatalf("content = %q", tracker.Message.Content)
	}

	next := roundTrip(t, conn, Request{ID: "3", Event: &EventRequest{CustomID: ui.TrackerAdvanceID, Source: *tracker.Message}})
	if next.Message.Content != "**Bram**, you're up! <@u2>" {
		t.Fatalf("content = %q", next.Message.Content)
	}

	ended := roundTrip(t, conn, Request{ID: "4", Event: &EventRequest{CustomID: ui.TrackerEndID}})
	if ended.Message.Content != "Combat has ended." {
		t.Fatalf("content = %q", ended.Message.Content)
	}
	dismissed := roundTrip(t, conn, Request{ID: "5", Event: &EventRequest{CustomID: ui.TrackerDismissID}})
	if dismissed.Kind != "delete" || dismissed.Message != nil {
		t.Fatalf("dismiss reply = %+v", dismissed)
	}
	if lines := logs.Lines(); len(lines) != 0 {
		t.Fatalf("logs = %v, want none", lines)
	}
}

func TestGatewaySelectionChanged(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "guild=g1&user=u1&moderator=1")

	setup := roundTrip(t, conn, Request{Command: &CommandRequest{Name: ui.CommandStart}})
	changed := roundTrip(t, conn, Request{Event: &EventRequest{
		CustomID: ui.SetupAttributeID,
		Values:   []string{"wit"},
		Source:   *setup.Message,
	}})
	if got := ui.SelectedValues(*changed.Message, ui.SetupAttributeID); len(got) != 1 || got[0] != "wit" {
		t.Fatalf("attribute = %v, want [wit]", got)
	}
}

func TestGatewayErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	player := dial(t, srv, "guild=g1&user=u2&locale=pt-BR")

	tests := []struct {
		name    string
		req     any
		code    string
		content string
	}{
		{
			name:    "not moderator",
			req:     Request{ID: "x", Command: &CommandRequest{Name: ui.CommandEnd}},
			code:    "COMBAT_NOT_MODERATOR",
			content: "Só moderadores podem fazer isso.",
		},
		{
			name:    "no body",
			req:     Request{ID: "y"},
			code:    "INVALID_REQUEST",
			content: "Falta algo nesse pedido. Confira as opções do comando e tente de novo.",
		},
		{
			name: "both command and event",
			req: Request{
				Command: &CommandRequest{Name: ui.CommandStatus},
				Event:   &EventRequest{CustomID: ui.TrackerAdvanceID},
			},
			code: "INVALID_REQUEST",
		},
		{
			name: "not json",
			req:  "status please",
			code: "INVALID_REQUEST",
		},
		{
			name: "unknown command",
			req:  Request{Command: &CommandRequest{Name: "flee"}},
			code: "INTERACTION_UNHANDLED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := roundTrip(t, player, tt.req)
			if reply.Error != tt.code {
				t.Fatalf("error = %q, want %q", reply.Error, tt.code)
			}
			if !reply.Message.Ephemeral {
				t.Fatal("error replies must be ephemeral")
			}
			if tt.content != "" && reply.Message.Content != tt.content {
				t.Fatalf("content = %q, want %q", reply.Message.Content, tt.content)
			}
		})
	}
}

func TestGatewayOutsideGuild(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "user=u1")
	reply := roundTrip(t, conn, Request{Command: &CommandRequest{Name: ui.CommandStatus}})
	if reply.Error != "COMBAT_OUTSIDE_GUILD" {
		t.Fatalf("error = %q, want COMBAT_OUTSIDE_GUILD", reply.Error)
	}
}

func TestGatewayConnectionsShareSessions(t *testing.T) {
	srv, _ := newTestServer(t)
	gm := dial(t, srv, "guild=g1&user=u1&moderator=true")
	player := dial(t, srv, "guild=g1&user=u2")

	setup := roundTrip(t, gm, Request{Command: &CommandRequest{Name: ui.CommandStart}})
	roundTrip(t, gm, Request{Event: &EventRequest{CustomID: ui.SetupStartID, Source: *setup.Message}})

	status := roundTrip(t, player, Request{Command: &CommandRequest{Name: ui.CommandStatus}})
	if status.Error != "" || !strings.Contains(status.Message.Content, "Ash") {
		t.Fatalf("status = %+v", status)
	}
}
