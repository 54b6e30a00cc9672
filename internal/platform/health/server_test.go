package health

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestServerStartsNotServing(t *testing.T) {
	_, conn := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := WaitForServing(ctx, conn, "bot", nil); err == nil {
		t.Fatal("expected wait to time out while not serving")
	}
}

func TestServerTransitionsToServing(t *testing.T) {
	server, conn := startServer(t)

	go func() {
		time.Sleep(150 * time.Millisecond)
		server.SetServing(true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := WaitForServing(ctx, conn, "bot", nil); err != nil {
		t.Fatalf("wait for serving: %v", err)
	}
	if err := WaitForServing(ctx, conn, "", nil); err != nil {
		t.Fatalf("wait for overall serving: %v", err)
	}
}

func TestWaitForServingRequiresConn(t *testing.T) {
	if err := WaitForServing(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}

func TestNilServerIsSafe(t *testing.T) {
	var s *Server
	s.SetServing(true)
	s.Close()
	if s.Addr() != "" {
		t.Fatalf("Addr() = %q, want empty", s.Addr())
	}
	if err := s.Serve(context.Background()); err == nil {
		t.Fatal("expected error serving nil server")
	}
}

func startServer(t *testing.T) (*Server, *grpc.ClientConn) {
	t.Helper()

	server, err := NewWithAddr("127.0.0.1:0", "bot")
	if err != nil {
		t.Fatalf("new health server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	conn, err := grpc.NewClient(server.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("dial health server: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("health server did not stop")
		}
	})
	return server, conn
}
