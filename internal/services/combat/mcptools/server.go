// Package mcptools exposes combat as Model Context Protocol tools so an
// assistant can run the tracker alongside a game master.
//
// The server trusts its caller: there is no guild membership or moderator
// check, so it must only be served over a local transport such as stdio.
package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "turnkeeper combat"
	serverVersion = "0.1.0"
)

// Server hosts the combat tools.
type Server struct {
	mcpServer *mcp.Server
}

// NewServer registers every combat tool against c.
func NewServer(c Combat) *Server {
	s := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(s, StartTool(), StartHandler(c))
	mcp.AddTool(s, StatusTool(), StatusHandler(c))
	mcp.AddTool(s, AdvanceTool(), AdvanceHandler(c))
	mcp.AddTool(s, RewindTool(), RewindHandler(c))
	mcp.AddTool(s, EndTool(), EndHandler(c))
	mcp.AddTool(s, AddParticipantTool(), AddParticipantHandler(c))
	mcp.AddTool(s, RemoveParticipantTool(), RemoveParticipantHandler(c))
	mcp.AddTool(s, SetInitiativeTool(), SetInitiativeHandler(c))
	mcp.AddTool(s, SetParticipantsTool(), SetParticipantsHandler(c))
	return &Server{mcpServer: s}
}

// Serve runs the server on stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeTransport(ctx, &mcp.StdioTransport{})
}

// ServeTransport runs the server on transport. Cancellation is a clean stop.
func (s *Server) ServeTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
