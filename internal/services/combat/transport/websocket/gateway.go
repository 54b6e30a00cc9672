// Package websocket serves the combat flows over a JSON websocket protocol so
// they can be driven without a chat platform, e.g. from a playtest client.
//
// Each connection is bound to one guild and user through its query string:
//
//	/combat?guild=g1&user=u1&locale=pt-BR&moderator=true
//
// Clients send Request frames and receive one Reply per request.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"
	"github.com/louisbranch/turnkeeper/internal/platform/timeouts"
	"github.com/louisbranch/turnkeeper/internal/services/combat/ui"
)

const readLimit = 64 << 10

// ErrMalformedRequest is replied when a frame is not a valid Request.
var ErrMalformedRequest = apperrors.New(apperrors.CodeInvalidRequest, "malformed request")

// Request is one client frame. Exactly one of Command and Event is set.
type Request struct {
	// ID is echoed back as Reply.ReplyTo.
	ID      string          `json:"id,omitempty"`
	Command *CommandRequest `json:"command,omitempty"`
	Event   *EventRequest   `json:"event,omitempty"`
}

// CommandRequest runs a /combat subcommand.
type CommandRequest struct {
	Name        string `json:"name"`
	CharacterID string `json:"character_id,omitempty"`
	Initiative  *int   `json:"initiative,omitempty"`
}

// EventRequest is a component interaction on a message the client received.
type EventRequest struct {
	CustomID string `json:"custom_id"`
	// Values marks a selection change; nil is a click.
	Values []string   `json:"values,omitempty"`
	Source ui.Message `json:"source"`
}

// Reply answers one Request.
type Reply struct {
	ID      string `json:"id"`
	ReplyTo string `json:"reply_to,omitempty"`
	// Kind is render_new, update or delete.
	Kind    string      `json:"kind"`
	Message *ui.Message `json:"message,omitempty"`
	// Error holds the error code when the request failed.
	Error string `json:"error,omitempty"`
}

// identity is who a connection acts as.
type identity struct {
	guildID   string
	userID    string
	locale    string
	moderator bool
}

// Gateway is an http.Handler that upgrades to websocket connections.
type Gateway struct {
	router  *ui.Router
	logf    func(format string, args ...any)
	timeout time.Duration
	newID   func() string
	// OriginPatterns lists extra hosts allowed to connect from browsers.
	OriginPatterns []string
}

// NewGateway returns a Gateway over router. A nil logf uses log.Printf.
func NewGateway(router *ui.Router, logf func(format string, args ...any)) *Gateway {
	if logf == nil {
		logf = log.Printf
	}
	return &Gateway{
		router:  router,
		logf:    logf,
		timeout: timeouts.Interaction,
		newID:   uuid.NewString,
	}
}

// ServeHTTP accepts one connection and answers its requests in order until
// the client goes away.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	who := identityFrom(r)
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: g.OriginPatterns})
	if err != nil {
		g.logf("websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch ws.CloseStatus(err) {
			case ws.StatusNormalClosure, ws.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					g.logf("websocket read: %v", err)
				}
			}
			return
		}
		reply := g.handle(ctx, who, data)
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			g.logf("websocket write: %v", err)
			return
		}
	}
}

func (g *Gateway) handle(ctx context.Context, who identity, data []byte) Reply {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil || (req.Command == nil) == (req.Event == nil) {
		return g.errorReply(req.ID, who, ErrMalformedRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		resp ui.Response
		err  error
		what string
	)
	if req.Command != nil {
		what = req.Command.Name
		resp, err = g.router.HandleCommand(ctx, ui.Command{
			Name:        req.Command.Name,
			GuildID:     who.guildID,
			UserID:      who.userID,
			Locale:      who.locale,
			Moderator:   who.moderator,
			CharacterID: req.Command.CharacterID,
			Initiative:  req.Command.Initiative,
		})
	} else {
		what = req.Event.CustomID
		ev := ui.Event{
			Kind:      ui.Click,
			CustomID:  req.Event.CustomID,
			Values:    req.Event.Values,
			Source:    req.Event.Source,
			GuildID:   who.guildID,
			UserID:    who.userID,
			Locale:    who.locale,
			Moderator: who.moderator,
		}
		if req.Event.Values != nil {
			ev.Kind = ui.SelectionChanged
		}
		resp, err = g.router.HandleEvent(ctx, ev)
	}
	if err != nil {
		if !apperrors.IsUserFacing(err) && !errors.Is(err, ui.ErrUnhandled) {
			g.logf("combat %s in guild %s failed: %v", what, who.guildID, err)
		}
		return g.errorReply(req.ID, who, err)
	}
	return g.reply(req.ID, resp)
}

func (g *Gateway) reply(replyTo string, resp ui.Response) Reply {
	out := Reply{ID: g.newID(), ReplyTo: replyTo, Kind: resp.Kind.String()}
	if resp.Kind != ui.Delete {
		msg := resp.Message
		out.Message = &msg
	}
	return out
}

func (g *Gateway) errorReply(replyTo string, who identity, err error) Reply {
	resp, _ := ui.ErrorResponse(who.locale, err)
	out := g.reply(replyTo, resp)
	out.Error = string(apperrors.CodeOf(err))
	return out
}

func identityFrom(r *http.Request) identity {
	q := r.URL.Query()
	moderator, _ := strconv.ParseBool(q.Get("moderator"))
	return identity{
		guildID:   strings.TrimSpace(q.Get("guild")),
		userID:    strings.TrimSpace(q.Get("user")),
		locale:    q.Get("locale"),
		moderator: moderator,
	}
}
