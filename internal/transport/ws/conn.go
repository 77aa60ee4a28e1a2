// Package ws serves the bidirectional websocket stream: fanout events out, player actions in.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/model"
	"github.com/mcoot/duelgame/internal/services/gameplay"
	"github.com/mcoot/duelgame/internal/transport"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size
	maxMessageSize = 4096

	// Buffer for replies waiting on the write pump
	replyBuffer = 16
)

// errBadFrame marks inbound frames that could not be understood
var errBadFrame = errors.New("malformed frame")

// Handler upgrades authenticated requests and runs one connection per request
type Handler struct {
	controller *gameplay.Controller
	streams    *transport.Streams
	broker     *fanout.Broker
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHandler creates a new websocket Handler
func NewHandler(controller *gameplay.Controller, streams *transport.Streams, logger *slog.Logger) *Handler {
	return &Handler{
		controller: controller,
		streams:    streams,
		broker:     streams.Broker(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // tokens, not cookies, authenticate the stream
			},
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// conn is one live websocket for one player
type conn struct {
	h       *Handler
	ws      *websocket.Conn
	sub     *fanout.Subscriber
	player  model.PlayerID
	replies chan Reply
	logger  *slog.Logger
}

// Serve subscribes playerID, upgrades the request and blocks until the connection ends
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, playerID model.PlayerID) error {
	sub, err := h.streams.Open(r.Context(), playerID)
	if err != nil {
		return err
	}
	defer h.streams.Release(context.WithoutCancel(r.Context()), sub)

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Debug("ws upgrade failed", slog.Any("error", err))
		return nil
	}

	c := &conn{
		h:       h,
		ws:      wsConn,
		sub:     sub,
		player:  playerID,
		replies: make(chan Reply, replyBuffer),
		logger: h.logger.With(
			slog.String("player_id", string(playerID)),
			slog.String("subscriber_id", sub.ID())),
	}
	c.logger.Debug("ws connected")

	// The request context ends with the handler; actions need their own
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		c.readPump(ctx)
	}()
	c.writePump(readDone)

	_ = wsConn.Close()
	<-readDone
	c.logger.Debug("ws disconnected", slog.Uint64("dropped", sub.Dropped()))
	return nil
}

// readPump decodes inbound frames and runs them one at a time
func (c *conn) readPump(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := c.ws.ReadJSON(&in); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.reply(errorReply("", fmt.Errorf("%w: %v", errBadFrame, err)))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("ws read error", slog.Any("error", err))
			}
			return
		}
		c.reply(c.dispatch(ctx, in))
	}
}

// reply queues a reply without blocking the read loop behind a stalled writer
func (c *conn) reply(r Reply) {
	select {
	case c.replies <- r:
	default:
		c.logger.Warn("ws reply dropped - buffer full", slog.String("request", r.Payload.Request))
	}
}

func (c *conn) dispatch(ctx context.Context, in Inbound) Reply {
	result, err := c.handle(ctx, in)
	if err != nil {
		return errorReply(in.Type, err)
	}
	return okReply(in.Type, result)
}

func (c *conn) handle(ctx context.Context, in Inbound) (any, error) {
	switch in.Type {
	case FrameInvite:
		var d InviteData
		if err := decode(in.Data, &d); err != nil {
			return nil, err
		}
		return nil, c.h.controller.Propose(ctx, c.player, d.To)

	case FrameInviteResponse:
		var d InviteResponseData
		if err := decode(in.Data, &d); err != nil {
			return nil, err
		}
		outcome, err := c.h.controller.Respond(ctx, c.player, d.From, d.Accept)
		if err != nil {
			return nil, err
		}
		if outcome.Session == nil {
			return nil, nil
		}
		return model.NewSessionPayload(outcome.Session), nil

	case FrameMove:
		var d MoveData
		if err := decode(in.Data, &d); err != nil {
			return nil, err
		}
		move, err := c.h.controller.SubmitMove(ctx, c.player, d.SessionID, gameplay.MoveInput{
			From:  d.From,
			To:    d.To,
			Piece: d.Piece,
		})
		if err != nil {
			return nil, err
		}
		return model.NewMovePayload(move), nil

	case FrameJoinSession:
		var d SessionData
		if err := decode(in.Data, &d); err != nil {
			return nil, err
		}
		// Only participants get near the session channel
		if _, err := c.h.controller.Seat(ctx, c.player, d.SessionID); err != nil {
			return nil, err
		}
		// Subscribe before announcing so the stream sees its own player-joined
		if err := c.h.broker.Subscribe(c.sub, model.SessionChannel(d.SessionID)); err != nil {
			return nil, err
		}
		s, err := c.h.controller.Join(ctx, c.player, d.SessionID)
		if err != nil {
			c.h.broker.Unsubscribe(c.sub, model.SessionChannel(d.SessionID))
			return nil, err
		}
		return model.NewSessionPayload(s), nil

	case FrameLeaveSession:
		var d SessionData
		if err := decode(in.Data, &d); err != nil {
			return nil, err
		}
		c.h.broker.Unsubscribe(c.sub, model.SessionChannel(d.SessionID))
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", errBadFrame, in.Type)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", errBadFrame)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadFrame, err)
	}
	return nil
}

// writePump is the only writer on the connection
func (c *conn) writePump(readDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.sub.Events():
			c.h.broker.FollowStartedSession(c.sub, event)
			if err := c.write(event); err != nil {
				return
			}

		case r := <-c.replies:
			if err := c.write(r); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.sub.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-readDone:
			return
		}
	}
}

func (c *conn) write(v any) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(v); err != nil {
		c.logger.Debug("ws write failed", slog.Any("error", err))
		return err
	}
	return nil
}
