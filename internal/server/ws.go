package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wsReplyTimeout bounds a single assistant exchange inside a websocket
// session, so one stuck LLM call cannot pin the connection forever.
const wsReplyTimeout = 30 * time.Second

// wsMessage is the frame format in both directions on /v1/chat/ws.
type wsMessage struct {
	Message string `json:"message"`
}

// handleChatWS upgrades to a websocket and runs a chat session: every
// incoming text frame gets exactly one reply frame. The greeting is sent
// immediately on connect. The session ends when the client closes the
// connection or the request context is cancelled.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	s.metrics.ChatSessionStarted(ctx)
	defer s.metrics.ChatSessionEnded(context.WithoutCancel(ctx))

	if err := wsjson.Write(ctx, conn, wsMessage{Message: s.bot.Greeting()}); err != nil {
		return
	}

	for {
		var in wsMessage
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			// Normal closure and context cancellation both land here.
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				s.logger.Debug("websocket read ended", "err", err)
			}
			return
		}

		replyCtx, cancel := context.WithTimeout(ctx, wsReplyTimeout)
		reply, err := s.bot.Respond(replyCtx, in.Message)
		cancel()
		if err != nil {
			s.logger.Error("chat response failed", "err", err)
			reply = "Sorry, I could not process that just now. Please try again."
		}

		if err := wsjson.Write(ctx, conn, wsMessage{Message: reply}); err != nil {
			return
		}
	}
}
