// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/roomcast/server/internal/protocol"
	"github.com/roomcast/server/internal/room"
	"github.com/roomcast/server/internal/ws"
)

// SignalWSHandler upgrades the HTTP connection, registers it with the
// gateway and runs the read loop until the client goes away. All room state
// changes flow through the registry; the handler only decodes and
// dispatches.
func SignalWSHandler(logger *logrus.Logger, gw *ws.Gateway, reg *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"signaling"},
			OriginPatterns: []string{"*"}, // adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer sock.Close(websocket.StatusInternalError, "handler finished")

		ctx, cancel := context.WithCancel(r.Context())
		conn := gw.Open(cancel)

		logger.WithFields(logrus.Fields{
			"conn":   conn.ID,
			"remote": r.RemoteAddr,
		}).Info("websocket connected")

		go conn.Pump(ctx, sock)

		readLoop(ctx, sock, conn, reg, logger)

		// Close fires the registry's disconnect scan exactly once, which
		// removes this connection from any room it was still in.
		gw.Close(conn.ID)
		logger.WithField("conn", conn.ID).Info("websocket disconnected")
	}
}

// readLoop reads frames until the socket closes and dispatches each one.
func readLoop(ctx context.Context, sock *websocket.Conn, conn *ws.Conn, reg *room.Registry, logger *logrus.Logger) {
	for {
		typ, data, err := sock.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			if strings.Contains(err.Error(), "context canceled") {
				return
			}
			logger.Warnf("conn %s: read error: %v", conn.ID, err)
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("conn %s: ignoring non-text message type %d", conn.ID, typ)
			continue
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warnf("conn %s: invalid frame: %v", conn.ID, err)
			continue
		}
		dispatch(conn.ID, env, reg, logger)
	}
}

// dispatch decodes the payload for its event and hands the typed value to
// the registry. Undecodable payloads and unknown events are dropped: no
// error surfaces to either party on any relay path.
func dispatch(connID string, env protocol.Envelope, reg *room.Registry, logger *logrus.Logger) {
	switch env.Event {
	case protocol.EventJoinRoom:
		var p protocol.JoinRoom
		if decode(connID, env, &p, logger) {
			reg.Join(connID, p)
		}
	case protocol.EventLeaveRoom:
		var p protocol.LeaveRoom
		if decode(connID, env, &p, logger) {
			reg.Leave(connID, p)
		}
	case protocol.EventSendingSignal:
		var p protocol.SendingSignal
		if decode(connID, env, &p, logger) {
			reg.ForwardOffer(connID, p)
		}
	case protocol.EventReturningSignal:
		var p protocol.ReturningSignal
		if decode(connID, env, &p, logger) {
			reg.ForwardAnswer(connID, p)
		}
	case protocol.EventMuteStatus:
		var p protocol.StatusChange
		if decode(connID, env, &p, logger) {
			reg.SetMuted(connID, p)
		}
	case protocol.EventCameraStatus:
		var p protocol.StatusChange
		if decode(connID, env, &p, logger) {
			reg.SetCamera(connID, p)
		}
	case protocol.EventRaiseHand:
		var p protocol.StatusChange
		if decode(connID, env, &p, logger) {
			reg.RaiseHand(connID, p)
		}
	case protocol.EventTyping:
		var p protocol.Typing
		if decode(connID, env, &p, logger) {
			reg.Typing(connID, p)
		}
	case protocol.EventChatMessage:
		var p protocol.ChatMessage
		if decode(connID, env, &p, logger) {
			reg.Chat(connID, p)
		}
	case protocol.EventGetPublicRooms:
		reg.PublicRooms(connID)
	default:
		logger.Debugf("conn %s: unknown event %q ignored", connID, env.Event)
	}
}

// decode unmarshals the envelope payload into dst, logging and reporting
// false on malformed data.
func decode(connID string, env protocol.Envelope, dst any, logger *logrus.Logger) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		logger.Warnf("conn %s: malformed %s payload dropped: %v", connID, env.Event, err)
		return false
	}
	return true
}
