// internal/room/relay.go
package room

import (
	"github.com/roomcast/server/internal/protocol"
)

// The relay methods below forward opaque payloads between connections
// without touching registry state, so none of them take the registry lock.
// Per-connection message order on the underlying channel is all the
// ordering the handshake needs: each pair negotiates independently.

// signalAbsent reports whether an opaque signal payload is missing. A
// field that was omitted, empty, or an explicit JSON null all count as
// absent; forwarding a null would feed it straight into the receiver's
// peer library.
func signalAbsent(signal []byte) bool {
	return len(signal) == 0 || string(signal) == "null"
}

// ForwardOffer delivers an opaque offer to its target, tagged with the
// caller id the initiator supplied. An absent signal is dropped silently;
// so is a target that already disconnected.
func (r *Registry) ForwardOffer(connID string, msg protocol.SendingSignal) {
	if signalAbsent(msg.Signal) {
		r.log.WithField("conn", connID).Debug("offer without signal dropped")
		return
	}
	r.send.SendTo(msg.TargetID, protocol.EventUserJoined, protocol.UserJoined{
		Signal:   msg.Signal,
		CallerID: msg.CallerID,
	})
}

// ForwardAnswer delivers an opaque answer back to the initiator, tagged
// with the answering peer's connection id.
func (r *Registry) ForwardAnswer(connID string, msg protocol.ReturningSignal) {
	if signalAbsent(msg.Signal) {
		r.log.WithField("conn", connID).Debug("answer without signal dropped")
		return
	}
	r.send.SendTo(msg.CallerID, protocol.EventReturnedSignal, protocol.ReturnedSignal{
		ID:     connID,
		Signal: msg.Signal,
	})
}

// SetMuted fans a mute change out to the whole room, the sender included.
func (r *Registry) SetMuted(connID string, msg protocol.StatusChange) {
	r.broadcastStatus(protocol.EventUserMuted, connID, msg)
}

// SetCamera fans a camera change out to the whole room, the sender
// included.
func (r *Registry) SetCamera(connID string, msg protocol.StatusChange) {
	r.broadcastStatus(protocol.EventUserCameraUpdated, connID, msg)
}

// RaiseHand fans a hand-raise change out to the whole room, the sender
// included.
func (r *Registry) RaiseHand(connID string, msg protocol.StatusChange) {
	r.broadcastStatus(protocol.EventUserRaisedHand, connID, msg)
}

// broadcastStatus relays one presence flag. Nothing is stored and nothing
// is deduplicated: repeated identical statuses go out every time, and a
// late joiner learns a peer's state only when that peer re-asserts it.
func (r *Registry) broadcastStatus(event, connID string, msg protocol.StatusChange) {
	r.send.BroadcastToGroup(msg.RoomID, event, protocol.PeerStatus{
		PeerID: connID,
		Status: msg.Status,
	}, "")
}

// Typing broadcasts the sender's display name to the rest of the room.
// There is no stopped-typing signal; receivers expire the indicator on
// their own clock, and repeats are forwarded as-is.
func (r *Registry) Typing(connID string, msg protocol.Typing) {
	r.send.BroadcastToGroup(msg.RoomID, protocol.EventUserTyping, msg.User.Name, connID)
}

// Chat relays a message to every other member, then echoes it to the
// sender with the self marker so the sending client can render "you"
// without comparing identities. No history is kept.
func (r *Registry) Chat(connID string, msg protocol.ChatMessage) {
	out := protocol.ChatMessage{
		User:    msg.User,
		Profile: msg.Profile,
		Time:    msg.Time,
		Text:    msg.Text,
	}
	r.send.BroadcastToGroup(msg.RoomID, protocol.EventChatMessage, out, connID)

	out.Self = true
	r.send.SendTo(connID, protocol.EventChatMessage, out)
	r.record("chat-message", msg.RoomID, connID)
}
