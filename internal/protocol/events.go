// internal/protocol/events.go
package protocol

import "encoding/json"

// Event names accepted from clients.
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventSendingSignal   = "sending-signal"
	EventReturningSignal = "returning-signal"
	EventMuteStatus      = "mute-status"
	EventCameraStatus    = "camera-status"
	EventRaiseHand       = "raise-hand"
	EventTyping          = "typing"
	EventChatMessage     = "chat-message"
	EventGetPublicRooms  = "get-public-rooms"
)

// Event names emitted to clients.
const (
	EventAllUsers          = "all-users"
	EventUserJoined        = "user-joined"
	EventReturnedSignal    = "receiving-returned-signal"
	EventRoomUsers         = "room-users"
	EventRoomEmptyTimer    = "room-empty-timer"
	EventUserMuted         = "user-muted"
	EventUserCameraUpdated = "user-camera-updated"
	EventUserRaisedHand    = "user-raised-hand"
	EventUserTyping        = "user-typing"
	EventPublicRooms       = "public-rooms"
)

// Envelope is the frame exchanged in both directions: an event tag plus the
// event-specific payload. Payloads are decoded once here at the boundary so
// the relay logic downstream only ever sees typed values.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UserProfile is the client-asserted identity carried on join, chat and
// typing events. The coordinator never authenticates it.
type UserProfile struct {
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// JoinRoom is the join-room payload. IsPrivate only matters on the join
// that creates the room; later joins carry it but it is ignored.
type JoinRoom struct {
	RoomID    string      `json:"roomId"`
	User      UserProfile `json:"user"`
	IsPrivate bool        `json:"isPrivate,omitempty"`
}

// LeaveRoom is the leave-room payload.
type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

// SendingSignal carries an opaque offer from an initiating peer. CallerID is
// forwarded as given; the relay does not verify it matches the sender.
type SendingSignal struct {
	TargetID string          `json:"targetId"`
	CallerID string          `json:"callerId"`
	Signal   json.RawMessage `json:"signal,omitempty"`
}

// ReturningSignal carries an opaque answer back toward the initiator
// identified by CallerID.
type ReturningSignal struct {
	CallerID string          `json:"callerId"`
	Signal   json.RawMessage `json:"signal,omitempty"`
}

// StatusChange is the shared payload of mute-status, camera-status and
// raise-hand. Clients may attach extra fields (raise-hand includes the user
// profile); only the room and the boolean matter to the coordinator.
type StatusChange struct {
	RoomID string `json:"roomId"`
	Status bool   `json:"status"`
}

// Typing is the typing payload; only the display name is rebroadcast.
type Typing struct {
	RoomID string      `json:"roomId"`
	User   UserProfile `json:"user"`
}

// ChatMessage is the chat payload in both directions. Profile and Time are
// produced by the sending client and passed through untouched. Self is set
// only on the echo back to the sender.
type ChatMessage struct {
	RoomID  string `json:"roomId,omitempty"`
	User    string `json:"user"`
	Profile string `json:"profile,omitempty"`
	Time    string `json:"time,omitempty"`
	Text    string `json:"text"`
	Self    bool   `json:"self,omitempty"`
}

// MemberInfo is one entry of the all-users seed list and of room-users
// membership snapshots.
type MemberInfo struct {
	ConnectionID string      `json:"connectionId"`
	User         UserProfile `json:"user"`
}

// UserJoined is delivered to an existing member either as a bare new-peer
// hint (Signal nil, User set) or as a relayed offer (Signal set).
type UserJoined struct {
	Signal   json.RawMessage `json:"signal"`
	CallerID string          `json:"callerId"`
	User     *UserProfile    `json:"user,omitempty"`
}

// ReturnedSignal delivers an answer to the peer that sent the offer. ID is
// the connection id of the answering peer.
type ReturnedSignal struct {
	ID     string          `json:"id"`
	Signal json.RawMessage `json:"signal"`
}

// PeerStatus is the fan-out shape of all three presence events.
type PeerStatus struct {
	PeerID string `json:"peerId"`
	Status bool   `json:"status"`
}

// RoomEmptyTimer announces an eviction countdown. ExpiresAt is Unix
// milliseconds, or null when a pending eviction has been canceled.
type RoomEmptyTimer struct {
	ExpiresAt *int64 `json:"expiresAt"`
}

// DirectoryEntry is one row of the public-rooms listing. Users is the live
// member count; ExpiresAt is set only while the room is pending eviction.
type DirectoryEntry struct {
	RoomID    string `json:"roomId"`
	Host      string `json:"host"`
	Users     int    `json:"users"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}
