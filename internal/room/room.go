// internal/room/room.go
package room

import (
	"time"

	"github.com/roomcast/server/internal/protocol"
)

// Member is one connection's membership record within a room: the
// gateway-assigned connection id plus the client-asserted profile.
type Member struct {
	ConnID string
	User   protocol.UserProfile
}

// Room is a named session grouping a set of live connections. Host and
// IsPrivate are fixed at creation: the host stays the first joiner's name
// even after that member leaves, and the privacy flag of later joins is
// ignored. Members keeps insertion order, which is join order.
//
// A Room exists in the registry iff it has at least one member or a pending
// eviction timer; the timer handle lives on the entity itself so that
// canceling it is a single check-and-clear under the registry lock.
type Room struct {
	ID        string
	Members   []Member
	Host      string
	IsPrivate bool

	// ExpiresAt is Unix milliseconds while eviction is pending, nil while
	// the room is live.
	ExpiresAt  *int64
	evictTimer *time.Timer
}

// memberIndex returns the position of connID in the member list, or -1.
func (rm *Room) memberIndex(connID string) int {
	for i, m := range rm.Members {
		if m.ConnID == connID {
			return i
		}
	}
	return -1
}

// removeMember deletes connID from the member list, preserving the order of
// the rest. Reports whether the member was present.
func (rm *Room) removeMember(connID string) bool {
	i := rm.memberIndex(connID)
	if i < 0 {
		return false
	}
	rm.Members = append(rm.Members[:i], rm.Members[i+1:]...)
	return true
}

// snapshot returns the current membership in join order.
func (rm *Room) snapshot() []protocol.MemberInfo {
	out := make([]protocol.MemberInfo, 0, len(rm.Members))
	for _, m := range rm.Members {
		out = append(out, protocol.MemberInfo{ConnectionID: m.ConnID, User: m.User})
	}
	return out
}

// others returns the membership excluding connID, in join order. This is
// the seed list a joiner uses to initiate its outbound peer links.
func (rm *Room) others(connID string) []protocol.MemberInfo {
	out := make([]protocol.MemberInfo, 0, len(rm.Members))
	for _, m := range rm.Members {
		if m.ConnID == connID {
			continue
		}
		out = append(out, protocol.MemberInfo{ConnectionID: m.ConnID, User: m.User})
	}
	return out
}
