// internal/room/registry.go
package room

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roomcast/server/internal/protocol"
)

// DefaultEvictDelay is how long an empty room survives before its state is
// destroyed, unless someone rejoins first.
const DefaultEvictDelay = 5 * time.Minute

// Sender is the outbound half of the connection gateway as the registry
// sees it. All sends are fire-and-forget; a dead target is a no-op.
type Sender interface {
	SendTo(connID, event string, data any)
	BroadcastToGroup(roomID, event string, data any, excluding string)
	SendToAll(event string, data any)
	JoinGroup(connID, roomID string)
	LeaveGroup(connID, roomID string)
}

// Recorder receives room lifecycle events for the async journal. Record
// must never block.
type Recorder interface {
	Record(kind, roomID, connID string)
}

// Registry is the process-wide room table plus the lifecycle manager. One
// mutex serializes every inbound-event handler and every eviction timer
// callback, so membership mutations are atomic; nothing blocks while
// holding it because every send is a non-blocking enqueue.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	send Sender
	log  *logrus.Logger

	// EvictDelay and Journal may be adjusted after construction, before
	// the registry starts receiving events.
	EvictDelay time.Duration
	Journal    Recorder
}

// NewRegistry returns an empty registry bound to the given sender.
func NewRegistry(send Sender, log *logrus.Logger) *Registry {
	return &Registry{
		rooms:      make(map[string]*Room),
		send:       send,
		log:        log,
		EvictDelay: DefaultEvictDelay,
	}
}

// Join runs the join protocol for one connection. Room ids are opaque and
// externally generated; an unknown id creates the room with the joiner as
// host. Capacity and PIN checks happened upstream, so none are repeated
// here.
func (r *Registry) Join(connID string, msg protocol.JoinRoom) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[msg.RoomID]
	if !ok {
		rm = &Room{
			ID:        msg.RoomID,
			Host:      msg.User.Name,
			IsPrivate: msg.IsPrivate,
		}
		r.rooms[msg.RoomID] = rm
		r.log.WithFields(logrus.Fields{
			"room":    rm.ID,
			"host":    rm.Host,
			"private": rm.IsPrivate,
		}).Info("room created")
		r.record("room-created", rm.ID, connID)
	}

	// Group membership is established before anything is broadcast so the
	// joiner itself hears the timer-cleared notice on a rejoin.
	r.send.JoinGroup(connID, rm.ID)

	// A rejoin during the eviction window revives the room with its
	// original host and privacy intact.
	if r.cancelEvictionLocked(rm) {
		r.log.WithField("room", rm.ID).Info("eviction canceled by rejoin")
	}

	added := rm.memberIndex(connID) < 0
	if added {
		rm.Members = append(rm.Members, Member{ConnID: connID, User: msg.User})
		r.record("join", rm.ID, connID)
	}

	// Seed list goes to the joiner alone; it initiates an outbound link to
	// each entry. Repeated on duplicate joins, which touch nothing above.
	others := rm.others(connID)
	r.send.SendTo(connID, protocol.EventAllUsers, others)

	// Existing members get a bare hint to expect an incoming offer. Only a
	// genuinely new member triggers it; a duplicate join must not make
	// peers wait for offers that never come.
	if added && len(others) > 0 {
		user := msg.User
		r.send.BroadcastToGroup(rm.ID, protocol.EventUserJoined, protocol.UserJoined{
			CallerID: connID,
			User:     &user,
		}, connID)
	}

	r.publishDirectoryLocked()
}

// Leave handles an explicit leave-room. Unknown rooms and non-members are
// silent no-ops.
func (r *Registry) Leave(connID string, msg protocol.LeaveRoom) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[msg.RoomID]
	if !ok || !rm.removeMember(connID) {
		return
	}
	r.send.LeaveGroup(connID, rm.ID)
	r.record("leave", rm.ID, connID)
	r.afterDepartureLocked(rm)
	r.publishDirectoryLocked()
}

// Disconnect handles a raw connection drop. The event carries no room
// association, so every registered room is scanned for the departing id,
// an accepted cost at single-digit room counts.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	touched := false
	for _, rm := range r.rooms {
		if !rm.removeMember(connID) {
			continue
		}
		r.send.LeaveGroup(connID, rm.ID)
		r.record("disconnect", rm.ID, connID)
		r.afterDepartureLocked(rm)
		touched = true
	}
	if touched {
		r.publishDirectoryLocked()
	}
}

// afterDepartureLocked broadcasts the post-departure membership snapshot
// and arms eviction if the room just emptied.
func (r *Registry) afterDepartureLocked(rm *Room) {
	r.send.BroadcastToGroup(rm.ID, protocol.EventRoomUsers, rm.snapshot(), "")
	if len(rm.Members) == 0 {
		r.scheduleEvictionLocked(rm)
	}
}

// scheduleEvictionLocked arms the single eviction timer for an empty room
// and broadcasts the countdown. The broadcast usually reaches nobody, but a
// client racing a reconnect may still be in the group.
func (r *Registry) scheduleEvictionLocked(rm *Room) {
	exp := time.Now().Add(r.EvictDelay).UnixMilli()
	rm.ExpiresAt = &exp
	r.send.BroadcastToGroup(rm.ID, protocol.EventRoomEmptyTimer, protocol.RoomEmptyTimer{ExpiresAt: &exp}, "")

	var timer *time.Timer
	timer = time.AfterFunc(r.EvictDelay, func() {
		r.evict(rm.ID, timer)
	})
	rm.evictTimer = timer
	r.log.WithFields(logrus.Fields{"room": rm.ID, "expiresAt": exp}).Info("room empty, eviction armed")
}

// cancelEvictionLocked is the atomic check-and-cancel: the handle is
// stopped and cleared in one step under the registry lock, so a stale timer
// can never destroy a revived room. Reports whether a timer was pending.
func (r *Registry) cancelEvictionLocked(rm *Room) bool {
	if rm.evictTimer == nil {
		return false
	}
	rm.evictTimer.Stop()
	rm.evictTimer = nil
	rm.ExpiresAt = nil
	r.send.BroadcastToGroup(rm.ID, protocol.EventRoomEmptyTimer, protocol.RoomEmptyTimer{}, "")
	return true
}

// evict is the timer callback. It re-checks the handle identity under the
// lock: if the room was revived (or revived and emptied again, arming a
// fresh timer) this invocation is stale and does nothing.
func (r *Registry) evict(roomID string, timer *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok || rm.evictTimer != timer {
		return
	}
	rm.evictTimer = nil
	delete(r.rooms, roomID)
	r.log.WithField("room", roomID).Info("room evicted")
	r.record("room-destroyed", roomID, "")
	r.publishDirectoryLocked()
}

// PublicRooms answers a directory query for one connection.
func (r *Registry) PublicRooms(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send.SendTo(connID, protocol.EventPublicRooms, r.directoryLocked())
}

// publishDirectoryLocked pushes the directory to every connection, grouped
// or not; lobby pages listen before ever joining a room.
func (r *Registry) publishDirectoryLocked() {
	r.send.SendToAll(protocol.EventPublicRooms, r.directoryLocked())
}

// directoryLocked computes the public directory on demand: every
// non-private room, sorted by id for stable output. Private rooms never
// appear regardless of activity.
func (r *Registry) directoryLocked() []protocol.DirectoryEntry {
	entries := make([]protocol.DirectoryEntry, 0, len(r.rooms))
	for _, rm := range r.rooms {
		if rm.IsPrivate {
			continue
		}
		entries = append(entries, protocol.DirectoryEntry{
			RoomID:    rm.ID,
			Host:      rm.Host,
			Users:     len(rm.Members),
			ExpiresAt: rm.ExpiresAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RoomID < entries[j].RoomID })
	return entries
}

// record forwards to the journal when one is configured.
func (r *Registry) record(kind, roomID, connID string) {
	if r.Journal != nil {
		r.Journal.Record(kind, roomID, connID)
	}
}
