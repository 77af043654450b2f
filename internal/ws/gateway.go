// internal/ws/gateway.go
package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Gateway tracks every live connection and the broadcast group each room
// maps to. Delivery is best-effort with no acknowledgment: sends to unknown
// connections are silent no-ops.
type Gateway struct {
	mu           sync.Mutex
	conns        map[string]*Conn
	groups       map[string]map[string]*Conn // roomID -> connID -> conn
	onDisconnect func(connID string)

	log *logrus.Logger
}

// NewGateway returns an empty gateway.
func NewGateway(log *logrus.Logger) *Gateway {
	return &Gateway{
		conns:  make(map[string]*Conn),
		groups: make(map[string]map[string]*Conn),
		log:    log,
	}
}

// OnDisconnect registers the callback fired once per connection teardown.
// Set it during wiring, before any connection is opened.
func (g *Gateway) OnDisconnect(fn func(connID string)) {
	g.onDisconnect = fn
}

// Open registers a new connection and assigns its id. The returned cancel
// is wired into the connection so teardown stops its pump.
func (g *Gateway) Open(cancel context.CancelFunc) *Conn {
	conn := &Conn{
		ID:     uuid.NewString(),
		out:    make(chan Outbound, 32),
		cancel: cancel,
		log:    g.log,
	}
	g.mu.Lock()
	g.conns[conn.ID] = conn
	g.mu.Unlock()
	return conn
}

// Close deregisters the connection, removes it from every group, closes its
// out channel and fires the disconnect callback. Safe to call for an id
// that was already closed.
func (g *Gateway) Close(connID string) {
	g.mu.Lock()
	conn, ok := g.conns[connID]
	if ok {
		delete(g.conns, connID)
		for roomID, group := range g.groups {
			delete(group, connID)
			if len(group) == 0 {
				delete(g.groups, roomID)
			}
		}
	}
	fn := g.onDisconnect
	g.mu.Unlock()

	if !ok {
		return
	}
	conn.close()
	// Fired outside the lock: the callback re-enters the gateway to
	// broadcast departure notices.
	if fn != nil {
		fn(connID)
	}
}

// JoinGroup adds the connection to a room's broadcast group. Unknown
// connection ids are ignored.
func (g *Gateway) JoinGroup(connID, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	conn, ok := g.conns[connID]
	if !ok {
		return
	}
	group, ok := g.groups[roomID]
	if !ok {
		group = make(map[string]*Conn)
		g.groups[roomID] = group
	}
	group[connID] = conn
}

// LeaveGroup removes the connection from a room's broadcast group.
func (g *Gateway) LeaveGroup(connID, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group, ok := g.groups[roomID]
	if !ok {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(g.groups, roomID)
	}
}

// SendTo delivers a single frame to one connection. A no-op, not an error,
// if the connection is gone.
func (g *Gateway) SendTo(connID, event string, data any) {
	g.mu.Lock()
	conn, ok := g.conns[connID]
	g.mu.Unlock()
	if !ok {
		return
	}
	conn.Write(Outbound{Event: event, Data: data})
}

// BroadcastToGroup fans a frame out to every member of a room's group,
// skipping the excluded connection id when non-empty.
func (g *Gateway) BroadcastToGroup(roomID, event string, data any, excluding string) {
	g.mu.Lock()
	group := g.groups[roomID]
	targets := make([]*Conn, 0, len(group))
	for id, conn := range group {
		if excluding != "" && id == excluding {
			continue
		}
		targets = append(targets, conn)
	}
	g.mu.Unlock()

	for _, conn := range targets {
		conn.Write(Outbound{Event: event, Data: data})
	}
}

// SendToAll fans a frame out to every live connection, grouped or not.
// Used for public directory pushes.
func (g *Gateway) SendToAll(event string, data any) {
	g.mu.Lock()
	targets := make([]*Conn, 0, len(g.conns))
	for _, conn := range g.conns {
		targets = append(targets, conn)
	}
	g.mu.Unlock()

	for _, conn := range targets {
		conn.Write(Outbound{Event: event, Data: data})
	}
}
