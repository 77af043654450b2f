// internal/ws/gateway_test.go
package ws

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway() *Gateway {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewGateway(logger)
}

// drain pulls everything currently buffered on a connection's out channel.
func drain(c *Conn) []Outbound {
	var out []Outbound
	for {
		select {
		case msg := <-c.out:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestOpenAssignsUniqueIDs(t *testing.T) {
	g := newTestGateway()
	a := g.Open(nil)
	b := g.Open(nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSendToUnknownIsNoop(t *testing.T) {
	g := newTestGateway()
	assert.NotPanics(t, func() {
		g.SendTo("nobody", "chat-message", "hello")
	})
}

func TestBroadcastToGroupHonorsExclusion(t *testing.T) {
	g := newTestGateway()
	a := g.Open(nil)
	b := g.Open(nil)
	c := g.Open(nil)
	g.JoinGroup(a.ID, "r1")
	g.JoinGroup(b.ID, "r1")
	g.JoinGroup(c.ID, "r2")

	g.BroadcastToGroup("r1", "user-typing", "Alice", a.ID)

	assert.Empty(t, drain(a))
	frames := drain(b)
	require.Len(t, frames, 1)
	assert.Equal(t, "user-typing", frames[0].Event)
	assert.Equal(t, "Alice", frames[0].Data)
	assert.Empty(t, drain(c))
}

func TestBroadcastWithoutExclusionReachesAllMembers(t *testing.T) {
	g := newTestGateway()
	a := g.Open(nil)
	b := g.Open(nil)
	g.JoinGroup(a.ID, "r1")
	g.JoinGroup(b.ID, "r1")

	g.BroadcastToGroup("r1", "user-muted", true, "")

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestLeaveGroupStopsDelivery(t *testing.T) {
	g := newTestGateway()
	a := g.Open(nil)
	b := g.Open(nil)
	g.JoinGroup(a.ID, "r1")
	g.JoinGroup(b.ID, "r1")
	g.LeaveGroup(b.ID, "r1")

	g.BroadcastToGroup("r1", "room-users", nil, "")

	assert.Len(t, drain(a), 1)
	assert.Empty(t, drain(b))
}

func TestSendToAllReachesUngroupedConnections(t *testing.T) {
	g := newTestGateway()
	a := g.Open(nil)
	b := g.Open(nil)
	g.JoinGroup(a.ID, "r1")

	g.SendToAll("public-rooms", nil)

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestCloseFiresDisconnectOnce(t *testing.T) {
	g := newTestGateway()
	var fired []string
	g.OnDisconnect(func(id string) { fired = append(fired, id) })

	a := g.Open(nil)
	g.JoinGroup(a.ID, "r1")
	g.Close(a.ID)
	g.Close(a.ID)

	require.Len(t, fired, 1)
	assert.Equal(t, a.ID, fired[0])

	// Gone from its group and from unicast.
	g.BroadcastToGroup("r1", "chat-message", nil, "")
	g.SendTo(a.ID, "chat-message", nil)
	// The closed channel drops writes instead of panicking.
	assert.NotPanics(t, func() { a.Write(Outbound{Event: "chat-message"}) })
}

func TestWriteDropsWhenBufferFull(t *testing.T) {
	g := newTestGateway()
	a := g.Open(nil)
	for i := 0; i < cap(a.out)+10; i++ {
		a.Write(Outbound{Event: "public-rooms"})
	}
	assert.Len(t, drain(a), cap(a.out))
}
