// internal/handlers/ws_test.go
package handlers

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/server/internal/protocol"
	"github.com/roomcast/server/internal/room"
)

// recordingSender captures unicast deliveries; enough to observe dispatch
// effects without a live gateway.
type recordingSender struct {
	mu     sync.Mutex
	direct map[string][]string // connID -> event names
}

func newRecordingSender() *recordingSender {
	return &recordingSender{direct: make(map[string][]string)}
}

func (s *recordingSender) SendTo(connID, event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direct[connID] = append(s.direct[connID], event)
}

func (s *recordingSender) BroadcastToGroup(roomID, event string, data any, excluding string) {}

func (s *recordingSender) SendToAll(event string, data any) {}

func (s *recordingSender) JoinGroup(connID, roomID string) {}

func (s *recordingSender) LeaveGroup(connID, roomID string) {}

func (s *recordingSender) eventsFor(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.direct[connID]...)
}

func setupDispatch() (*room.Registry, *recordingSender, *logrus.Logger) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	sender := newRecordingSender()
	return room.NewRegistry(sender, logger), sender, logger
}

func env(event, data string) protocol.Envelope {
	return protocol.Envelope{Event: event, Data: json.RawMessage(data)}
}

func TestDispatchJoinSeedsJoiner(t *testing.T) {
	reg, sender, logger := setupDispatch()

	dispatch("A", env(protocol.EventJoinRoom, `{"roomId":"r1","user":{"name":"Alice"}}`), reg, logger)

	events := sender.eventsFor("A")
	require.NotEmpty(t, events)
	assert.Equal(t, protocol.EventAllUsers, events[0])
}

func TestDispatchMalformedPayloadDropped(t *testing.T) {
	reg, sender, logger := setupDispatch()

	dispatch("A", env(protocol.EventJoinRoom, `"not an object"`), reg, logger)
	dispatch("A", env(protocol.EventChatMessage, `42`), reg, logger)

	assert.Empty(t, sender.eventsFor("A"))
}

func TestDispatchUnknownEventIgnored(t *testing.T) {
	reg, sender, logger := setupDispatch()

	assert.NotPanics(t, func() {
		dispatch("A", env("no-such-event", `{}`), reg, logger)
	})
	assert.Empty(t, sender.eventsFor("A"))
}

func TestDispatchPublicRoomsQuery(t *testing.T) {
	reg, sender, logger := setupDispatch()

	dispatch("A", protocol.Envelope{Event: protocol.EventGetPublicRooms}, reg, logger)

	events := sender.eventsFor("A")
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventPublicRooms, events[0])
}

func TestDispatchSignalRelay(t *testing.T) {
	reg, sender, logger := setupDispatch()

	dispatch("B", env(protocol.EventSendingSignal,
		`{"targetId":"A","callerId":"B","signal":{"type":"offer"}}`), reg, logger)
	require.Equal(t, []string{protocol.EventUserJoined}, sender.eventsFor("A"))

	dispatch("A", env(protocol.EventReturningSignal,
		`{"callerId":"B","signal":{"type":"answer"}}`), reg, logger)
	require.Equal(t, []string{protocol.EventReturnedSignal}, sender.eventsFor("B"))
}
