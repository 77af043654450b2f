// internal/ws/conn.go
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Outbound is one queued frame: an event name plus its payload, marshaled
// just before hitting the wire.
type Outbound struct {
	Event string
	Data  any
}

// Conn is a single participant's connection as seen by the coordinator. The
// out channel is drained by Pump; enqueueing never blocks the caller.
type Conn struct {
	ID string

	out    chan Outbound
	cancel context.CancelFunc
	once   sync.Once

	log *logrus.Logger
}

// Write queues a frame for delivery. Delivery is fire-and-forget: if the
// channel is full or closed the frame is dropped with a warning.
func (c *Conn) Write(msg Outbound) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warnf("conn %s: write to closed channel dropped (%s)", c.ID, msg.Event)
		}
	}()
	select {
	case c.out <- msg:
	default:
		c.log.Warnf("conn %s: out channel full, dropped %s", c.ID, msg.Event)
	}
}

// close shuts the out channel exactly once and cancels the pump context.
func (c *Conn) close() {
	c.once.Do(func() {
		close(c.out)
		if c.cancel != nil {
			c.cancel()
		}
	})
}

// Pump drains the out channel onto the websocket, pinging periodically.
// It returns when the channel closes, the context is done, or a write
// fails; the read loop notices the broken socket and tears down.
func (c *Conn) Pump(ctx context.Context, sock *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			frame, err := json.Marshal(struct {
				Event string `json:"event"`
				Data  any    `json:"data"`
			}{msg.Event, msg.Data})
			if err != nil {
				c.log.Warnf("conn %s: failed to marshal %s: %v", c.ID, msg.Event, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = sock.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.log.Warnf("conn %s: websocket write failed: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := sock.Ping(pingCtx)
			cancel()
			if err != nil {
				c.log.Warnf("conn %s: ping failed, assuming disconnect: %v", c.ID, err)
				return
			}
		}
	}
}
