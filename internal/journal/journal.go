// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list that room events are pushed onto for
// downstream consumers (analytics, audit tooling).
var DefaultQueueName = "roomcast_events"

// Entry is one journaled room event. Chat entries carry no message text;
// the journal records activity, never content.
type Entry struct {
	Kind      string `json:"kind"`
	RoomID    string `json:"room_id"`
	ConnID    string `json:"conn_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Journal pushes room events onto a Redis queue from a background worker.
// Record never blocks the caller: entries are buffered in-process and
// dropped with a warning if the buffer fills. The coordinator's own state
// stays in memory regardless; the journal is observability only.
type Journal struct {
	rdb     *redis.Client
	queue   string
	entries chan Entry
	done    chan struct{}
	log     *logrus.Logger

	mu     sync.Mutex // guards closed and the entries send in Record
	closed bool
}

// Connect builds a journal from environment variables:
//   - REDIS_ADDR (empty disables journaling; Connect returns nil, nil)
//   - REDIS_DB (optional, default 0)
//   - JOURNAL_QUEUE_NAME (optional)
func Connect(log *logrus.Logger) (*Journal, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   getEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	j := &Journal{
		rdb:     rdb,
		queue:   getEnv("JOURNAL_QUEUE_NAME", DefaultQueueName),
		entries: make(chan Entry, 256),
		done:    make(chan struct{}),
		log:     log,
	}
	go j.run()
	return j, nil
}

// Record enqueues one event for the background worker. Events recorded
// after Close are dropped.
func (j *Journal) Record(kind, roomID, connID string) {
	e := Entry{
		Kind:      kind,
		RoomID:    roomID,
		ConnID:    connID,
		Timestamp: time.Now().UnixMilli(),
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.entries <- e:
	default:
		j.log.Warnf("journal buffer full, dropped %s event for room %s", kind, roomID)
	}
}

// Close stops the worker once it has pushed whatever was already queued.
// Later entries are lost, which matches the coordinator's restart-lossy
// posture. Safe to call more than once.
func (j *Journal) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.entries)
	j.mu.Unlock()

	<-j.done
	_ = j.rdb.Close()
}

// run pushes entries onto the Redis list one at a time. A failed push is
// logged and forgotten; journaling must never disturb the relay paths.
func (j *Journal) run() {
	defer close(j.done)
	for e := range j.entries {
		data, err := json.Marshal(e)
		if err != nil {
			j.log.Warnf("journal: failed to marshal entry: %v", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = j.rdb.RPush(ctx, j.queue, data).Err()
		cancel()
		if err != nil {
			j.log.Warnf("journal: RPush to %q failed: %v", j.queue, err)
		}
	}
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else a default.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
