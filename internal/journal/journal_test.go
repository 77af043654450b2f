// internal/journal/journal_test.go
package journal

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// newTestJournal builds a journal around a client that never dials; the
// worker only touches the network when an entry actually arrives.
func newTestJournal() *Journal {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	j := &Journal{
		rdb:     redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		queue:   DefaultQueueName,
		entries: make(chan Entry, 4),
		done:    make(chan struct{}),
		log:     logger,
	}
	go j.run()
	return j
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	j := newTestJournal()
	j.Close()

	// A handler racing shutdown must not crash the process.
	assert.NotPanics(t, func() {
		j.Record("leave", "r1", "A")
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	j := newTestJournal()
	assert.NotPanics(t, func() {
		j.Close()
		j.Close()
	})
}

func TestRecordDropsWhenBufferFull(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	// No worker draining: the channel fills and later records are shed
	// without blocking the caller.
	j := &Journal{
		entries: make(chan Entry, 2),
		done:    make(chan struct{}),
		log:     logger,
	}
	for i := 0; i < 5; i++ {
		j.Record("join", "r1", "A")
	}
	assert.Len(t, j.entries, 2)
}
