package services

import (
	"context"
	"log"
	"sync"
	"time"

	"healthbot/internal/models"
)

// DialogWriteQueue persists dialog turns to the conversation log in the
// background, decoupled from the reply path. Turns are written in the
// exact order they were enqueued - global FIFO across all users and
// sessions - with at most one write in flight at any time. A failed
// write is logged and dropped; the drain always advances.
type DialogWriteQueue struct {
	dialogs ConversationLog

	mu       sync.Mutex
	pending  []models.QueuedWrite
	draining bool

	writeTimeout time.Duration
}

// NewDialogWriteQueue creates a new write queue draining into the given
// conversation log.
func NewDialogWriteQueue(dialogs ConversationLog) *DialogWriteQueue {
	return &DialogWriteQueue{
		dialogs:      dialogs,
		writeTimeout: 15 * time.Second,
	}
}

// Enqueue appends a turn to the tail of the queue. Non-blocking and
// safe to call from concurrent turns; if no drain is running, one is
// started, otherwise the running drain picks the item up when it
// reaches the tail.
func (q *DialogWriteQueue) Enqueue(item models.QueuedWrite) {
	q.mu.Lock()
	q.pending = append(q.pending, item)
	start := !q.draining
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// Depth reports the number of turns waiting to be persisted.
func (q *DialogWriteQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Idle reports whether the queue is empty with no drain in flight.
func (q *DialogWriteQueue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0 && !q.draining
}

// drain pops and persists turns one at a time until the queue is empty,
// then exits. Exactly one drain runs at any time.
func (q *DialogWriteQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		item := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), q.writeTimeout)
		if err := q.dialogs.AddDialogTurn(ctx, item.SessionID, item.Turn); err != nil {
			log.Printf("⚠️  Dropping dialog turn for session %s: %v", item.SessionID, err)
		}
		cancel()
	}
}
