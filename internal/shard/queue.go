package shard

import (
	"sync"

	"github.com/carverauto/fleetwatch/internal/telemetry"
)

// queue is an unbounded FIFO with blocking dequeue and a close signal.
// Enqueue never blocks; Dequeue blocks until an item is available or the
// queue is closed and drained.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []telemetry.MonitorInfo
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// Enqueue publishes info for a consumer to pick up. Never blocks.
func (q *queue) Enqueue(info telemetry.MonitorInfo) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.items = append(q.items, info)
	q.cond.Signal()
}

// Dequeue blocks until an item is available or the queue is closed with
// nothing left to drain, in which case ok is false.
func (q *queue) Dequeue() (info telemetry.MonitorInfo, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return telemetry.MonitorInfo{}, false
	}

	info = q.items[0]
	q.items = q.items[1:]

	return info, true
}

// Close marks the queue closed; blocked and future Dequeue calls drain
// remaining items, then return ok=false.
func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
