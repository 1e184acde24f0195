// Package loopback connects a harness to itself: frames published on the
// local capture stream come back as the remote stream after a configurable
// delay, so full runs can execute without any network peer.
package loopback

import (
	"sync"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
)

// frameQueue is a bounded in-memory frame buffer that preserves FIFO
// ordering. The delay stage holds frames here until the configured backlog
// depth is reached.
type frameQueue struct {
	mu   sync.Mutex
	data []*domain.Frame
	cap  int
}

func newFrameQueue(capacity int) *frameQueue {
	return &frameQueue{
		data: make([]*domain.Frame, 0, capacity),
		cap:  capacity,
	}
}

func (q *frameQueue) enqueue(f *domain.Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, f)
	return true
}

func (q *frameQueue) dequeue() (*domain.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil, false
	}
	f := q.data[0]
	q.data = append(q.data[:0], q.data[1:]...)
	return f, true
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// drain releases every queued frame. Called on connection teardown.
func (q *frameQueue) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, f := range q.data {
		f.Release()
	}
	q.data = q.data[:0]
}
