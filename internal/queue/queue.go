package queue

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when an item would exceed the byte budget
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueEmpty is returned by non-blocking reads of an empty queue
	ErrQueueEmpty = errors.New("queue is empty")
)

// Item is one synthesized audio buffer awaiting playback.
type Item struct {
	// Seq is the item's position in the session, starting at zero
	Seq int

	// Data is the encoded audio
	Data []byte

	// MIME identifies the encoding of Data
	MIME string

	enqueuedAt time.Time
}

// Size returns the memory held by the item.
func (i Item) Size() int64 {
	return int64(len(i.Data))
}

// AudioQueue is a FIFO of audio items with a memory budget.
// It is safe for concurrent use.
type AudioQueue struct {
	items []Item

	// Configuration
	memoryLimit   int64 // Maximum buffered bytes, 0 for unlimited
	currentMemory int64

	mu sync.Mutex

	// State
	closed bool
	stats  Stats
}

// Stats tracks queue activity
type Stats struct {
	TotalEnqueued   int64
	TotalDequeued   int64
	TotalDropped    int64
	TotalCleared    int64
	CurrentSize     int
	PeakSize        int
	BufferedBytes   int64
	LastEnqueue     time.Time
	LastDequeue     time.Time
	AverageWaitTime time.Duration

	totalWait time.Duration
}

// NewAudioQueue creates a queue that buffers at most memoryLimit bytes.
func NewAudioQueue(memoryLimit int64) *AudioQueue {
	return &AudioQueue{
		memoryLimit: memoryLimit,
	}
}

// Enqueue appends an item to the tail of the queue.
func (q *AudioQueue) Enqueue(item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if q.memoryLimit > 0 && q.currentMemory+item.Size() > q.memoryLimit {
		q.stats.TotalDropped++
		return ErrQueueFull
	}

	item.enqueuedAt = time.Now()
	q.items = append(q.items, item)
	q.currentMemory += item.Size()

	q.stats.TotalEnqueued++
	q.stats.LastEnqueue = item.enqueuedAt
	if len(q.items) > q.stats.PeakSize {
		q.stats.PeakSize = len(q.items)
	}
	return nil
}

// TryDequeue removes and returns the head item without blocking.
func (q *AudioQueue) TryDequeue() (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Item{}, ErrQueueClosed
	}
	if len(q.items) == 0 {
		return Item{}, ErrQueueEmpty
	}
	return q.popLocked(), nil
}

// popLocked removes the head item. Must be called with lock held.
func (q *AudioQueue) popLocked() Item {
	item := q.items[0]
	q.items[0] = Item{} // release the buffer
	q.items = q.items[1:]

	q.currentMemory -= item.Size()
	if q.currentMemory < 0 {
		q.currentMemory = 0
	}

	now := time.Now()
	q.stats.TotalDequeued++
	q.stats.LastDequeue = now
	q.stats.totalWait += now.Sub(item.enqueuedAt)
	return item
}

// Peek returns the head item without removing it.
func (q *AudioQueue) Peek() (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Item{}, ErrQueueClosed
	}
	if len(q.items) == 0 {
		return Item{}, ErrQueueEmpty
	}
	return q.items[0], nil
}

// Size returns the number of queued items.
func (q *AudioQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Clear removes all items from the queue.
func (q *AudioQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stats.TotalCleared += int64(len(q.items))
	q.items = nil
	q.currentMemory = 0
}

// GetStats returns current queue statistics.
func (q *AudioQueue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.CurrentSize = len(q.items)
	stats.BufferedBytes = q.currentMemory
	if stats.TotalDequeued > 0 {
		stats.AverageWaitTime = stats.totalWait / time.Duration(stats.TotalDequeued)
	}
	return stats
}

// Close shuts the queue down. Later operations fail with ErrQueueClosed.
func (q *AudioQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	q.items = nil
	q.currentMemory = 0
	return nil
}
