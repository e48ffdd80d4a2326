package queue

import (
	"errors"
	"testing"
	"time"
)

func TestAudioQueue_BasicOperations(t *testing.T) {
	q := NewAudioQueue(1024 * 1024)
	defer q.Close()

	// Test empty queue
	if size := q.Size(); size != 0 {
		t.Errorf("Expected empty queue, got size %d", size)
	}

	if _, err := q.TryDequeue(); err != ErrQueueEmpty {
		t.Errorf("Expected ErrQueueEmpty, got %v", err)
	}

	item := Item{Seq: 0, Data: []byte("RIFF"), MIME: "audio/wav"}
	if err := q.Enqueue(item); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if size := q.Size(); size != 1 {
		t.Errorf("Expected size 1, got %d", size)
	}

	dequeued, err := q.TryDequeue()
	if err != nil {
		t.Fatalf("TryDequeue failed: %v", err)
	}
	if string(dequeued.Data) != "RIFF" || dequeued.MIME != "audio/wav" {
		t.Errorf("Dequeued wrong item: %+v", dequeued)
	}

	if _, err := q.TryDequeue(); err != ErrQueueEmpty {
		t.Errorf("Expected ErrQueueEmpty, got %v", err)
	}
}

func TestAudioQueue_FIFOOrder(t *testing.T) {
	q := NewAudioQueue(0)
	defer q.Close()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(Item{Seq: i, Data: []byte{byte(i)}}); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}

	for want := 0; want < 5; want++ {
		item, err := q.TryDequeue()
		if err != nil {
			t.Fatalf("TryDequeue failed: %v", err)
		}
		if item.Seq != want {
			t.Errorf("Expected seq %d, got %d", want, item.Seq)
		}
	}
}

func TestAudioQueue_MemoryLimit(t *testing.T) {
	q := NewAudioQueue(10)
	defer q.Close()

	if err := q.Enqueue(Item{Data: make([]byte, 8)}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(Item{Data: make([]byte, 8)}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	stats := q.GetStats()
	if stats.TotalDropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", stats.TotalDropped)
	}
	if stats.BufferedBytes != 8 {
		t.Errorf("Expected 8 buffered bytes, got %d", stats.BufferedBytes)
	}
}

func TestAudioQueue_Clear(t *testing.T) {
	q := NewAudioQueue(0)
	defer q.Close()

	for i := 0; i < 3; i++ {
		q.Enqueue(Item{Seq: i, Data: []byte("x")})
	}
	q.Clear()

	if size := q.Size(); size != 0 {
		t.Errorf("Expected empty queue after clear, got %d", size)
	}
	stats := q.GetStats()
	if stats.TotalCleared != 3 {
		t.Errorf("Expected 3 cleared, got %d", stats.TotalCleared)
	}
	if stats.PeakSize != 3 {
		t.Errorf("Expected peak size 3, got %d", stats.PeakSize)
	}
}

func TestAudioQueue_Stats(t *testing.T) {
	q := NewAudioQueue(0)
	defer q.Close()

	q.Enqueue(Item{Seq: 0, Data: []byte("abc")})
	q.Enqueue(Item{Seq: 1, Data: []byte("de")})
	time.Sleep(5 * time.Millisecond)
	if _, err := q.TryDequeue(); err != nil {
		t.Fatalf("TryDequeue failed: %v", err)
	}

	stats := q.GetStats()
	if stats.TotalEnqueued != 2 || stats.TotalDequeued != 1 {
		t.Errorf("Expected 2 enqueued and 1 dequeued, got %+v", stats)
	}
	if stats.CurrentSize != 1 || stats.BufferedBytes != 2 {
		t.Errorf("Expected 1 item of 2 bytes, got %d items of %d bytes", stats.CurrentSize, stats.BufferedBytes)
	}
	if stats.AverageWaitTime < 5*time.Millisecond {
		t.Errorf("Expected average wait of at least 5ms, got %v", stats.AverageWaitTime)
	}
	if stats.LastDequeue.Before(stats.LastEnqueue) {
		t.Error("LastDequeue should not precede LastEnqueue")
	}
}

func TestAudioQueue_Close(t *testing.T) {
	q := NewAudioQueue(0)
	q.Enqueue(Item{Seq: 0, Data: []byte("x")})

	if err := q.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}
	if _, err := q.TryDequeue(); err != ErrQueueClosed {
		t.Errorf("Expected ErrQueueClosed on dequeue, got %v", err)
	}
	if err := q.Enqueue(Item{}); err != ErrQueueClosed {
		t.Errorf("Expected ErrQueueClosed on enqueue, got %v", err)
	}
	if size := q.Size(); size != 0 {
		t.Errorf("Expected closed queue to be empty, got %d", size)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
}
