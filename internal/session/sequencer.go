package session

import "sync"

// sequencer releases out-of-order completions in index order. An index is
// delivered only after every lower index was delivered or skipped.
type sequencer struct {
	mu      sync.Mutex
	next    int
	pending map[int][]byte
	skipped map[int]bool
	deliver func(seq int, data []byte)
}

func newSequencer(first int, deliver func(seq int, data []byte)) *sequencer {
	return &sequencer{
		next:    first,
		pending: make(map[int][]byte),
		skipped: make(map[int]bool),
		deliver: deliver,
	}
}

// complete records data for seq and delivers every ready index. Deliveries
// run under the sequencer lock, so they are serialized.
func (s *sequencer) complete(seq int, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.next {
		return
	}
	s.pending[seq] = data
	s.flushLocked()
}

// skip marks seq as failed so later indices are not held back.
func (s *sequencer) skip(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.next {
		return
	}
	s.skipped[seq] = true
	s.flushLocked()
}

func (s *sequencer) flushLocked() {
	for {
		if s.skipped[s.next] {
			delete(s.skipped, s.next)
			s.next++
			continue
		}
		data, ok := s.pending[s.next]
		if !ok {
			return
		}
		delete(s.pending, s.next)
		s.deliver(s.next, data)
		s.next++
	}
}

// buffered reports how many completions are waiting on a lower index.
func (s *sequencer) buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
