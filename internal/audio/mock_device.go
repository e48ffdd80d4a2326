package audio

import (
	"errors"
	"sync"
	"time"
)

// ErrMockPlayFailed is returned by MockDevice when told to fail.
var ErrMockPlayFailed = errors.New("mock play failed")

// MockDevice simulates an output device for tests. Tracks never end on
// their own; call EmitMetadata and Finish to drive them.
type MockDevice struct {
	mu sync.Mutex

	// DurationFor computes a track duration. Defaults to one second.
	DurationFor func(data []byte) time.Duration

	played     [][]byte
	failures   map[string]bool
	current    []byte
	onMetadata func(time.Duration)
	onEnded    func()
	position   time.Duration
	paused     bool
	stops      int
}

// NewMockDevice creates an idle mock device.
func NewMockDevice() *MockDevice {
	return &MockDevice{failures: make(map[string]bool)}
}

// FailOn makes Play fail for the given buffer contents.
func (m *MockDevice) FailOn(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[data] = true
}

// Play loads a track.
func (m *MockDevice) Play(data []byte, mime string, onMetadata func(time.Duration), onEnded func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures[string(data)] {
		return ErrMockPlayFailed
	}
	m.played = append(m.played, data)
	m.current = data
	m.onMetadata = onMetadata
	m.onEnded = onEnded
	m.position = 0
	m.paused = false
	return nil
}

// EmitMetadata reports the current track's duration.
func (m *MockDevice) EmitMetadata() {
	m.mu.Lock()
	cb := m.onMetadata
	d := m.durationLocked()
	m.mu.Unlock()

	if cb != nil {
		cb(d)
	}
}

// Finish ends the current track.
func (m *MockDevice) Finish() {
	m.mu.Lock()
	cb := m.onEnded
	m.current = nil
	m.onMetadata = nil
	m.onEnded = nil
	m.position = 0
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (m *MockDevice) durationLocked() time.Duration {
	if m.DurationFor != nil {
		return m.DurationFor(m.current)
	}
	return time.Second
}

func (m *MockDevice) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.paused = true
	}
}

func (m *MockDevice) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return errors.New("cannot resume: no track loaded")
	}
	m.paused = false
	return nil
}

func (m *MockDevice) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.onMetadata = nil
	m.onEnded = nil
	m.position = 0
	m.paused = false
	m.stops++
}

// SetPosition sets the reported position of the current track.
func (m *MockDevice) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *MockDevice) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MockDevice) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MockDevice) Close() error {
	m.Stop()
	return nil
}

// Played returns the buffers passed to successful Play calls, in order.
func (m *MockDevice) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.played))
	for i, p := range m.played {
		out[i] = string(p)
	}
	return out
}

// Loaded reports whether a track is loaded.
func (m *MockDevice) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}
