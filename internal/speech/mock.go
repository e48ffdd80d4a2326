package speech

import "sync"

// Mock is a speech engine for tests. Utterances never finish on their own;
// call Finish to end the current one.
type Mock struct {
	mu       sync.Mutex
	spoken   []string
	onEnd    func()
	speaking bool
	paused   bool
	cancels  int
}

// NewMock creates an idle mock engine.
func NewMock() *Mock {
	return &Mock{}
}

// Speak records the utterance and marks it in progress.
func (m *Mock) Speak(text string, onEnd func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.spoken = append(m.spoken, text)
	m.onEnd = onEnd
	m.speaking = true
	m.paused = false
	return nil
}

// Finish ends the current utterance and fires its callback.
func (m *Mock) Finish() {
	m.mu.Lock()
	if !m.speaking {
		m.mu.Unlock()
		return
	}
	onEnd := m.onEnd
	m.onEnd = nil
	m.speaking = false
	m.paused = false
	m.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.speaking {
		m.paused = true
	}
}

func (m *Mock) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

func (m *Mock) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = nil
	m.speaking = false
	m.paused = false
	m.cancels++
}

func (m *Mock) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func (m *Mock) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Spoken returns every utterance passed to Speak.
func (m *Mock) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}

// Cancels returns how many times Cancel was called.
func (m *Mock) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}
