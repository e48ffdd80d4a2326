package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the memory and disk tiers: reads promote disk hits
// into memory, writes go to both, and a background loop prunes entries
// past their TTL.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	config Config
	logger *log.Logger

	writes sync.WaitGroup

	stop     chan struct{}
	loopDone sync.WaitGroup
	closed   bool

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates both tiers.
type ManagerStats struct {
	Hits        int64
	Misses      int64
	MemoryHits  int64
	DiskHits    int64
	Promotions  int64
	WriteErrors int64
	CleanupRuns int64
	LastCleanup time.Time
	HitRate     float64

	Memory Stats
	Disk   Stats
	Dir    string
}

// NewManager opens the disk tier and starts the prune loop.
func NewManager(config Config, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	if config.DiskPath == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache directory: %w", err)
		}
		config.DiskPath = dir
	}
	path, err := ExpandPath(config.DiskPath)
	if err != nil {
		return nil, fmt.Errorf("expand cache directory: %w", err)
	}
	config.DiskPath = path

	disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("open disk cache: %w", err)
	}

	m := &Manager{
		memory: NewMemoryCache(config.MemoryCapacity),
		disk:   disk,
		config: config,
		logger: logger,
		stop:   make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		m.loopDone.Add(1)
		go m.cleanupLoop(config.CleanupInterval)
	}
	return m, nil
}

// Get looks in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.mu.Lock()
		m.stats.Hits++
		m.stats.MemoryHits++
		m.mu.Unlock()
		return data, true
	}

	if data, ok := m.disk.Get(key); ok {
		m.mu.Lock()
		m.stats.Hits++
		m.stats.DiskHits++
		m.stats.Promotions++
		m.mu.Unlock()
		_ = m.memory.Put(key, data)
		return data, true
	}

	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
	return nil, false
}

// Put stores in memory right away and on disk in the background.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}

	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		if err := m.disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			m.mu.Lock()
			m.stats.WriteErrors++
			m.mu.Unlock()
			m.logger.Warn("disk cache write failed", "err", err)
		}
	}()
	return nil
}

// Flush waits for pending disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

func (m *Manager) Delete(key string) error {
	m.Flush()
	return errors.Join(m.memory.Delete(key), m.disk.Delete(key))
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	m.Flush()
	return errors.Join(m.memory.Clear(), m.disk.Clear())
}

// Stats returns a snapshot of both tiers.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()

	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	s.Memory = m.memory.Stats()
	s.Disk = m.disk.Stats()
	s.Dir = m.disk.Dir()
	return s
}

// Prune drops entries older than the configured TTL from both tiers.
func (m *Manager) Prune() int {
	m.mu.Lock()
	m.stats.CleanupRuns++
	m.stats.LastCleanup = time.Now()
	m.mu.Unlock()

	if m.config.TTL <= 0 {
		return 0
	}
	removed := m.disk.RemoveOlderThan(time.Now().Add(-m.config.TTL))
	removed += m.memory.Prune(m.config.TTL)
	if removed > 0 {
		m.logger.Debug("pruned expired audio", "entries", removed)
	}
	return removed
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	defer m.loopDone.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Prune()
		case <-m.stop:
			return
		}
	}
}

// Close stops the prune loop, waits for writes and saves the disk index.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stop)
	m.loopDone.Wait()
	m.Flush()

	if err := m.disk.Close(); err != nil {
		return fmt.Errorf("close disk cache: %w", err)
	}
	return nil
}
