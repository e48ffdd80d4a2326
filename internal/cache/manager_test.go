package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DiskPath = t.TempDir()
	cfg.MemoryCapacity = 1 << 20
	cfg.DiskCapacity = 4 << 20
	cfg.CleanupInterval = 0
	return cfg
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m, err := NewManager(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestDiskCache_CompressionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	defer dc.Close() //nolint:errcheck

	value := bytes.Repeat([]byte("silence "), 1024)
	if err := dc.Put("k", value); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if dc.Size() >= int64(len(value)) {
		t.Errorf("compressed size %d not below raw %d", dc.Size(), len(value))
	}
	if dc.RawSize() != int64(len(value)) {
		t.Errorf("RawSize = %d, want %d", dc.RawSize(), len(value))
	}

	got, ok := dc.Get("k")
	if !ok || !bytes.Equal(got, value) {
		t.Fatal("Get did not return the stored value")
	}
}

func TestDiskCache_PersistsIndex(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	_ = dc.Put("k", []byte("RIFF....WAVE"))
	if err := dc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("k")
	if !ok || string(got) != "RIFF....WAVE" {
		t.Errorf("Get after reopen = %q, %v", got, ok)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	defer dc.Close() //nolint:errcheck

	_ = dc.Put("k", []byte("data"))
	if err := os.Remove(filepath.Join(dir, Key("k")+".bin")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, ok := dc.Get("k"); ok {
		t.Error("Get returned a value for a deleted file")
	}
	if dc.Contains("k") || dc.Size() != 0 {
		t.Error("entry not dropped from index")
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	defer dc.Close() //nolint:errcheck

	for i := 0; i < 3; i++ {
		_ = dc.Put(fmt.Sprintf("k%d", i), make([]byte, 40))
		time.Sleep(2 * time.Millisecond)
	}

	if dc.Contains("k0") {
		t.Error("oldest entry not evicted")
	}
	if !dc.Contains("k1") || !dc.Contains("k2") {
		t.Error("newer entries evicted")
	}
	if err := dc.Put("huge", make([]byte, 101)); err != ErrItemTooLarge {
		t.Errorf("Put huge = %v, want ErrItemTooLarge", err)
	}
}

func TestManager_Hierarchy(t *testing.T) {
	m := newTestManager(t, testConfig(t))

	if err := m.Put("k", []byte("audio")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	m.Flush()

	if got, ok := m.Get("k"); !ok || string(got) != "audio" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	// drop from memory so the next read comes from disk
	_ = m.memory.Delete("k")
	if _, ok := m.Get("k"); !ok {
		t.Fatal("disk hit missed")
	}
	if !m.memory.Contains("k") {
		t.Error("disk hit not promoted to memory")
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("Get returned a value for a missing key")
	}

	s := m.Stats()
	if s.MemoryHits != 1 || s.DiskHits != 1 || s.Promotions != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.Dir == "" {
		t.Error("Stats.Dir is empty")
	}
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(t, testConfig(t))

	for i := 0; i < 5; i++ {
		_ = m.Put(fmt.Sprintf("k%d", i), []byte("x"))
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	s := m.Stats()
	if s.Memory.ItemCount != 0 || s.Disk.ItemCount != 0 {
		t.Errorf("items after clear: memory %d, disk %d", s.Memory.ItemCount, s.Disk.ItemCount)
	}
}

func TestManager_Prune(t *testing.T) {
	cfg := testConfig(t)
	cfg.TTL = 10 * time.Millisecond
	m := newTestManager(t, cfg)

	_ = m.Put("old", []byte("x"))
	m.Flush()
	time.Sleep(20 * time.Millisecond)

	if n := m.Prune(); n != 2 {
		t.Errorf("Prune = %d, want 2 (one per tier)", n)
	}
	if _, ok := m.Get("old"); ok {
		t.Error("expired entry still served")
	}
	if s := m.Stats(); s.CleanupRuns != 1 {
		t.Errorf("CleanupRuns = %d, want 1", s.CleanupRuns)
	}
}

func TestManager_CleanupLoop(t *testing.T) {
	cfg := testConfig(t)
	cfg.CleanupInterval = 5 * time.Millisecond
	m := newTestManager(t, cfg)

	deadline := time.Now().Add(2 * time.Second)
	for m.Stats().CleanupRuns == 0 {
		if time.Now().After(deadline) {
			t.Fatal("cleanup loop never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := newTestManager(t, testConfig(t))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("k-%d", i%7)
				_ = m.Put(key, []byte(key))
				if got, ok := m.Get(key); ok && string(got) != key {
					t.Errorf("Get(%s) = %q", key, got)
				}
			}
		}(w)
	}
	wg.Wait()
}
