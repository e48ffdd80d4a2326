package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/charmbracelet/readaloud/internal/protocol"
	"github.com/charmbracelet/readaloud/internal/tts"
)

// Launcher owns the lifetime of the playback engine.
type Launcher interface {
	// Supported reports whether the engine can play audio at all.
	Supported() bool
	Running() bool
	Launch(ctx context.Context) error
	Close() error
}

// Sender delivers a request to a subject. *bus.Client implements it.
type Sender interface {
	Request(ctx context.Context, subject string, req protocol.Request) (protocol.Response, error)
}

// Config configures a Manager.
type Config struct {
	Launcher       Launcher
	Sender         Sender
	Subject        string
	Logger         *log.Logger
	ReadyInterval  time.Duration
	ReadyTimeout   time.Duration
	PingTimeout    time.Duration
	RequestTimeout time.Duration
	RetryDelay     time.Duration
}

// Manager launches the engine lazily and sends it requests.
type Manager struct {
	cfg Config

	// serializes launch and readiness checks
	mu sync.Mutex
}

// NewManager creates a manager. Zero durations take defaults.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.ReadyInterval <= 0 {
		cfg.ReadyInterval = DefaultReadyInterval
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 500 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 150 * time.Millisecond
	}
	return &Manager{cfg: cfg}
}

// Supported reports whether the engine can play audio.
func (m *Manager) Supported() bool {
	return m.cfg.Launcher.Supported()
}

// Ensure launches the engine if needed and waits until it answers a ping.
func (m *Manager) Ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Launcher.Running() {
		m.cfg.Logger.Debug("launching playback engine")
		if err := m.cfg.Launcher.Launch(ctx); err != nil {
			return fmt.Errorf("launch playback engine: %w", err)
		}
	}
	return WaitReady(ctx, m.ping, m.cfg.ReadyInterval, m.cfg.ReadyTimeout)
}

func (m *Manager) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.PingTimeout)
	defer cancel()

	req := protocol.MustRequest(protocol.KindPing, nil)
	req.Target = protocol.TargetEngine
	resp, err := m.cfg.Sender.Request(ctx, m.cfg.Subject, req)
	if err != nil {
		return err
	}
	return resp.Err()
}

// Send ensures the engine is up and delivers req. A transport failure is
// retried once after a short delay. A response with OK false is returned
// without error; callers decide what it means.
func (m *Manager) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	req.Target = protocol.TargetEngine
	if err := m.Ensure(ctx); err != nil {
		return protocol.Response{}, err
	}

	resp, err := m.send(ctx, req)
	if err == nil || !tts.IsRetryable(err) {
		return resp, err
	}
	m.cfg.Logger.Debug("engine request failed, retrying", "type", req.Type, "err", err)

	select {
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	case <-time.After(m.cfg.RetryDelay):
	}

	if err := m.Ensure(ctx); err != nil {
		return protocol.Response{}, err
	}
	return m.send(ctx, req)
}

// send makes one round trip. Failures are classified so Send can tell a
// lost request from one that will never succeed.
func (m *Manager) send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	rctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	resp, err := m.cfg.Sender.Request(rctx, m.cfg.Subject, req)
	var ttsErr *tts.TTSError
	switch {
	case err == nil, ctx.Err() != nil, errors.As(err, &ttsErr):
		return resp, err
	case errors.Is(err, context.DeadlineExceeded):
		return resp, tts.NewTTSError(tts.ErrorCodeTimeout, "engine request timed out", err).
			WithContext("type", req.Type)
	default:
		return resp, tts.NewTTSError(tts.ErrorCodeTransport, "engine request failed", err).
			WithContext("type", req.Type)
	}
}

// Close stops the engine.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Launcher.Close()
}
