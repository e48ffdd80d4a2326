package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Subprocess runs the engine as a child process.
type Subprocess struct {
	Path        string   // executable; defaults to the running binary
	Args        []string // arguments, e.g. engine --bus-url ...
	Env         []string // extra environment
	GracePeriod time.Duration
	Logger      *log.Logger
	Audio       func() bool // reports whether audio output was compiled in

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func (s *Subprocess) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

func (s *Subprocess) Supported() bool {
	return s.Audio == nil || s.Audio()
}

func (s *Subprocess) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *Subprocess) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Launch starts the child. The child outlives ctx; Close stops it.
func (s *Subprocess) Launch(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		return nil
	}

	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}

	cmd := exec.Command(path, s.Args...) //nolint:gosec
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}

	done := make(chan struct{})
	s.cmd, s.done = cmd, done
	s.logger().Info("playback engine started", "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		close(done)
		if err != nil {
			s.logger().Debug("playback engine exited", "pid", cmd.Process.Pid, "err", err)
		}
	}()
	return nil
}

// Close interrupts the child and kills it if it does not exit within the
// grace period.
func (s *Subprocess) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.runningLocked() {
		return nil
	}

	grace := s.GracePeriod
	if grace <= 0 {
		grace = 2 * time.Second
	}

	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		return s.killLocked()
	}
	select {
	case <-s.done:
		return nil
	case <-time.After(grace):
		s.logger().Warn("playback engine did not stop, killing it", "pid", s.cmd.Process.Pid)
		return s.killLocked()
	}
}

func (s *Subprocess) killLocked() error {
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-s.done
	return nil
}

// InProcess runs the engine inside the current process.
type InProcess struct {
	start     func(ctx context.Context) (io.Closer, error)
	supported func() bool

	mu      sync.Mutex
	running io.Closer
}

// NewInProcess creates a launcher that calls start to bring the engine up.
// The closer it returns stops the engine.
func NewInProcess(supported func() bool, start func(ctx context.Context) (io.Closer, error)) *InProcess {
	return &InProcess{start: start, supported: supported}
}

func (p *InProcess) Supported() bool {
	return p.supported == nil || p.supported()
}

func (p *InProcess) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running != nil
}

func (p *InProcess) Launch(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running != nil {
		return nil
	}
	c, err := p.start(ctx)
	if err != nil {
		return err
	}
	p.running = c
	return nil
}

func (p *InProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running == nil {
		return nil
	}
	err := p.running.Close()
	p.running = nil
	return err
}
