package speech

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-shellwords"
)

// TextPlaceholder is replaced by the utterance in command templates.
const TextPlaceholder = "{text}"

// DefaultCommandLine returns the platform's usual speech command.
func DefaultCommandLine() string {
	switch runtime.GOOS {
	case "darwin":
		return "say " + TextPlaceholder
	default:
		return "espeak-ng " + TextPlaceholder
	}
}

// Command speaks by running an external program per utterance.
type Command struct {
	argv   []string
	logger *log.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	paused  bool
	stopped map[*exec.Cmd]bool
}

// NewCommand parses a command line such as "espeak-ng -s 170 {text}".
// Without a placeholder the utterance is passed as the last argument.
func NewCommand(commandLine string, logger *log.Logger) (*Command, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("speech command is empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Command{
		argv:    argv,
		logger:  logger,
		stopped: make(map[*exec.Cmd]bool),
	}, nil
}

// Available reports whether the speech program can be found.
func (c *Command) Available() bool {
	_, err := exec.LookPath(c.argv[0])
	return err == nil
}

// args expands the template for one utterance.
func (c *Command) args(text string) []string {
	args := make([]string, 0, len(c.argv))
	substituted := false
	for _, a := range c.argv[1:] {
		if strings.Contains(a, TextPlaceholder) {
			a = strings.ReplaceAll(a, TextPlaceholder, text)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, text)
	}
	return args
}

// Speak starts a new utterance.
func (c *Command) Speak(text string, onEnd func()) error {
	cmd := exec.Command(c.argv[0], c.args(text)...)

	c.mu.Lock()
	c.cancelLocked()
	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("start speech command: %w", err)
	}
	c.cmd = cmd
	c.paused = false
	c.mu.Unlock()

	go c.wait(cmd, onEnd)
	return nil
}

func (c *Command) wait(cmd *exec.Cmd, onEnd func()) {
	err := cmd.Wait()

	c.mu.Lock()
	interrupted := c.stopped[cmd]
	delete(c.stopped, cmd)
	if c.cmd == cmd {
		c.cmd = nil
		c.paused = false
	}
	c.mu.Unlock()

	if interrupted {
		return
	}
	if err != nil {
		// Keep the chain moving; a failed utterance is skipped.
		c.logger.Debug("speech command failed", "err", err)
	}
	if onEnd != nil {
		onEnd()
	}
}

// Pause suspends the running utterance.
func (c *Command) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil || c.paused {
		return
	}
	if err := suspend(c.cmd.Process); err != nil {
		c.logger.Debug("could not pause speech", "err", err)
		return
	}
	c.paused = true
}

// Resume continues a paused utterance.
func (c *Command) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil || !c.paused {
		return
	}
	if err := resume(c.cmd.Process); err != nil {
		c.logger.Debug("could not resume speech", "err", err)
		return
	}
	c.paused = false
}

// Cancel stops the running utterance without firing its end callback.
func (c *Command) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
}

func (c *Command) cancelLocked() {
	if c.cmd == nil {
		return
	}
	c.stopped[c.cmd] = true
	if c.paused {
		_ = resume(c.cmd.Process)
	}
	_ = c.cmd.Process.Kill()
	c.cmd = nil
	c.paused = false
}

// Speaking reports whether an utterance is running.
func (c *Command) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cmd != nil
}

// Paused reports whether the running utterance is suspended.
func (c *Command) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.paused
}
