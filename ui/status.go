// Package ui renders read-aloud status for the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/charmbracelet/readaloud/internal/protocol"
)

// State is the playback state shown to the user.
type State int

// Playback states.
const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateOffline
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateOffline:
		return "offline"
	default:
		return "idle"
	}
}

// StatusDisplay holds the last known status of the daemon.
type StatusDisplay struct {
	state        State
	mode         string
	providerUsed string
	voice        string
	model        string
	queueLength  int
	elapsed      time.Duration
	total        time.Duration
	progress     float64
	errorMessage string
}

// NewStatusDisplay creates an idle display.
func NewStatusDisplay() *StatusDisplay {
	return &StatusDisplay{}
}

// Update replaces the display with a get_status response.
func (s *StatusDisplay) Update(resp protocol.Response) *StatusDisplay {
	switch {
	case resp.Paused:
		s.state = StatePaused
	case resp.Playing:
		s.state = StatePlaying
	default:
		s.state = StateIdle
	}
	s.mode = resp.Provider
	s.providerUsed = resp.ProviderUsed
	s.voice = resp.Voice
	s.model = resp.Model
	s.queueLength = resp.QueueLength
	s.elapsed = toDuration(resp.ElapsedSec)
	s.total = toDuration(resp.TotalSec)
	s.errorMessage = ""

	s.progress = 0
	if s.total > 0 {
		s.progress = min(1, float64(s.elapsed)/float64(s.total))
	}
	return s
}

// SetError marks the daemon unreachable.
func (s *StatusDisplay) SetError(err error) *StatusDisplay {
	s.state = StateOffline
	if err != nil {
		s.errorMessage = err.Error()
	}
	return s
}

func toDuration(f float64) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// State returns the current state.
func (s *StatusDisplay) State() State {
	return s.state
}

// CompactStatus returns a one-line status, empty when idle.
func (s *StatusDisplay) CompactStatus() string {
	if s.state == StateIdle {
		return ""
	}

	status := lipgloss.NewStyle().Foreground(s.stateColor()).Render(s.stateIcon() + " " + s.label())
	if s.state == StateOffline {
		return status
	}
	if s.total > 0 {
		counter := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		status += counter.Render(fmt.Sprintf(" %s/%s", FormatDuration(s.elapsed), FormatDuration(s.total)))
	}
	return status
}

func (s *StatusDisplay) label() string {
	if s.providerUsed != "" {
		return s.providerUsed
	}
	if s.mode != "" {
		return s.mode
	}
	return "readaloud"
}

// DetailedStatus returns a multi-line status block.
func (s *StatusDisplay) DetailedStatus(width int) string {
	var lines []string

	headerStyle := lipgloss.NewStyle().Bold(true)
	lines = append(lines, headerStyle.Render("Read aloud"))

	stateStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	lines = append(lines, stateStyle.Render(fmt.Sprintf("State: %s %s", s.stateIcon(), s.state)))

	if s.state == StateOffline {
		if s.errorMessage != "" {
			lines = append(lines, s.errorLine(width))
		}
		return strings.Join(lines, "\n")
	}

	if s.providerUsed != "" {
		provider := s.providerUsed
		if s.voice != "" {
			provider += fmt.Sprintf(" (%s, %s)", s.voice, s.model)
		}
		lines = append(lines, "Provider: "+provider)
	}

	if s.total > 0 {
		lines = append(lines, fmt.Sprintf("Position: %s / %s", FormatDuration(s.elapsed), FormatDuration(s.total)))
		if width > 20 {
			lines = append(lines, s.renderProgressBar(width-4))
		}
	}

	if s.queueLength > 0 {
		lines = append(lines, fmt.Sprintf("Queued: %d", s.queueLength))
	}

	if s.errorMessage != "" {
		lines = append(lines, s.errorLine(width))
	}
	return strings.Join(lines, "\n")
}

func (s *StatusDisplay) errorLine(width int) string {
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	msg := s.errorMessage
	if width > 10 {
		msg = runewidth.Truncate(msg, width-7, "…")
	}
	return errorStyle.Render("Error: " + msg)
}

// ProgressBar returns a progress bar of the given width.
func (s *StatusDisplay) ProgressBar(width int) string {
	if s.total <= 0 || width < 10 {
		return ""
	}
	return s.renderProgressBar(width)
}

func (s *StatusDisplay) renderProgressBar(width int) string {
	if width < 10 {
		return ""
	}

	filledWidth := min(int(s.progress*float64(width)), width)
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	filledStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))

	return filledStyle.Render(filled) + emptyStyle.Render(empty)
}

func (s *StatusDisplay) stateColor() lipgloss.Color {
	switch s.state {
	case StatePlaying:
		return lipgloss.Color("#04B575")
	case StatePaused:
		return lipgloss.Color("#FFFF00")
	case StateOffline:
		return lipgloss.Color("#FF0000")
	default:
		return lipgloss.Color("#666666")
	}
}

func (s *StatusDisplay) stateIcon() string {
	switch s.state {
	case StatePlaying:
		return "▶"
	case StatePaused:
		return "⏸"
	case StateOffline:
		return "✗"
	default:
		return "■"
	}
}

// FormatDuration formats d as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// IsActive reports whether something is playing or paused.
func (s *StatusDisplay) IsActive() bool {
	return s.state == StatePlaying || s.state == StatePaused
}
