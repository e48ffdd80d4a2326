package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/charmbracelet/readaloud/internal/protocol"
)

// WatchConfig configures the status watcher.
type WatchConfig struct {
	// Poll fetches the current status.
	Poll func(ctx context.Context) (protocol.Response, error)
	// Control sends pause, resume or stop.
	Control func(ctx context.Context, kind protocol.Kind) error

	Interval time.Duration
	Timeout  time.Duration
}

type (
	statusMsg struct {
		resp protocol.Response
		err  error
	}
	tickMsg    struct{}
	controlMsg struct{ err error }
)

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

type watchModel struct {
	cfg     WatchConfig
	status  *StatusDisplay
	spinner spinner.Model
	width   int
	loaded  bool
}

// NewWatchProgram returns a program that polls the daemon and renders its
// status until the user quits.
func NewWatchProgram(cfg WatchConfig, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(newWatchModel(cfg), opts...)
}

func newWatchModel(cfg WatchConfig) watchModel {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	return watchModel{
		cfg:     cfg,
		status:  NewStatusDisplay(),
		spinner: sp,
		width:   60,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m watchModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
		defer cancel()
		resp, err := m.cfg.Poll(ctx)
		return statusMsg{resp: resp, err: err}
	}
}

func (m watchModel) control(kind protocol.Kind) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
		defer cancel()
		return controlMsg{err: m.cfg.Control(ctx, kind)}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			if m.status.State() == StatePaused {
				return m, m.control(protocol.KindResume)
			}
			return m, m.control(protocol.KindPause)
		case "s":
			return m, m.control(protocol.KindStop)
		}
		return m, nil

	case statusMsg:
		m.loaded = true
		if msg.err != nil {
			m.status.SetError(msg.err)
		} else {
			m.status.Update(msg.resp)
		}
		return m, tea.Tick(m.cfg.Interval, func(time.Time) tea.Msg { return tickMsg{} })

	case tickMsg:
		return m, m.poll()

	case controlMsg:
		// the running poll loop picks up the new state
		if msg.err != nil {
			m.status.SetError(msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	if !m.loaded {
		return m.spinner.View() + " Connecting…\n"
	}
	return m.status.DetailedStatus(m.width) + "\n\n" +
		helpStyle.Render("space: pause/resume • s: stop • q: quit") + "\n"
}
