// ABOUTME: Bubbletea model for the transfer progress view
// ABOUTME: Tracks session state, progress and optional playback volume
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/resonate-codec/pkg/audio"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

const barWidth = 30

// VolumeControl is implemented by outputs with software volume
type VolumeControl interface {
	SetVolume(volume int)
	SetMuted(muted bool)
}

// Model represents the TUI state
type Model struct {
	// Job
	action string
	source string
	target string
	format audio.PCMFormat

	// Progress
	state     string
	percent   int
	remaining uint
	started   time.Time
	finished  time.Time
	err       error
	warning   error

	// Playback
	volume  int
	muted   bool
	volCtrl VolumeControl

	stop     *transfer.StopFlag
	quitting bool
	width    int
}

// Job describes what the view is showing
type Job struct {
	Action string // "Encoding", "Decoding" or "Playing"
	Source string
	Target string
	Format audio.PCMFormat
}

// NewModel creates a model for job. stop receives the request when the user
// quits; volCtrl may be nil when there is no playback.
func NewModel(job Job, stop *transfer.StopFlag, volCtrl VolumeControl) Model {
	return Model{
		action:  job.Action,
		source:  job.Source,
		target:  job.Target,
		format:  job.Format,
		state:   "starting",
		volume:  100,
		volCtrl: volCtrl,
		stop:    stop,
	}
}

// StartMsg reports that the session opened its resources
type StartMsg struct{ At time.Time }

// ProgressMsg reports percent complete and estimated seconds remaining
type ProgressMsg struct {
	Percent          int
	SecondsRemaining uint
}

// DoneMsg carries the terminal outcome of the session
type DoneMsg struct {
	Outcome transfer.Outcome
	Err     error
	Warning error
	At      time.Time
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StartMsg:
		m.state = "running"
		m.started = msg.At
	case ProgressMsg:
		if msg.Percent >= m.percent {
			m.percent = msg.Percent
		}
		m.remaining = msg.SecondsRemaining
	case DoneMsg:
		m.state = msg.Outcome.String()
		m.err = msg.Err
		m.warning = msg.Warning
		m.finished = msg.At
		if msg.Outcome == transfer.Completed {
			m.percent = 100
			m.remaining = 0
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.stop != nil {
			m.stop.Request()
		}
		if m.state == "starting" || m.state == "running" {
			m.state = "stopping"
		}
	case "up":
		m.setVolume(m.volume + 5)
	case "down":
		m.setVolume(m.volume - 5)
	case "m":
		if m.volCtrl != nil {
			m.muted = !m.muted
			m.volCtrl.SetMuted(m.muted)
		}
	}

	return m, nil
}

func (m *Model) setVolume(volume int) {
	if m.volCtrl == nil {
		return
	}
	if volume > 100 {
		volume = 100
	}
	if volume < 0 {
		volume = 0
	}
	m.volume = volume
	m.volCtrl.SetVolume(volume)
}

// View renders the TUI
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	width := 48
	if m.width > 20 {
		width = m.width - 12
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Resonate Codec"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(m.action + ": "))
	b.WriteString(valueStyle.Render(truncate(m.source, width)))
	b.WriteString("\n")
	if m.target != "" {
		b.WriteString(headerStyle.Render("Output: "))
		b.WriteString(valueStyle.Render(truncate(m.target, width)))
		b.WriteString("\n")
	}
	if m.format.SampleRate > 0 {
		b.WriteString(headerStyle.Render("Format: "))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%dHz %s %d-bit",
			m.format.SampleRate, channelName(m.format.Channels), m.format.BitDepth)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("[%s] %3d%%", renderBar(m.percent, 100, barWidth), m.percent))
	if m.state == "running" && m.remaining > 0 {
		b.WriteString(valueStyle.Render(fmt.Sprintf("  ~%s left", time.Duration(m.remaining)*time.Second)))
	}
	b.WriteString("\n")

	if m.volCtrl != nil {
		muteIcon := ""
		if m.muted {
			muteIcon = " (muted)"
		}
		b.WriteString(fmt.Sprintf("Volume: [%s] %d%%%s\n", renderBar(m.volume, 100, 10), m.volume, muteIcon))
	}

	b.WriteString(headerStyle.Render("State: "))
	b.WriteString(valueStyle.Render(m.state))
	if !m.started.IsZero() && !m.finished.IsZero() {
		b.WriteString(valueStyle.Render(fmt.Sprintf(" in %v", m.finished.Sub(m.started).Round(time.Millisecond))))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	if m.warning != nil {
		b.WriteString(errorStyle.Render("Warning: " + m.warning.Error()))
		b.WriteString("\n")
	}

	if !m.quitting {
		b.WriteString("\n")
		help := "q: Stop"
		if m.volCtrl != nil {
			help = "↑/↓: Volume  m: Mute  q: Stop"
		}
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(help))
	}
	b.WriteString("\n")

	return b.String()
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
