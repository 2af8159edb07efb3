// ABOUTME: TUI initialization and session wiring
// ABOUTME: Wraps the bubbletea program and forwards session callbacks to it
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// Sender delivers messages to a running program; *tea.Program satisfies it
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards session callbacks to the TUI as messages
type Observer struct {
	program Sender
}

// NewObserver returns an Observer feeding program
func NewObserver(program Sender) *Observer {
	return &Observer{program: program}
}

func (o *Observer) OnStart(at time.Time) {
	o.program.Send(StartMsg{At: at})
}

func (o *Observer) OnProgress(percent int, secondsRemaining uint) {
	o.program.Send(ProgressMsg{Percent: percent, SecondsRemaining: secondsRemaining})
}

func (o *Observer) OnComplete(time.Time) {}
func (o *Observer) OnStopped()           {}
func (o *Observer) OnFailed(error)       {}

// Done sends the final outcome, which also quits the program. It is sent
// separately from the terminal callbacks so the warning is included.
func (o *Observer) Done(res transfer.Result) {
	o.program.Send(DoneMsg{Outcome: res.Outcome, Err: res.Err, Warning: res.Warning, At: res.Finished})
}

// NewProgram creates the TUI program for model
func NewProgram(model Model) *tea.Program {
	return tea.NewProgram(model)
}
