// ABOUTME: Lifecycle and progress callbacks for transfer sessions
// ABOUTME: Observer interface, no-op default, fan-out and func adapters
package transfer

import "time"

// Observer receives session lifecycle and progress notifications.
// Exactly one of OnComplete, OnStopped or OnFailed is called per session.
type Observer interface {
	OnStart(at time.Time)
	OnProgress(percent int, secondsRemaining uint)
	OnComplete(at time.Time)
	OnStopped()
	OnFailed(err error)
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) OnStart(time.Time) {}
func (NopObserver) OnProgress(int, uint) {}
func (NopObserver) OnComplete(time.Time) {}
func (NopObserver) OnStopped() {}
func (NopObserver) OnFailed(error) {}

// Observers fans notifications out to every member in order
type Observers []Observer

func (obs Observers) OnStart(at time.Time) {
	for _, o := range obs {
		o.OnStart(at)
	}
}

func (obs Observers) OnProgress(percent int, secondsRemaining uint) {
	for _, o := range obs {
		o.OnProgress(percent, secondsRemaining)
	}
}

func (obs Observers) OnComplete(at time.Time) {
	for _, o := range obs {
		o.OnComplete(at)
	}
}

func (obs Observers) OnStopped() {
	for _, o := range obs {
		o.OnStopped()
	}
}

func (obs Observers) OnFailed(err error) {
	for _, o := range obs {
		o.OnFailed(err)
	}
}

// ObserverFuncs adapts optional funcs to an Observer; nil funcs are skipped
type ObserverFuncs struct {
	Start    func(at time.Time)
	Progress func(percent int, secondsRemaining uint)
	Complete func(at time.Time)
	Stopped  func()
	Failed   func(err error)
}

func (f ObserverFuncs) OnStart(at time.Time) {
	if f.Start != nil {
		f.Start(at)
	}
}

func (f ObserverFuncs) OnProgress(percent int, secondsRemaining uint) {
	if f.Progress != nil {
		f.Progress(percent, secondsRemaining)
	}
}

func (f ObserverFuncs) OnComplete(at time.Time) {
	if f.Complete != nil {
		f.Complete(at)
	}
}

func (f ObserverFuncs) OnStopped() {
	if f.Stopped != nil {
		f.Stopped()
	}
}

func (f ObserverFuncs) OnFailed(err error) {
	if f.Failed != nil {
		f.Failed(err)
	}
}

// Notify delivers the terminal callback matching r.Outcome
func Notify(o Observer, r Result) {
	switch r.Outcome {
	case Completed:
		o.OnComplete(r.Finished)
	case Stopped:
		o.OnStopped()
	case Failed:
		o.OnFailed(r.Err)
	}
}
