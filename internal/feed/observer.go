// ABOUTME: Session observer that publishes to the feed hub
// ABOUTME: Tags every event with the session id and kind
package feed

import (
	"time"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// Observer publishes one session's callbacks to a Hub
type Observer struct {
	hub     *Hub
	session string
	kind    string
	clock   func() time.Time
}

var _ transfer.Observer = (*Observer)(nil)

// Observer returns a transfer.Observer for the session identified by id.
// kind is "encode", "decode" or "play".
func (h *Hub) Observer(id, kind string) *Observer {
	return &Observer{hub: h, session: id, kind: kind, clock: time.Now}
}

func (o *Observer) event(at time.Time) Event {
	return Event{Session: o.session, Kind: o.kind, At: at}
}

func (o *Observer) OnStart(at time.Time) {
	o.hub.Publish(Message{Type: TypeStart, Payload: o.event(at)})
}

func (o *Observer) OnProgress(percent int, secondsRemaining uint) {
	ev := o.event(o.clock())
	ev.Percent = percent
	ev.SecondsRemaining = secondsRemaining
	o.hub.Publish(Message{Type: TypeProgress, Payload: ev})
}

func (o *Observer) OnComplete(at time.Time) {
	ev := o.event(at)
	ev.Percent = 100
	o.hub.Publish(Message{Type: TypeComplete, Payload: ev})
}

func (o *Observer) OnStopped() {
	o.hub.Publish(Message{Type: TypeStopped, Payload: o.event(o.clock())})
}

func (o *Observer) OnFailed(err error) {
	ev := o.event(o.clock())
	if err != nil {
		ev.Error = err.Error()
	}
	o.hub.Publish(Message{Type: TypeFailed, Payload: ev})
}
