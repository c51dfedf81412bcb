package bot

import "time"

type EventKind string

const (
	EventReceived EventKind = "received"
	EventGated    EventKind = "gated"
	EventCommand  EventKind = "command"
	EventReply    EventKind = "reply"
	EventCooldown EventKind = "cooldown"
)

// Event — запись для операторского потока (/events).
type Event struct {
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Command string    `json:"command,omitempty"`
	Text    string    `json:"text,omitempty"`
}

type EventSink interface {
	Publish(Event)
}

func (bot *MeshBot) emit(e Event) {
	if bot.events == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = bot.clock.Now()
	}
	bot.events.Publish(e)
}
