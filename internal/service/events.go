package service

import "github.com/racingnotes/racingnotes-server/internal/sse"

// EventEmitter publishes change notifications to connected clients.
type EventEmitter interface {
	Emit(event sse.Event)
}

// notifier is embedded by services that publish events. The zero value drops them.
type notifier struct {
	events EventEmitter
}

// SetEventEmitter wires the live update stream.
func (n *notifier) SetEventEmitter(e EventEmitter) {
	n.events = e
}

func (n *notifier) emit(event sse.Event) {
	if n.events != nil {
		n.events.Emit(event)
	}
}
