package ws

import (
	"context"
	"fmt"
	"log/slog"

	"style-relay/domain/event"
)

// Sink buffers outbound events for one connection. Consume never blocks:
// the coordinator calls it while holding the room lock, so a slow client
// must cost a dropped event, not a stalled room.
type Sink struct {
	log    *slog.Logger
	events chan event.DomainEvent
}

func NewSink(log *slog.Logger, bufferSize int) *Sink {
	return &Sink{
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
	}
}

func (s *Sink) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	default:
		return fmt.Errorf("connection buffer full, dropping %s", e.EventName())
	}
}

// Events is drained by the connection's write pump, which preserves the
// order the coordinator issued.
func (s *Sink) Events() <-chan event.DomainEvent {
	return s.events
}
