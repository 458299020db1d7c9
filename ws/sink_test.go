package ws

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"style-relay/domain/event"
)

func TestSink_ConsumePreservesOrder(t *testing.T) {
	req := require.New(t)
	sink := NewSink(slog.Default(), 8)

	// When events are consumed
	req.NoError(sink.Consume(context.Background(), event.Error{Message: "first"}))
	req.NoError(sink.Consume(context.Background(), event.Error{Message: "second"}))

	// Then they drain in the same order
	req.Equal("first", (<-sink.Events()).(event.Error).Message)
	req.Equal("second", (<-sink.Events()).(event.Error).Message)
}

func TestSink_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	req := require.New(t)
	sink := NewSink(slog.Default(), 1)

	// Given a full buffer
	req.NoError(sink.Consume(context.Background(), event.Error{Message: "kept"}))

	// When another event arrives
	err := sink.Consume(context.Background(), event.Error{Message: "dropped"})

	// Then Consume refuses rather than blocking the caller
	req.Error(err)
	req.ErrorContains(err, "buffer full")

	// And the buffered event is intact
	req.Equal("kept", (<-sink.Events()).(event.Error).Message)
}
