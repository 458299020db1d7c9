package runtime

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"style-relay/domain"
)

func message(content string) domain.ChatMessage {
	now := time.Now().UTC().Truncate(time.Millisecond)
	id := domain.ConnectionID(uuid.NewString())
	return domain.ChatMessage{
		ID: domain.NewMessageID(now, id),
		Author: domain.Participant{
			ConnectionID:     id,
			DisplayNickname:  "Kasia",
			OriginalNickname: "Kasia",
			Style:            domain.StyleUwu,
		},
		DisplayContent:  content,
		OriginalContent: content,
		SentAt:          now,
	}
}

func TestHistory_AppendAndSnapshot(t *testing.T) {
	req := require.New(t)
	history, err := NewHistory(slog.Default(), 100)
	req.NoError(err)
	defer history.Close()

	// Given an empty buffer
	snapshot, err := history.Snapshot()
	req.NoError(err)
	req.Empty(snapshot)

	// When three messages arrive
	for i := 0; i < 3; i++ {
		req.NoError(history.Append(message(fmt.Sprintf("message %d", i))))
	}

	// Then the snapshot returns them in insertion order
	snapshot, err = history.Snapshot()
	req.NoError(err)
	req.Len(snapshot, 3)
	req.Equal("message 0", snapshot[0].DisplayContent)
	req.Equal("message 2", snapshot[2].DisplayContent)
	req.Equal(3, history.Len())
}

func TestHistory_EvictsOldestAtCapacity(t *testing.T) {
	req := require.New(t)
	history, err := NewHistory(slog.Default(), 100)
	req.NoError(err)
	defer history.Close()

	// When 101 messages arrive into a 100-slot buffer
	for i := 0; i < 101; i++ {
		req.NoError(history.Append(message(fmt.Sprintf("message %d", i))))
	}

	// Then the buffer holds the last 100, oldest first
	snapshot, err := history.Snapshot()
	req.NoError(err)
	req.Len(snapshot, 100)
	req.Equal("message 1", snapshot[0].DisplayContent)
	req.Equal("message 100", snapshot[99].DisplayContent)
	req.Equal(100, history.Len())
}

func TestHistory_SnapshotIsIsolatedFromLaterAppends(t *testing.T) {
	req := require.New(t)
	history, err := NewHistory(slog.Default(), 10)
	req.NoError(err)
	defer history.Close()

	req.NoError(history.Append(message("first")))

	// Given a snapshot taken before more messages arrive
	snapshot, err := history.Snapshot()
	req.NoError(err)
	req.Len(snapshot, 1)

	// When the buffer keeps moving
	req.NoError(history.Append(message("second")))

	// Then the earlier snapshot is unchanged
	req.Len(snapshot, 1)
	req.Equal("first", snapshot[0].DisplayContent)
}

func TestHistory_RoundTripPreservesMessageFields(t *testing.T) {
	req := require.New(t)
	history, err := NewHistory(slog.Default(), 10)
	req.NoError(err)
	defer history.Close()

	original := message("hello friend")
	original.DisplayContent = "hewwo fwiend"
	req.NoError(history.Append(original))

	snapshot, err := history.Snapshot()
	req.NoError(err)
	req.Len(snapshot, 1)

	got := snapshot[0]
	req.Equal(original.ID, got.ID)
	req.Equal("hewwo fwiend", got.DisplayContent)
	req.Equal("hello friend", got.OriginalContent)
	req.Equal(original.Author.ConnectionID, got.Author.ConnectionID)
	req.True(original.SentAt.Equal(got.SentAt))
}
