package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"style-relay/domain"
	"style-relay/domain/event"
	"style-relay/mocks"
)

// recordingSink captures every event it is handed, in order.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventName())
	}
	return out
}

func (s *recordingSink) at(i int) event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[i]
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// echoTransformer applies a fixed prefix, standing in for the provider.
type echoTransformer struct {
	prefix string
}

func (e echoTransformer) TransformNickname(_ context.Context, original string, _ domain.Style) string {
	return e.prefix + original
}

func (e echoTransformer) TransformMessage(_ context.Context, original string, _ domain.Style) string {
	return e.prefix + original
}

func (e echoTransformer) QuotaSnapshot() domain.RateLimitState {
	return domain.RateLimitState{}
}

func newTestCoordinator(t *testing.T, transformer echoTransformer) (*Coordinator, *History) {
	t.Helper()
	history, err := NewHistory(slog.Default(), 100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	return NewCoordinator(slog.Default(), NewRegistry(), history, transformer, nil, domain.StyleUwu), history
}

func TestCoordinator_JoinEmitsWelcomeSequence(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, _ := newTestCoordinator(t, echoTransformer{})

	// Given a registered connection
	sink := &recordingSink{}
	coordinator.Register("conn-1", sink)

	// When it joins with an unknown style
	coordinator.Join(ctx, "conn-1", "Kasia", "no-such-style")

	// Then the joiner learns its identity, the roster, and the history, in
	// that order
	req.Equal([]string{"user-joined", "users-list", "messages-history"}, sink.names())

	joined := sink.at(0).(event.UserJoined)
	req.Equal("Kasia", joined.Participant.DisplayNickname)
	req.Equal("Kasia", joined.Participant.OriginalNickname)
	req.Equal(domain.StyleUwu, joined.Participant.Style)

	list := sink.at(1).(event.UsersList)
	req.Len(list.Participants, 1)

	history := sink.at(2).(event.MessagesHistory)
	req.Empty(history.Messages)
}

func TestCoordinator_JoinNotifiesEveryoneElse(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, _ := newTestCoordinator(t, echoTransformer{prefix: "~"})

	first := &recordingSink{}
	second := &recordingSink{}
	coordinator.Register("conn-1", first)
	coordinator.Register("conn-2", second)
	coordinator.Join(ctx, "conn-1", "Kasia", "uwu")

	// When a second participant joins
	coordinator.Join(ctx, "conn-2", "Tomek", "victorian")

	// Then the earlier participant hears about it, then gets the new roster
	req.Equal([]string{"user-joined", "users-list", "messages-history", "user-joined", "users-list"}, first.names())

	joined := first.at(3).(event.UserJoined)
	req.Equal("~Tomek", joined.Participant.DisplayNickname)

	list := first.at(4).(event.UsersList)
	req.Len(list.Participants, 2)
	req.Equal("~Kasia", list.Participants[0].DisplayNickname)
	req.Equal("~Tomek", list.Participants[1].DisplayNickname)
}

func TestCoordinator_DoubleJoinRejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, _ := newTestCoordinator(t, echoTransformer{})

	sink := &recordingSink{}
	coordinator.Register("conn-1", sink)
	coordinator.Join(ctx, "conn-1", "Kasia", "uwu")

	// When the same connection joins again
	coordinator.Join(ctx, "conn-1", "Kasia2", "uwu")

	// Then it only gets an error and the first identity stands
	req.Equal([]string{"user-joined", "users-list", "messages-history", "error"}, sink.names())
	req.Equal("Already joined", sink.at(3).(event.Error).Message)
}

func TestCoordinator_SendBroadcastsToEveryone(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, history := newTestCoordinator(t, echoTransformer{prefix: "uwu "})

	sender := &recordingSink{}
	receiver := &recordingSink{}
	coordinator.Register("conn-1", sender)
	coordinator.Register("conn-2", receiver)
	coordinator.Join(ctx, "conn-1", "Kasia", "uwu")
	coordinator.Join(ctx, "conn-2", "Tomek", "uwu")
	senderBefore := sender.count()
	receiverBefore := receiver.count()

	// When the first participant sends a message
	coordinator.Send(ctx, "conn-1", "hi")

	// Then both connections receive exactly one new-message event
	req.Equal(senderBefore+1, sender.count())
	req.Equal(receiverBefore+1, receiver.count())

	got := sender.at(senderBefore).(event.NewMessage)
	req.Equal("uwu hi", got.Message.DisplayContent)
	req.Equal("hi", got.Message.OriginalContent)
	req.Equal("uwu Kasia", got.Message.Author.DisplayNickname)
	req.NotEmpty(got.Message.ID)
	req.Equal(got.Message, receiver.at(receiverBefore).(event.NewMessage).Message)

	// And the message landed in the history
	req.Equal(1, history.Len())
}

func TestCoordinator_SendBeforeJoinRejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, history := newTestCoordinator(t, echoTransformer{})

	sink := &recordingSink{}
	other := &recordingSink{}
	coordinator.Register("conn-1", sink)
	coordinator.Register("conn-2", other)
	coordinator.Join(ctx, "conn-2", "Tomek", "uwu")
	otherBefore := other.count()

	// When a connection sends without joining
	coordinator.Send(ctx, "conn-1", "hi")

	// Then only the offender hears about it and nothing is recorded
	req.Equal([]string{"error"}, sink.names())
	req.Equal("User not found", sink.at(0).(event.Error).Message)
	req.Equal(otherBefore, other.count())
	req.Zero(history.Len())
}

func TestCoordinator_DisconnectBroadcastsDeparture(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, _ := newTestCoordinator(t, echoTransformer{})

	leaver := &recordingSink{}
	stayer := &recordingSink{}
	coordinator.Register("conn-1", leaver)
	coordinator.Register("conn-2", stayer)
	coordinator.Join(ctx, "conn-1", "Kasia", "uwu")
	coordinator.Join(ctx, "conn-2", "Tomek", "uwu")
	stayerBefore := stayer.count()

	// When the first participant disconnects
	coordinator.Disconnect("conn-1")

	// Then the remaining one hears user-left followed by the new roster
	req.Equal(stayerBefore+2, stayer.count())
	left := stayer.at(stayerBefore).(event.UserLeft)
	req.Equal("Kasia", left.Participant.DisplayNickname)

	list := stayer.at(stayerBefore + 1).(event.UsersList)
	req.Len(list.Participants, 1)
	req.Equal("Tomek", list.Participants[0].DisplayNickname)
}

func TestCoordinator_DisconnectBeforeJoinIsSilent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	coordinator, _ := newTestCoordinator(t, echoTransformer{})

	ghost := &recordingSink{}
	joined := &recordingSink{}
	coordinator.Register("conn-1", ghost)
	coordinator.Register("conn-2", joined)
	coordinator.Join(ctx, "conn-2", "Tomek", "uwu")
	joinedBefore := joined.count()

	// When a connection that never joined disconnects
	coordinator.Disconnect("conn-1")

	// Then nobody hears anything
	req.Equal(joinedBefore, joined.count())
	req.Zero(ghost.count())
}

func TestCoordinator_HistoryFailureRejectsOnlySender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a history store that refuses every append
	historyMock := mocks.NewMockIHistory(ctrl)
	historyMock.EXPECT().Snapshot().Return(nil, nil).AnyTimes()
	historyMock.EXPECT().Append(gomock.Any()).Return(fmt.Errorf("store unavailable")).AnyTimes()

	coordinator := NewCoordinator(slog.Default(), NewRegistry(), historyMock,
		echoTransformer{}, nil, domain.StyleUwu)

	sender := &recordingSink{}
	other := &recordingSink{}
	coordinator.Register("conn-1", sender)
	coordinator.Register("conn-2", other)
	coordinator.Join(ctx, "conn-1", "Kasia", "uwu")
	coordinator.Join(ctx, "conn-2", "Tomek", "uwu")
	senderBefore := sender.count()
	otherBefore := other.count()

	// When a send cannot be recorded
	coordinator.Send(ctx, "conn-1", "hi")

	// Then only the sender gets an error, nothing is broadcast
	req.Equal(senderBefore+1, sender.count())
	req.Equal("Failed to send message", sender.at(senderBefore).(event.Error).Message)
	req.Equal(otherBefore, other.count())
}

func TestCoordinator_CensorRunsOnDisplayTextOnly(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	history, err := NewHistory(slog.Default(), 100)
	req.NoError(err)
	t.Cleanup(func() { _ = history.Close() })

	censor := func(s string) string { return "[censored]" }
	coordinator := NewCoordinator(slog.Default(), NewRegistry(), history,
		echoTransformer{}, censor, domain.StyleUwu)

	sink := &recordingSink{}
	coordinator.Register("conn-1", sink)
	coordinator.Join(ctx, "conn-1", "Kasia", "uwu")
	before := sink.count()

	coordinator.Send(ctx, "conn-1", "something rude")

	// Then the display text is censored but the original is preserved
	got := sink.at(before).(event.NewMessage)
	req.Equal("[censored]", got.Message.DisplayContent)
	req.Equal("something rude", got.Message.OriginalContent)
}

func TestCoordinator_QuotaEvents(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	history, err := NewHistory(slog.Default(), 100)
	req.NoError(err)
	t.Cleanup(func() { _ = history.Close() })

	remaining, limit := 3, 50
	transformerMock := mocks.NewMockITransformer(ctrl)
	transformerMock.EXPECT().QuotaSnapshot().Return(domain.RateLimitState{
		IsExceeded: true,
		LastError:  "Quota exceeded",
		Remaining:  &remaining,
		Limit:      &limit,
	}).AnyTimes()

	coordinator := NewCoordinator(slog.Default(), NewRegistry(), history,
		transformerMock, nil, domain.StyleUwu)

	asker := &recordingSink{}
	bystander := &recordingSink{}
	coordinator.Register("conn-1", asker)
	coordinator.Register("conn-2", bystander)

	// When one connection asks for the quota
	coordinator.RequestQuota(ctx, "conn-1")

	// Then only that connection gets the snapshot
	req.Equal([]string{"quota-update"}, asker.names())
	req.Zero(bystander.count())

	update := asker.at(0).(event.QuotaUpdate)
	req.True(update.IsExceeded)
	req.Equal("Quota exceeded", update.LastError)
	req.Equal(3, *update.Remaining)

	// And a push reaches everyone
	coordinator.PushQuota(ctx)
	req.Equal(2, asker.count())
	req.Equal(1, bystander.count())
}
