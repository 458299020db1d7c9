// Package runtime holds the chat room state machine: who is connected, who
// joined, what was said, and in which order everyone hears about it.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"style-relay/contract"
	"style-relay/domain"
	"style-relay/domain/event"
)

type connState int

const (
	stateConnected connState = iota
	stateJoined
	stateDisconnected
)

type connection struct {
	sink  contract.EventSink
	state connState
}

// Coordinator serializes all room mutations behind one mutex. Gateway calls
// happen outside the lock so a slow provider only stalls the operation that
// is waiting on it; the commit (registry/history update plus broadcast)
// runs under the lock, which makes broadcast order identical to commit
// order for every connection.
//
// Per-connection ordering is the adapter's side of the bargain: each
// connection dispatches its inbound events synchronously from its own read
// loop, so a client's second send can never overtake its first.
type Coordinator struct {
	mu           sync.Mutex
	log          *slog.Logger
	registry     contract.IRegistry
	history      contract.IHistory
	transformer  contract.ITransformer
	censor       func(string) string
	defaultStyle domain.Style

	connections map[domain.ConnectionID]*connection
	order       []domain.ConnectionID
}

// NewCoordinator wires the room. censor may be nil when moderation is
// disabled; it runs on display text only, after transformation.
func NewCoordinator(log *slog.Logger, registry contract.IRegistry, history contract.IHistory,
	transformer contract.ITransformer, censor func(string) string, defaultStyle domain.Style) *Coordinator {
	return &Coordinator{
		log:          log,
		registry:     registry,
		history:      history,
		transformer:  transformer,
		censor:       censor,
		defaultStyle: defaultStyle,
		connections:  make(map[domain.ConnectionID]*connection),
	}
}

// Register attaches a freshly connected transport. The connection can now
// join; nothing is broadcast yet.
func (c *Coordinator) Register(id domain.ConnectionID, sink contract.EventSink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.connections[id]; exists {
		c.log.Warn("Connection registered twice, ignoring", "connection_id", id)
		return
	}
	c.connections[id] = &connection{sink: sink, state: stateConnected}
	c.order = append(c.order, id)
}

// Join handles the nickname handshake. Valid only once per connection: a
// second attempt gets an error event and changes nothing.
func (c *Coordinator) Join(ctx context.Context, id domain.ConnectionID, nickname, style string) {
	c.mu.Lock()
	conn, ok := c.connections[id]
	if !ok {
		c.mu.Unlock()
		c.log.Warn("Join from unknown connection", "connection_id", id)
		return
	}
	if conn.state == stateJoined {
		sink := conn.sink
		c.mu.Unlock()
		c.emit(ctx, sink, event.Error{Message: "Already joined"})
		return
	}
	resolved := domain.ParseStyle(style, c.defaultStyle)
	c.mu.Unlock()

	// Outside the lock: the provider call may take its full timeout.
	display := c.applyCensor(c.transformer.TransformNickname(ctx, nickname, resolved))

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok = c.connections[id]
	if !ok || conn.state != stateConnected {
		// Disconnected (or joined through a duplicate frame) while the
		// transformation was in flight. Nothing to commit.
		return
	}

	participant := &domain.Participant{
		ConnectionID:     id,
		DisplayNickname:  display,
		OriginalNickname: nickname,
		Style:            resolved,
	}
	if err := c.registry.Add(participant); err != nil {
		c.log.Error("Registry rejected join", "connection_id", id, "error", err)
		c.emit(ctx, conn.sink, event.Error{Message: "Failed to join chat"})
		return
	}
	conn.state = stateJoined

	users := c.registry.ListAll()

	// The joiner must learn its own identity before it sees the list or the
	// history; everyone else must hear user-joined before the new list.
	c.emit(ctx, conn.sink, event.UserJoined{Participant: *participant})
	c.emit(ctx, conn.sink, event.UsersList{Participants: users})

	messages, err := c.history.Snapshot()
	if err != nil {
		c.log.Error("History snapshot failed", "connection_id", id, "error", err)
		messages = nil
	}
	c.emit(ctx, conn.sink, event.MessagesHistory{Messages: messages})

	c.broadcastExcept(ctx, id, event.UserJoined{Participant: *participant})
	c.broadcastExcept(ctx, id, event.UsersList{Participants: users})

	c.log.Info(fmt.Sprintf("User %s joined as %s", nickname, display))
}

// Send records and broadcasts one message. Only joined connections may
// send; everyone (sender included) receives exactly one new-message event.
func (c *Coordinator) Send(ctx context.Context, id domain.ConnectionID, content string) {
	c.mu.Lock()
	conn, ok := c.connections[id]
	if !ok {
		c.mu.Unlock()
		c.log.Warn("Send from unknown connection", "connection_id", id)
		return
	}
	if conn.state != stateJoined {
		sink := conn.sink
		c.mu.Unlock()
		c.emit(ctx, sink, event.Error{Message: "User not found"})
		return
	}
	participant, found := c.registry.Get(id)
	if !found {
		// Joined state without a registry entry is a structural defect;
		// reject this one operation and keep serving.
		sink := conn.sink
		c.mu.Unlock()
		c.log.Error("Joined connection missing from registry", "connection_id", id)
		c.emit(ctx, sink, event.Error{Message: "User not found"})
		return
	}
	author := *participant
	c.mu.Unlock()

	display := c.applyCensor(c.transformer.TransformMessage(ctx, content, author.Style))

	// A disconnect racing this send does not retract it: the message is
	// committed and broadcast to whoever is still connected.
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	message := domain.ChatMessage{
		ID:              domain.NewMessageID(now, id),
		Author:          author,
		DisplayContent:  display,
		OriginalContent: content,
		SentAt:          now,
	}
	if err := c.history.Append(message); err != nil {
		c.log.Error("History append failed", "message_id", message.ID, "error", err)
		if conn, ok := c.connections[id]; ok {
			c.emit(ctx, conn.sink, event.Error{Message: "Failed to send message"})
		}
		return
	}

	c.broadcast(ctx, event.NewMessage{Message: message})
}

// Disconnect detaches a connection. Broadcasts only if the join had
// completed; a disconnect after a failed join is silent.
func (c *Coordinator) Disconnect(id domain.ConnectionID) {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.connections[id]
	if !ok {
		return
	}
	wasJoined := conn.state == stateJoined
	conn.state = stateDisconnected
	delete(c.connections, id)
	for i, connID := range c.order {
		if connID == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if !wasJoined {
		return
	}

	participant := c.registry.Remove(id)
	if participant == nil {
		c.log.Error("Joined connection missing from registry on disconnect", "connection_id", id)
		return
	}

	c.broadcast(ctx, event.UserLeft{Participant: *participant})
	c.broadcast(ctx, event.UsersList{Participants: c.registry.ListAll()})

	c.log.Info(fmt.Sprintf("User %s disconnected", participant.DisplayNickname))
}

// RequestQuota answers a single connection with the current snapshot.
func (c *Coordinator) RequestQuota(ctx context.Context, id domain.ConnectionID) {
	c.mu.Lock()
	conn, ok := c.connections[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	c.emit(ctx, conn.sink, toQuotaUpdate(c.transformer.QuotaSnapshot()))
}

// PushQuota broadcasts the current snapshot to every connection.
func (c *Coordinator) PushQuota(ctx context.Context) {
	update := toQuotaUpdate(c.transformer.QuotaSnapshot())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcast(ctx, update)
}

func (c *Coordinator) applyCensor(text string) string {
	if c.censor == nil {
		return text
	}
	return c.censor(text)
}

// broadcast emits to every connection in registration order. Callers hold
// the mutex, which is what makes the emission a single ordered unit.
func (c *Coordinator) broadcast(ctx context.Context, e event.DomainEvent) {
	for _, id := range c.order {
		if conn, ok := c.connections[id]; ok {
			c.emit(ctx, conn.sink, e)
		}
	}
}

func (c *Coordinator) broadcastExcept(ctx context.Context, skip domain.ConnectionID, e event.DomainEvent) {
	for _, id := range c.order {
		if id == skip {
			continue
		}
		if conn, ok := c.connections[id]; ok {
			c.emit(ctx, conn.sink, e)
		}
	}
}

func (c *Coordinator) emit(ctx context.Context, sink contract.EventSink, events ...event.DomainEvent) {
	for _, e := range events {
		if err := sink.Consume(ctx, e); err != nil {
			c.log.Warn("Sink refused event", "event", e.EventName(), "error", err)
		}
	}
}

func toQuotaUpdate(s domain.RateLimitState) event.QuotaUpdate {
	update := event.QuotaUpdate{
		IsExceeded: s.IsExceeded,
		LastError:  s.LastError,
		Remaining:  s.Remaining,
		Limit:      s.Limit,
		At:         time.Now().UTC(),
	}
	if s.ResetAt != nil {
		millis := s.ResetAt.UnixMilli()
		update.ResetAt = &millis
	}
	return update
}
