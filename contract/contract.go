//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"style-relay/domain"
	"style-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives outbound events for one destination (usually a single
// client connection). Consume must not block longer than the sink's own
// delivery budget; the coordinator calls it while holding its state lock.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ITransformer is the gateway contract. Both transforms degrade to their
// input on any failure and therefore never return an error.
type ITransformer interface {
	TransformNickname(ctx context.Context, original string, style domain.Style) string
	TransformMessage(ctx context.Context, original string, style domain.Style) string
	QuotaSnapshot() domain.RateLimitState
}

// IRegistry is the authoritative "who is online" store.
type IRegistry interface {
	Add(p *domain.Participant) error
	Remove(id domain.ConnectionID) *domain.Participant
	Get(id domain.ConnectionID) (*domain.Participant, bool)
	ListAll() []domain.Participant
	Len() int
}

// IHistory is the bounded, insertion-ordered message buffer.
type IHistory interface {
	Append(m domain.ChatMessage) error
	Snapshot() ([]domain.ChatMessage, error)
}

// ICoordinator is the single serialization point for a chat room.
type ICoordinator interface {
	Register(id domain.ConnectionID, sink EventSink)
	Join(ctx context.Context, id domain.ConnectionID, nickname, style string)
	Send(ctx context.Context, id domain.ConnectionID, content string)
	Disconnect(id domain.ConnectionID)
	RequestQuota(ctx context.Context, id domain.ConnectionID)
	PushQuota(ctx context.Context)
}
