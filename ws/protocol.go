// Package ws is the connection adapter: it translates WebSocket frames into
// coordinator calls and coordinator events into per-client frames. It keeps
// no chat state of its own beyond routing.
package ws

import (
	"encoding/json"
	"fmt"

	"style-relay/domain"
	"style-relay/domain/event"
)

// Inbound frame types, client to coordinator.
const (
	TypeJoin         = "join"
	TypeSendMessage  = "send-message"
	TypeRequestQuota = "request-quota"
)

// Envelope is the wire shape of every frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	Nickname string `json:"nickname" validate:"required,max=50"`
	Style    string `json:"style" validate:"omitempty,max=30"`
}

type SendMessagePayload struct {
	Content string `json:"content" validate:"required"`
}

// quotaPayload mirrors event.QuotaUpdate for browser consumption: reset time
// as epoch milliseconds, counters null when the provider never reported any.
type quotaPayload struct {
	IsExceeded        bool   `json:"isExceeded"`
	ResetTime         *int64 `json:"resetTime"`
	LastError         string `json:"lastError,omitempty"`
	RequestsRemaining *int   `json:"requestsRemaining"`
	RequestsLimit     *int   `json:"requestsLimit"`
	At                int64  `json:"at"`
}

// EncodeEvent serializes a domain event into its outbound frame.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	var payload any
	switch evt := e.(type) {
	case event.UserJoined:
		payload = evt.Participant
	case event.UsersList:
		payload = nonNilParticipants(evt.Participants)
	case event.MessagesHistory:
		payload = nonNilMessages(evt.Messages)
	case event.NewMessage:
		payload = evt.Message
	case event.UserLeft:
		payload = evt.Participant
	case event.Error:
		payload = evt.Message
	case event.QuotaUpdate:
		payload = quotaPayload{
			IsExceeded:        evt.IsExceeded,
			ResetTime:         evt.ResetAt,
			LastError:         evt.LastError,
			RequestsRemaining: evt.Remaining,
			RequestsLimit:     evt.Limit,
			At:                evt.At.UnixMilli(),
		}
	default:
		return nil, fmt.Errorf("no wire encoding for event %q", e.EventName())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", e.EventName(), err)
	}
	return json.Marshal(Envelope{Type: e.EventName(), Payload: raw})
}

// Empty lists serialize as [] rather than null; browser clients iterate
// them without guards.
func nonNilParticipants(in []domain.Participant) []domain.Participant {
	if in == nil {
		return []domain.Participant{}
	}
	return in
}

func nonNilMessages(in []domain.ChatMessage) []domain.ChatMessage {
	if in == nil {
		return []domain.ChatMessage{}
	}
	return in
}
