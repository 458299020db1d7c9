package event

import (
	"time"

	"style-relay/domain"
)

// DomainEvent is any outbound fact the coordinator emits towards connected
// clients. EventName is the wire-level event type.
type DomainEvent interface {
	EventName() string
}

type UserJoined struct {
	Participant domain.Participant
}

func (UserJoined) EventName() string { return "user-joined" }

type UsersList struct {
	Participants []domain.Participant
}

func (UsersList) EventName() string { return "users-list" }

// MessagesHistory is sent to a joining connection only, once.
type MessagesHistory struct {
	Messages []domain.ChatMessage
}

func (MessagesHistory) EventName() string { return "messages-history" }

type NewMessage struct {
	Message domain.ChatMessage
}

func (NewMessage) EventName() string { return "new-message" }

type UserLeft struct {
	Participant domain.Participant
}

func (UserLeft) EventName() string { return "user-left" }

// Error is only ever delivered to the connection that caused it.
type Error struct {
	Message string
}

func (Error) EventName() string { return "error" }

// QuotaUpdate mirrors the gateway rate-limit snapshot. ResetAt is epoch
// milliseconds so browser clients can consume it without date parsing.
type QuotaUpdate struct {
	IsExceeded bool
	ResetAt    *int64
	LastError  string
	Remaining  *int
	Limit      *int
	At         time.Time
}

func (QuotaUpdate) EventName() string { return "quota-update" }
