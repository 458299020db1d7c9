package domain

import (
	"fmt"
	"time"
)

// ChatMessage is an immutable record of a delivered message. Author is a
// snapshot of the participant at send time, not a live reference, so later
// disconnects do not rewrite history.
type ChatMessage struct {
	ID              string      `json:"id"`
	Author          Participant `json:"user"`
	DisplayContent  string      `json:"content"`
	OriginalContent string      `json:"originalContent"`
	SentAt          time.Time   `json:"timestamp"`
}

// NewMessageID builds a monotonically orderable id. The millisecond epoch
// sorts messages by time and the connection id breaks ties between senders
// hitting the same millisecond.
func NewMessageID(at time.Time, connID ConnectionID) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), connID)
}
