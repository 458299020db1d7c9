package domain

// ConnectionID identifies a single client connection. It is assigned by the
// adapter when the transport connects and stays stable until disconnect.
type ConnectionID string

// Participant is a joined member of the chat. DisplayNickname is fixed once
// the join transformation resolved; the struct is never mutated afterwards.
type Participant struct {
	ConnectionID     ConnectionID `json:"id"`
	DisplayNickname  string       `json:"nickname"`
	OriginalNickname string       `json:"originalNickname"`
	Style            Style        `json:"style"`
}
