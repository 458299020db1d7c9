package e2e

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"style-relay/domain"
	"style-relay/ws"
)

const eventTimeout = 3 * time.Second

type testChatRelaySuite struct {
	BaseWsSuite
}

func TestChatRelaySuite(t *testing.T) {
	suite.Run(t, &testChatRelaySuite{})
}

func (s *testChatRelaySuite) TestFullChatFlow() {
	kasia := s.Dial("Kasia")
	defer kasia.Close()

	// --- STEP 1: FIRST JOIN ---
	s.Run("Step 1: Kasia joins and receives the welcome sequence", func() {
		kasia.Send(ws.TypeJoin, ws.JoinPayload{Nickname: "Kasia", Style: "uwu"})

		joined := kasia.ExpectEvent("user-joined", eventTimeout)
		var self domain.Participant
		s.Require().NoError(json.Unmarshal(joined.Payload, &self))
		s.Require().Equal("Kasia", self.DisplayNickname)
		s.Require().Equal("Kasia", self.OriginalNickname)
		s.Require().Equal(domain.StyleUwu, self.Style)
		s.Require().NotEmpty(self.ConnectionID)

		list := kasia.ExpectEvent("users-list", eventTimeout)
		var users []domain.Participant
		s.Require().NoError(json.Unmarshal(list.Payload, &users))
		s.Require().Len(users, 1)

		history := kasia.ExpectEvent("messages-history", eventTimeout)
		var messages []domain.ChatMessage
		s.Require().NoError(json.Unmarshal(history.Payload, &messages))
		s.Require().Empty(messages)
	})

	// Dialing only after Kasia's join is fully committed: every connection
	// hears room broadcasts, so an earlier dial would see step 1's events.
	tomek := s.Dial("Tomek")
	defer tomek.Close()

	// --- STEP 2: SECOND JOIN ---
	s.Run("Step 2: Tomek joins, Kasia is notified", func() {
		tomek.Send(ws.TypeJoin, ws.JoinPayload{Nickname: "Tomek", Style: "victorian"})

		tomek.ExpectEvent("user-joined", eventTimeout)
		tomek.ExpectEvent("users-list", eventTimeout)
		tomek.ExpectEvent("messages-history", eventTimeout)

		joined := kasia.ExpectEvent("user-joined", eventTimeout)
		var p domain.Participant
		s.Require().NoError(json.Unmarshal(joined.Payload, &p))
		s.Require().Equal("Tomek", p.DisplayNickname)
		s.Require().Equal(domain.StyleVictorian, p.Style)

		list := kasia.ExpectEvent("users-list", eventTimeout)
		var users []domain.Participant
		s.Require().NoError(json.Unmarshal(list.Payload, &users))
		s.Require().Len(users, 2)
	})

	// --- STEP 3: MESSAGE BROADCAST ---
	var messageID string
	s.Run("Step 3: A message reaches everyone exactly once", func() {
		kasia.Send(ws.TypeSendMessage, ws.SendMessagePayload{Content: "hello everyone"})

		for _, client := range []*WsClient{kasia, tomek} {
			frame := client.ExpectEvent("new-message", eventTimeout)
			var m domain.ChatMessage
			s.Require().NoError(json.Unmarshal(frame.Payload, &m))
			s.Require().Equal("hello everyone", m.DisplayContent)
			s.Require().Equal("hello everyone", m.OriginalContent)
			s.Require().Equal("Kasia", m.Author.DisplayNickname)
			s.Require().NotEmpty(m.ID)
			if messageID == "" {
				messageID = m.ID
			} else {
				s.Require().Equal(messageID, m.ID, "both clients must see the same message")
			}
		}
	})

	// --- STEP 4: HISTORY REPLAY ---
	s.Run("Step 4: A latecomer receives the history", func() {
		ola := s.Dial("Ola")
		defer ola.Close()

		ola.Send(ws.TypeJoin, ws.JoinPayload{Nickname: "Ola"})

		ola.ExpectEvent("user-joined", eventTimeout)
		ola.ExpectEvent("users-list", eventTimeout)

		history := ola.ExpectEvent("messages-history", eventTimeout)
		var messages []domain.ChatMessage
		s.Require().NoError(json.Unmarshal(history.Payload, &messages))
		s.Require().Len(messages, 1)
		s.Require().Equal(messageID, messages[0].ID)

		// The established clients hear about the latecomer
		kasia.ExpectEvent("user-joined", eventTimeout)
		kasia.ExpectEvent("users-list", eventTimeout)
		tomek.ExpectEvent("user-joined", eventTimeout)
		tomek.ExpectEvent("users-list", eventTimeout)

		// And about the departure once the latecomer closes
		ola.Close()
		kasia.ExpectEvent("user-left", eventTimeout)
		kasia.ExpectEvent("users-list", eventTimeout)
		tomek.ExpectEvent("user-left", eventTimeout)
		tomek.ExpectEvent("users-list", eventTimeout)
	})

	// --- STEP 5: QUOTA SNAPSHOT ---
	s.Run("Step 5: Quota request is answered privately", func() {
		tomek.Send(ws.TypeRequestQuota, nil)

		frame := tomek.ExpectEvent("quota-update", eventTimeout)
		var quota struct {
			IsExceeded bool   `json:"isExceeded"`
			ResetTime  *int64 `json:"resetTime"`
		}
		s.Require().NoError(json.Unmarshal(frame.Payload, &quota))
		s.Require().False(quota.IsExceeded)
		s.Require().Nil(quota.ResetTime)
	})
}

func (s *testChatRelaySuite) TestSendBeforeJoinRejected() {
	stranger := s.Dial("Stranger")
	defer stranger.Close()

	// When a connection sends without joining first
	stranger.Send(ws.TypeSendMessage, ws.SendMessagePayload{Content: "sneaky"})

	// Then it gets an error frame and nothing else
	frame := stranger.ExpectEvent("error", eventTimeout)
	var message string
	s.Require().NoError(json.Unmarshal(frame.Payload, &message))
	s.Require().Equal("User not found", message)
}

func (s *testChatRelaySuite) TestInvalidFrameRejected() {
	client := s.Dial("Mallory")
	defer client.Close()

	// When the join payload fails validation
	client.Send(ws.TypeJoin, ws.JoinPayload{Nickname: ""})

	frame := client.ExpectEvent("error", eventTimeout)
	var message string
	s.Require().NoError(json.Unmarshal(frame.Payload, &message))
	s.Require().Equal("Invalid join payload", message)
}
