package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"style-relay/domain"
	"style-relay/runtime"
	"style-relay/transform"
	"style-relay/ws"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config

	server  *echo.Echo
	history *runtime.History
	addr    string
}

// SetupSuite loads the environment configuration and, unless an external
// server address is configured, boots the full relay in-process on a random
// port. The gateway runs without a provider client, so transformations are
// identities and assertions stay deterministic.
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr != "" {
		s.addr = s.Config.ServerAddr
		return
	}

	log := slog.Default()
	gateway := transform.NewGateway(log, nil, transform.NewTracker(), transform.GatewayConfig{
		DefaultStyle:      domain.StyleUwu,
		NicknameMaxLength: 30,
		MessageMaxLength:  500,
	})

	s.history, err = runtime.NewHistory(log, 100)
	s.Require().NoError(err)

	coordinator := runtime.NewCoordinator(log, runtime.NewRegistry(), s.history,
		gateway, nil, domain.StyleUwu)

	s.server = echo.New()
	s.server.HideBanner = true
	s.server.HidePort = true
	ws.NewServer(log, coordinator, ws.ServerConfig{
		ConnectionBufferSize: 64,
		MaxFrameSize:         8192,
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         5 * time.Second,
		PingInterval:         10 * time.Second,
	}).Register(s.server)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.server.Listener = listener
	s.addr = listener.Addr().String()

	go func() {
		_ = s.server.Start("")
	}()
}

func (s *BaseWsSuite) TearDownSuite() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	if s.history != nil {
		_ = s.history.Close()
	}
}

// Dial opens a client connection with a colorized header in the logs.
func (s *BaseWsSuite) Dial(name string) *WsClient {
	header := fmt.Sprintf("  ====== %s connects ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	url := fmt.Sprintf("ws://%s/ws", s.addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to connect to relay at "+url)
	return &WsClient{suite: s, name: name, conn: conn}
}

// WsClient wraps one WebSocket connection with frame helpers.
type WsClient struct {
	suite *BaseWsSuite
	name  string
	conn  *websocket.Conn
}

func (c *WsClient) Close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

// Send marshals and writes one frame.
func (c *WsClient) Send(frameType string, payload any) {
	envelope := ws.Envelope{Type: frameType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		c.suite.Require().NoError(err)
		envelope.Payload = raw
	}
	c.suite.Require().NoError(c.conn.WriteJSON(envelope))
}

// NextEvent reads one frame, failing the test if none arrives in time.
func (c *WsClient) NextEvent(timeout time.Duration) ws.Envelope {
	c.suite.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(timeout)))
	_, frame, err := c.conn.ReadMessage()
	c.suite.Require().NoError(err, "%s expected a frame within %v", c.name, timeout)

	if c.suite.Config.DebugJSON {
		c.suite.T().Logf("%s <- %s", c.name, string(frame))
	}

	var envelope ws.Envelope
	c.suite.Require().NoError(json.Unmarshal(frame, &envelope))
	return envelope
}

// ExpectEvent reads one frame and asserts its type.
func (c *WsClient) ExpectEvent(frameType string, timeout time.Duration) ws.Envelope {
	envelope := c.NextEvent(timeout)
	c.suite.Require().Equal(frameType, envelope.Type,
		"%s expected a %s frame, got %s", c.name, frameType, envelope.Type)
	return envelope
}
