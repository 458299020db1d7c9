package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"style-relay/contract"
	"style-relay/domain"
	"style-relay/domain/event"
)

type ServerConfig struct {
	ConnectionBufferSize int
	MaxFrameSize         int64
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	PingInterval         time.Duration
}

// Server upgrades HTTP requests to WebSocket connections and runs one
// reader and one writer goroutine per connection. Inbound frames are
// dispatched synchronously from the reader, which gives each connection
// FIFO ordering of its own events for free.
type Server struct {
	log         *slog.Logger
	coordinator contract.ICoordinator
	cfg         ServerConfig
	validate    *validator.Validate
	upgrader    websocket.Upgrader
}

func NewServer(log *slog.Logger, coordinator contract.ICoordinator, cfg ServerConfig) *Server {
	return &Server{
		log:         log,
		coordinator: coordinator,
		cfg:         cfg,
		validate:    validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Register mounts the WebSocket endpoint.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/ws", s.HandleWebSocket)
}

// HandleWebSocket owns the whole connection lifecycle. The disconnect is
// funneled through a sync.Once so the coordinator hears it exactly once no
// matter how the connection dies.
func (s *Server) HandleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Error("WebSocket upgrade failed", "error", err)
		return err
	}

	connID := domain.ConnectionID(uuid.NewString())
	sink := NewSink(s.log, s.cfg.ConnectionBufferSize)
	s.coordinator.Register(connID, sink)
	s.log.Info("User connected", "connection_id", connID)

	done := make(chan struct{})
	var once sync.Once
	disconnect := func() {
		once.Do(func() {
			close(done)
			s.coordinator.Disconnect(connID)
		})
	}

	go s.writePump(conn, sink, done, disconnect)
	s.readPump(c.Request().Context(), conn, connID, sink, disconnect)
	return nil
}

// readPump decodes inbound frames and dispatches them one at a time, so a
// connection's second send can never be processed before its first.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, connID domain.ConnectionID,
	sink *Sink, disconnect func()) {
	defer func() {
		disconnect()
		_ = conn.Close()
	}()

	conn.SetReadLimit(s.cfg.MaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("WebSocket read failed", "connection_id", connID, "error", err)
			}
			return
		}
		s.handleFrame(ctx, connID, sink, frame)
	}
}

func (s *Server) handleFrame(ctx context.Context, connID domain.ConnectionID, sink *Sink, frame []byte) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		s.emitError(ctx, sink, "Invalid frame")
		return
	}

	switch envelope.Type {
	case TypeJoin:
		var payload JoinPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			s.emitError(ctx, sink, "Invalid join payload")
			return
		}
		if err := s.validate.Struct(&payload); err != nil {
			s.log.Warn("Join payload rejected", "connection_id", connID, "error", err)
			s.emitError(ctx, sink, "Invalid join payload")
			return
		}
		s.coordinator.Join(ctx, connID, payload.Nickname, payload.Style)

	case TypeSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			s.emitError(ctx, sink, "Invalid message payload")
			return
		}
		if err := s.validate.Struct(&payload); err != nil {
			s.log.Warn("Message payload rejected", "connection_id", connID, "error", err)
			s.emitError(ctx, sink, "Invalid message payload")
			return
		}
		s.coordinator.Send(ctx, connID, payload.Content)

	case TypeRequestQuota:
		s.coordinator.RequestQuota(ctx, connID)

	default:
		s.log.Warn("Unknown frame type", "connection_id", connID, "type", envelope.Type)
	}
}

// emitError routes an adapter-level rejection through the connection's own
// sink, so it reaches the client in order with everything else.
func (s *Server) emitError(ctx context.Context, sink *Sink, message string) {
	if err := sink.Consume(ctx, event.Error{Message: message}); err != nil {
		s.log.Warn("Failed to emit adapter error", "error", err)
	}
}

// writePump serializes sink events onto the socket and keeps the connection
// alive with pings. Any write failure tears the connection down.
func (s *Server) writePump(conn *websocket.Conn, sink *Sink, done <-chan struct{}, disconnect func()) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		disconnect()
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case evt := <-sink.Events():
			frame, err := EncodeEvent(evt)
			if err != nil {
				s.log.Error("Failed to encode event", "event", evt.EventName(), "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Warn(fmt.Sprintf("Failed to push %s event to stream", evt.EventName()), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
