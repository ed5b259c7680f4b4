package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/navigator/internal/config"
	"github.com/xiaot623/gogo/navigator/internal/service"
)

// Chatter opens sessions and handles conversational turns.
type Chatter interface {
	OpenSession(ctx context.Context, id string) (string, error)
	Handle(ctx context.Context, req service.Request) (*service.Response, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      config.WebSocketConfig
	chat     Chatter
	turnTime time.Duration
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer creates a new WebSocket server. turnTimeout bounds each chat turn.
func NewServer(cfg config.WebSocketConfig, chat Chatter, turnTimeout time.Duration, logger zerolog.Logger) *Server {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout * 9 / 10
	}
	if turnTimeout <= 0 {
		turnTimeout = 2 * time.Minute
	}
	return &Server{
		cfg:      cfg,
		chat:     chat,
		turnTime: turnTimeout,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// connection is a single client connection. Turns are handled one at a
// time in arrival order.
type connection struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	turns     chan ChatMessage
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	sessionID string
}

func (c *connection) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *connection) bind(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
// GET /ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return err
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	conn := &connection{
		id:    uuid.New().String(),
		conn:  ws,
		send:  make(chan []byte, 64),
		turns: make(chan ChatMessage, 16),
		done:  make(chan struct{}),
	}
	s.logger.Debug().Str("conn_id", conn.id).Msg("connection opened")

	go s.writePump(conn)
	go s.turnLoop(conn)
	go s.readPump(conn)
	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *connection) {
	defer conn.close()

	conn.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn().Err(err).Str("conn_id", conn.id).Msg("websocket read failed")
			}
			return
		}
		s.handleMessage(conn, message)
	}
}

// writePump writes queued messages and keeps the connection alive.
func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.close()
	}()

	for {
		select {
		case <-conn.done:
			return
		case message := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn().Err(err).Str("conn_id", conn.id).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// turnLoop runs chat turns sequentially so a connection never races itself.
func (s *Server) turnLoop(conn *connection) {
	for {
		select {
		case <-conn.done:
			return
		case msg := <-conn.turns:
			s.runTurn(conn, msg)
		}
	}
}

// handleMessage dispatches incoming messages.
func (s *Server) handleMessage(conn *connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeHello:
		s.handleHello(conn, data)
	case TypeChat:
		s.handleChat(conn, data)
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

func (s *Server) handleHello(conn *connection, data []byte) {
	var msg HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid hello message")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	sessionID, err := s.chat.OpenSession(ctx, msg.SessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("conn_id", conn.id).Msg("failed to open session")
		s.sendError(conn, msg.RequestID, ErrorCodeInternalError, "failed to open session")
		return
	}
	conn.bind(sessionID)

	s.send(conn, HelloAckMessage{BaseMessage: BaseMessage{
		Type:      TypeHelloAck,
		Ts:        time.Now().UnixMilli(),
		RequestID: msg.RequestID,
		SessionID: sessionID,
	}})
	s.logger.Debug().Str("conn_id", conn.id).Str("session_id", sessionID).Msg("hello handshake completed")
}

func (s *Server) handleChat(conn *connection, data []byte) {
	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid chat message")
		return
	}
	if conn.session() == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeSessionRequired, "must send hello first")
		return
	}
	select {
	case conn.turns <- msg:
	case <-conn.done:
	default:
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidMessage, "too many pending messages")
	}
}

func (s *Server) runTurn(conn *connection, msg ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), s.turnTime)
	defer cancel()

	resp, err := s.chat.Handle(ctx, service.Request{
		Query:     msg.Query,
		Context:   msg.Context,
		SessionID: conn.session(),
	})
	if errors.Is(err, service.ErrEmptyQuery) {
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidMessage, err.Error())
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("conn_id", conn.id).Msg("chat turn failed")
		s.sendError(conn, msg.RequestID, ErrorCodeInternalError, "failed to process message")
		return
	}

	// An expired session was replaced; follow the new id.
	conn.bind(resp.SessionID)
	s.send(conn, ChatResultMessage{
		BaseMessage: BaseMessage{
			Type:      TypeChatResult,
			Ts:        time.Now().UnixMilli(),
			RequestID: msg.RequestID,
			SessionID: resp.SessionID,
		},
		Output:     resp.Output,
		Intent:     string(resp.Intent),
		LoopStatus: string(resp.Status),
	})
}

func (s *Server) sendError(conn *connection, requestID, code, message string) {
	s.send(conn, ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			SessionID: conn.session(),
		},
		Code:    code,
		Message: message,
	})
}

func (s *Server) send(conn *connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode websocket message")
		return
	}
	select {
	case conn.send <- data:
	case <-conn.done:
	}
}
