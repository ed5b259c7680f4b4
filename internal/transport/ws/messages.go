// Package ws serves the chat assistant over WebSocket.
package ws

// Message types from client to server
const (
	TypeHello = "hello"
	TypeChat  = "chat"
)

// Message types from server to client
const (
	TypeHelloAck   = "hello_ack"
	TypeChatResult = "chat_result"
	TypeError      = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeInternalError   = "internal_error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage binds the connection to a session. An empty or expired
// session id starts a new conversation.
type HelloMessage struct {
	BaseMessage
}

type HelloAckMessage struct {
	BaseMessage
}

// ChatMessage is one user turn.
type ChatMessage struct {
	BaseMessage
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
}

// ChatResultMessage answers a ChatMessage.
type ChatResultMessage struct {
	BaseMessage
	Output     string `json:"output"`
	Intent     string `json:"intent"`
	LoopStatus string `json:"loop_status"`
}

// ErrorMessage is sent when a message cannot be handled.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
