package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/navigator/internal/transport/ws"
)

// Client is a WebSocket chat client for a running navigator.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	timeout   time.Duration
}

// Dial connects to the server at addr.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// SessionID returns the session bound by Hello.
func (c *Client) SessionID() string { return c.sessionID }

// Hello binds the connection to sessionID, or to a new session when empty.
func (c *Client) Hello(sessionID string) error {
	msg := ws.HelloMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	data, base, err := c.read()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	if base.Type == ws.TypeError {
		return decodeError(data)
	}
	if base.Type != ws.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}
	c.sessionID = base.SessionID
	return nil
}

// Chat sends one query and waits for its answer.
func (c *Client) Chat(query string, ctx map[string]any) (*ws.ChatResultMessage, error) {
	requestID := fmt.Sprintf("req_%d", time.Now().UnixNano())
	msg := ws.ChatMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeChat,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			SessionID: c.sessionID,
		},
		Query:   query,
		Context: ctx,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("write chat: %w", err)
	}

	for {
		data, base, err := c.read()
		if err != nil {
			return nil, fmt.Errorf("read chat_result: %w", err)
		}
		if base.RequestID != "" && base.RequestID != requestID {
			continue
		}
		switch base.Type {
		case ws.TypeError:
			return nil, decodeError(data)
		case ws.TypeChatResult:
			var result ws.ChatResultMessage
			if err := json.Unmarshal(data, &result); err != nil {
				return nil, fmt.Errorf("unmarshal chat_result: %w", err)
			}
			if result.SessionID != "" {
				c.sessionID = result.SessionID
			}
			return &result, nil
		}
	}
}

func (c *Client) read() ([]byte, ws.BaseMessage, error) {
	var base ws.BaseMessage
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, base, err
		}
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, base, err
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, base, fmt.Errorf("unmarshal: %w", err)
	}
	return data, base, nil
}

func decodeError(data []byte) error {
	var msg ws.ErrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}
	return fmt.Errorf("%s - %s", msg.Code, msg.Message)
}

func newChatCmd() *cobra.Command {
	var (
		addr      string
		sessionID string
		departure string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running navigator over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connecting to %s...\n", addr)

			client, err := Dial(addr, timeout)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Hello(sessionID); err != nil {
				return fmt.Errorf("hello failed: %w", err)
			}
			fmt.Fprintf(out, "Session established: %s\n", client.SessionID())
			fmt.Fprintln(out, "Type a message and press Enter to send. /quit to exit.")

			var ctx map[string]any
			if departure != "" {
				ctx = map[string]any{"departure_city": departure}
			}
			return chatLoop(client, cmd.InOrStdin(), out, ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:8000/ws", "WebSocket server address")
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session")
	cmd.Flags().StringVar(&departure, "from", "", "departure city sent as context")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "wait limit per answer")
	return cmd
}

func chatLoop(client *Client, in io.Reader, out io.Writer, ctx map[string]any) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Fprintln(out, "Bye!")
			return nil
		}

		result, err := client.Chat(input, ctx)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\n[%s] %s\n\n", result.Intent, result.Output)
	}
}
