package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Bind-Forward/port/domain/ports"
	"github.com/gorilla/websocket"
)

// WebSocket is a channel over one websocket connection. Each frame is one
// text message.
type WebSocket struct {
	conn      *websocket.Conn
	inbox     *inbox
	writeWait time.Duration

	mu     sync.Mutex
	closed bool
}

var _ ports.Channel = (*WebSocket)(nil)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// NewWebSocket wraps an established connection.
func NewWebSocket(conn *websocket.Conn, opts ...Option) *WebSocket {
	cfg := buildConfig(opts)
	conn.SetReadLimit(int64(cfg.maxFrameSize))
	ws := &WebSocket{conn: conn, inbox: newInbox(cfg.buffer), writeWait: cfg.writeWait}
	go ws.readLoop()
	return ws
}

// Dial connects to a worker listening at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...Option) (*WebSocket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial worker %s: %w", url, err)
	}
	return NewWebSocket(conn, opts...), nil
}

// Handler upgrades each request to a websocket and runs serve on it. The
// channel is closed when serve returns.
func Handler(serve func(ctx context.Context, ch ports.Channel), opts ...Option) http.Handler {
	cfg := buildConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.logger.WarnContext(r.Context(), "channel: websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}
		ws := NewWebSocket(conn, opts...)
		defer ws.Close()

		cfg.logger.DebugContext(r.Context(), "channel: websocket peer connected", "remote", r.RemoteAddr)
		serve(r.Context(), ws)
	})
}

func (ws *WebSocket) readLoop() {
	for {
		kind, data, err := ws.conn.ReadMessage()
		if err != nil {
			ws.inbox.finish(ws.readError(err))
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		if !ws.inbox.push(data) {
			ws.inbox.finish(io.EOF)
			return
		}
	}
}

func (ws *WebSocket) readError(err error) error {
	ws.mu.Lock()
	closed := ws.closed
	ws.mu.Unlock()
	if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	if errors.Is(err, websocket.ErrReadLimit) {
		return ErrFrameTooLarge
	}
	return fmt.Errorf("websocket read: %w", err)
}

// Send writes frame as one text message.
func (ws *WebSocket) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return ErrClosed
	}

	deadline := time.Now().Add(ws.writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ws.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	if err := ws.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Receive returns the next message.
func (ws *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	return ws.inbox.receive(ctx)
}

// Close sends a close message and closes the connection.
func (ws *WebSocket) Close() error {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return nil
	}
	ws.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	ws.mu.Unlock()

	ws.inbox.shut()
	return ws.conn.Close()
}
