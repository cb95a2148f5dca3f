package glazewm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a message-oriented connection to the window manager.
// Implementations must allow Close to be called concurrently with Recv.
type Conn interface {
	// Send writes one text message. The context deadline bounds the write.
	Send(ctx context.Context, msg string) error

	// Recv blocks for the next message. Without a context deadline it waits
	// until a message arrives, the peer goes away or ctx is cancelled.
	Recv(ctx context.Context) ([]byte, error)

	// Close tears down the connection
	Close() error
}

// Dialer opens new connections to the window manager
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WSDialer dials the GlazeWM WebSocket IPC server
type WSDialer struct {
	URL              string
	HandshakeTimeout time.Duration
}

// NewDialer creates a dialer for the given ws:// URL
func NewDialer(url string, handshakeTimeout time.Duration) *WSDialer {
	return &WSDialer{
		URL:              url,
		HandshakeTimeout: handshakeTimeout,
	}
}

// Dial connects to the peer. The handshake is bounded by both ctx and
// HandshakeTimeout.
func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, Classify(err, fmt.Sprintf("failed to connect to %s", d.URL))
	}

	return &wsConn{ws: ws}, nil
}

// wsConn adapts a gorilla websocket connection to Conn
type wsConn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Send(ctx context.Context, msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return Classify(err, "failed to set write deadline")
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return Classify(err, "failed to send message")
	}
	return nil
}

func (c *wsConn) Recv(ctx context.Context) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	if err := c.ws.SetReadDeadline(deadline); err != nil {
		return nil, Classify(err, "failed to set read deadline")
	}

	// Cancellation forces a blocked read to return.
	stop := context.AfterFunc(ctx, func() {
		c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, &QueryError{Kind: KindTransport, Err: ErrStreamClosed}
		}
		return nil, Classify(err, "failed to read message")
	}
	return data, nil
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		// WriteControl is safe to call concurrently with a pending write.
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
