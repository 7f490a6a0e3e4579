package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("connection is closed")

const (
	writeWait = 5 * time.Second
	pingWait  = 3 * time.Second
)

// Conn is a client websocket connection. Writes are serialized; a single
// goroutine is expected to call Listen.
type Conn struct {
	conn    *websocket.Conn
	doneCtx context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
}

// Dial opens a websocket connection to url with the given request headers.
func Dial(ctx context.Context, url string, header http.Header, handshakeTimeout time.Duration) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewConn(ctx, conn), nil
}

func NewConn(ctx context.Context, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	return &Conn{
		conn:    conn,
		doneCtx: ctx,
		cancel:  cancel,
	}
}

// Health pings the peer.
func (c *Conn) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.healthLocked(); err != nil {
		return err
	}
	if err := c.conn.WriteControl(
		websocket.PingMessage,
		[]byte("ping"),
		time.Now().Add(pingWait),
	); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (c *Conn) healthLocked() error {
	if c.conn == nil {
		return errors.New("connection is nil")
	}
	select {
	case <-c.doneCtx.Done():
		return ErrClosed
	default:
	}
	return nil
}

// Send writes v as a JSON text frame.
func (c *Conn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.healthLocked(); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return c.conn.WriteJSON(v)
}

// Listen reads frames and hands them to handler until the connection fails
// or is closed.
func (c *Conn) Listen(handler func(data []byte) error) error {
	for {
		select {
		case <-c.doneCtx.Done():
			return ErrClosed
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.doneCtx.Err() != nil {
				return ErrClosed
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if err := handler(data); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCtx.Done()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doneCtx.Err() != nil {
		return nil
	}
	c.cancel()

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(pingWait),
	)
	return c.conn.Close()
}
