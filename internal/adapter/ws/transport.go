package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-driver/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-driver/pkg/wsconn"
)

var ErrNotConnected = errors.New("transport is not connected")

type Config struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
	InboundBuffer    int
}

func (c *Config) withDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = 30 * c.ReconnectMin
	}
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = 64
	}
}

// Transport is the websocket link to the dispatch backend. It wraps outbound
// payloads in the message envelope, redials with backoff and reports link
// changes as synthetic transport.* messages on Inbound.
type Transport struct {
	cfg Config
	l   logger.Logger

	inbound chan models.Message
	closed  chan struct{}
	once    sync.Once

	mu   sync.RWMutex
	conn *wsconn.Conn
}

// Connect dials the backend and authenticates. It fails if the first dial
// fails; later drops are retried until ctx is done or Close is called.
func Connect(ctx context.Context, cfg Config, l logger.Logger) (*Transport, error) {
	const op = "ws.Connect"
	cfg.withDefaults()

	t := &Transport{
		cfg:     cfg,
		l:       l,
		inbound: make(chan models.Message, cfg.InboundBuffer),
		closed:  make(chan struct{}),
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	t.setConn(conn)

	l.Info(wrap.WithAction(ctx, types.ActionTransportConnected), "connected to dispatch backend", "url", cfg.URL)

	go t.run(context.WithoutCancel(ctx), ctx.Done(), conn)
	return t, nil
}

// Inbound is closed when the transport stops for good.
func (t *Transport) Inbound() <-chan models.Message {
	return t.inbound
}

// Send wraps payload in an envelope and writes it to the current connection.
func (t *Transport) Send(ctx context.Context, msgType types.MessageType, payload any) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	env, err := envelope(msgType, payload)
	if err != nil {
		return err
	}
	if err := conn.Send(env); err != nil {
		return fmt.Errorf("%s: %w", msgType, err)
	}
	t.l.Debug(ctx, "message sent", "type", msgType, "id", env.ID)
	return nil
}

// Close stops reconnecting and closes the connection. Inbound is closed once
// the read loop has exited.
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		t.mu.Lock()
		close(t.closed)
		conn := t.conn
		t.conn = nil
		t.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func envelope(msgType types.MessageType, payload any) (models.Message, error) {
	msg := models.Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return msg, fmt.Errorf("marshal %s: %w", msgType, err)
		}
		msg.Data = data
	}
	return msg, nil
}

func (t *Transport) dial(ctx context.Context) (*wsconn.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+t.cfg.Token)

	conn, err := wsconn.Dial(ctx, t.cfg.URL, header, t.cfg.HandshakeTimeout)
	if err != nil {
		return nil, err
	}

	auth, err := envelope(types.MsgAuth, models.AuthMessage{Token: "Bearer " + t.cfg.Token})
	if err == nil {
		err = conn.Send(auth)
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}
	return conn, nil
}

// setConn publishes conn for Send. It refuses once the transport is closed.
func (t *Transport) setConn(conn *wsconn.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.closed:
		return false
	default:
	}
	t.conn = conn
	return true
}

func (t *Transport) isClosed(stop <-chan struct{}) bool {
	select {
	case <-t.closed:
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

// run owns the read side. It reads until the connection drops, reports the
// drop, redials and reports the recovery.
func (t *Transport) run(ctx context.Context, stop <-chan struct{}, conn *wsconn.Conn) {
	defer close(t.inbound)

	go func() {
		select {
		case <-stop:
			t.Close()
		case <-t.closed:
		}
	}()

	for {
		pingDone := make(chan struct{})
		go t.ping(conn, pingDone)

		err := conn.Listen(func(data []byte) error {
			var msg models.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.l.Warn(ctx, "malformed frame dropped", "error", err.Error())
				return nil
			}
			t.deliver(msg, stop)
			return nil
		})
		close(pingDone)
		conn.Close()

		if t.isClosed(stop) {
			return
		}

		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		t.mu.Unlock()

		dctx := wrap.WithAction(ctx, types.ActionTransportDisconnected)
		t.l.Warn(dctx, "connection to dispatch backend lost", "error", err.Error())
		t.deliver(synthetic(types.MsgTransportDisconnected, err.Error()), stop)

		conn = t.redial(ctx, stop)
		if conn == nil {
			return
		}
		if !t.setConn(conn) {
			conn.Close()
			return
		}
		t.l.Info(wrap.WithAction(ctx, types.ActionTransportConnected), "connection to dispatch backend restored")
		t.deliver(synthetic(types.MsgTransportConnected, ""), stop)
	}
}

// redial retries with exponential backoff. It returns nil once the transport
// is closed.
func (t *Transport) redial(ctx context.Context, stop <-chan struct{}) *wsconn.Conn {
	ctx = wrap.WithAction(ctx, types.ActionTransportReconnect)
	wait := t.cfg.ReconnectMin

	for attempt := 1; ; attempt++ {
		select {
		case <-t.closed:
			return nil
		case <-stop:
			return nil
		case <-time.After(wait):
		}

		conn, err := t.dial(ctx)
		if err == nil {
			return conn
		}
		t.l.Debug(ctx, "reconnect attempt failed", "attempt", attempt, "error", err.Error(), "retry_in", wait.String())

		wait *= 2
		if wait > t.cfg.ReconnectMax {
			wait = t.cfg.ReconnectMax
		}
	}
}

func (t *Transport) ping(conn *wsconn.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.Health(); err != nil {
				// unblocks Listen
				conn.Close()
				return
			}
		}
	}
}

func (t *Transport) deliver(msg models.Message, stop <-chan struct{}) {
	select {
	case t.inbound <- msg:
	case <-t.closed:
	case <-stop:
	}
}

func synthetic(msgType types.MessageType, reason string) models.Message {
	msg := models.Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
	msg.Data, _ = json.Marshal(models.TransportStatusMessage{Error: reason})
	return msg
}
