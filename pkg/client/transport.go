package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one established socket. The client owns it exclusively and
// never hands it out.
type Conn interface {
	// ReadMessage blocks for the next frame. Server-initiated closes are
	// returned as *CloseError.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one text frame.
	WriteMessage(data []byte) error

	// SetReadDeadline bounds subsequent reads. The zero time clears it.
	SetReadDeadline(t time.Time) error

	// SetReadLimit caps inbound frame size.
	SetReadLimit(limit int64)

	// Close tears the socket down. Safe to call more than once.
	Close() error
}

// Dialer opens connections. Injected for tests and custom transports.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// CloseError is a close frame received from the server.
type CloseError struct {
	Code   int
	Reason string
}

// Error returns the error message.
func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("client: server closed connection: code %d", e.Code)
	}
	return fmt.Sprintf("client: server closed connection: code %d: %s", e.Code, e.Reason)
}

// wsDialer is the default gorilla/websocket transport.
type wsDialer struct {
	dialer       *websocket.Dialer
	writeTimeout time.Duration
}

func newWSDialer(handshakeTimeout, writeTimeout time.Duration) *wsDialer {
	return &wsDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		writeTimeout: writeTimeout,
	}
}

func (d *wsDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return &wsConn{conn: conn, writeTimeout: d.writeTimeout}, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *wsConn) SetReadLimit(limit int64) {
	c.conn.SetReadLimit(limit)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
