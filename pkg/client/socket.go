package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/pushkit-dev/pushkit/pkg/protocol"
)

// dial opens a socket and waits for connection_established. The whole
// exchange is bounded by HandshakeTimeout; overrunning it fails with
// ErrConnectionTimeout.
func (c *Client) dial(ctx context.Context) (Conn, *protocol.ConnectionEstablished, error) {
	url := c.opts.URL()
	c.logger.Debug("dialing", "url", url)

	dctx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	conn, err := c.opts.Dialer.DialContext(dctx, url)
	if err != nil {
		if dctx.Err() != nil && ctx.Err() == nil {
			return nil, nil, fmt.Errorf("%w: dial: %v", ErrConnectionTimeout, err)
		}
		return nil, nil, err
	}
	conn.SetReadLimit(c.opts.MaxMessageSize)
	if deadline, ok := dctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, nil, fmt.Errorf("%w: no connection_established within %v", ErrConnectionTimeout, c.opts.HandshakeTimeout)
			}
			var ce *CloseError
			if errors.As(err, &ce) && protocol.IsFatal(ce.Code) {
				return nil, nil, &FatalError{Code: ce.Code, Message: ce.Reason}
			}
			return nil, nil, &TransportError{Op: "handshake", Err: err}
		}

		msg, err := protocol.Unmarshal(data)
		if err != nil {
			c.stats.malformedFrames.Add(1)
			c.logger.Warn("dropping malformed frame during handshake", "error", err)
			continue
		}

		switch msg.Event {
		case protocol.EventConnectionEstablished:
			ce, err := protocol.ParseConnectionEstablished(msg)
			if err != nil {
				conn.Close()
				return nil, nil, err
			}
			conn.SetReadDeadline(time.Time{})
			return conn, ce, nil

		case protocol.EventError:
			ed, perr := protocol.ParseErrorData(msg)
			if perr != nil {
				c.stats.malformedFrames.Add(1)
				continue
			}
			if protocol.IsFatal(ed.Code) {
				conn.Close()
				return nil, nil, &FatalError{Code: ed.Code, Message: ed.Message}
			}
			c.logger.Warn("server error during handshake", "code", ed.Code, "message", ed.Message)

		default:
			c.logger.Debug("ignoring frame before connection_established", "event", msg.Event)
		}
	}
}

// install adopts an established connection: records the socket identity,
// negotiates the activity timeout, starts the read loop and heartbeat,
// and replays subscriptions. It aborts if Disconnect won the race.
func (c *Client) install(conn Conn, est *protocol.ConnectionEstablished, reconnect bool) error {
	expect := StateConnecting
	if reconnect {
		expect = StateReconnecting
	}

	c.mu.Lock()
	if c.state != expect || c.sctx == nil {
		c.mu.Unlock()
		conn.Close()
		return ErrSessionClosed
	}
	c.conn = conn
	c.connGen++
	gen := c.connGen
	c.socketID = est.SocketID
	c.connectedAt = time.Now()

	timeout := c.opts.ActivityTimeout
	if server := time.Duration(est.ActivityTimeout) * time.Second; server > 0 && server < timeout {
		timeout = server
	}
	c.activityTimeout = timeout

	old := c.state
	c.state = StateConnected
	connCtx, connCancel := context.WithCancel(c.sctx)
	c.connCancel = connCancel

	hb := newHeartbeat(timeout, c.opts.PongTimeout,
		func() error {
			c.stats.pingsSent.Add(1)
			c.logger.Debug("sending ping")
			return c.writeConn(conn, protocol.EncodePing())
		},
		func(cause error) {
			c.connectionLost(conn, gen, cause, protocol.ReconnectImmediately)
		})
	c.mu.Unlock()

	c.stats.connects.Add(1)
	if reconnect {
		c.stats.reconnects.Add(1)
	}
	c.logger.Info("connection established",
		"socket_id", est.SocketID,
		"activity_timeout", timeout,
		"reconnect", reconnect)
	c.stateChanged(old, StateConnected)

	go hb.run(connCtx)
	go c.readLoop(conn, gen, hb)
	c.resubscribe(gen)
	return nil
}

// readLoop pulls frames off one connection until it fails. Dispatch runs
// inline, so frames are processed strictly in receive order.
func (c *Client) readLoop(conn Conn, gen uint64, hb *heartbeat) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.readFailed(conn, gen, err)
			return
		}
		hb.Touch()
		c.stats.framesReceived.Add(1)
		c.stats.bytesReceived.Add(uint64(len(data)))
		c.handleMessage(conn, gen, data)
	}
}

// readFailed classifies a read error and routes it to the fatal or
// reconnect path.
func (c *Client) readFailed(conn Conn, gen uint64, err error) {
	var ce *CloseError
	if errors.As(err, &ce) {
		if protocol.IsFatal(ce.Code) {
			c.fatalShutdown(&FatalError{Code: ce.Code, Message: ce.Reason})
			return
		}
		c.connectionLost(conn, gen, ce, protocol.PolicyFor(ce.Code))
		return
	}
	c.connectionLost(conn, gen, &TransportError{Op: "read", Err: err}, protocol.ReconnectBackoff)
}

// handleMessage routes one inbound frame. Malformed frames are dropped
// and reported; the connection stays up.
func (c *Client) handleMessage(conn Conn, gen uint64, data []byte) {
	msg, err := protocol.Unmarshal(data)
	if err != nil {
		c.stats.malformedFrames.Add(1)
		c.logger.Warn("dropping malformed frame", "error", err)
		c.report(err)
		return
	}

	switch msg.Event {
	case protocol.EventPing:
		if err := c.writeConn(conn, protocol.EncodePong()); err != nil {
			c.logger.Error("pong write failed", "error", err)
		}

	case protocol.EventPong:
		c.logger.Debug("received pong")

	case protocol.EventError:
		c.handleServerError(msg)

	case protocol.EventConnectionEstablished:
		c.logger.Debug("ignoring duplicate connection_established")

	case protocol.EventSigninSuccess:
		c.logger.Info("signin succeeded")

	default:
		if msg.Channel == "" {
			c.logger.Debug("ignoring channelless frame", "event", msg.Event)
			return
		}
		c.dispatchChannelMessage(gen, msg)
	}
}

// handleServerError applies a pusher:error frame: fatal codes end the
// session for good, everything else is surfaced through the error hook.
func (c *Client) handleServerError(msg *protocol.Message) {
	ed, err := protocol.ParseErrorData(msg)
	if err != nil {
		c.stats.malformedFrames.Add(1)
		c.report(err)
		return
	}
	if protocol.IsFatal(ed.Code) {
		c.fatalShutdown(&FatalError{Code: ed.Code, Message: ed.Message})
		return
	}
	c.logger.Warn("server error", "code", ed.Code, "message", ed.Message)
	c.report(fmt.Errorf("client: server error: %s (code %d)", ed.Message, ed.Code))
}

// connectionLost moves a live session into Reconnecting: the dead socket
// is discarded, connection-scoped state cleared, and the retry loop
// started. Stale notices from already-replaced connections are ignored.
func (c *Client) connectionLost(conn Conn, gen uint64, cause error, policy protocol.ReconnectPolicy) {
	c.mu.Lock()
	if gen != c.connGen || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.connGen++
	c.conn = nil
	c.socketID = ""
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	for _, ch := range c.channels {
		ch.resetLocked()
	}
	// A connection that stayed up past the current delay level means the
	// trouble is fresh, not a continuation of the previous outage.
	if time.Since(c.connectedAt) > c.backoff.Current() {
		c.backoff.Reset()
	}
	c.state = StateReconnecting
	sctx := c.sctx
	c.mu.Unlock()

	conn.Close()
	c.logger.Warn("connection lost", "error", cause, "policy", policy.String())
	c.stateChanged(StateConnected, StateReconnecting)
	c.report(cause)
	go c.reconnectLoop(sctx, policy)
}

// fatalShutdown ends the session permanently after a server-declared
// fatal condition. No reconnect is attempted.
func (c *Client) fatalShutdown(ferr *FatalError) {
	old, ok := c.teardown()
	if !ok {
		return
	}
	c.logger.Error("fatal server error", "code", ferr.Code, "message", ferr.Message)
	c.stateChanged(old, StateDisconnected)
	c.report(ferr)
}

// reconnectLoop retries the full connect cycle until it succeeds, the
// session is torn down, or MaxAttempts is exhausted.
func (c *Client) reconnectLoop(sctx context.Context, policy protocol.ReconnectPolicy) {
	immediate := policy == protocol.ReconnectImmediately
	attempts := 0

	for {
		if sctx.Err() != nil {
			return
		}
		if immediate {
			immediate = false
		} else {
			delay := c.backoff.Next()
			c.logger.Info("reconnect scheduled", "delay", delay, "attempt", attempts+1)
			select {
			case <-time.After(delay):
			case <-sctx.Done():
				return
			}
		}

		attempts++
		conn, est, err := c.dial(sctx)
		if err != nil {
			if sctx.Err() != nil {
				return
			}
			c.report(err)
			var fe *FatalError
			if errors.As(err, &fe) {
				c.fatalShutdown(fe)
				return
			}
			if max := c.opts.Backoff.MaxAttempts; max > 0 && attempts >= max {
				c.report(fmt.Errorf("%w: %d attempts", ErrRetriesExhausted, attempts))
				if old, ok := c.teardown(); ok {
					c.logger.Error("reconnect abandoned", "attempts", attempts)
					c.stateChanged(old, StateDisconnected)
				}
				return
			}
			continue
		}

		// install fails only if Disconnect won the race; either way this
		// loop is done.
		c.install(conn, est, true)
		return
	}
}

// send writes one frame on the current connection.
func (c *Client) send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.writeConn(conn, data)
}

// writeConn writes one frame on a specific connection. Writes are
// serialized; gorilla connections allow only one concurrent writer.
func (c *Client) writeConn(conn Conn, data []byte) error {
	c.writeMu.Lock()
	err := conn.WriteMessage(data)
	c.writeMu.Unlock()
	if err != nil {
		c.stats.writeErrors.Add(1)
		return &TransportError{Op: "write", Err: err}
	}
	c.stats.framesSent.Add(1)
	c.stats.bytesSent.Add(uint64(len(data)))
	return nil
}
