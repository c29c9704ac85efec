package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/pushkit-dev/pushkit/pkg/protocol"
)

// Client is a connection to a Pusher-compatible server: it owns the
// socket, drives the handshake/heartbeat/reconnect lifecycle, and routes
// inbound frames to channel bindings.
//
// All methods are safe for concurrent use.
type Client struct {
	opts     *Options
	logger   *slog.Logger
	stats    *stats
	bindings *bindingTable
	backoff  *backoff

	mu              sync.Mutex
	state           State
	conn            Conn
	connGen         uint64 // bumped whenever conn is replaced or dropped
	socketID        string
	channels        map[string]*Channel
	order           []string // registration order, drives resubscribe
	connectedAt     time.Time
	activityTimeout time.Duration
	sctx            context.Context // live from Connect until Disconnect
	cancel          context.CancelFunc
	connCancel      context.CancelFunc // stops the current heartbeat

	writeMu sync.Mutex // serializes conn writes
}

// New creates a client for the given application key. A nil opts uses
// DefaultOptions.
func New(key string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	} else {
		opts = opts.Clone()
	}
	opts.Key = key
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &Client{
		opts:     opts,
		logger:   opts.Logger,
		stats:    &stats{},
		bindings: newBindingTable(),
		backoff:  newBackoff(opts.Backoff),
		channels: make(map[string]*Channel),
	}, nil
}

// Connect dials the server and blocks until the session is established
// or ctx/HandshakeTimeout expires. Channels subscribed before connecting
// are replayed once established. Valid only from the disconnected state.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	sctx, cancel := context.WithCancel(context.Background())
	c.sctx, c.cancel = sctx, cancel
	c.state = StateConnecting
	c.mu.Unlock()
	c.backoff.Reset()
	c.stateChanged(StateDisconnected, StateConnecting)

	// Disconnect cancels sctx; fold that into the dial so an in-flight
	// connect aborts instead of running out its handshake window.
	dctx, dcancel := context.WithCancel(ctx)
	defer dcancel()
	stop := context.AfterFunc(sctx, dcancel)
	defer stop()

	conn, est, err := c.dial(dctx)
	if err != nil {
		if old, ok := c.teardown(); ok {
			c.stateChanged(old, StateDisconnected)
		}
		c.report(err)
		return err
	}
	return c.install(conn, est, false)
}

// Disconnect tears the session down from any state: it cancels an
// in-flight connect or pending reconnect, stops the heartbeat, closes the
// socket, and marks every channel unsubscribed. Channel entries and
// bindings are retained and replayed on the next Connect. Safe to call
// repeatedly.
func (c *Client) Disconnect() error {
	old, ok := c.teardown()
	if !ok {
		return nil
	}
	c.logger.Info("disconnected")
	c.stateChanged(old, StateDisconnected)
	return nil
}

// Subscribe registers the named channel and, when connected, resolves
// auth (for private and presence kinds) and sends the subscribe frame.
// It blocks for the auth exchange, not for the server's acknowledgment;
// bind to the subscription_succeeded event or poll IsSubscribed for that.
//
// Calling Subscribe again for the same name returns the existing channel
// if the kind matches and ErrChannelKindConflict otherwise. When called
// before Connect, the subscription is sent during connection
// establishment.
func (c *Client) Subscribe(name string, opts ...SubscribeOption) (*Channel, error) {
	if err := protocol.ValidateChannelName(name); err != nil {
		return nil, err
	}
	so := subscribeOptions{kind: protocol.KindOf(name)}
	for _, o := range opts {
		o(&so)
	}

	c.mu.Lock()
	if ch := c.channels[name]; ch != nil {
		kind := ch.kind
		c.mu.Unlock()
		if kind != so.kind {
			return nil, fmt.Errorf("%w: %q is %s, requested %s", ErrChannelKindConflict, name, kind, so.kind)
		}
		return ch, nil
	}
	if so.kind.RequiresAuth() && c.opts.Authorizer == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q requires auth", ErrNoAuthorizer, name)
	}
	ch := &Channel{name: name, kind: so.kind, client: c}
	c.channels[name] = ch
	c.order = append(c.order, name)
	connected := c.state == StateConnected
	c.mu.Unlock()
	c.stats.subscribes.Add(1)

	if !connected {
		return ch, nil
	}
	// Not sctx: disconnect discards the auth result instead of aborting
	// the exchange mid-flight.
	if err := c.sendSubscribe(context.Background(), ch); err != nil {
		c.mu.Lock()
		delete(c.channels, name)
		c.dropOrderLocked(name)
		c.mu.Unlock()
		c.report(err)
		return nil, err
	}
	return ch, nil
}

// Unsubscribe sends the unsubscribe frame (when connected) and removes
// the channel entry and its presence roster immediately, fire-and-forget.
// Bindings stay registered for a future resubscribe. Unknown names are a
// no-op.
func (c *Client) Unsubscribe(name string) {
	c.mu.Lock()
	ch := c.channels[name]
	if ch == nil {
		c.mu.Unlock()
		return
	}
	delete(c.channels, name)
	c.dropOrderLocked(name)
	ch.resetLocked()
	connected := c.state == StateConnected
	c.mu.Unlock()
	c.stats.unsubscribes.Add(1)

	if !connected {
		return
	}
	frame, err := protocol.EncodeUnsubscribe(name)
	if err != nil {
		c.report(err)
		return
	}
	if err := c.send(frame); err != nil {
		c.report(fmt.Errorf("unsubscribe %q: %w", name, err))
	}
}

// Bind registers fn for one event on one channel and returns its handle.
// It works before the channel is subscribed and before the client
// connects; a nil fn or empty event returns nil.
func (c *Client) Bind(channel, event string, fn EventHandler) *Binding {
	if fn == nil || event == "" {
		return nil
	}
	return c.bindings.add(channel, event, fn)
}

// BindGlobal registers fn for every event on one channel.
func (c *Client) BindGlobal(channel string, fn EventHandler) *Binding {
	if fn == nil {
		return nil
	}
	return c.bindings.add(channel, "", fn)
}

// Unbind removes a binding. Unbinding twice or passing nil is a no-op.
func (c *Client) Unbind(b *Binding) {
	c.bindings.remove(b)
}

// SignIn authenticates the connection's user: it resolves the user auth
// signature and sends the signin frame. The server confirms with a
// signin_success frame. Requires a configured UserAuthEndpoint or
// UserAuthorizer and an established connection.
func (c *Client) SignIn(ctx context.Context) error {
	ua := c.opts.UserAuthorizer
	if ua == nil {
		return ErrNoUserAuthorizer
	}
	c.mu.Lock()
	socketID := c.socketID
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	c.stats.authRequests.Add(1)
	actx, cancel := context.WithTimeout(ctx, c.opts.AuthTimeout)
	resp, err := ua.AuthorizeUser(actx, socketID)
	cancel()
	if err != nil {
		c.stats.authFailures.Add(1)
		var ae *AuthError
		if !errors.As(err, &ae) {
			err = &AuthError{Err: err}
		}
		c.report(err)
		return err
	}

	frame, err := protocol.EncodeSignin(resp.Auth, resp.UserData)
	if err != nil {
		return err
	}
	return c.send(frame)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SocketID returns the server-assigned connection identity, empty unless
// connected. It changes on every reconnect.
func (c *Client) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketID
}

// Channel returns the registered channel by name, nil if none.
func (c *Client) Channel(name string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[name]
}

// Channels returns the registered channels in registration order.
func (c *Client) Channels() []*Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Channel, 0, len(c.order))
	for _, name := range c.order {
		if ch := c.channels[name]; ch != nil {
			out = append(out, ch)
		}
	}
	return out
}

// Stats returns a snapshot of client activity counters.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

// SubscribeOption customizes one Subscribe call.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	kind protocol.ChannelKind
}

// WithKind overrides the name-derived channel kind, for servers that run
// custom auth schemes on unprefixed channel names.
func WithKind(kind protocol.ChannelKind) SubscribeOption {
	return func(o *subscribeOptions) {
		o.kind = kind
	}
}

// dropOrderLocked removes name from the registration order. Caller holds
// the client lock.
func (c *Client) dropOrderLocked(name string) {
	for i, cur := range c.order {
		if cur == name {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			return
		}
	}
}

// teardown moves the client to Disconnected and releases the session:
// context canceled, socket closed, channels reset. Reports whether there
// was a session to tear down.
func (c *Client) teardown() (State, bool) {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return StateDisconnected, false
	}
	old := c.state
	c.state = StateDisconnected
	conn := c.conn
	c.conn = nil
	c.connGen++
	c.socketID = ""
	cancel := c.cancel
	c.cancel, c.sctx, c.connCancel = nil, nil, nil
	for _, ch := range c.channels {
		ch.resetLocked()
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	return old, true
}

// resubscribe replays every registered channel on a fresh connection, in
// registration order, with fresh auth. Failures are reported through the
// error hook and don't stop the replay; the entry stays registered for
// the next reconnect.
func (c *Client) resubscribe(gen uint64) {
	c.mu.Lock()
	names := slices.Clone(c.order)
	sctx := c.sctx
	c.mu.Unlock()
	if sctx == nil {
		return
	}

	for _, name := range names {
		c.mu.Lock()
		ch := c.channels[name]
		stale := gen != c.connGen
		c.mu.Unlock()
		if stale {
			return
		}
		if ch == nil {
			continue
		}
		if err := c.sendSubscribe(sctx, ch); err != nil {
			c.report(fmt.Errorf("resubscribe %q: %w", name, err))
		}
	}
}

// sendSubscribe resolves auth when the kind needs it and sends the
// subscribe frame. An auth result that arrives after the session died is
// discarded and the call fails with ErrSessionClosed.
func (c *Client) sendSubscribe(ctx context.Context, ch *Channel) error {
	var auth, channelData string
	if ch.kind.RequiresAuth() {
		authorizer := c.opts.Authorizer
		if authorizer == nil {
			return fmt.Errorf("%w: %q requires auth", ErrNoAuthorizer, ch.name)
		}
		c.mu.Lock()
		socketID := c.socketID
		gen := c.connGen
		c.mu.Unlock()
		if socketID == "" {
			return ErrNotConnected
		}

		c.stats.authRequests.Add(1)
		actx, cancel := context.WithTimeout(ctx, c.opts.AuthTimeout)
		resp, err := authorizer.Authorize(actx, socketID, ch.name)
		cancel()
		if err != nil {
			c.stats.authFailures.Add(1)
			var ae *AuthError
			if !errors.As(err, &ae) {
				err = &AuthError{Channel: ch.name, Err: err}
			}
			return err
		}

		c.mu.Lock()
		dead := c.sctx == nil || c.sctx.Err() != nil
		stale := !dead && gen != c.connGen
		if !dead && !stale {
			ch.setSelfLocked(resp.ChannelData)
		}
		c.mu.Unlock()
		if dead {
			return ErrSessionClosed
		}
		if stale {
			// The signature covers a socket id that no longer exists; the
			// replay on the new connection re-subscribes this channel.
			return nil
		}
		auth, channelData = resp.Auth, resp.ChannelData
	}

	frame, err := protocol.EncodeSubscribe(ch.name, auth, channelData)
	if err != nil {
		return err
	}
	return c.send(frame)
}

// dispatchChannelMessage applies channel lifecycle frames to the registry
// and hands the event to bound callbacks. Lifecycle state (subscription
// acknowledgment, presence roster) is updated before any callback runs.
func (c *Client) dispatchChannelMessage(gen uint64, msg *protocol.Message) {
	c.mu.Lock()
	if gen != c.connGen {
		c.mu.Unlock()
		return
	}
	ch := c.channels[msg.Channel]
	if ch == nil {
		c.mu.Unlock()
		c.stats.eventsDropped.Add(1)
		c.logger.Debug("dropping frame for unknown channel", "channel", msg.Channel, "event", msg.Event)
		return
	}
	if !ch.subscribed &&
		msg.Event != protocol.EventSubscriptionSucceeded &&
		msg.Event != protocol.EventSubscriptionError {
		c.mu.Unlock()
		c.stats.eventsDropped.Add(1)
		c.logger.Debug("dropping event before subscription ack", "channel", msg.Channel, "event", msg.Event)
		return
	}

	switch msg.Event {
	case protocol.EventSubscriptionSucceeded:
		var pd *protocol.PresenceData
		if ch.kind == protocol.KindPresence {
			parsed, err := protocol.ParsePresenceData(msg)
			if err != nil {
				c.mu.Unlock()
				c.stats.malformedFrames.Add(1)
				c.report(err)
				return
			}
			pd = parsed
		}
		ch.applySubscribedLocked(pd)
		c.mu.Unlock()
		c.logger.Debug("subscription succeeded", "channel", msg.Channel, "members", ch.MemberCount())

	case protocol.EventMemberAdded:
		md, err := protocol.ParseMemberData(msg)
		if err != nil {
			c.mu.Unlock()
			c.stats.malformedFrames.Add(1)
			c.report(err)
			return
		}
		ch.addMemberLocked(md)
		c.mu.Unlock()

	case protocol.EventMemberRemoved:
		md, err := protocol.ParseMemberData(msg)
		if err != nil {
			c.mu.Unlock()
			c.stats.malformedFrames.Add(1)
			c.report(err)
			return
		}
		ch.removeMemberLocked(md)
		c.mu.Unlock()

	case protocol.EventSubscriptionError:
		c.mu.Unlock()
		ed, err := protocol.ParseErrorData(msg)
		if err != nil {
			c.report(err)
		} else {
			c.report(&AuthError{Channel: msg.Channel, Err: fmt.Errorf("subscription rejected: %s (code %d)", ed.Message, ed.Code)})
		}

	default:
		c.mu.Unlock()
	}

	c.dispatch(msg)
}

// dispatch invokes the bound callbacks for one event, per-event bindings
// first, then channel-wide ones, each in insertion order.
func (c *Client) dispatch(msg *protocol.Message) {
	bindings := c.bindings.snapshot(msg.Channel, msg.Event)
	if len(bindings) == 0 {
		return
	}
	data, err := msg.DataBytes()
	if err != nil {
		data = nil
	}
	evt := Event{Channel: msg.Channel, Name: msg.Event, Data: data}
	for _, b := range bindings {
		c.invoke(b, evt)
	}
	c.stats.eventsDispatched.Add(1)
}

// invoke runs one callback with panic isolation: a panicking callback is
// reported and never takes down the read loop or later callbacks.
func (c *Client) invoke(b *Binding, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			c.stats.callbackPanics.Add(1)
			c.logger.Error("callback panic",
				"channel", evt.Channel,
				"event", evt.Name,
				"panic", r,
				"stack", string(stack))
			c.report(&CallbackError{Channel: evt.Channel, Event: evt.Name, Panic: r, Stack: stack})
		}
	}()
	b.fn(evt)
}

// stateChanged logs a transition and fires the state hook outside any
// lock.
func (c *Client) stateChanged(old, next State) {
	if old == next {
		return
	}
	c.logger.Info("connection state changed", "from", old.String(), "to", next.String())
	cb := c.opts.OnStateChange
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("state hook panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	cb(old, next)
}

// report hands an error to the observer hook. Hook panics are contained
// here so an observer can never wedge the client.
func (c *Client) report(err error) {
	if err == nil {
		return
	}
	cb := c.opts.OnError
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("error hook panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	cb(err)
}
