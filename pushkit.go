// Package pushkit provides the public API for the pushkit realtime
// client.
//
// This is the recommended import for most applications:
//
//	import "github.com/pushkit-dev/pushkit"
//
// Usage:
//
//	c, err := pushkit.New("app-key", pushkit.DefaultOptions().WithCluster("eu"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	orders, _ := c.Subscribe("orders")
//	orders.Bind("created", func(e pushkit.Event) {
//	    fmt.Printf("order: %s\n", e.Data)
//	})
//
// The underlying packages remain importable directly: pkg/client holds
// the session machinery, pkg/protocol the wire codec, pkg/metrics and
// pkg/instrument the observability hooks, and pkg/authtest a local
// auth endpoint for tests.
package pushkit

import (
	"sync"

	"github.com/pushkit-dev/pushkit/pkg/client"
	"github.com/pushkit-dev/pushkit/pkg/protocol"
)

// =============================================================================
// Client (pkg/client re-exports)
// =============================================================================

// Client is a realtime connection plus its channel registry.
type Client = client.Client

// Options configures a Client. Zero values take documented defaults.
type Options = client.Options

// BackoffOptions tunes the reconnect schedule.
type BackoffOptions = client.BackoffOptions

// New creates a client for the given application key.
func New(key string, opts *Options) (*Client, error) {
	return client.New(key, opts)
}

// DefaultOptions returns Options with the documented defaults.
var DefaultOptions = client.DefaultOptions

// =============================================================================
// Channels and events
// =============================================================================

// Channel is one subscription entry.
type Channel = client.Channel

// Event is a single delivered channel event.
type Event = client.Event

// EventHandler is a callback bound to channel events.
type EventHandler = client.EventHandler

// Binding identifies one bound handler for Unbind.
type Binding = client.Binding

// SubscribeOption configures a Subscribe call.
type SubscribeOption = client.SubscribeOption

// WithKind pins the channel kind instead of deriving it from the name
// prefix.
var WithKind = client.WithKind

// ChannelKind distinguishes public, private, and presence channels.
type ChannelKind = protocol.ChannelKind

// Channel kinds.
const (
	KindPublic   = protocol.KindPublic
	KindPrivate  = protocol.KindPrivate
	KindPresence = protocol.KindPresence
)

// =============================================================================
// Connection state
// =============================================================================

// State is the connection lifecycle state of a Client.
type State = client.State

// Connection states.
const (
	StateDisconnected = client.StateDisconnected
	StateConnecting   = client.StateConnecting
	StateConnected    = client.StateConnected
	StateReconnecting = client.StateReconnecting
)

// Stats is a snapshot of a client's counters.
type Stats = client.Stats

// =============================================================================
// Auth
// =============================================================================

// Authorizer signs channel subscriptions.
type Authorizer = client.Authorizer

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc = client.AuthorizerFunc

// AuthResponse is a successful channel authorization.
type AuthResponse = client.AuthResponse

// UserAuthorizer signs user signins.
type UserAuthorizer = client.UserAuthorizer

// UserAuthResponse is a successful user authentication.
type UserAuthResponse = client.UserAuthResponse

// NewEndpointAuthorizer builds the form-POST authorizer most apps use.
var NewEndpointAuthorizer = client.NewEndpointAuthorizer

// NewEndpointUserAuthorizer builds the form-POST signin authorizer.
var NewEndpointUserAuthorizer = client.NewEndpointUserAuthorizer

// =============================================================================
// Transport
// =============================================================================

// Dialer opens connections. Injected for tests and custom transports.
type Dialer = client.Dialer

// Conn is one established socket.
type Conn = client.Conn

// =============================================================================
// Errors
// =============================================================================

// Sentinel errors.
var (
	ErrMissingKey          = client.ErrMissingKey
	ErrAlreadyConnected    = client.ErrAlreadyConnected
	ErrNotConnected        = client.ErrNotConnected
	ErrSessionClosed       = client.ErrSessionClosed
	ErrConnectionTimeout   = client.ErrConnectionTimeout
	ErrConnectionStale     = client.ErrConnectionStale
	ErrChannelKindConflict = client.ErrChannelKindConflict
	ErrNoAuthorizer        = client.ErrNoAuthorizer
	ErrNoUserAuthorizer    = client.ErrNoUserAuthorizer
	ErrRetriesExhausted    = client.ErrRetriesExhausted
)

// Typed errors, matched with errors.As.
type (
	TransportError = client.TransportError
	AuthError      = client.AuthError
	FatalError     = client.FatalError
	CallbackError  = client.CallbackError
	CloseError     = client.CloseError
)

// =============================================================================
// Process-wide default client
// =============================================================================

var (
	defaultMu     sync.RWMutex
	defaultClient *Client
)

// SetDefault installs the process-wide default client returned by
// Default. Call it once at startup, before anything reads the
// default; later calls replace the client for subsequent readers but
// in-flight holders keep the one they got.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// Default returns the client installed with SetDefault, or nil if none
// has been set. Most code should accept a *Client instead of reaching
// for the default.
func Default() *Client {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClient
}
