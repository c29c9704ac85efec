package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pushkit-dev/pushkit/pkg/protocol"
)

// Library identity sent in the connection URL.
const (
	clientName     = "pushkit"
	libraryVersion = "0.3.0"
)

// DefaultHost is the endpoint used when neither Host nor Cluster is set.
const DefaultHost = "ws.pusherapp.com"

// BackoffOptions controls the reconnect retry schedule.
type BackoffOptions struct {
	// MinDelay is the first retry delay.
	// Default: 1 second.
	MinDelay time.Duration

	// MaxDelay caps the exponential growth.
	// Default: 30 seconds.
	MaxDelay time.Duration

	// MaxAttempts bounds consecutive failed reconnect attempts.
	// 0 means retry forever.
	// Default: 0.
	MaxAttempts int
}

// Options holds configuration for a Client.
type Options struct {
	// Key is the application key. Required; New sets it from its argument.
	Key string

	// Endpoint

	// Host is the server to connect to.
	// Default: ws.pusherapp.com.
	Host string

	// Cluster, when set, overrides Host with ws-<cluster>.pusher.com.
	// Default: "".
	Cluster string

	// Port overrides the scheme's default port (443 for wss, 80 for ws).
	// Default: 0 (use the scheme's port).
	Port int

	// Insecure switches the connection to plain ws://.
	// Default: false.
	Insecure bool

	// Timeouts

	// HandshakeTimeout bounds dialing plus waiting for
	// connection_established.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// ActivityTimeout is the quiet interval after which a ping is sent.
	// The server's advertised value replaces it unless this is lower.
	// Default: 120 seconds.
	ActivityTimeout time.Duration

	// PongTimeout is how long after a ping the connection is declared
	// stale if nothing arrives.
	// Default: 30 seconds.
	PongTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// AuthTimeout bounds a single auth endpoint request.
	// Default: 10 seconds.
	AuthTimeout time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming frame.
	// Default: 64KB.
	MaxMessageSize int64

	// Backoff is the reconnect retry schedule.
	Backoff BackoffOptions

	// Auth

	// AuthEndpoint is the URL POSTed to for private and presence channel
	// auth. Ignored when Authorizer is set.
	// Default: "".
	AuthEndpoint string

	// AuthHeaders are added to auth endpoint requests.
	// Default: nil.
	AuthHeaders http.Header

	// Authorizer overrides the endpoint-based channel authorization.
	// Default: nil (built from AuthEndpoint when set).
	Authorizer Authorizer

	// UserAuthEndpoint is the URL POSTed to by SignIn. Ignored when
	// UserAuthorizer is set.
	// Default: "".
	UserAuthEndpoint string

	// UserAuthHeaders are added to user auth requests.
	// Default: nil.
	UserAuthHeaders http.Header

	// UserAuthorizer overrides the endpoint-based user authentication.
	// Default: nil (built from UserAuthEndpoint when set).
	UserAuthorizer UserAuthorizer

	// Plumbing

	// Dialer opens the underlying socket.
	// Default: a gorilla/websocket dialer honoring proxy environment
	// variables.
	Dialer Dialer

	// Logger receives client logs.
	// Default: slog.Default().
	Logger *slog.Logger

	// Hooks

	// OnStateChange is called after every connection state transition,
	// outside client locks.
	// Default: nil.
	OnStateChange func(old, new State)

	// OnError receives every error the client encounters, including ones
	// recovered internally (reconnects, dropped frames, callback panics).
	// Called outside client locks.
	// Default: nil.
	OnError func(err error)
}

// DefaultOptions returns Options with sensible defaults. The application
// key must still be supplied through New.
func DefaultOptions() *Options {
	return &Options{
		Host:             DefaultHost,
		HandshakeTimeout: 10 * time.Second,
		ActivityTimeout:  120 * time.Second,
		PongTimeout:      30 * time.Second,
		WriteTimeout:     10 * time.Second,
		AuthTimeout:      10 * time.Second,
		MaxMessageSize:   protocol.DefaultMaxMessageSize,
		Backoff: BackoffOptions{
			MinDelay: 1 * time.Second,
			MaxDelay: 30 * time.Second,
		},
	}
}

// Clone returns a copy of the Options. Header maps are copied; interface
// values are shared.
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	clone := *o
	if o.AuthHeaders != nil {
		clone.AuthHeaders = o.AuthHeaders.Clone()
	}
	if o.UserAuthHeaders != nil {
		clone.UserAuthHeaders = o.UserAuthHeaders.Clone()
	}
	return &clone
}

// WithCluster sets the cluster and returns the options for chaining.
func (o *Options) WithCluster(cluster string) *Options {
	o.Cluster = cluster
	return o
}

// WithHost sets a custom host and returns the options for chaining.
func (o *Options) WithHost(host string) *Options {
	o.Host = host
	return o
}

// WithInsecure switches to plain ws:// and returns the options for chaining.
func (o *Options) WithInsecure() *Options {
	o.Insecure = true
	return o
}

// WithAuthEndpoint sets the channel auth URL and returns the options for chaining.
func (o *Options) WithAuthEndpoint(endpoint string) *Options {
	o.AuthEndpoint = endpoint
	return o
}

// WithAuthorizer sets a custom authorizer and returns the options for chaining.
func (o *Options) WithAuthorizer(a Authorizer) *Options {
	o.Authorizer = a
	return o
}

// WithLogger sets the logger and returns the options for chaining.
func (o *Options) WithLogger(logger *slog.Logger) *Options {
	o.Logger = logger
	return o
}

// URL returns the connection URL these options produce.
func (o *Options) URL() string {
	scheme := "wss"
	port := 443
	if o.Insecure {
		scheme = "ws"
		port = 80
	}
	if o.Port != 0 {
		port = o.Port
	}
	host := o.Host
	if o.Cluster != "" {
		host = "ws-" + o.Cluster + ".pusher.com"
	}
	if host == "" {
		host = DefaultHost
	}
	return fmt.Sprintf("%s://%s:%d/app/%s?client=%s&version=%s&protocol=%d",
		scheme, host, port, o.Key, clientName, libraryVersion, protocol.Version)
}

// validate checks required fields, filling zero values with defaults.
func (o *Options) validate() error {
	if o.Key == "" {
		return ErrMissingKey
	}
	def := DefaultOptions()
	if o.Host == "" {
		o.Host = def.Host
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = def.HandshakeTimeout
	}
	if o.ActivityTimeout <= 0 {
		o.ActivityTimeout = def.ActivityTimeout
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = def.PongTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = def.AuthTimeout
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = def.MaxMessageSize
	}
	if o.Backoff.MinDelay <= 0 {
		o.Backoff.MinDelay = def.Backoff.MinDelay
	}
	if o.Backoff.MaxDelay <= 0 {
		o.Backoff.MaxDelay = def.Backoff.MaxDelay
	}
	if o.Backoff.MaxDelay < o.Backoff.MinDelay {
		o.Backoff.MaxDelay = o.Backoff.MinDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Authorizer == nil && o.AuthEndpoint != "" {
		o.Authorizer = NewEndpointAuthorizer(o.AuthEndpoint, o.AuthHeaders)
	}
	if o.UserAuthorizer == nil && o.UserAuthEndpoint != "" {
		o.UserAuthorizer = NewEndpointUserAuthorizer(o.UserAuthEndpoint, o.UserAuthHeaders)
	}
	if o.Dialer == nil {
		o.Dialer = newWSDialer(o.HandshakeTimeout, o.WriteTimeout)
	}
	return nil
}
