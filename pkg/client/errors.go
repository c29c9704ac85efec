package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for common client error conditions.
var (
	// ErrMissingKey is returned when a client is built without an application key.
	ErrMissingKey = errors.New("client: missing application key")

	// ErrAlreadyConnected is returned when Connect is called outside the
	// disconnected state.
	ErrAlreadyConnected = errors.New("client: already connected")

	// ErrNotConnected is returned when an operation needs an established
	// connection and there is none.
	ErrNotConnected = errors.New("client: not connected")

	// ErrSessionClosed is returned when an operation's session was torn down
	// while the operation was in flight.
	ErrSessionClosed = errors.New("client: session closed")

	// ErrConnectionTimeout is returned when the handshake does not complete
	// within HandshakeTimeout.
	ErrConnectionTimeout = errors.New("client: connection timeout")

	// ErrConnectionStale is reported when the server stops answering pings.
	ErrConnectionStale = errors.New("client: connection stale")

	// ErrChannelKindConflict is returned when a subscribe names an existing
	// channel with a different kind.
	ErrChannelKindConflict = errors.New("client: channel kind conflict")

	// ErrNoAuthorizer is returned when a private or presence subscribe has
	// no auth endpoint or Authorizer configured.
	ErrNoAuthorizer = errors.New("client: no authorizer configured")

	// ErrNoUserAuthorizer is returned by SignIn when no user auth endpoint
	// or UserAuthorizer is configured.
	ErrNoUserAuthorizer = errors.New("client: no user authorizer configured")

	// ErrRetriesExhausted is reported when Backoff.MaxAttempts reconnect
	// attempts have failed.
	ErrRetriesExhausted = errors.New("client: reconnect attempts exhausted")
)

// TransportError wraps a socket-level failure with the operation that hit it.
type TransportError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message with operation context.
func (e *TransportError) Error() string {
	return fmt.Sprintf("client: transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError wraps a failed channel or user authorization.
type AuthError struct {
	Channel string // Empty for user authentication
	Status  int    // HTTP status, 0 when the request never completed
	Err     error  // Underlying error
}

// Error returns the error message with channel context.
func (e *AuthError) Error() string {
	subject := "user"
	if e.Channel != "" {
		subject = fmt.Sprintf("channel %q", e.Channel)
	}
	if e.Status != 0 {
		return fmt.Sprintf("client: auth failed for %s: status %d: %v", subject, e.Status, e.Err)
	}
	return fmt.Sprintf("client: auth failed for %s: %v", subject, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// FatalError is a server-declared permanent failure. The client does not
// reconnect after one.
type FatalError struct {
	Code    int    // Protocol close or error code
	Message string // Server-provided description
}

// Error returns the error message.
func (e *FatalError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: fatal server error %d", e.Code)
	}
	return fmt.Sprintf("client: fatal server error %d: %s", e.Code, e.Message)
}

// CallbackError wraps a panic recovered from an event callback.
type CallbackError struct {
	Channel string
	Event   string
	Panic   any
	Stack   []byte
}

// Error returns the error message.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("client: callback panic on channel %q event %q: %v", e.Channel, e.Event, e.Panic)
}
