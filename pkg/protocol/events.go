package protocol

import "strings"

// Connection-level protocol events.
const (
	EventConnectionEstablished = "pusher:connection_established" // Server → Client after handshake
	EventError                 = "pusher:error"                  // Server → Client error report
	EventPing                  = "pusher:ping"                   // Either direction liveness probe
	EventPong                  = "pusher:pong"                   // Reply to ping
	EventSubscribe             = "pusher:subscribe"              // Client → Server channel join
	EventUnsubscribe           = "pusher:unsubscribe"            // Client → Server channel leave
	EventSignin                = "pusher:signin"                 // Client → Server user authentication
	EventSigninSuccess         = "pusher:signin_success"         // Server → Client signin accepted
)

// Channel lifecycle events, server-originated.
const (
	EventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	EventSubscriptionError     = "pusher_internal:subscription_error"
	EventMemberAdded           = "pusher_internal:member_added"
	EventMemberRemoved         = "pusher_internal:member_removed"
)

// Event namespace prefixes.
const (
	protocolPrefix = "pusher:"
	internalPrefix = "pusher_internal:"
)

// IsProtocolEvent reports whether event belongs to either reserved
// namespace. Application code may not send events with these names.
func IsProtocolEvent(event string) bool {
	return strings.HasPrefix(event, protocolPrefix) || strings.HasPrefix(event, internalPrefix)
}

// ChannelKind classifies a channel by its access model.
type ChannelKind uint8

const (
	KindPublic   ChannelKind = iota // No auth required
	KindPrivate                     // Auth signature required
	KindPresence                    // Auth required, tracks members
)

// String returns the string representation of the channel kind.
func (k ChannelKind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindPrivate:
		return "private"
	case KindPresence:
		return "presence"
	default:
		return "unknown"
	}
}

// RequiresAuth reports whether subscribing needs an auth signature.
func (k ChannelKind) RequiresAuth() bool {
	return k == KindPrivate || k == KindPresence
}

// Channel name prefixes that select a kind. Encrypted channels use the
// private auth flow; payload decryption is a message-layer concern.
const (
	PrivatePrefix          = "private-"
	PrivateEncryptedPrefix = "private-encrypted-"
	PresencePrefix         = "presence-"
)

// KindOf derives the channel kind from its name prefix.
func KindOf(name string) ChannelKind {
	switch {
	case strings.HasPrefix(name, PresencePrefix):
		return KindPresence
	case strings.HasPrefix(name, PrivatePrefix):
		return KindPrivate
	default:
		return KindPublic
	}
}
