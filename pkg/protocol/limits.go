package protocol

// Version is the protocol revision this package implements, sent in the
// connection URL's protocol query parameter.
const Version = 7

// Size limits.
const (
	// DefaultMaxMessageSize caps inbound frame size. Published events are
	// limited to 10KB server-side; the headroom covers presence rosters
	// and batched server frames.
	DefaultMaxMessageSize = 64 * 1024

	// MaxEventSize is the server-side cap on a published event payload.
	MaxEventSize = 10 * 1024
)
