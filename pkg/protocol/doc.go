// Package protocol implements the Pusher Channels wire protocol.
//
// Every message on the wire is a single JSON text frame with an event name,
// an optional channel, and an opaque data payload. The package is pure: it
// encodes and decodes messages and knows the protocol vocabulary, but never
// touches a socket.
//
// # Wire Format
//
// A frame is a JSON object:
//
//	{"event": "pusher:ping", "data": {}}
//	{"event": "new-order", "channel": "private-orders", "data": "{\"id\":42}"}
//
// The data field is either a JSON value or, for most server-originated
// frames, a JSON string containing encoded JSON. Message.DataBytes and
// Message.UnmarshalData handle both forms transparently.
//
// # Event Namespaces
//
// Events prefixed "pusher:" are connection-level protocol events
// (connection_established, ping/pong, subscribe, error). Events prefixed
// "pusher_internal:" are server-originated channel lifecycle events
// (subscription_succeeded, member_added, member_removed). Everything else
// is an application event and is dispatched to channel listeners.
//
// # Channel Kinds
//
// A channel's kind is encoded in its name: "private-" and
// "private-encrypted-" prefixes mark private channels, "presence-" marks
// presence channels, and any other name is a public channel. Private and
// presence channels require an auth signature at subscribe time.
//
// # Close Codes
//
// Servers close connections (and populate pusher:error payloads) with codes
// in the 4000-4299 range. The code determines the reconnect policy:
//
//   - 4000-4099: the condition is permanent, do not reconnect
//   - 4100-4199: temporary, reconnect after backoff
//   - 4200-4299: stale connection, reconnect immediately
//
// LookupCode returns the registered meaning of a code, PolicyFor the
// reconnect policy for any code including unregistered ones.
package protocol
