package client

// State is the connection lifecycle state of a Client.
type State uint8

const (
	StateDisconnected State = iota // No connection, no retry pending
	StateConnecting                // Dial and handshake in progress
	StateConnected                 // Established, frames flowing
	StateReconnecting              // Connection lost, retry pending
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
