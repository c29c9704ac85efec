package protocol

// ReconnectPolicy is what a close or error code tells the client to do
// with the connection.
type ReconnectPolicy uint8

const (
	ReconnectBackoff     ReconnectPolicy = iota // Retry after the current backoff delay
	ReconnectImmediately                        // Retry without waiting
	ReconnectNever                              // Condition is permanent, give up
)

// String returns the string representation of the policy.
func (p ReconnectPolicy) String() string {
	switch p {
	case ReconnectBackoff:
		return "backoff"
	case ReconnectImmediately:
		return "immediate"
	case ReconnectNever:
		return "never"
	default:
		return "unknown"
	}
}

// CodeInfo describes a protocol close or error code.
type CodeInfo struct {
	Code    int
	Message string
	Policy  ReconnectPolicy
}

// Close and error codes defined by the protocol. Servers use the same
// numbering in WebSocket close frames and pusher:error payloads.
var codeRegistry = map[int]CodeInfo{
	4000: {4000, "application only accepts SSL connections", ReconnectNever},
	4001: {4001, "application does not exist", ReconnectNever},
	4003: {4003, "application disabled", ReconnectNever},
	4004: {4004, "application is over connection quota", ReconnectNever},
	4005: {4005, "path not found", ReconnectNever},
	4006: {4006, "invalid version string format", ReconnectNever},
	4007: {4007, "unsupported protocol version", ReconnectNever},
	4008: {4008, "no protocol version supplied", ReconnectNever},
	4009: {4009, "connection is unauthorized", ReconnectNever},
	4100: {4100, "over capacity", ReconnectBackoff},
	4200: {4200, "generic reconnect immediately", ReconnectImmediately},
	4201: {4201, "pong reply not received", ReconnectImmediately},
	4202: {4202, "closed after inactivity", ReconnectImmediately},
	4301: {4301, "client event rejected due to rate limit", ReconnectBackoff},
}

// LookupCode returns the registered description of a code.
func LookupCode(code int) (CodeInfo, bool) {
	info, ok := codeRegistry[code]
	return info, ok
}

// PolicyFor returns the reconnect policy for any code. Unregistered codes
// fall back to their range; codes outside the protocol ranges (including
// plain WebSocket closes) get backoff, the policy for transport failures.
func PolicyFor(code int) ReconnectPolicy {
	if info, ok := codeRegistry[code]; ok {
		return info.Policy
	}
	switch {
	case code >= 4000 && code <= 4099:
		return ReconnectNever
	case code >= 4100 && code <= 4199:
		return ReconnectBackoff
	case code >= 4200 && code <= 4299:
		return ReconnectImmediately
	default:
		return ReconnectBackoff
	}
}

// IsFatal reports whether a code forbids reconnecting.
func IsFatal(code int) bool {
	return PolicyFor(code) == ReconnectNever
}
