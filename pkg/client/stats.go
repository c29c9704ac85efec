package client

import (
	"sync/atomic"
	"time"
)

// stats counts client activity. Counters are atomic so the hot paths
// never take a lock for bookkeeping.
type stats struct {
	connects   atomic.Uint64
	reconnects atomic.Uint64

	framesReceived atomic.Uint64
	framesSent     atomic.Uint64
	bytesReceived  atomic.Uint64
	bytesSent      atomic.Uint64

	malformedFrames  atomic.Uint64
	eventsDispatched atomic.Uint64
	eventsDropped    atomic.Uint64
	callbackPanics   atomic.Uint64

	authRequests atomic.Uint64
	authFailures atomic.Uint64

	pingsSent   atomic.Uint64
	writeErrors atomic.Uint64

	subscribes   atomic.Uint64
	unsubscribes atomic.Uint64
}

// Stats is a point-in-time snapshot of client activity.
type Stats struct {
	// Connection lifecycle
	Connects   uint64
	Reconnects uint64

	// Traffic
	FramesReceived uint64
	FramesSent     uint64
	BytesReceived  uint64
	BytesSent      uint64

	// Dispatch
	MalformedFrames  uint64
	EventsDispatched uint64
	EventsDropped    uint64
	CallbackPanics   uint64

	// Auth
	AuthRequests uint64
	AuthFailures uint64

	// Liveness and errors
	PingsSent   uint64
	WriteErrors uint64

	// Registry
	Subscribes   uint64
	Unsubscribes uint64

	// Timestamp
	CollectedAt time.Time
}

func (s *stats) snapshot() Stats {
	return Stats{
		Connects:         s.connects.Load(),
		Reconnects:       s.reconnects.Load(),
		FramesReceived:   s.framesReceived.Load(),
		FramesSent:       s.framesSent.Load(),
		BytesReceived:    s.bytesReceived.Load(),
		BytesSent:        s.bytesSent.Load(),
		MalformedFrames:  s.malformedFrames.Load(),
		EventsDispatched: s.eventsDispatched.Load(),
		EventsDropped:    s.eventsDropped.Load(),
		CallbackPanics:   s.callbackPanics.Load(),
		AuthRequests:     s.authRequests.Load(),
		AuthFailures:     s.authFailures.Load(),
		PingsSent:        s.pingsSent.Load(),
		WriteErrors:      s.writeErrors.Load(),
		Subscribes:       s.subscribes.Load(),
		Unsubscribes:     s.unsubscribes.Load(),
		CollectedAt:      time.Now(),
	}
}
