package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// heartbeat watches one connection's liveness, independent of the read
// loop. Any inbound frame counts as activity. After ActivityTimeout of
// quiet it sends one ping; if nothing arrives within PongTimeout the
// connection is declared stale.
type heartbeat struct {
	interval time.Duration
	pongWait time.Duration
	ping     func() error
	stale    func(error)

	lastSeen atomic.Int64 // unix nanos
}

func newHeartbeat(interval, pongWait time.Duration, ping func() error, stale func(error)) *heartbeat {
	h := &heartbeat{interval: interval, pongWait: pongWait, ping: ping, stale: stale}
	h.Touch()
	return h
}

// Touch records activity. Called for every inbound frame.
func (h *heartbeat) Touch() {
	h.lastSeen.Store(time.Now().UnixNano())
}

func (h *heartbeat) last() time.Time {
	return time.Unix(0, h.lastSeen.Load())
}

// run loops until ctx is canceled or the connection goes stale. One ping
// per quiet interval: after a ping is answered the timer starts over from
// the answering frame.
func (h *heartbeat) run(ctx context.Context) {
	timer := time.NewTimer(h.interval)
	defer timer.Stop()

	for {
		idle := time.Since(h.last())
		if idle < h.interval {
			if !h.sleep(ctx, timer, h.interval-idle) {
				return
			}
			continue
		}

		if err := h.ping(); err != nil {
			h.stale(&TransportError{Op: "ping", Err: err})
			return
		}
		sentAt := time.Now()

		if !h.sleep(ctx, timer, h.pongWait) {
			return
		}
		if !h.last().After(sentAt) {
			h.stale(fmt.Errorf("%w: no reply within %v", ErrConnectionStale, h.pongWait))
			return
		}
	}
}

// sleep waits d or until ctx is canceled. Reports false on cancellation.
func (h *heartbeat) sleep(ctx context.Context, timer *time.Timer, d time.Duration) bool {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
