package client

import (
	"math/rand"
	"sync"
	"time"
)

// backoff produces reconnect delays: exponential growth from MinDelay,
// capped at MaxDelay, with up to 25% jitter added so simultaneous clients
// don't retry in lockstep.
type backoff struct {
	mu  sync.Mutex
	min time.Duration
	max time.Duration
	cur time.Duration // last un-jittered delay, 0 before the first Next
}

func newBackoff(opts BackoffOptions) *backoff {
	return &backoff{min: opts.MinDelay, max: opts.MaxDelay}
}

// Next advances the schedule and returns the delay to wait.
func (b *backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cur == 0 {
		b.cur = b.min
	} else {
		b.cur *= 2
		if b.cur > b.max {
			b.cur = b.max
		}
	}

	d := b.cur
	if spread := int64(d / 4); spread > 0 {
		d += time.Duration(rand.Int63n(spread))
	}
	return d
}

// Current returns the delay level without advancing or jitter.
func (b *backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == 0 {
		return b.min
	}
	return b.cur
}

// Reset returns the schedule to MinDelay.
func (b *backoff) Reset() {
	b.mu.Lock()
	b.cur = 0
	b.mu.Unlock()
}
