package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// timeoutErr satisfies net.Error for deadline expiry on fake connections.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "fake: read deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// fakeConn is a scripted in-memory connection. The test side plays the
// server: serve pushes frames to the client, sent records what the
// client wrote, dropWith ends the connection with a chosen error.
type fakeConn struct {
	in     chan []byte
	wrote  chan []byte
	closed chan struct{}

	mu       sync.Mutex
	sent     [][]byte
	deadline time.Time
	closeErr error
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 64),
		wrote:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

// newEstablishedConn returns a conn with the connection_established frame
// already queued.
func newEstablishedConn(socketID string, activityTimeout int) *fakeConn {
	c := newFakeConn()
	c.serve(establishedFrame(socketID, activityTimeout))
	return c
}

func establishedFrame(socketID string, activityTimeout int) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"pusher:connection_established","data":"{\"socket_id\":\"%s\",\"activity_timeout\":%d}"}`,
		socketID, activityTimeout))
}

// serve queues a frame for the client to read.
func (f *fakeConn) serve(data []byte) {
	select {
	case f.in <- data:
	case <-f.closed:
	}
}

// dropWith ends the connection; subsequent reads fail with err.
func (f *fakeConn) dropWith(err error) {
	f.mu.Lock()
	if f.closeErr == nil {
		f.closeErr = err
	}
	f.mu.Unlock()
	f.once.Do(func() { close(f.closed) })
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	f.mu.Lock()
	deadline := f.deadline
	f.mu.Unlock()

	var expire <-chan time.Time
	if !deadline.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, timeoutErr{}
		}
		t := time.NewTimer(wait)
		defer t.Stop()
		expire = t.C
	}

	select {
	case data := <-f.in:
		return data, nil
	case <-f.closed:
		f.mu.Lock()
		err := f.closeErr
		f.mu.Unlock()
		if err == nil {
			err = errors.New("fake: connection closed")
		}
		return nil, err
	case <-expire:
		return nil, timeoutErr{}
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-f.closed:
		return errors.New("fake: write on closed connection")
	default:
	}
	f.mu.Lock()
	f.sent = append(f.sent, data)
	f.mu.Unlock()
	select {
	case f.wrote <- data:
	default:
	}
	return nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	f.deadline = t
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}

func (f *fakeConn) Close() error {
	f.dropWith(nil)
	return nil
}

// sentFrames returns a copy of everything the client wrote so far.
func (f *fakeConn) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// nextSent waits for the client's next written frame.
func (f *fakeConn) nextSent(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-f.wrote:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return nil
	}
}

// dialScript is one scripted DialContext outcome.
type dialScript struct {
	conn *fakeConn
	err  error
}

// fakeDialer hands out scripted connections in order. Dialing past the
// script fails.
type fakeDialer struct {
	mu     sync.Mutex
	script []dialScript
	dials  int
}

func newFakeDialer(conns ...*fakeConn) *fakeDialer {
	d := &fakeDialer{}
	for _, c := range conns {
		d.script = append(d.script, dialScript{conn: c})
	}
	return d
}

func (d *fakeDialer) enqueue(c *fakeConn) {
	d.mu.Lock()
	d.script = append(d.script, dialScript{conn: c})
	d.mu.Unlock()
}

func (d *fakeDialer) enqueueErr(err error) {
	d.mu.Lock()
	d.script = append(d.script, dialScript{err: err})
	d.mu.Unlock()
}

func (d *fakeDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.script) == 0 {
		return nil, errors.New("fake: no connection scripted")
	}
	next := d.script[0]
	d.script = d.script[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// testOptions returns quiet fast-timeout options wired to the dialer.
// stallDialer blocks every dial until its context is canceled.
type stallDialer struct{}

func (stallDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testOptions(d *fakeDialer) *Options {
	opts := DefaultOptions()
	opts.Dialer = d
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.HandshakeTimeout = 2 * time.Second
	opts.Backoff.MinDelay = 20 * time.Millisecond
	opts.Backoff.MaxDelay = 100 * time.Millisecond
	return opts
}

func newTestClient(t *testing.T, opts *Options) *Client {
	t.Helper()
	c, err := New("test-key", opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })
	return c
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
