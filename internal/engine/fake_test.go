package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/state"
)

const testTopology = `{"monitors": [{"type": "monitor", "children": [
  {"type": "workspace", "name": "1", "hasFocus": true, "children": [
    {"type": "window", "title": "Alpha", "processName": "alpha.exe"}
  ]},
  {"type": "workspace", "name": "2", "hasFocus": false, "children": []}
]}]}`

func okReply(data string) []byte {
	return []byte(`{"messageType":"client_response","success":true,"error":null,"data":` + data + `}`)
}

func failReply(reason string) []byte {
	return []byte(`{"messageType":"client_response","success":false,"error":"` + reason + `","data":null}`)
}

func eventFrame(eventType string) string {
	return `{"messageType":"event_subscription","success":true,"data":{"eventType":"` + eventType + `"}}`
}

// peerReply answers like a healthy GlazeWM
func peerReply(msg string) []byte {
	switch {
	case strings.HasPrefix(msg, "query "):
		return okReply(testTopology)
	default:
		return okReply("null")
	}
}

// frame is one read result: a payload or a transport fault
type frame struct {
	raw []byte
	err error
}

// fakeConn is an in-memory glazewm.Conn. Replies to sent messages and pushed
// frames are read back in order.
type fakeConn struct {
	reply func(msg string) []byte
	delay time.Duration

	mu          sync.Mutex
	sent        []string
	inflight    int
	maxInflight int

	frames    chan frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn(reply func(msg string) []byte) *fakeConn {
	return &fakeConn{
		reply:  reply,
		frames: make(chan frame, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Send(ctx context.Context, msg string) error {
	if c.isClosed() {
		return &glazewm.QueryError{Kind: glazewm.KindTransport, Err: glazewm.ErrStreamClosed}
	}

	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.inflight++
	if c.inflight > c.maxInflight {
		c.maxInflight = c.inflight
	}
	c.mu.Unlock()

	if c.reply == nil {
		return nil
	}
	raw := c.reply(msg)
	if raw == nil {
		return nil
	}
	if c.delay > 0 {
		go func() {
			time.Sleep(c.delay)
			c.frames <- frame{raw: raw}
		}()
		return nil
	}
	c.frames <- frame{raw: raw}
	return nil
}

func (c *fakeConn) Recv(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.frames:
		c.mu.Lock()
		if c.inflight > 0 {
			c.inflight--
		}
		c.mu.Unlock()
		return f.raw, f.err
	case <-c.closed:
		return nil, &glazewm.QueryError{Kind: glazewm.KindTransport, Err: glazewm.ErrStreamClosed}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, glazewm.Classify(ctx.Err(), "read")
		}
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// push delivers an unsolicited frame, e.g. an event
func (c *fakeConn) push(raw string) {
	c.frames <- frame{raw: []byte(raw)}
}

// drop makes the next read fail like a peer disconnect
func (c *fakeConn) drop() {
	c.frames <- frame{err: &glazewm.QueryError{Kind: glazewm.KindTransport, Err: glazewm.ErrStreamClosed}}
}

func (c *fakeConn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeConn) MaxInflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInflight
}

// fakeDialer hands out connections from next, numbered from 1
type fakeDialer struct {
	next func(n int) (glazewm.Conn, error)

	mu    sync.Mutex
	dials int
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context) (glazewm.Conn, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	d.mu.Unlock()

	conn, err := d.next(n)
	if err != nil {
		return nil, err
	}
	if fc, ok := conn.(*fakeConn); ok {
		d.mu.Lock()
		d.conns = append(d.conns, fc)
		d.mu.Unlock()
	}
	return conn, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Conn returns the i-th successfully dialed connection, or nil
func (d *fakeDialer) Conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

// healthyDialer always connects to a well-behaved peer
func healthyDialer() *fakeDialer {
	return &fakeDialer{next: func(int) (glazewm.Conn, error) {
		return newFakeConn(peerReply), nil
	}}
}

var errRefused = errors.New("dial tcp 127.0.0.1:6123: connect: connection refused")

// countingNotifier records the error count seen at every notification
type countingNotifier struct {
	state *state.SharedState

	mu     sync.Mutex
	counts []int
}

func (n *countingNotifier) MaybeNotify() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	if n.state != nil {
		count = n.state.Health().ConsecutiveErrorCount
	}
	n.counts = append(n.counts, count)
	return true
}

func (n *countingNotifier) Counts() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.counts...)
}

func (n *countingNotifier) Calls() int {
	return len(n.Counts())
}

// runInBackground runs fn until the test ends and waits for it to return
func runInBackground(t *testing.T, fn func(ctx context.Context)) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("background loop did not stop after cancel")
		}
	})
	return cancel
}
