package engine

import (
	"context"
	"time"

	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/logger"
)

// RequestConn owns the request/response connection shared by queries and
// commands. The peer does not pipeline, so exactly one request may be in
// flight: the connection handle lives in a one-slot channel and a caller
// holds it (the connection is busy) from send until the reply is read.
type RequestConn struct {
	dialer  glazewm.Dialer
	timeout time.Duration

	// handle carries the cached connection, nil when disconnected. Empty
	// while a request is in flight.
	handle chan glazewm.Conn
}

// NewRequestConn creates a lazily connected request channel. Every round trip,
// including a reconnect, is bounded by timeout.
func NewRequestConn(dialer glazewm.Dialer, timeout time.Duration) *RequestConn {
	r := &RequestConn{
		dialer:  dialer,
		timeout: timeout,
		handle:  make(chan glazewm.Conn, 1),
	}
	r.handle <- nil
	return r
}

// RoundTrip sends msg and returns the decoded reply. A reply with
// success=false is returned as-is; callers check Response.Err.
//
// Transport faults and timeouts drop the cached connection so the next call
// dials again; after a timed-out read a late reply would otherwise be read as
// the answer to the next request.
func (r *RequestConn) RoundTrip(ctx context.Context, msg string) (*glazewm.Response, error) {
	var conn glazewm.Conn
	select {
	case conn = <-r.handle:
	case <-ctx.Done():
		return nil, glazewm.Classify(ctx.Err(), "request slot unavailable")
	}
	defer func() { r.handle <- conn }()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if conn == nil {
		fresh, err := r.dialer.Dial(ctx)
		if err != nil {
			return nil, glazewm.Classify(err, "failed to connect")
		}
		conn = fresh
	}

	raw, err := r.exchange(ctx, conn, msg)
	if err != nil {
		if glazewm.IsKind(err, glazewm.KindTransport) || glazewm.IsKind(err, glazewm.KindTimeout) {
			conn.Close()
			conn = nil
			logger.WithComponent("request").Debug().Err(err).Msg("Dropped request connection")
		}
		return nil, err
	}

	return glazewm.DecodeResponse(raw)
}

func (r *RequestConn) exchange(ctx context.Context, conn glazewm.Conn, msg string) ([]byte, error) {
	if err := conn.Send(ctx, msg); err != nil {
		return nil, glazewm.Classify(err, "failed to send request")
	}
	raw, err := conn.Recv(ctx)
	if err != nil {
		return nil, glazewm.Classify(err, "failed to read reply")
	}
	return raw, nil
}

// Close drops the cached connection. It waits for an in-flight request.
func (r *RequestConn) Close() error {
	conn := <-r.handle
	defer func() { r.handle <- nil }()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
