package glazewm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrorKind classifies failures talking to the window manager
type ErrorKind int

const (
	// KindTransport covers refused, reset or otherwise broken connections
	KindTransport ErrorKind = iota
	// KindTimeout is a bounded operation that ran out of time
	KindTimeout
	// KindDecode is a payload that could not be parsed
	KindDecode
	// KindRejected is a reply with success=false
	KindRejected
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindDecode:
		return "decode"
	case KindRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// QueryError is the error type returned by every request, command and
// subscription operation in this package.
type QueryError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries a QueryError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind == kind
	}
	return false
}

// Rejected builds the error for a peer reply with success=false
func Rejected(reason string) *QueryError {
	if reason == "" {
		reason = "request failed"
	}
	return &QueryError{Kind: KindRejected, Reason: reason}
}

// Classify maps a raw error from dialing, reading, writing or decoding onto
// the QueryError taxonomy. Errors that are already classified pass through.
func Classify(err error, reason string) error {
	if err == nil {
		return nil
	}

	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}

	kind := KindTransport

	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		kind = KindDecode
	}

	return &QueryError{Kind: kind, Reason: reason, Err: err}
}

// ErrStreamClosed is returned by Recv when the peer closed the connection
var ErrStreamClosed = errors.New("event stream disconnected")
