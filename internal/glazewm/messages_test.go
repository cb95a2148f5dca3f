package glazewm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	assert.Equal(t, "query monitors", QueryMessage(TopologyMonitors))
	assert.Equal(t, "command toggle-tiling-direction", CommandMessage("toggle-tiling-direction"))
	assert.Equal(t, "sub -e focus_changed window_managed",
		SubscribeMessage([]string{EventFocusChanged, EventWindowManaged}))
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"messageType":"client_response","success":false,"error":"unknown command","data":null}`))
	require.NoError(t, err)
	assert.False(t, resp.Success)

	rejectErr := resp.Err()
	require.Error(t, rejectErr)
	assert.True(t, IsKind(rejectErr, KindRejected))
	assert.Contains(t, rejectErr.Error(), "unknown command")

	ok, err := DecodeResponse([]byte(`{"success":true,"error":null,"data":{"x":1}}`))
	require.NoError(t, err)
	assert.NoError(t, ok.Err())
	assert.JSONEq(t, `{"x":1}`, string(ok.Data))

	_, err = DecodeResponse([]byte(`not json`))
	assert.True(t, IsKind(err, KindDecode))
}

func TestDecodeEvent(t *testing.T) {
	eventType, err := DecodeEvent([]byte(`{"messageType":"event_subscription","data":{"eventType":"window_managed","managedWindow":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventWindowManaged, eventType)

	_, err = DecodeEvent([]byte(`{"data":`))
	assert.True(t, IsKind(err, KindDecode))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{name: "deadline", err: context.DeadlineExceeded, kind: KindTimeout},
		{name: "os deadline", err: fmt.Errorf("read: %w", os.ErrDeadlineExceeded), kind: KindTimeout},
		{name: "net timeout", err: timeoutErr{}, kind: KindTimeout},
		{name: "refused", err: errors.New("connection refused"), kind: KindTransport},
		{name: "already classified", err: Rejected("nope"), kind: KindRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err, "op")
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}

	assert.NoError(t, Classify(nil, "op"))
}

func TestQueryErrorUnwrap(t *testing.T) {
	err := &QueryError{Kind: KindTransport, Err: ErrStreamClosed}
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, "transport: event stream disconnected", err.Error())
}
