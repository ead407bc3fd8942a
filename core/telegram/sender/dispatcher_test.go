package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func newTestDispatcher(t *testing.T, retries int) *Dispatcher {
	t.Helper()
	d := NewDispatcher(Options{Workers: 1, QueueSize: 4, MaxRetries: retries, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	t.Cleanup(d.Close)
	return d
}

func TestDeliverRetriesTransientErrors(t *testing.T) {
	d := newTestDispatcher(t, 2)
	var calls atomic.Int32
	err := d.Deliver(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return dialErr()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDeliverStopsOnPermanentError(t *testing.T) {
	d := newTestDispatcher(t, 3)
	permanent := errors.New("telegram: bot was blocked by the user (403)")
	calls := 0
	err := d.Deliver(context.Background(), "send.text", "sendMessage", func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
	assert.Equal(t, "blocked", classifyError(permanent))
}

func TestDeliverGivesUpAfterMaxRetries(t *testing.T) {
	d := newTestDispatcher(t, 1)
	calls := 0
	err := d.Deliver(context.Background(), "send.text", "sendMessage", func() error {
		calls++
		return dialErr()
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "dial", classifyError(err))
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	d := newTestDispatcher(t, 0)
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		close(done)
		return nil
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job was not executed")
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()
	err := d.Enqueue(context.Background(), "send.text", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Error(t, d.Deliver(context.Background(), "send.text", "", nil))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": timeout`)
	assert.NotContains(t, sanitizeErrorMessage(err), "ABC-def")
	assert.Contains(t, sanitizeErrorMessage(err), "bot<redacted>")
}
