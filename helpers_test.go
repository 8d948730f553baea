// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
	"github.com/stretchr/testify/require"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted. Appends are serialized
// because probe workers and the queue goroutine log concurrently; read the
// slice only after synchronizing with the code under test.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var (
		mu      sync.Mutex
		records []slog.Record
	)
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		},
	}
	return slog.New(handler), &records
}

// recordMessages returns the messages of the given records.
func recordMessages(records []slog.Record) []string {
	var msgs []string
	for _, record := range records {
		msgs = append(msgs, record.Message)
	}
	return msgs
}

// findRecord returns the first record with the given message.
func findRecord(t *testing.T, records []slog.Record, msg string) slog.Record {
	t.Helper()
	for _, record := range records {
		if record.Message == msg {
			return record
		}
	}
	t.Fatalf("no %q record among %v", msg, recordMessages(records))
	return slog.Record{}
}

// recordAttr returns the value of the named attribute of record.
func recordAttr(record slog.Record, key string) (slog.Value, bool) {
	var (
		found bool
		value slog.Value
	)
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found, value = true, attr.Value
			return false
		}
		return true
	})
	return value, found
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr] and [safeconn.RemoteAddr] while logging.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

// newRecordedCommand returns a command whose responses are sent on the
// returned channel.
func newRecordedCommand(ctype CommandType) (*Command, <-chan *Response) {
	ch := make(chan *Response, 4)
	cmd := NewCommand(ctype, func(resp *Response) {
		ch <- resp
	})
	return cmd, ch
}

// awaitResponse waits for the next response on ch.
func awaitResponse(t *testing.T, ch <-chan *Response) *Response {
	t.Helper()
	select {
	case resp := <-ch:
		return resp
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for response")
		return nil
	}
}

// requireNoResponse fails if a response arrives on ch within a short time.
func requireNoResponse(t *testing.T, ch <-chan *Response) {
	t.Helper()
	select {
	case resp := <-ch:
		t.Fatalf("unexpected response: %s", resp.Status)
	case <-time.After(50 * time.Millisecond):
	}
}

// newTestDispatcher returns a [*Dispatcher] using the given config and
// policy, running on its own [*Queue]. Both are closed on cleanup.
func newTestDispatcher(t *testing.T, cfg *Config, policy *Policy, logger SLogger) (*Dispatcher, *Queue) {
	t.Helper()
	queue := NewQueue()
	t.Cleanup(queue.Close)
	d, err := NewDispatcher(cfg, policy, queue, logger)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, queue
}

// dispatch runs d.Dispatch(cmd) on the queue and waits for it to return.
func dispatch(t *testing.T, d *Dispatcher, queue *Queue, cmd *Command) {
	t.Helper()
	require.NoError(t, queue.Do(func() { d.Dispatch(cmd) }))
}
