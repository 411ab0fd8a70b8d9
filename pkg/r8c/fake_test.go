// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeMCU is an in-memory transport. Each chunk pushed to the host is
// returned by exactly one Read call so tests control the chunking.
type fakeMCU struct {
	rx        chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written []string
	respond func(frame string) []string

	pending []byte
}

func newFakeMCU(respond func(frame string) []string) *fakeMCU {
	return &fakeMCU{
		rx:      make(chan []byte, 256),
		closed:  make(chan struct{}),
		respond: respond,
	}
}

// replies answers commands from a fixed table; unknown commands get no reply
func replies(table map[string]string) func(string) []string {
	return func(frame string) []string {
		name := strings.TrimSuffix(strings.TrimPrefix(frame, ":"), "\n")
		if r, ok := table[name]; ok {
			return []string{";" + r + "\n"}
		}
		return nil
	}
}

func (f *fakeMCU) Read(p []byte) (int, error) {
	if len(f.pending) > 0 {
		n := copy(p, f.pending)
		f.pending = f.pending[n:]
		return n, nil
	}

	select {
	case b := <-f.rx:
		n := copy(p, b)
		f.pending = b[n:]
		return n, nil
	case <-f.closed:
		return 0, io.EOF
	}
}

func (f *fakeMCU) Write(p []byte) (int, error) {
	select {
	case <-f.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	frame := string(p)

	f.mu.Lock()
	f.written = append(f.written, frame)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		for _, chunk := range respond(frame) {
			f.rx <- []byte(chunk)
		}
	}

	return len(p), nil
}

func (f *fakeMCU) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	return nil
}

// send delivers chunks to the host, one Read per chunk
func (f *fakeMCU) send(chunks ...string) {
	for _, c := range chunks {
		f.rx <- []byte(c)
	}
}

func (f *fakeMCU) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	copy(out, f.written)
	return out
}

func (f *fakeMCU) setRespond(respond func(string) []string) {
	f.mu.Lock()
	f.respond = respond
	f.mu.Unlock()
}

// newTestSession starts a session on a fake MCU without the handshake
func newTestSession(t *testing.T, mcu *fakeMCU, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithReplyTimeout(200 * time.Millisecond)}, opts...)
	s := New(mcu, opts...)
	t.Cleanup(func() { s.Close() })
	return s
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
