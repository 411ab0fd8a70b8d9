// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package keys

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
)

// fakeLink records subscriptions and answers "btn" from a queue
type fakeLink struct {
	mu       sync.Mutex
	handlers []r8c.EventHandler
	unsubs   int
	polls    []string
	calls    int
}

func (f *fakeLink) Execute(ctx context.Context, name, arg string, replyLen int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if name != CmdButtons {
		return "", errors.New("unexpected command " + name)
	}
	if len(f.polls) == 0 {
		return "", r8c.ErrTimeout
	}
	reply := f.polls[0]
	if len(f.polls) > 1 {
		f.polls = f.polls[1:]
	}
	return reply, nil
}

func (f *fakeLink) Subscribe(handler r8c.EventHandler) *r8c.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
	return &r8c.Subscription{}
}

func (f *fakeLink) Unsubscribe(sub *r8c.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubs++
}

func (f *fakeLink) pollCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// eventLog is a Sink that records transitions
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) sink(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

var testButtons = []Button{
	{Label: "power", Keycode: 'p', Code: "KEY_POWER"},
	{Label: "reset", Keycode: 'r', Code: "KEY_RESTART"},
	{Label: "copy", Keycode: 'c', Code: "KEY_COPY"},
}

func TestValidateButton(t *testing.T) {
	tests := []struct {
		keycode byte
		mode    Mode
		wantErr error
	}{
		{'c', ModeEvent, nil},
		{'p', ModeEvent, nil},
		{'r', ModePolled, nil},
		{'w', ModePolled, nil},
		{'z', ModePolled, nil},
		{'x', ModeEvent, ErrEventUnavailable},
		{'y', ModeEvent, ErrEventUnavailable},
		{'a', ModePolled, ErrUnsupportedKeycode},
		{'C', ModeEvent, ErrUnsupportedKeycode},
	}

	for _, tt := range tests {
		err := ValidateButton(Button{Keycode: tt.keycode}, tt.mode)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateButton('%c', %v) = %v, want %v", tt.keycode, tt.mode, err, tt.wantErr)
		}
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	link := &fakeLink{}

	if _, err := New(link, ModeEvent, nil, nil); !errors.Is(err, ErrNoButtons) {
		t.Errorf("New(no buttons) error = %v, want ErrNoButtons", err)
	}

	_, err := New(link, ModeEvent, []Button{{Label: "func", Keycode: 'w'}}, nil)
	if !errors.Is(err, ErrEventUnavailable) {
		t.Errorf("New(w in event mode) error = %v, want ErrEventUnavailable", err)
	}
	if len(link.handlers) != 0 {
		t.Error("failed New should not subscribe")
	}
}

func TestEventMode_Transitions(t *testing.T) {
	link := &fakeLink{}
	log := &eventLog{}

	k, err := New(link, ModeEvent, testButtons, log.sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(link.handlers) != 1 {
		t.Fatalf("subscribed %d handlers, want 1", len(link.handlers))
	}
	h := link.handlers[0]

	tests := []struct {
		code    byte
		verdict r8c.Verdict
	}{
		{'P', r8c.Handled},  // pressed
		{'P', r8c.Handled},  // held, suppressed
		{'p', r8c.Handled},  // released
		{'p', r8c.Handled},  // released again, reported
		{'R', r8c.Handled},  // pressed
		{'Q', r8c.Continue}, // not ours
		{'w', r8c.Continue}, // not configured
	}
	for _, tt := range tests {
		if got := h.HandleEvent(tt.code); got != tt.verdict {
			t.Errorf("HandleEvent('%c') = %v, want %v", tt.code, got, tt.verdict)
		}
	}

	want := []Event{
		{Label: "power", Code: "KEY_POWER", Pressed: true},
		{Label: "power", Code: "KEY_POWER", Pressed: false},
		{Label: "power", Code: "KEY_POWER", Pressed: false},
		{Label: "reset", Code: "KEY_RESTART", Pressed: true},
	}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("got %d events %+v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if !k.Pressed("reset") || k.Pressed("power") {
		t.Error("Pressed() does not reflect the last transitions")
	}

	k.Close()
	if link.unsubs != 1 {
		t.Errorf("Close() unsubscribed %d times, want 1", link.unsubs)
	}
}

func TestPolledMode_ReportsInitialStateAndChanges(t *testing.T) {
	link := &fakeLink{polls: []string{"cPrwxyz", "cPrwxyz", "cpRwxyz"}}
	log := &eventLog{}

	k, err := New(link, ModePolled, testButtons, log.sink, WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer k.Close()

	// the initial poll runs before New returns
	if got := log.snapshot(); len(got) != 1 || got[0].Label != "power" || !got[0].Pressed {
		t.Fatalf("initial events = %+v, want power pressed", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(log.snapshot()) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	got := log.snapshot()
	if len(got) != 3 {
		t.Fatalf("got %d events %+v, want 3", len(got), got)
	}
	if got[1] != (Event{Label: "power", Code: "KEY_POWER", Pressed: false}) {
		t.Errorf("event 1 = %+v, want power released", got[1])
	}
	if got[2] != (Event{Label: "reset", Code: "KEY_RESTART", Pressed: true}) {
		t.Errorf("event 2 = %+v, want reset pressed", got[2])
	}
}

func TestPolledMode_IgnoresBadReplies(t *testing.T) {
	link := &fakeLink{polls: []string{"cPr"}}
	log := &eventLog{}

	k, err := New(link, ModePolled, testButtons, log.sink, WithPollInterval(time.Hour))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer k.Close()

	if got := log.snapshot(); len(got) != 0 {
		t.Errorf("short reply produced events %+v", got)
	}
}

func TestPolledMode_CloseStopsPolling(t *testing.T) {
	link := &fakeLink{polls: []string{"cprwxyz"}}

	k, err := New(link, ModePolled, testButtons, nil, WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	k.Close()

	calls := link.pollCalls()
	time.Sleep(20 * time.Millisecond)
	if link.pollCalls() != calls {
		t.Errorf("polling continued after Close: %d -> %d calls", calls, link.pollCalls())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"event", ModeEvent, false},
		{"", ModeEvent, false},
		{"polled", ModePolled, false},
		{"interrupt", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
