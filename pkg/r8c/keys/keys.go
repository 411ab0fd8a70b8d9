// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package keys turns MCU button state into press/release events, either from
// asynchronous "@" events or by polling the "btn" command.
package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/rs/zerolog"
)

// Command and reply sizes of the button poll
const (
	CmdButtons          = "btn"
	buttonsReplyLen     = 16
	buttonsReplyChars   = 7
	DefaultPollInterval = time.Second
)

// Mode selects how button state is obtained
type Mode int

const (
	// ModeEvent reacts to "@X" / "@x" events pushed by the MCU
	ModeEvent Mode = iota
	// ModePolled queries "btn" on a fixed interval
	ModePolled
)

func (m Mode) String() string {
	switch m {
	case ModeEvent:
		return "event"
	case ModePolled:
		return "polled"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "event" or "polled"
func ParseMode(s string) (Mode, error) {
	switch s {
	case "event", "":
		return ModeEvent, nil
	case "polled":
		return ModePolled, nil
	}
	return 0, fmt.Errorf("unknown key mode %q", s)
}

var (
	ErrUnsupportedKeycode = errors.New("keys: keycode not supported")
	ErrEventUnavailable   = errors.New("keys: keycode has no event in event mode")
	ErrNoButtons          = errors.New("keys: no buttons configured")
)

// Button maps one MCU keycode to a logical key
type Button struct {
	Label   string
	Keycode byte   // lowercase MCU keycode
	Code    string // logical key name reported to the sink
}

// Event is a single key transition
type Event struct {
	Label   string
	Code    string
	Pressed bool
}

// Sink receives key transitions. In event mode it runs on the session's
// dispatcher goroutine, in polled mode on the poll goroutine.
type Sink func(Event)

// Link is the part of r8c.Session used by Keys
type Link interface {
	Execute(ctx context.Context, name, arg string, replyLen int) (string, error)
	Subscribe(handler r8c.EventHandler) *r8c.Subscription
	Unsubscribe(sub *r8c.Subscription)
}

// ValidateButton checks a keycode against the codes the MCU knows about.
// Keycodes w, x, y and z are only reported by the poll command.
func ValidateButton(b Button, mode Mode) error {
	switch b.Keycode {
	case 'c', 'p', 'r':
		return nil
	case 'w', 'x', 'y', 'z':
		if mode == ModeEvent {
			return fmt.Errorf("%w: '%c'", ErrEventUnavailable, b.Keycode)
		}
		return nil
	default:
		return fmt.Errorf("%w: '%c'", ErrUnsupportedKeycode, b.Keycode)
	}
}

type buttonState struct {
	Button
	pressed bool
}

// Keys tracks the state of the configured buttons
type Keys struct {
	link Link
	mode Mode
	sink Sink
	log  zerolog.Logger

	interval time.Duration

	mu      sync.Mutex
	buttons []buttonState

	sub    *r8c.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures Keys
type Option func(*Keys)

// WithPollInterval sets the polled mode interval
func WithPollInterval(d time.Duration) Option {
	return func(k *Keys) {
		if d > 0 {
			k.interval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(k *Keys) {
		k.log = log
	}
}

// New validates buttons and starts listening. In event mode Keys subscribes
// to link; in polled mode it reports the initial state once and then polls
// until Close.
func New(link Link, mode Mode, buttons []Button, sink Sink, opts ...Option) (*Keys, error) {
	if len(buttons) == 0 {
		return nil, ErrNoButtons
	}

	k := &Keys{
		link:     link,
		mode:     mode,
		sink:     sink,
		log:      zerolog.Nop(),
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(k)
	}

	for _, b := range buttons {
		if err := ValidateButton(b, mode); err != nil {
			return nil, fmt.Errorf("button %q: %w", b.Label, err)
		}
		k.buttons = append(k.buttons, buttonState{Button: b})
	}

	switch mode {
	case ModeEvent:
		k.sub = link.Subscribe(k)
	case ModePolled:
		ctx, cancel := context.WithCancel(context.Background())
		k.cancel = cancel
		k.Poll(ctx)
		k.wg.Add(1)
		go k.pollLoop(ctx)
	default:
		return nil, fmt.Errorf("unknown key mode %v", mode)
	}

	return k, nil
}

// HandleEvent implements r8c.EventHandler. A repeated pressed code for a key
// that is already down is swallowed: the MCU repeats it while a key is held.
func (k *Keys) HandleEvent(code byte) r8c.Verdict {
	pressed := code >= 'A' && code <= 'Z'
	lower := code
	if pressed {
		lower = code + ('a' - 'A')
	}

	k.mu.Lock()
	for i := range k.buttons {
		b := &k.buttons[i]
		if b.Keycode != lower {
			continue
		}

		if pressed && b.pressed {
			k.mu.Unlock()
			return r8c.Handled
		}
		b.pressed = pressed
		ev := Event{Label: b.Label, Code: b.Code, Pressed: pressed}
		k.mu.Unlock()

		k.emit(ev)
		return r8c.Handled
	}
	k.mu.Unlock()

	return r8c.Continue
}

// Poll queries the button state once and reports every change. An
// unexpected reply length is ignored.
func (k *Keys) Poll(ctx context.Context) {
	reply, err := k.link.Execute(ctx, CmdButtons, "", buttonsReplyLen)
	if err != nil {
		k.log.Debug().Err(err).Msg("button poll failed")
		return
	}
	if len(reply) != buttonsReplyChars {
		k.log.Debug().Str("reply", reply).Msg("unexpected button reply")
		return
	}

	// example: "crpWxyZ"
	var events []Event
	k.mu.Lock()
	for i := 0; i < len(reply); i++ {
		c := reply[i]
		pressed := c <= 'Z'
		lower := c
		if pressed {
			lower = c + ('a' - 'A')
		}

		for j := range k.buttons {
			b := &k.buttons[j]
			if b.Keycode != lower {
				continue
			}
			if b.pressed != pressed {
				b.pressed = pressed
				events = append(events, Event{Label: b.Label, Code: b.Code, Pressed: pressed})
			}
			break
		}
	}
	k.mu.Unlock()

	for _, ev := range events {
		k.emit(ev)
	}
}

func (k *Keys) pollLoop(ctx context.Context) {
	defer k.wg.Done()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Poll(ctx)
		}
	}
}

func (k *Keys) emit(ev Event) {
	k.log.Debug().Str("key", ev.Label).Bool("pressed", ev.Pressed).Msg("key")
	if k.sink != nil {
		k.sink(ev)
	}
}

// Pressed reports the last known state of the button with the given label
func (k *Keys) Pressed(label string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, b := range k.buttons {
		if b.Label == label {
			return b.pressed
		}
	}
	return false
}

// Mode returns the configured mode
func (k *Keys) Mode() Mode {
	return k.mode
}

// Close unsubscribes or stops polling
func (k *Keys) Close() {
	if k.sub != nil {
		k.link.Unsubscribe(k.sub)
		k.sub = nil
	}
	if k.cancel != nil {
		k.cancel()
		k.wg.Wait()
		k.cancel = nil
	}
}
