// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Session owns one MCU link: the transport, the command lock, the reply
// reassembly state and the event subscribers.
//
// Execute may be called from any number of goroutines; commands are
// serialized so that at most one command waits for a reply at a time.
type Session struct {
	conn io.ReadWriteCloser
	cfg  Config
	log  zerolog.Logger

	// mu serializes commands from write through reply
	mu sync.Mutex

	// rxMu guards the reassembler; it is held only for the duration of a
	// Feed or Reset and never while waiting
	rxMu sync.Mutex
	rx   *Reassembler

	// waitMu guards the one-shot reply channel of the current command
	waitMu sync.Mutex
	waiter chan []byte

	dispatcher *Dispatcher

	rawMu    sync.Mutex
	rawReply string

	model   string
	version string

	stats linkCounters

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
	readDone  chan struct{}
}

// New wraps conn in a session and starts the receive loop without talking
// to the MCU. Most callers want Open.
func New(conn io.ReadWriteCloser, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		conn:     conn,
		cfg:      cfg,
		log:      cfg.Logger,
		rx:       NewReassembler(),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	s.dispatcher = NewDispatcher(cfg.Logger)

	go s.readLoop()

	return s
}

// Open creates a session on conn and performs the startup handshake: the
// MCU is asked for its model and firmware version, and the model must start
// with the expected model string. On failure the session is closed, which
// also closes conn.
func Open(ctx context.Context, conn io.ReadWriteCloser, opts ...Option) (*Session, error) {
	s := New(conn, opts...)
	if s.cfg.SkipHandshake {
		return s, nil
	}

	if err := s.detect(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// detect runs the model/version handshake
func (s *Session) detect(ctx context.Context) error {
	model, err := s.Execute(ctx, CmdModel, "", modelReplyLen)
	if err != nil {
		return fmt.Errorf("model query failed: %w", err)
	}
	if model == "" {
		return fmt.Errorf("%w: empty model reply", ErrInvalidReply)
	}

	version, err := s.Execute(ctx, CmdVersion, "", versionReplyLen)
	if err != nil {
		return fmt.Errorf("version query failed: %w", err)
	}
	if version == "" {
		return fmt.Errorf("%w: empty version reply", ErrInvalidReply)
	}

	if !strings.HasPrefix(model, s.cfg.ExpectedModel) {
		s.log.Error().Str("model", model).Str("expected", s.cfg.ExpectedModel).Msg("invalid model detected")
		return &ModelMismatchError{Expected: s.cfg.ExpectedModel, Actual: model}
	}

	s.model = model
	s.version = version
	s.log.Info().Str("model", model).Str("version", version).Msg("MCU detected")

	return nil
}

// Handshake runs the model/version handshake on a session created with New
// or WithoutHandshake. Unlike Open it leaves the session open on failure, so
// it can be retried while the MCU boots.
func (s *Session) Handshake(ctx context.Context) (model, version string, err error) {
	if err := s.detect(ctx); err != nil {
		return "", "", err
	}
	return s.model, s.version, nil
}

// Model returns the model reported during the handshake
func (s *Session) Model() string {
	return s.model
}

// Version returns the firmware version reported during the handshake
func (s *Session) Version() string {
	return s.version
}

// Execute sends ":<name> <arg>\n" (or ":<name>\n" when arg is empty) and, if
// replyLen is positive, waits for the reply.
//
// The returned reply holds at most replyLen-1 bytes. A replyLen of zero sends
// the command without waiting. If no reply arrives within the reply timeout,
// ErrTimeout is returned and the session is ready for the next command.
func (s *Session) Execute(ctx context.Context, name, arg string, replyLen int) (string, error) {
	frame, err := EncodeCommand(name, arg)
	if err != nil {
		return "", err
	}

	return s.exec(ctx, frame, replyLen)
}

// RawCommand sends an operator supplied command line and stores the reply
// for LastRawReply. It is meant for debugging only.
func (s *Session) RawCommand(ctx context.Context, line string) (string, error) {
	frame, err := EncodeRawCommand(line)
	if err != nil {
		return "", err
	}

	reply, err := s.exec(ctx, frame, ReplyBufferSize)
	if err != nil {
		return "", err
	}

	s.rawMu.Lock()
	s.rawReply = reply
	s.rawMu.Unlock()

	return reply, nil
}

// LastRawReply returns the reply of the last successful RawCommand
func (s *Session) LastRawReply() string {
	s.rawMu.Lock()
	defer s.rawMu.Unlock()
	return s.rawReply
}

func (s *Session) exec(ctx context.Context, frame []byte, replyLen int) (string, error) {
	label := strings.TrimSpace(string(frame[1:]))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.linkErr(); err != nil {
		return "", err
	}

	var wait chan []byte
	if replyLen > 0 {
		wait = make(chan []byte, 1)
	}
	s.setWaiter(wait)
	defer s.setWaiter(nil)

	s.log.Debug().Str("cmd", label).Int("reply_len", replyLen).Msg("tx")
	if s.cfg.Tap != nil {
		s.cfg.Tap(DirectionTx, frame)
	}

	if _, err := s.conn.Write(frame); err != nil {
		return "", fmt.Errorf("r8c: write %q: %w", label, err)
	}
	s.stats.commands.Add(1)

	if replyLen <= 0 {
		return "", nil
	}

	timer := time.NewTimer(s.cfg.ReplyTimeout)
	defer timer.Stop()

	select {
	case reply := <-wait:
		s.resetRx()
		s.stats.replies.Add(1)
		if len(reply) > replyLen-1 {
			reply = reply[:replyLen-1]
		}
		s.log.Debug().Str("cmd", label).Bytes("reply", reply).Msg("rx")
		return string(reply), nil

	case <-timer.C:
		s.resetRx()
		s.stats.timeouts.Add(1)
		s.log.Debug().Str("cmd", label).Msg("command timeout")
		return "", fmt.Errorf("%w: %q after %v", ErrTimeout, label, s.cfg.ReplyTimeout)

	case <-ctx.Done():
		s.resetRx()
		return "", ctx.Err()

	case <-s.done:
		return "", s.linkErr()
	}
}

func (s *Session) setWaiter(ch chan []byte) {
	s.waitMu.Lock()
	s.waiter = ch
	s.waitMu.Unlock()
}

// signalReply hands a completed reply to the waiting command, if any.
// It never blocks.
func (s *Session) signalReply(reply []byte) {
	s.waitMu.Lock()
	ch := s.waiter
	s.waitMu.Unlock()

	if ch == nil {
		s.log.Debug().Bytes("reply", reply).Msg("reply with no waiter")
		return
	}

	select {
	case ch <- reply:
	default:
		s.log.Debug().Bytes("reply", reply).Msg("extra reply dropped")
	}
}

func (s *Session) resetRx() {
	s.rxMu.Lock()
	s.rx.Reset()
	s.rxMu.Unlock()
}

// Receive feeds inbound bytes through the reassembler. The receive loop
// calls it for every transport read; it is exported for transports that
// deliver bytes by callback instead of io.Reader.
func (s *Session) Receive(chunk []byte) {
	s.stats.bytesIn.Add(uint64(len(chunk)))
	if s.cfg.Tap != nil {
		s.cfg.Tap(DirectionRx, chunk)
	}

	for len(chunk) > 0 {
		s.rxMu.Lock()
		n, res := s.rx.Feed(chunk)
		s.rxMu.Unlock()
		chunk = chunk[n:]

		switch res.Kind {
		case ResultReply:
			s.signalReply(res.Reply)
		case ResultEvent:
			s.log.Debug().Str("code", string(res.Event)).Msg("event")
			s.stats.events.Add(1)
			s.dispatcher.Post(res.Event)
		}
	}
}

func (s *Session) readLoop() {
	defer close(s.readDone)

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.Receive(buf[:n])
		}
		if err != nil {
			s.fail(err)
			return
		}
	}
}

// fail records the first transport error and marks the link dead
func (s *Session) fail(err error) {
	first := false
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
		first = true
	}
	s.errMu.Unlock()

	if first && !errors.Is(err, errSessionClosed) {
		s.log.Warn().Err(err).Msg("link lost")
	}

	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// linkErr returns ErrNotReady wrapping the transport error once the link is
// down, or nil while it is usable
func (s *Session) linkErr() error {
	select {
	case <-s.done:
	default:
		return nil
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()

	if s.err == nil || errors.Is(s.err, errSessionClosed) {
		return ErrNotReady
	}
	return fmt.Errorf("%w: %v", ErrNotReady, s.err)
}

// Done is closed when the link fails or the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the transport error that ended the session, or nil
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if errors.Is(s.err, errSessionClosed) {
		return nil
	}
	return s.err
}

var errSessionClosed = errors.New("r8c: session closed")

// Close stops event delivery and closes the transport. Commands in flight
// fail with ErrNotReady.
func (s *Session) Close() error {
	s.fail(errSessionClosed)
	err := s.conn.Close()
	<-s.readDone
	s.dispatcher.Stop()
	return err
}

// Subscribe registers handler for MCU events. Handlers are called in
// registration order on the dispatcher goroutine.
func (s *Session) Subscribe(handler EventHandler) *Subscription {
	return s.dispatcher.Subscribe(handler)
}

// SubscribeFunc is Subscribe for a plain function
func (s *Session) SubscribeFunc(fn func(code byte) Verdict) *Subscription {
	return s.dispatcher.Subscribe(EventHandlerFunc(fn))
}

// Unsubscribe removes a subscription created by Subscribe
func (s *Session) Unsubscribe(sub *Subscription) {
	s.dispatcher.Unsubscribe(sub)
}
