// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/keys"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
	"github.com/Thermoquad/r8cctl/pkg/r8c/power"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var controlLEDsOff bool

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the board LEDs and MCU",
	Long: `Control the board via an interactive terminal UI.

Features:
  - HDD LED list with per-LED control (on/off, blink, color)
  - Status LED mode and global brightness
  - Raw command entry with the MCU reply shown in the event log
  - MCU events and key press/release transitions
  - Link statistics
  - Automatic reconnection on connection loss

On connect the LED scale is probed and the status LED is set to "on", as
the board service does at startup. Tab switches between the LED list and
the command input.

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().BoolVar(&controlLEDsOff, "leds-off-on-exit", false, "Switch the HDD LEDs off when quitting")
}

// sessionManager owns the current session and reconnects when it is lost.
// The TUI reads the session through current and learns about changes from
// connectedMsg and connectionLostMsg.
type sessionManager struct {
	c       *connector
	p       *tea.Program
	program atomic.Pointer[tea.Program] // set once the TUI exists, for logging

	mu       sync.RWMutex
	s        *r8c.Session
	connInfo string
	leds     *leds.Controller
	keys     *keys.Keys
}

func (sm *sessionManager) current() *r8c.Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.s
}

func (sm *sessionManager) ledController() *leds.Controller {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.leds
}

func runControl(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c := &connector{}
	sm := &sessionManager{c: c}

	// logging goes to the event log instead of the alt screen
	logger = logger.Output(zerolog.ConsoleWriter{
		Out:        tuiLogWriter{sm: sm},
		NoColor:    true,
		TimeFormat: "15:04:05",
	})

	s, connInfo, err := openSession(ctx, c)
	if err != nil {
		return err
	}

	m := initialControlModel(sm)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	sm.p = p
	sm.program.Store(p)

	go func() {
		sm.attach(ctx, s, connInfo)
		sm.run(ctx)
	}()

	_, runErr := p.Run()
	sm.program.Store(nil)
	cancel()

	if controlLEDsOff {
		if lc := sm.ledController(); lc != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			if err := lc.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("LED shutdown: %v\n", err)
			}
			done()
		}
	}
	sm.detach()

	if runErr != nil {
		return fmt.Errorf("TUI error: %v", runErr)
	}
	return nil
}

// attach wires a freshly opened session: event forwarding, LED and power
// controllers, and the configured keys.
func (sm *sessionManager) attach(ctx context.Context, s *r8c.Session, connInfo string) {
	s.SubscribeFunc(func(code byte) r8c.Verdict {
		sm.p.Send(mcuEventMsg{code: code, at: time.Now()})
		return r8c.Continue
	})

	msg := connectedMsg{
		connInfo: connInfo,
		model:    s.Model(),
		version:  s.Version(),
		power:    newPowerController(s),
	}

	lc, err := leds.NewController(ctx, s, board.LEDs.Ports(),
		leds.WithLogger(logger.With().Str("component", "leds").Logger()))
	if err != nil {
		msg.ledsErr = err
	} else {
		msg.leds = lc
		if err := lc.SetStatus(ctx, board.LEDs.Status); err != nil {
			msg.ledsErr = err
		}
	}

	var k *keys.Keys
	if len(board.Keys.Buttons) > 0 {
		k, err = keys.New(s, board.Keys.KeyMode(), board.Keys.ButtonList(),
			func(ev keys.Event) { sm.p.Send(keyEventMsg{ev: ev, at: time.Now()}) },
			keys.WithPollInterval(board.Keys.PollInterval()),
			keys.WithLogger(logger))
		if err != nil {
			msg.keysErr = err
		}
	}

	sm.mu.Lock()
	sm.s = s
	sm.connInfo = connInfo
	sm.leds = lc
	sm.keys = k
	sm.mu.Unlock()

	sm.p.Send(msg)
}

// detach stops the key poller and closes the session
func (sm *sessionManager) detach() {
	sm.mu.Lock()
	s, k := sm.s, sm.keys
	sm.keys = nil
	sm.leds = nil
	sm.mu.Unlock()

	if k != nil {
		k.Close()
	}
	if s != nil {
		s.Close()
	}
}

// run waits for the link to drop and reconnects until ctx is done
func (sm *sessionManager) run(ctx context.Context) {
	for {
		s := sm.current()
		select {
		case <-ctx.Done():
			return
		case <-s.Done():
		}

		sm.p.Send(connectionLostMsg{err: s.Err()})
		sm.detach()

		if !sm.reconnect(ctx) {
			return
		}
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (sm *sessionManager) reconnect(ctx context.Context) bool {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		s, connInfo, err := openSession(ctx, sm.c)
		if err == nil {
			sm.attach(ctx, s, connInfo)
			return true
		}
		sm.p.Send(reconnectFailedMsg{err: err, retry: backoff})

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// tuiLogWriter forwards log lines to the event log once the TUI runs, and
// to stderr before that
type tuiLogWriter struct {
	sm *sessionManager
}

func (w tuiLogWriter) Write(p []byte) (int, error) {
	prog := w.sm.program.Load()
	if prog == nil {
		return os.Stderr.Write(p)
	}
	// Send blocks while Update runs, and Update may be the one logging
	go prog.Send(logLineMsg(strings.TrimRight(string(p), "\r\n")))
	return len(p), nil
}

// powerController is satisfied by *power.Controller; the TUI only toggles
// the wake flag and reads the power-on reason.
type powerController interface {
	WakeFlag(ctx context.Context) (bool, error)
	SetWakeFlag(ctx context.Context, on bool) error
	PowerOnReason(ctx context.Context) (power.Reason, error)
}
