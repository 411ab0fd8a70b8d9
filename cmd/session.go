// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
)

// sessionOptions returns the engine options derived from the board config
func sessionOptions(extra ...r8c.Option) []r8c.Option {
	opts := []r8c.Option{
		r8c.WithExpectedModel(board.Board.Model),
		r8c.WithReplyTimeout(board.Board.ReplyTimeout()),
		r8c.WithLogger(logger.With().Str("component", "r8c").Logger()),
	}
	return append(opts, extra...)
}

// openSession connects and runs the model/version handshake
func openSession(ctx context.Context, c *connector, extra ...r8c.Option) (*r8c.Session, string, error) {
	conn, connInfo, err := c.Open(ctx)
	if err != nil {
		return nil, "", err
	}

	s, err := r8c.Open(ctx, conn, sessionOptions(extra...)...)
	if err != nil {
		return nil, connInfo, fmt.Errorf("MCU handshake failed: %w", err)
	}

	return s, connInfo, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withSession opens a session, runs fn and closes the session
func withSession(fn func(ctx context.Context, s *r8c.Session) error, extra ...r8c.Option) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, _, err := openSession(ctx, &connector{}, extra...)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}
