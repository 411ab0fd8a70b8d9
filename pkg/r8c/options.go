// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import (
	"time"

	"github.com/rs/zerolog"
)

// Direction tells a Tap which way bytes travelled
type Direction int

const (
	DirectionRx Direction = iota // MCU -> host
	DirectionTx                  // host -> MCU
)

// String returns "rx" or "tx"
func (d Direction) String() string {
	if d == DirectionTx {
		return "tx"
	}
	return "rx"
}

// Tap observes raw link traffic. It is called from the receive goroutine for
// inbound bytes and from the calling goroutine for outbound frames, so
// implementations must be safe for concurrent use and must not block. data
// is only valid for the duration of the call.
type Tap func(dir Direction, data []byte)

// Config holds the session configuration
type Config struct {
	// ExpectedModel is compared against the "model" reply as a prefix.
	// An empty string accepts any model.
	ExpectedModel string

	// ReplyTimeout bounds every Execute call that waits for a reply
	ReplyTimeout time.Duration

	// Logger receives link diagnostics (optional)
	Logger zerolog.Logger

	// Tap observes raw traffic (optional)
	Tap Tap

	// ReadBufferSize is the size of each transport read
	ReadBufferSize int

	// SkipHandshake opens the session without the model/version check
	SkipHandshake bool
}

func defaultConfig() Config {
	return Config{
		ReplyTimeout:   DefaultReplyTimeout,
		Logger:         zerolog.Nop(),
		ReadBufferSize: 128,
	}
}

// Option configures a Session
type Option func(*Config)

// WithExpectedModel sets the model prefix checked during the handshake
func WithExpectedModel(model string) Option {
	return func(c *Config) {
		c.ExpectedModel = model
	}
}

// WithReplyTimeout overrides the default one second reply timeout
func WithReplyTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReplyTimeout = timeout
		}
	}
}

// WithLogger sets the logger used for link diagnostics.
//
// Example:
//
//	sess, err := r8c.Open(ctx, conn, r8c.WithLogger(log.With().Str("link", port).Logger()))
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTap installs a raw traffic observer
func WithTap(tap Tap) Option {
	return func(c *Config) {
		c.Tap = tap
	}
}

// WithoutHandshake skips the model/version exchange in Open
func WithoutHandshake() Option {
	return func(c *Config) {
		c.SkipHandshake = true
	}
}
