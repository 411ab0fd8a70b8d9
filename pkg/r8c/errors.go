// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package r8c

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooLong is returned when a command does not fit in MaxFrameLen.
	// Nothing is written to the link.
	ErrFrameTooLong = errors.New("r8c: command frame too long")

	// ErrInvalidCommand is returned for empty command names or raw lines
	ErrInvalidCommand = errors.New("r8c: invalid command")

	// ErrTimeout is returned when no reply arrived before the reply timeout.
	// The session is left idle and the command may be retried.
	ErrTimeout = errors.New("r8c: command timeout")

	// ErrHandshakeMismatch is returned by Open when the MCU reports a model
	// that does not start with the expected model string.
	ErrHandshakeMismatch = errors.New("r8c: unexpected MCU model")

	// ErrNotReady is returned once the transport has failed or the session
	// has been closed.
	ErrNotReady = errors.New("r8c: link not ready")

	// ErrInvalidReply is returned when a reply arrived but cannot be used
	ErrInvalidReply = errors.New("r8c: invalid reply")
)

// ModelMismatchError reports the model string returned by the MCU during
// the handshake when it does not match the expected prefix.
type ModelMismatchError struct {
	Expected string
	Actual   string
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("r8c: invalid model detected: expected prefix %q, MCU reports %q", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrHandshakeMismatch) hold
func (e *ModelMismatchError) Is(target error) bool {
	return target == ErrHandshakeMismatch
}
