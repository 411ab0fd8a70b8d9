// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package leds drives the HDD LEDs, the status LED and the global LED
// brightness through the MCU.
package leds

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MCU commands
const (
	CmdBrightness = "led"
	CmdStatus     = "sts"
	CmdHDD        = "hdd"
)

const (
	MaxPorts      = 4
	MinBrightness = 0
	MaxBrightness = 100

	hddReplyLen        = 8
	statusReplyLen     = 4
	brightnessReplyLen = 4
	divisorReplyLen    = 8
)

var (
	ErrBadPort        = errors.New("leds: port out of range")
	ErrBadColor       = errors.New("leds: unsupported color")
	ErrBadBrightness  = errors.New("leds: brightness out of range")
	ErrUnknownDivisor = errors.New("leds: unknown brightness scale")
	ErrUnknownStatus  = errors.New("leds: unknown status mode")
	ErrNoState        = errors.New("leds: port missing from hdd reply")
)

// Commander is the part of r8c.Session used by the LED drivers
type Commander interface {
	Execute(ctx context.Context, name, arg string, replyLen int) (string, error)
}

// HDDMode is the MCU's per-port HDD LED mode
type HDDMode int

const (
	HDDNormal HDDMode = iota
	HDDFail
	HDDError
	HDDPlug
	HDDUnplug
	HDDNotConnected
)

var hddModeNames = [...]string{"normal", "fail", "error", "plug", "unplug", "nc"}

func (m HDDMode) String() string {
	if m >= 0 && int(m) < len(hddModeNames) {
		return hddModeNames[m]
	}
	return fmt.Sprintf("HDDMode(%d)", int(m))
}

// ParseHDDMode accepts a mode name or its digit
func ParseHDDMode(s string) (HDDMode, error) {
	for i, name := range hddModeNames {
		if s == name || s == strconv.Itoa(i) {
			return HDDMode(i), nil
		}
	}
	return 0, fmt.Errorf("leds: unknown hdd mode %q", s)
}

// Color is the kind of LED fitted to an HDD port
type Color int

const (
	// ColorRed is a single red LED: off means no error, on means not connected
	ColorRed Color = iota
	// ColorMulti is a blue/red LED pair driven by the mode
	ColorMulti
)

// ParseColor parses "red" or "multi"
func ParseColor(s string) (Color, error) {
	switch s {
	case "red":
		return ColorRed, nil
	case "multi":
		return ColorMulti, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadColor, s)
}

func (c Color) String() string {
	if c == ColorMulti {
		return "multi"
	}
	return "red"
}

// setHDDMode sends `hdd "<port> <mode>"` without waiting for a reply
func setHDDMode(ctx context.Context, cmd Commander, port int, mode HDDMode) error {
	_, err := cmd.Execute(ctx, CmdHDD, fmt.Sprintf("%d %d", port, mode), 0)
	return err
}

// HDDModes reads the mode of every port, one digit per port
func HDDModes(ctx context.Context, cmd Commander) ([]HDDMode, error) {
	reply, err := cmd.Execute(ctx, CmdHDD, "", hddReplyLen)
	if err != nil {
		return nil, err
	}

	// example: "<hdd0><hdd1><hdd2><hdd3>"
	modes := make([]HDDMode, 0, len(reply))
	for i := 0; i < len(reply); i++ {
		modes = append(modes, HDDMode(reply[i]-'0'))
	}
	return modes, nil
}

// Brightness is the global LED brightness, scaled by the probed divisor.
// Some boards count 0..10, others 0..100; callers always see percent.
type Brightness struct {
	cmd Commander
	div int
}

// ProbeBrightness writes full brightness and reads it back to learn the
// scale: "0a" means 0..10, "64" means 0..100.
func ProbeBrightness(ctx context.Context, cmd Commander) (*Brightness, error) {
	if _, err := cmd.Execute(ctx, CmdBrightness, strconv.Itoa(MaxBrightness), 0); err != nil {
		return nil, err
	}
	reply, err := cmd.Execute(ctx, CmdBrightness, "", divisorReplyLen)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(reply, "0a"):
		return &Brightness{cmd: cmd, div: 10}, nil
	case strings.HasPrefix(reply, "64"):
		return &Brightness{cmd: cmd, div: 1}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDivisor, reply)
	}
}

// Divisor returns the probed scale divisor
func (b *Brightness) Divisor() int {
	return b.div
}

// Get returns the brightness in percent
func (b *Brightness) Get(ctx context.Context) (int, error) {
	reply, err := b.cmd.Execute(ctx, CmdBrightness, "", brightnessReplyLen)
	if err != nil {
		return 0, err
	}
	if reply == "" {
		return 0, fmt.Errorf("leds: empty brightness reply")
	}

	raw, err := strconv.ParseInt(reply, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("leds: parse brightness %q: %w", reply, err)
	}
	return int(raw) * b.div, nil
}

// Set sets the brightness in percent, rounding up to the MCU's scale
func (b *Brightness) Set(ctx context.Context, percent int) error {
	if percent < MinBrightness || percent > MaxBrightness {
		return fmt.Errorf("%w: %d", ErrBadBrightness, percent)
	}
	raw := (percent + b.div - 1) / b.div
	_, err := b.cmd.Execute(ctx, CmdBrightness, strconv.Itoa(raw), 0)
	return err
}
