// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package power restarts and powers off the board through the MCU and
// exposes the MCU's power flags.
package power

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MCU commands
const (
	CmdReset    = "reset"
	CmdPowerOff = "poweroff"
	CmdWakeFlag = "wol_flag"
	CmdFirst    = "first"
	CmdPower    = "intrp"

	// the reset command is unreliable unless another command ran first
	cmdWarmup = "sts"

	flagReplyLen       = 4
	DefaultSettleDelay = time.Second
)

var (
	ErrWarmupFailed = errors.New("power: warm-up command failed")
	ErrFlagReply    = errors.New("power: unexpected flag reply")
	ErrFlagRejected = errors.New("power: flag change rejected")
	ErrUnknownCause = errors.New("power: unknown power-on reason")
)

// Commander is the part of r8c.Session used by Controller
type Commander interface {
	Execute(ctx context.Context, name, arg string, replyLen int) (string, error)
}

// WakeArmer prepares the network interface for Wake-on-LAN before the
// board is powered off
type WakeArmer interface {
	ArmWake(ctx context.Context) error
}

// WakeArmerFunc adapts a function to WakeArmer
type WakeArmerFunc func(ctx context.Context) error

// ArmWake calls f(ctx)
func (f WakeArmerFunc) ArmWake(ctx context.Context) error {
	return f(ctx)
}

// Controller issues reset and power-off requests
type Controller struct {
	cmd    Commander
	log    zerolog.Logger
	wake   WakeArmer
	settle time.Duration
	sleep  func(context.Context, time.Duration)
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithWakeArmer enables Wake-on-LAN preparation on power-off
func WithWakeArmer(w WakeArmer) Option {
	return func(c *Controller) {
		c.wake = w
	}
}

// WithSettleDelay sets how long to wait after the reset or power-off command
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// NewController creates a power controller
func NewController(cmd Commander, opts ...Option) *Controller {
	c := &Controller{
		cmd:    cmd,
		log:    zerolog.Nop(),
		settle: DefaultSettleDelay,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Reset restarts the board
func (c *Controller) Reset(ctx context.Context) error {
	reply, err := c.cmd.Execute(ctx, cmdWarmup, "", flagReplyLen)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to execute warm-up command")
		return fmt.Errorf("%w: %w", ErrWarmupFailed, err)
	}
	if reply == "" {
		c.log.Error().Msg("empty reply to warm-up command")
		return ErrWarmupFailed
	}

	return c.send(ctx, CmdReset)
}

// PowerOff powers the board off. If a WakeArmer is configured and the MCU's
// wake flag is set, the armer runs first; its failure is logged and the
// power-off proceeds.
func (c *Controller) PowerOff(ctx context.Context) error {
	if err := c.prepareWake(ctx); err != nil {
		c.log.Error().Err(err).Msg(`failed to set up WoL, use the "POWER" button instead`)
	}

	return c.send(ctx, CmdPowerOff)
}

func (c *Controller) prepareWake(ctx context.Context) error {
	if c.wake == nil {
		return nil
	}

	enabled, err := c.WakeFlag(ctx)
	if err != nil {
		return err
	}

	c.log.Info().Bool("enabled", enabled).Msg("WoL flag")
	if !enabled {
		return nil
	}

	return c.wake.ArmWake(ctx)
}

func (c *Controller) send(ctx context.Context, name string) error {
	_, err := c.cmd.Execute(ctx, name, "", 0)
	if err != nil {
		c.log.Error().Err(err).Str("cmd", name).Msg("failed to execute")
	}

	c.sleep(ctx, c.settle)
	return err
}

// getFlag reads a single-character flag
func (c *Controller) getFlag(ctx context.Context, name, arg string) (byte, error) {
	reply, err := c.cmd.Execute(ctx, name, arg, flagReplyLen)
	if err != nil {
		return 0, err
	}
	if len(reply) != 1 {
		return 0, fmt.Errorf("%w: %s %q", ErrFlagReply, name, reply)
	}
	return reply[0], nil
}

// setFlag writes a flag; the MCU answers "0" on success
func (c *Controller) setFlag(ctx context.Context, name, argOn, argOff string, on bool) error {
	arg := argOff
	if on {
		arg = argOn
	}

	reply, err := c.cmd.Execute(ctx, name, arg, flagReplyLen)
	if err != nil {
		return err
	}
	if len(reply) != 1 || reply[0] != '0' {
		return fmt.Errorf("%w: %s %s -> %q", ErrFlagRejected, name, arg, reply)
	}
	return nil
}

// WakeFlag reports whether Wake-on-LAN is enabled in the MCU
func (c *Controller) WakeFlag(ctx context.Context) (bool, error) {
	f, err := c.getFlag(ctx, CmdWakeFlag, "")
	if err != nil {
		return false, err
	}
	return f != '0', nil
}

// SetWakeFlag enables or disables Wake-on-LAN in the MCU
func (c *Controller) SetWakeFlag(ctx context.Context, on bool) error {
	return c.setFlag(ctx, CmdWakeFlag, "set", "remove", on)
}

// FirstBootOnAC reports the MCU's first-boot-on-AC flag
func (c *Controller) FirstBootOnAC(ctx context.Context) (bool, error) {
	f, err := c.getFlag(ctx, CmdFirst, "")
	if err != nil {
		return false, err
	}
	return f != '0', nil
}

// PowerOnAC reports whether the board powers on when AC is connected
func (c *Controller) PowerOnAC(ctx context.Context) (bool, error) {
	f, err := c.getFlag(ctx, CmdPower, "3")
	if err != nil {
		return false, err
	}
	return f != '0', nil
}

// SetPowerOnAC enables or disables power-on when AC is connected
func (c *Controller) SetPowerOnAC(ctx context.Context, on bool) error {
	return c.setFlag(ctx, CmdPower, "3 1", "3 0", on)
}

// Reason is why the board last powered on
type Reason struct {
	ID   byte
	Name string
}

func (r Reason) String() string {
	return fmt.Sprintf("%c:%s", r.ID, r.Name)
}

var reasons = []Reason{
	{'0', "button"},
	{'1', "rtc"},
	{'2', "wol"},
	{'4', "ac"},
}

// PowerOnReason reads the last power-on cause
func (c *Controller) PowerOnReason(ctx context.Context) (Reason, error) {
	f, err := c.getFlag(ctx, CmdPower, "")
	if err != nil {
		return Reason{}, err
	}

	for _, r := range reasons {
		if r.ID == f {
			return r, nil
		}
	}
	return Reason{ID: f}, fmt.Errorf("%w: %q", ErrUnknownCause, f)
}
