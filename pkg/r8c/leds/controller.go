// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package leds

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// PortConfig describes one fitted HDD LED
type PortConfig struct {
	Port  int
	Color Color
}

// Controller owns the LEDs of a board
type Controller struct {
	cmd        Commander
	log        zerolog.Logger
	brightness *Brightness
	hdd        []*HDDLED
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// NewController probes the brightness scale, sets up the configured HDD LEDs
// and puts the status LED in "on" mode. A port that fails to initialise is
// skipped with a warning; a failed brightness probe is fatal.
func NewController(ctx context.Context, cmd Commander, ports []PortConfig, opts ...Option) (*Controller, error) {
	c := &Controller{cmd: cmd, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}

	b, err := ProbeBrightness(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("brightness probe failed: %w", err)
	}
	c.brightness = b
	c.log.Debug().Int("divisor", b.Divisor()).Msg("brightness scale")

	for _, pc := range ports {
		l, err := NewHDDLED(ctx, cmd, pc.Port, pc.Color)
		if err != nil {
			c.log.Warn().Err(err).Int("port", pc.Port).Msg("skipping HDD LED")
			continue
		}
		c.hdd = append(c.hdd, l)
	}

	if err := SetStatus(ctx, cmd, "on"); err != nil {
		c.log.Warn().Err(err).Msg("failed to set status LED")
	}

	return c, nil
}

// Brightness returns the global brightness control
func (c *Controller) Brightness() *Brightness {
	return c.brightness
}

// HDD returns the LED of the given port, or nil if it is not fitted
func (c *Controller) HDD(port int) *HDDLED {
	for _, l := range c.hdd {
		if l.Port() == port {
			return l
		}
	}
	return nil
}

// HDDs returns every registered HDD LED
func (c *Controller) HDDs() []*HDDLED {
	return c.hdd
}

// Status reads the status LED
func (c *Controller) Status(ctx context.Context) (StatusMode, error) {
	return Status(ctx, c.cmd)
}

// SetStatus sets the status LED
func (c *Controller) SetStatus(ctx context.Context, name string) error {
	return SetStatus(ctx, c.cmd, name)
}

// Shutdown turns every HDD LED off
func (c *Controller) Shutdown(ctx context.Context) error {
	var errs []error
	for _, l := range c.hdd {
		if err := l.Off(ctx); err != nil {
			errs = append(errs, fmt.Errorf("port %d: %w", l.Port(), err))
		}
	}
	return errors.Join(errs...)
}
