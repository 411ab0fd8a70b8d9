// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/keys"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
	"github.com/Thermoquad/r8cctl/pkg/r8c/power"
)

// Normalize applies defaults after validation.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Board.Baud == 0 {
		cfg.Board.Baud = r8c.DefaultBaudRate
	}
	if cfg.Board.ReplyTimeoutMs == 0 {
		cfg.Board.ReplyTimeoutMs = int(r8c.DefaultReplyTimeout / time.Millisecond)
	}

	if cfg.Keys.Mode == "" {
		cfg.Keys.Mode = keys.ModeEvent.String()
	}
	if cfg.Keys.PollIntervalMs == 0 {
		cfg.Keys.PollIntervalMs = int(keys.DefaultPollInterval / time.Millisecond)
	}
	for i := range cfg.Keys.Buttons {
		b := &cfg.Keys.Buttons[i]
		if b.Code == "" {
			b.Code = b.Label
		}
	}

	for i := range cfg.LEDs.HDD {
		if cfg.LEDs.HDD[i].Color == "" {
			cfg.LEDs.HDD[i].Color = leds.ColorRed.String()
		}
	}
	if cfg.LEDs.Status == "" {
		cfg.LEDs.Status = "on"
	}

	if cfg.Power.SettleMs == 0 {
		cfg.Power.SettleMs = int(power.DefaultSettleDelay / time.Millisecond)
	}
}

// Default returns a normalized configuration with no buttons or LEDs
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}
