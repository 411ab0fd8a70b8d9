// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/keys"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ---- board ----

	if cfg.Board.Baud < 0 {
		return fmt.Errorf("board: baud must not be negative")
	}
	if cfg.Board.ReplyTimeoutMs < 0 {
		return fmt.Errorf("board: reply_timeout_ms must not be negative")
	}
	if len(cfg.Board.Model) > r8c.ReplyBufferSize-1 {
		return fmt.Errorf("board: model %q is longer than any reply", cfg.Board.Model)
	}

	// ---- keys ----

	mode, err := keys.ParseMode(cfg.Keys.Mode)
	if err != nil {
		return fmt.Errorf("keys: %w", err)
	}
	if cfg.Keys.PollIntervalMs < 0 {
		return fmt.Errorf("keys: poll_interval_ms must not be negative")
	}

	labels := make(map[string]bool)
	keycodes := make(map[string]string)
	for i, b := range cfg.Keys.Buttons {
		if b.Label == "" {
			return fmt.Errorf("keys: button %d has no label", i)
		}
		if labels[b.Label] {
			return fmt.Errorf("keys: duplicate button label %q", b.Label)
		}
		labels[b.Label] = true

		if len(b.Keycode) != 1 {
			return fmt.Errorf("keys: button %q: keycode must be a single letter", b.Label)
		}
		if owner, ok := keycodes[b.Keycode]; ok {
			return fmt.Errorf("keys: button %q: keycode %q already used by %q", b.Label, b.Keycode, owner)
		}
		keycodes[b.Keycode] = b.Label

		if err := keys.ValidateButton(keys.Button{Label: b.Label, Keycode: b.Keycode[0]}, mode); err != nil {
			return fmt.Errorf("keys: button %q: %w", b.Label, err)
		}
	}

	// ---- leds ----

	ports := make(map[int]bool)
	for _, h := range cfg.LEDs.HDD {
		if h.Port < 0 || h.Port >= leds.MaxPorts {
			return fmt.Errorf("leds: hdd port %d out of range 0-%d", h.Port, leds.MaxPorts-1)
		}
		if ports[h.Port] {
			return fmt.Errorf("leds: hdd port %d listed twice", h.Port)
		}
		ports[h.Port] = true

		if h.Color != "" {
			if _, err := leds.ParseColor(h.Color); err != nil {
				return fmt.Errorf("leds: hdd port %d: %w", h.Port, err)
			}
		}
	}

	if cfg.LEDs.Status != "" {
		settable := false
		for _, m := range leds.StatusModes {
			if m.Name == cfg.LEDs.Status && m.Settable {
				settable = true
			}
		}
		if !settable {
			return fmt.Errorf("leds: status %q is not a settable mode", cfg.LEDs.Status)
		}
	}

	// ---- power ----

	if cfg.Power.SettleMs < 0 {
		return fmt.Errorf("power: settle_ms must not be negative")
	}
	if cfg.Power.WakeCommand != "" && !cfg.Power.WakeOnLAN {
		return fmt.Errorf("power: wake_command is set but wake_on_lan is false")
	}

	return nil
}
