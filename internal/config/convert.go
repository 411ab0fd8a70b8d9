// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c/keys"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
)

// The conversions below assume a validated, normalized config.

func (b BoardConfig) ReplyTimeout() time.Duration {
	return time.Duration(b.ReplyTimeoutMs) * time.Millisecond
}

func (k KeysConfig) KeyMode() keys.Mode {
	mode, _ := keys.ParseMode(k.Mode)
	return mode
}

func (k KeysConfig) PollInterval() time.Duration {
	return time.Duration(k.PollIntervalMs) * time.Millisecond
}

func (k KeysConfig) ButtonList() []keys.Button {
	out := make([]keys.Button, 0, len(k.Buttons))
	for _, b := range k.Buttons {
		out = append(out, keys.Button{Label: b.Label, Keycode: b.Keycode[0], Code: b.Code})
	}
	return out
}

func (l LEDsConfig) Ports() []leds.PortConfig {
	out := make([]leds.PortConfig, 0, len(l.HDD))
	for _, h := range l.HDD {
		color, _ := leds.ParseColor(h.Color)
		out = append(out, leds.PortConfig{Port: h.Port, Color: color})
	}
	return out
}

func (p PowerConfig) SettleDelay() time.Duration {
	return time.Duration(p.SettleMs) * time.Millisecond
}
