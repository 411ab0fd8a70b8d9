// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// r8cctl - board MCU control tool
//
// Talks to the board's front-panel microcontroller over a serial line or a
// WebSocket bridge: LEDs, buttons, power control and raw commands.

package main

import (
	"os"

	"github.com/Thermoquad/r8cctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
