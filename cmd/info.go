// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
	"github.com/Thermoquad/r8cctl/pkg/r8c/power"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show MCU model, firmware version and board state",
	Long: `Connect, run the model/version handshake and print what the MCU reports:
status LED mode, LED brightness, HDD LED modes and power flags.

Queries that fail are reported inline; the command only fails if the
handshake fails.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *r8c.Session) error {
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Model:      %s\n", s.Model())
		fmt.Fprintf(out, "Firmware:   %s\n", s.Version())

		if st, err := leds.Status(ctx, s); err != nil {
			fmt.Fprintf(out, "Status LED: (%v)\n", err)
		} else {
			fmt.Fprintf(out, "Status LED: %s\n", leds.FormatStatus(st))
		}

		// raw value only: learning the scale would overwrite the brightness
		if raw, err := s.Execute(ctx, leds.CmdBrightness, "", 4); err != nil {
			fmt.Fprintf(out, "Brightness: (%v)\n", err)
		} else {
			fmt.Fprintf(out, "Brightness: 0x%s (raw)\n", raw)
		}

		if modes, err := leds.HDDModes(ctx, s); err != nil {
			fmt.Fprintf(out, "HDD LEDs:   (%v)\n", err)
		} else {
			fmt.Fprintf(out, "HDD LEDs:  ")
			for i, m := range modes {
				fmt.Fprintf(out, " %d=%s", i, m)
			}
			fmt.Fprintln(out)
		}

		pc := power.NewController(s, power.WithLogger(logger))
		if r, err := pc.PowerOnReason(ctx); err != nil {
			fmt.Fprintf(out, "Power-on:   (%v)\n", err)
		} else {
			fmt.Fprintf(out, "Power-on:   %s\n", r)
		}
		printFlag(out, "WoL flag:  ", func() (bool, error) { return pc.WakeFlag(ctx) })
		printFlag(out, "On AC:     ", func() (bool, error) { return pc.PowerOnAC(ctx) })
		printFlag(out, "First boot:", func() (bool, error) { return pc.FirstBootOnAC(ctx) })

		fmt.Fprintln(out)
		fmt.Fprint(out, s.Stats())

		return nil
	})
}
