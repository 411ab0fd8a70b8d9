// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
	"github.com/spf13/cobra"
)

var ledColor string

var ledCmd = &cobra.Command{
	Use:   "led",
	Short: "Read and set the status, brightness and HDD LEDs",
}

var ledStatusCmd = &cobra.Command{
	Use:   "status [mode]",
	Short: "Show or set the status LED mode",
	Long: `Show the status LED mode, or set it to one of:
  on, blink, err, notice, notify

serious_err is reported by the MCU only and cannot be set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLEDStatus,
}

var ledBrightnessCmd = &cobra.Command{
	Use:   "brightness [percent]",
	Short: "Show or set the LED brightness (0-100)",
	Long: `Show or set the global LED brightness in percent.

The MCU scale (0..10 or 0..100) is learned by writing full brightness and
reading it back; when only reading, the previous value is restored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLEDBrightness,
}

var ledHDDCmd = &cobra.Command{
	Use:   "hdd [port] [action]",
	Short: "Show or control the HDD LEDs",
	Long: `Without arguments, show the mode of every HDD LED.

With a port and an action, control that LED. Actions:
  normal, fail, error, plug, unplug, nc   set the raw mode
  on, off                                 switch the LED
  blink, steady                           red LEDs only
  blue, red, purple, dark                 multi-color LEDs only

The LED color comes from the board file, or --color.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runLEDHDD,
}

func init() {
	rootCmd.AddCommand(ledCmd)
	ledCmd.AddCommand(ledStatusCmd)
	ledCmd.AddCommand(ledBrightnessCmd)
	ledCmd.AddCommand(ledHDDCmd)
	ledHDDCmd.Flags().StringVar(&ledColor, "color", "", "LED color: red or multi (overrides board file)")
}

func runLEDStatus(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *r8c.Session) error {
		if len(args) == 1 {
			if err := leds.SetStatus(ctx, s, args[0]); err != nil {
				return err
			}
		}
		st, err := leds.Status(ctx, s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), leds.FormatStatus(st))
		return nil
	})
}

func runLEDBrightness(cmd *cobra.Command, args []string) error {
	percent := -1
	if len(args) == 1 {
		p, err := strconv.Atoi(args[0])
		if err != nil || p < leds.MinBrightness || p > leds.MaxBrightness {
			return fmt.Errorf("brightness must be %d-%d", leds.MinBrightness, leds.MaxBrightness)
		}
		percent = p
	}

	return withSession(func(ctx context.Context, s *r8c.Session) error {
		var restore int64 = -1
		if percent < 0 {
			raw, err := s.Execute(ctx, leds.CmdBrightness, "", r8c.ReplyBufferSize)
			if err != nil {
				return err
			}
			if restore, err = strconv.ParseInt(raw, 16, 32); err != nil {
				return fmt.Errorf("unexpected brightness reply %q", raw)
			}
		}

		b, err := leds.ProbeBrightness(ctx, s)
		if err != nil {
			return err
		}

		if percent < 0 {
			// put the raw value back on the MCU's own scale
			if _, err := s.Execute(ctx, leds.CmdBrightness, strconv.FormatInt(restore, 10), 0); err != nil {
				return err
			}
		} else if err := b.Set(ctx, percent); err != nil {
			return err
		}

		got, err := b.Get(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d%% (scale 0..%d)\n", got, leds.MaxBrightness/b.Divisor())
		return nil
	})
}

// hddColor picks the LED color for a port: --color, then the board file
func hddColor(port int) (leds.Color, error) {
	if ledColor != "" {
		return leds.ParseColor(ledColor)
	}
	for _, pc := range board.LEDs.Ports() {
		if pc.Port == port {
			return pc.Color, nil
		}
	}
	return leds.ColorRed, nil
}

func runLEDHDD(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		return withSession(func(ctx context.Context, s *r8c.Session) error {
			modes, err := leds.HDDModes(ctx, s)
			if err != nil {
				return err
			}
			for i, m := range modes {
				fmt.Fprintf(out, "HDD %d: %s\n", i, m)
			}
			return nil
		})
	}

	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port >= leds.MaxPorts {
		return fmt.Errorf("port must be 0-%d", leds.MaxPorts-1)
	}
	color, err := hddColor(port)
	if err != nil {
		return err
	}

	return withSession(func(ctx context.Context, s *r8c.Session) error {
		l, err := leds.NewHDDLED(ctx, s, port, color)
		if err != nil {
			return err
		}

		if len(args) == 2 {
			if err := applyHDDAction(ctx, l, args[1]); err != nil {
				return err
			}
		}

		modes, err := leds.HDDModes(ctx, s)
		if err != nil {
			return err
		}
		if port >= len(modes) {
			return fmt.Errorf("MCU reported %d HDD port(s)", len(modes))
		}
		fmt.Fprintf(out, "HDD %d (%s): %s\n", port, l.Color(), modes[port])
		return nil
	})
}

func applyHDDAction(ctx context.Context, l *leds.HDDLED, action string) error {
	switch action {
	case "on":
		return l.SetOn(ctx, true)
	case "off":
		return l.Off(ctx)
	case "blink":
		return l.Blink(ctx, true)
	case "steady":
		return l.Blink(ctx, false)
	case "blue":
		return l.SetColor(ctx, true, false)
	case "red":
		return l.SetColor(ctx, false, true)
	case "purple":
		return l.SetColor(ctx, true, true)
	case "dark":
		return l.SetColor(ctx, false, false)
	}

	mode, err := leds.ParseHDDMode(action)
	if err != nil {
		return fmt.Errorf("unknown action %q", action)
	}
	return l.SetMode(ctx, mode)
}
