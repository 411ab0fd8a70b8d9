// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/power"
	"github.com/spf13/cobra"
)

var powerYes bool

var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Reset or power off the board and manage power flags",
}

var powerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restart the board",
	Args:  cobra.NoArgs,
	RunE:  runPowerReset,
}

var powerOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Power the board off",
	Long: `Power the board off.

When the board file enables wake_on_lan and the MCU's WoL flag is set,
power.wake_command is run first to arm the network PHY. If it fails the
power-off still proceeds; use the POWER button to start the board.`,
	Args: cobra.NoArgs,
	RunE: runPowerOff,
}

var powerWolCmd = &cobra.Command{
	Use:   "wol [on|off]",
	Short: "Show or set the Wake-on-LAN flag",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlag(cmd, args, "WoL flag:",
			(*power.Controller).WakeFlag, (*power.Controller).SetWakeFlag)
	},
}

var powerACCmd = &cobra.Command{
	Use:   "ac [on|off]",
	Short: "Show or set power-on when AC power returns",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlag(cmd, args, "Power on AC:",
			(*power.Controller).PowerOnAC, (*power.Controller).SetPowerOnAC)
	},
}

var powerReasonCmd = &cobra.Command{
	Use:   "reason",
	Short: "Show why the board last powered on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *r8c.Session) error {
			pc := newPowerController(s)
			r, err := pc.PowerOnReason(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r)
			printFlag(cmd.OutOrStdout(), "First boot on AC:", func() (bool, error) { return pc.FirstBootOnAC(ctx) })
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(powerCmd)
	powerCmd.AddCommand(powerResetCmd)
	powerCmd.AddCommand(powerOffCmd)
	powerCmd.AddCommand(powerWolCmd)
	powerCmd.AddCommand(powerACCmd)
	powerCmd.AddCommand(powerReasonCmd)
	powerCmd.PersistentFlags().BoolVarP(&powerYes, "yes", "y", false, "Do not ask for confirmation")
}

// commandWakeArmer runs the configured wake command through the shell
func commandWakeArmer(command string) power.WakeArmer {
	return power.WakeArmerFunc(func(ctx context.Context) error {
		c := exec.CommandContext(ctx, "/bin/sh", "-c", command)
		c.Stdout = os.Stderr
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("wake command %q: %w", command, err)
		}
		return nil
	})
}

func newPowerController(s *r8c.Session) *power.Controller {
	opts := []power.Option{
		power.WithLogger(logger.With().Str("component", "power").Logger()),
		power.WithSettleDelay(board.Power.SettleDelay()),
	}
	if board.Power.WakeOnLAN && board.Power.WakeCommand != "" {
		opts = append(opts, power.WithWakeArmer(commandWakeArmer(board.Power.WakeCommand)))
	}
	return power.NewController(s, opts...)
}

func confirm(what string) bool {
	if powerYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s the board? [y/N] ", what)
	var answer string
	fmt.Fscanln(os.Stdin, &answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}

func runPowerReset(cmd *cobra.Command, args []string) error {
	if !confirm("Reset") {
		return nil
	}
	return withSession(func(ctx context.Context, s *r8c.Session) error {
		return newPowerController(s).Reset(ctx)
	})
}

func runPowerOff(cmd *cobra.Command, args []string) error {
	if !confirm("Power off") {
		return nil
	}
	return withSession(func(ctx context.Context, s *r8c.Session) error {
		return newPowerController(s).PowerOff(ctx)
	})
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "1", "true", "yes":
		return true, nil
	case "off", "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func runFlag(cmd *cobra.Command, args []string, label string,
	get func(*power.Controller, context.Context) (bool, error),
	set func(*power.Controller, context.Context, bool) error) error {

	doSet := len(args) == 1
	var on bool
	if doSet {
		var err error
		if on, err = parseOnOff(args[0]); err != nil {
			return err
		}
	}

	return withSession(func(ctx context.Context, s *r8c.Session) error {
		pc := newPowerController(s)
		if doSet {
			if err := set(pc, ctx, on); err != nil {
				return err
			}
		}
		printFlag(cmd.OutOrStdout(), label, func() (bool, error) { return get(pc, ctx) })
		return nil
	})
}

// printFlag prints a boolean flag, or the error reading it
func printFlag(out io.Writer, label string, fn func() (bool, error)) {
	on, err := fn()
	switch {
	case err != nil:
		fmt.Fprintf(out, "%s (%v)\n", label, err)
	case on:
		fmt.Fprintf(out, "%s on\n", label)
	default:
		fmt.Fprintf(out, "%s off\n", label)
	}
}
