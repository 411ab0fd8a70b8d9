// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var (
	portsProbe   bool
	portsTimeout int
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and optionally look for an MCU on each",
	Long: `List the serial ports on this host with their USB details.

With --probe, each port is opened at the board baud rate and the
model/version handshake is attempted. Ports that answer are reported
with the model and firmware they return.

Exit codes:
  0 - At least one port found (with --probe: at least one MCU answered)
  1 - Nothing found`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&portsProbe, "probe", false, "Attempt a handshake on every port")
	portsCmd.Flags().IntVar(&portsTimeout, "timeout", 2, "Handshake timeout in seconds per port")
}

func runPorts(cmd *cobra.Command, args []string) error {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	if len(list) == 0 {
		fmt.Printf("No serial ports found\n")
		os.Exit(1)
	}

	found := 0
	for _, p := range list {
		fmt.Printf("%s", p.Name)
		if p.IsUSB {
			fmt.Printf("  USB %s:%s", p.VID, p.PID)
			if p.Product != "" {
				fmt.Printf(" %s", p.Product)
			}
			if p.SerialNumber != "" {
				fmt.Printf(" (serial %s)", p.SerialNumber)
			}
		}
		fmt.Println()

		if !portsProbe {
			continue
		}

		model, version, err := probePort(p.Name)
		if err != nil {
			fmt.Printf("  no MCU: %v\n", err)
			continue
		}
		fmt.Printf("  MCU: %s (firmware %s)\n", model, version)
		found++
	}

	if portsProbe {
		fmt.Printf("\n%d of %d port(s) answered\n", found, len(list))
		if found == 0 {
			os.Exit(1)
		}
	}
	return nil
}

// probePort runs the handshake on one port and closes it again
func probePort(name string) (model, version string, err error) {
	conn, err := OpenSerialConnection(name, board.Board.Baud)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(portsTimeout)*time.Second)
	defer cancel()

	s, err := r8c.Open(ctx, conn, sessionOptions()...)
	if err != nil {
		return "", "", err
	}
	defer s.Close()

	return s.Model(), s.Version(), nil
}
