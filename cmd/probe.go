// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/spf13/cobra"
)

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test the connection by running the MCU handshake",
	Long: `Connect and run the model/version handshake, retrying until it
succeeds or the timeout is reached. Bytes that are not a valid reply are
ignored.

Exit codes:
  0 - MCU answered with an expected model
  1 - Timeout reached, or the MCU reported an unexpected model
  2 - Connection error

Useful for scripts waiting for the board to come up, or for testing a
WebSocket bridge.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for the MCU")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(probeTimeout)*time.Second)
	defer cancelTimeout()

	conn, connInfo, err := (&connector{}).Open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("r8cctl - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for MCU...\n\n")

	start := time.Now()
	s := r8c.New(conn, sessionOptions()...)
	defer s.Close()

	attempts := 0
	for {
		attempts++
		model, version, err := s.Handshake(ctx)
		if err == nil {
			fmt.Printf("MCU answered after %v (%d attempt(s))\n", time.Since(start).Round(time.Millisecond), attempts)
			fmt.Printf("  Model:    %s\n", model)
			fmt.Printf("  Firmware: %s\n", version)
			return nil
		}

		switch {
		case errors.Is(err, r8c.ErrHandshakeMismatch):
			fmt.Printf("FAILED: %v\n", err)
			os.Exit(1)
		case errors.Is(err, r8c.ErrNotReady):
			fmt.Printf("READ FAILED: %v\n", s.Err())
			os.Exit(2)
		case ctx.Err() != nil:
			fmt.Printf("TIMEOUT: no answer from the MCU in %ds (%d attempt(s))\n", probeTimeout, attempts)
			st := s.Stats()
			if st.BytesReceived > 0 {
				fmt.Printf("Received %d byte(s), none of them a valid reply\n", st.BytesReceived)
			}
			os.Exit(1)
		}
		logger.Debug().Err(err).Int("attempt", attempts).Msg("handshake failed, retrying")
	}
}
