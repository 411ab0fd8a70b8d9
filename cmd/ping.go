// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
	"github.com/spf13/cobra"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure command round trips to the MCU",
	Long: `Send status queries to the MCU and report the round-trip time of each.

This checks the whole path: the serial link or WebSocket bridge, framing
in both directions and the MCU command handler. The handshake is skipped
so an MCU with an unexpected model still answers.

Exit codes:
  0 - All pings answered
  1 - One or more pings failed or timed out
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 1, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, connInfo, err := openSession(ctx, &connector{},
		r8c.WithoutHandshake(),
		r8c.WithReplyTimeout(time.Duration(pingTimeout)*time.Second))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("r8cctl - Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	sent := 0
	failCount := 0
	var total time.Duration

	for i := 1; i <= pingCount && ctx.Err() == nil; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)
		sent++

		start := time.Now()
		reply, err := s.Execute(ctx, leds.CmdStatus, "", r8c.ReplyBufferSize)
		rtt := time.Since(start)

		switch {
		case err != nil:
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		case reply == "":
			fmt.Printf("EMPTY reply, rtt=%v\n", rtt.Round(time.Millisecond))
			failCount++
		default:
			fmt.Printf("reply=%q rtt=%v\n", reply, rtt.Round(time.Millisecond))
			total += rtt
		}

		if i < pingCount {
			sleepOrDone(ctx, 100*time.Millisecond)
		}
	}

	ok := sent - failCount
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d replies received, %.0f%% loss\n",
		sent, ok, float64(failCount)/float64(sent)*100)
	if ok > 0 {
		fmt.Printf("average rtt=%v\n", (total / time.Duration(ok)).Round(time.Millisecond))
	}

	if failCount > 0 || sent < pingCount {
		os.Exit(1)
	}
	return nil
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
