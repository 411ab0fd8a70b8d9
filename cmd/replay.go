// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/trace"
	"github.com/spf13/cobra"
)

var replayEventsOnly bool

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "Decode a trace recorded with \"monitor --record\"",
	Long: `Decode a CBOR trace file offline. Outbound chunks are shown as commands
and inbound bytes are reassembled into replies and events the same way a
live session frames them.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayEventsOnly, "events", false, "Only show event frames")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()

	rd, err := trace.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	h := rd.Header()
	fmt.Fprintf(out, "Trace:   %s\n", args[0])
	fmt.Fprintf(out, "Started: %s\n", h.Started.Format("2006-01-02 15:04:05.000 MST"))
	if h.Source != "" {
		fmt.Fprintf(out, "Source:  %s\n", h.Source)
	}
	fmt.Fprintln(out)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	sum, err := trace.Replay(f, func(fr trace.Frame) {
		if replayEventsOnly && fr.Kind != r8c.FrameEvent {
			return
		}
		fmt.Fprintln(out, fr)
	})
	fmt.Fprintf(out, "\n%s", sum)
	if err != nil {
		// a truncated trace is normal when the recorder was killed
		logger.Warn().Err(err).Msg("trace ended unexpectedly")
	}

	return nil
}
