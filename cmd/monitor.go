// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/keys"
	"github.com/Thermoquad/r8cctl/pkg/r8c/trace"
	"github.com/spf13/cobra"
)

var (
	monitorRecord        string
	monitorRaw           bool
	monitorStatsInterval int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display MCU events and key transitions as they arrive",
	Long: `Continuously display events pushed by the MCU and, when the board file
lists buttons, the resulting key press/release transitions.

Options:
  --raw             also print every chunk written to and read from the link
  --record FILE     write all link traffic to a CBOR trace (see "replay")
  --stats-interval  print link statistics every N seconds (0 = only at exit)

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&monitorRecord, "record", "o", "", "Record link traffic to a trace file")
	monitorCmd.Flags().BoolVar(&monitorRaw, "raw", false, "Print raw link traffic")
	monitorCmd.Flags().IntVar(&monitorStatsInterval, "stats-interval", 0, "Statistics interval in seconds")
}

// combineTaps returns a tap that calls every non-nil tap in order
func combineTaps(taps ...r8c.Tap) r8c.Tap {
	var active []r8c.Tap
	for _, t := range taps {
		if t != nil {
			active = append(active, t)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(dir r8c.Direction, data []byte) {
		for _, t := range active {
			t(dir, data)
		}
	}
}

func rawPrinter(dir r8c.Direction, data []byte) {
	fmt.Printf("[%s] %s %q\n", time.Now().Format("15:04:05.000"), dir, data)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var recorder *trace.Recorder
	var recordTap r8c.Tap
	if monitorRecord != "" {
		f, err := os.Create(monitorRecord)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer f.Close()

		source := portName
		if wsURL != "" {
			source = wsURL
		}
		recorder, err = trace.NewRecorder(f, source)
		if err != nil {
			return err
		}
		recordTap = recorder.Tap
	}

	var rawTap r8c.Tap
	if monitorRaw {
		rawTap = rawPrinter
	}

	var extra []r8c.Option
	if tap := combineTaps(recordTap, rawTap); tap != nil {
		extra = append(extra, r8c.WithTap(tap))
	}

	s, connInfo, err := openSession(ctx, &connector{}, extra...)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("r8cctl - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("MCU: %s (firmware %s)\n", s.Model(), s.Version())
	if recorder != nil {
		fmt.Printf("Recording: %s\n", monitorRecord)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	// registered first so every event is shown before a consumer claims it
	s.SubscribeFunc(func(code byte) r8c.Verdict {
		fmt.Printf("[%s] EVENT   %c\n", time.Now().Format("15:04:05.000"), code)
		return r8c.Continue
	})

	if len(board.Keys.Buttons) > 0 {
		k, err := keys.New(s, board.Keys.KeyMode(), board.Keys.ButtonList(), printKey,
			keys.WithPollInterval(board.Keys.PollInterval()),
			keys.WithLogger(logger))
		if err != nil {
			return err
		}
		defer k.Close()
		fmt.Printf("Keys: %d button(s), %s mode\n\n", len(board.Keys.Buttons), k.Mode())
	}

	var tick <-chan time.Time
	if monitorStatsInterval > 0 {
		ticker := time.NewTicker(time.Duration(monitorStatsInterval) * time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n%s", s.Stats())
			return finishRecording(recorder)

		case <-s.Done():
			fmt.Printf("\n%s", s.Stats())
			if err := finishRecording(recorder); err != nil {
				logger.Error().Err(err).Msg("trace recording failed")
			}
			return fmt.Errorf("link lost: %w", s.Err())

		case <-tick:
			printStats(s.Stats())
		}
	}
}

func printKey(ev keys.Event) {
	state := "released"
	if ev.Pressed {
		state = "pressed"
	}
	fmt.Printf("[%s] KEY     %s (%s) %s\n", time.Now().Format("15:04:05.000"), ev.Label, ev.Code, state)
}

// printStats prints the statistics, flagging timeouts and discarded bytes
func printStats(st r8c.Stats) {
	fmt.Printf("\n%s", st)
	if st.Timeouts > 0 {
		fmt.Printf("WARNING: %d command(s) timed out\n", st.Timeouts)
	}
	if st.BytesDiscarded > 0 {
		fmt.Printf("WARNING: %d byte(s) discarded outside a reply\n", st.BytesDiscarded)
	}
	if st.Events > st.EventsDelivered {
		fmt.Printf("NOTE: %d event(s) coalesced\n", st.Events-st.EventsDelivered)
	}
	fmt.Println()
}

func finishRecording(r *trace.Recorder) error {
	if r == nil {
		return nil
	}
	fmt.Printf("Recorded %d trace record(s)\n", r.Count())
	return r.Err()
}

