// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/spf13/cobra"
)

var (
	execReplyLen  int
	skipHandshake bool
)

var commandCmd = &cobra.Command{
	Use:   "command <line>",
	Short: "Send a raw command line and print the reply (debugging)",
	Long: `Send an operator-supplied command line to the MCU and print the reply.

The leading ":" is optional and a line feed is appended. Everything after
the command name is passed through unchanged, for example:

  r8cctl command "hdd 1 5"
  r8cctl command :intrp`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

var execCmd = &cobra.Command{
	Use:   "exec <name> [arg]",
	Short: "Execute a named command with an optional argument",
	Long: `Execute a named command and wait for a reply of at most --reply bytes
(including the terminator). With --reply 0 the command is sent without
waiting for a reply.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(execCmd)
	commandCmd.Flags().BoolVar(&skipHandshake, "no-handshake", false, "Skip the model/version check")
	execCmd.Flags().IntVarP(&execReplyLen, "reply", "r", r8c.ReplyBufferSize, "Reply buffer size (0 = do not wait)")
	execCmd.Flags().BoolVar(&skipHandshake, "no-handshake", false, "Skip the model/version check")
}

func handshakeOptions() []r8c.Option {
	if skipHandshake {
		return []r8c.Option{r8c.WithoutHandshake()}
	}
	return nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	line := strings.Join(args, " ")

	return withSession(func(ctx context.Context, s *r8c.Session) error {
		reply, err := s.RawCommand(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.LastRawReply())
		logger.Debug().Str("line", line).Str("reply", reply).Msg("raw command")
		return nil
	}, handshakeOptions()...)
}

func runExec(cmd *cobra.Command, args []string) error {
	name := args[0]
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}
	if execReplyLen < 0 || execReplyLen > r8c.ReplyBufferSize {
		return fmt.Errorf("--reply must be between 0 and %d", r8c.ReplyBufferSize)
	}

	return withSession(func(ctx context.Context, s *r8c.Session) error {
		reply, err := s.Execute(ctx, name, arg, execReplyLen)
		if err != nil {
			return err
		}
		if execReplyLen > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), reply)
		}
		return nil
	}, handshakeOptions()...)
}
