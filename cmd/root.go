// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/r8cctl/internal/config"
	"github.com/Thermoquad/r8cctl/internal/logging"
	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Board flags
	configPath    string
	expectedModel string

	// Logging flags
	logLevel string
	noColor  bool
)

var (
	logger = zerolog.Nop()
	board  = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "r8cctl",
	Short: "R8C board MCU control tool",
	Long: `r8cctl - A CLI tool for talking to the R8C board-management MCU.

The MCU speaks a line protocol over a 57600 baud UART: ":" commands from the
host, ";" replies and "@" events from the MCU. r8cctl drives the buttons, the
HDD and status LEDs, and the reset/power-off path, and can record and replay
link traffic for debugging.

Connection modes:
  Serial:    --port /dev/ttyS1 [--baud 57600]
  WebSocket: --url ws://host/path [--username user]

A board file (--config board.yaml) describes the fitted buttons and LEDs.

For WebSocket authentication, the password is read from the R8C_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", r8c.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Board flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Board description file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&expectedModel, "model", "m", "", "Expected MCU model prefix (overrides the board file)")

	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, off")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")
}

// setup builds the logger and the board configuration before any command runs
func setup(cmd *cobra.Command, args []string) error {
	l, err := logging.New(logging.Options{Level: logLevel, NoColor: noColor})
	if err != nil {
		return err
	}
	logger = l

	cfg := &config.Config{}
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	// flags win over the board file
	if cmd.Flags().Changed("baud") {
		cfg.Board.Baud = baudRate
	}
	if cmd.Flags().Changed("model") {
		cfg.Board.Model = expectedModel
	}

	board = cfg
	logger.Debug().Str("config", configPath).Str("model", board.Board.Model).Int("baud", board.Board.Baud).Msg("configuration loaded")

	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
