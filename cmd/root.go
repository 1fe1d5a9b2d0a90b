// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openebike/linkview/pkg/motorlink"
)

var (
	// Serial connection flags
	portName string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Shared configuration
	configPath    string
	protocolFlag  string
	nominalVoltsF int
	gearCountF    int
)

var rootCmd = &cobra.Command{
	Use:   "linkview",
	Short: "E-bike motor link analyzer",
	Long: `Linkview - A CLI tool for monitoring, decoding and driving the UART link
between an e-bike display and its motor controller.

Four incompatible OEM wire protocols are recognized side by side; the tool
auto-detects which one the attached controller speaks, or a variant can be
forced with --protocol.

Connection modes:
  Serial:    --port /dev/ttyUSB0
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the LINKVIEW_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.2.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "linkview.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&protocolFlag, "protocol", "", "Force wire variant (a, b, c, d or auto)")
	rootCmd.PersistentFlags().IntVar(&nominalVoltsF, "volts", 0, "Override nominal battery voltage (24, 36 or 48)")
	rootCmd.PersistentFlags().IntVar(&gearCountF, "gears", 0, "Override displayed assist gear count")
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig() (motorlink.Config, error) {
	cfg, err := motorlink.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if portName != "" {
		cfg.Port = portName
	}
	if protocolFlag != "" {
		cfg.Protocol = protocolFlag
	}
	if nominalVoltsF != 0 {
		cfg.NominalVoltage = nominalVoltsF
	}
	if gearCountF != 0 {
		cfg.GearCount = gearCountF
	}
	return cfg, cfg.Validate()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
