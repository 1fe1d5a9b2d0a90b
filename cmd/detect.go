// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/openebike/linkview/pkg/motorlink"
)

var detectTimeout int

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Auto-detect which wire variant the controller speaks",
	Long: `Listen on the link, rotating through the candidate bit rates, until the
same wire variant has been confirmed twice and the link locks onto it.

Prints the detected variant and the link statistics gathered along the
way. Exits non-zero if nothing is detected before the timeout: either no
controller is attached, or it only transmits when spoken to in a variant
that has not been probed yet.`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().IntVar(&detectTimeout, "timeout", 30, "Give up after this many seconds")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Protocol = "auto"

	transport, closer, connInfo, err := OpenTransport(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	fmt.Printf("Linkview - Protocol Detection\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	l := motorlink.NewLink(transport, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(detectTimeout)*time.Second)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	ticker := time.NewTicker(motorlink.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-done
			fmt.Print(l.Stats())
			return fmt.Errorf("no protocol detected within %d seconds", detectTimeout)
		case <-ticker.C:
			if p, locked := l.Active(); locked {
				cancel()
				<-done
				fmt.Printf("Detected wire variant %s (%d baud)\n\n", p, motorlink.BitRateFor(p))
				fmt.Print(l.Stats())
				return nil
			}
		}
	}
}
