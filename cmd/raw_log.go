// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/openebike/linkview/pkg/motorlink"
	"github.com/openebike/linkview/pkg/motorwire"
)

var captureFile string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display captured motor link frames in human-readable format",
	Long: `Continuously decode and display motor link frames as they arrive.

All four wire variants are recognized side by side, so the log shows
whatever the attached controller speaks without any prior configuration.
Variant A rejections (bad checksum, framing) are logged as they occur;
the other variants fail silently by design of the recognizer set.

With --capture, every frame is also appended to a CBOR stream file that
the replay command can decode offline.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&captureFile, "capture", "", "Append captured frames to a CBOR stream file")
}

// captureRecord is one frame in a capture file. Integer keys keep the
// stream compact.
type captureRecord struct {
	OffsetMs uint32 `cbor:"1,keyasint"`
	Proto    uint8  `cbor:"2,keyasint"`
	Opcode   uint8  `cbor:"3,keyasint"`
	Aux      uint16 `cbor:"4,keyasint"`
	Data     []byte `cbor:"5,keyasint"`
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	transport, closer, connInfo, err := OpenTransport(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	var enc *cbor.Encoder
	if captureFile != "" {
		f, err := os.OpenFile(captureFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %v", err)
		}
		defer f.Close()
		enc = cbor.NewEncoder(f)
	}

	fmt.Printf("Linkview - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	start := time.Now()
	l := motorlink.NewLink(transport, cfg)
	l.SetFrameHandler(func(f *motorwire.Frame, now time.Time) {
		fmt.Print(motorwire.FormatFrame(f))
		if enc != nil {
			rec := captureRecord{
				OffsetMs: uint32(now.Sub(start).Milliseconds()),
				Proto:    uint8(f.Proto),
				Opcode:   f.Opcode,
				Aux:      f.Aux,
				Data:     append([]byte(nil), f.Bytes()...),
			}
			if err := enc.Encode(rec); err != nil {
				log.Printf("capture write error: %v", err)
			}
		}
	})
	l.SetEventHandler(func(ev motorlink.Event) {
		switch ev.Kind {
		case motorlink.EventProtocolError:
			fmt.Printf("[ERROR] variant A frame rejected\n")
		case motorlink.EventTimeout:
			fmt.Printf("[TIMEOUT] no response before deadline\n")
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := l.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Printf("\n%s", l.Stats())
	return nil
}
