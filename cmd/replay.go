// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/openebike/linkview/pkg/motorwire"
)

var replayVerify bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a CBOR capture file offline",
	Long: `Decode and display the frames of a capture file recorded with
"raw_log --capture".

With --verify, the recorded frame bytes are additionally fed back through
the live recognizers, confirming the capture still parses byte for byte.
Useful after changing frame handling: a capture that replayed cleanly
before must still replay cleanly.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayVerify, "verify", false, "Re-parse recorded bytes through the recognizers")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	dec := cbor.NewDecoder(f)
	set := motorwire.NewSet()

	var total, reparsed int
	perProto := map[motorwire.Protocol]int{}

	for {
		var rec captureRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("capture record %d: %v", total+1, err)
		}
		total++
		p := motorwire.Protocol(rec.Proto)
		perProto[p]++

		fmt.Printf("[+%7dms] %s opcode 0x%02X (%d bytes)\n",
			rec.OffsetMs, p, rec.Opcode, len(rec.Data))

		if replayVerify {
			// Variant D frames were captured request-aligned; arm the
			// same expectation instead of relying on the window probe.
			if p == motorwire.ProtoD {
				set.ArmExpect(len(rec.Data), rec.Aux)
			}
			ok := false
			for _, b := range rec.Data {
				if frame, _ := set.AcceptByte(b); frame != nil && frame.Proto == p {
					ok = true
				}
			}
			if ok {
				reparsed++
			} else {
				fmt.Printf("            ^ recorded bytes no longer parse as variant %s\n", p)
			}
			set.Reset()
		}
	}

	fmt.Printf("\n%d frames", total)
	for p := motorwire.ProtoA; p <= motorwire.ProtoD; p++ {
		if perProto[p] > 0 {
			fmt.Printf(", %d variant %s", perProto[p], p)
		}
	}
	fmt.Println()
	if replayVerify {
		fmt.Printf("%d/%d frames re-parsed cleanly\n", reparsed, total)
	}
	return nil
}
