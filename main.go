// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors
//
// Linkview - E-bike Motor Link Analyzer
//
// A CLI tool for monitoring, decoding and driving the UART link between
// an e-bike display and its motor controller.

package main

import (
	"os"

	"github.com/openebike/linkview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
