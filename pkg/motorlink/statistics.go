// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openebike/linkview/pkg/motorwire"
)

// Statistics tracks link health counters. The link task increments them;
// any goroutine may snapshot or format them, so every counter is atomic.
type Statistics struct {
	startTime time.Time

	framesCaptured   atomic.Uint64
	capturesByProto  [motorwire.ProtocolCount + 1]atomic.Uint64
	checksumErrors   atomic.Uint64
	structuralErrors atomic.Uint64
	timeouts         atomic.Uint64
	droppedEvents    atomic.Uint64
	abandonedSends   atomic.Uint64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) noteCapture(p motorwire.Protocol) {
	s.framesCaptured.Add(1)
	if int(p) < len(s.capturesByProto) {
		s.capturesByProto[p].Add(1)
	}
}

func (s *Statistics) noteChecksumError() { s.checksumErrors.Add(1) }
func (s *Statistics) noteStructural()    { s.structuralErrors.Add(1) }
func (s *Statistics) noteTimeout()       { s.timeouts.Add(1) }
func (s *Statistics) noteAbandonedSend() { s.abandonedSends.Add(1) }

func (s *Statistics) setDroppedEvents(n uint32) {
	s.droppedEvents.Store(uint64(n))
}

// StatisticsSnapshot is a point-in-time copy of the counters.
type StatisticsSnapshot struct {
	Elapsed time.Duration

	FramesCaptured   uint64
	CapturesByProto  [motorwire.ProtocolCount + 1]uint64
	ChecksumErrors   uint64
	StructuralErrors uint64
	Timeouts         uint64
	DroppedEvents    uint64
	AbandonedSends   uint64
}

// Snapshot returns a consistent-enough copy for display. Counters are
// read independently, so totals can be off by a frame under load; that
// is fine for a diagnostic view.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	snap := StatisticsSnapshot{
		Elapsed:          time.Since(s.startTime),
		FramesCaptured:   s.framesCaptured.Load(),
		ChecksumErrors:   s.checksumErrors.Load(),
		StructuralErrors: s.structuralErrors.Load(),
		Timeouts:         s.timeouts.Load(),
		DroppedEvents:    s.droppedEvents.Load(),
		AbandonedSends:   s.abandonedSends.Load(),
	}
	for i := range s.capturesByProto {
		snap.CapturesByProto[i] = s.capturesByProto[i].Load()
	}
	return snap
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	return s.Snapshot().String()
}

// String formats a snapshot for terminal display.
func (snap StatisticsSnapshot) String() string {
	var frameRate, errorRate float64
	elapsed := snap.Elapsed.Seconds()
	if elapsed > 0 {
		frameRate = float64(snap.FramesCaptured) / elapsed
		errorCount := snap.ChecksumErrors + snap.StructuralErrors + snap.Timeouts
		errorRate = float64(errorCount) / elapsed
	}

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed)
	result += fmt.Sprintf("Frames Captured: %8d\n", snap.FramesCaptured)
	for p := motorwire.ProtoA; p <= motorwire.ProtoD; p++ {
		if snap.CapturesByProto[p] > 0 {
			result += fmt.Sprintf("  Variant %s:      %8d\n", p, snap.CapturesByProto[p])
		}
	}
	if snap.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", snap.ChecksumErrors)
	}
	if snap.StructuralErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d\n", snap.StructuralErrors)
	}
	if snap.Timeouts > 0 {
		result += fmt.Sprintf("Reply Timeouts:  %8d\n", snap.Timeouts)
	}
	if snap.DroppedEvents > 0 {
		result += fmt.Sprintf("Dropped Events:  %8d\n", snap.DroppedEvents)
	}
	if snap.AbandonedSends > 0 {
		result += fmt.Sprintf("Abandoned Sends: %8d\n", snap.AbandonedSends)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", frameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", errorRate)
	result += "======================================\n"

	return result
}
