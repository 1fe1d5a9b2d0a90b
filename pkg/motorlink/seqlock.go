// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"sync/atomic"

	"github.com/openebike/linkview/pkg/motorwire"
)

// maxSnapshotRetries bounds the reader's retry loop; the writer touches
// the slot for a handful of instructions at most, so a collision on every
// attempt means something is badly wrong and the reader gives up.
const maxSnapshotRetries = 8

// FrameSlot is the single-slot handoff of the latest captured frame from
// the link task to the control loop, protected by a sequence lock: the
// writer bumps the counter to an odd value, copies the frame in, then
// bumps it even; the reader retries until it sees the same even value on
// both sides of its copy. The writer never waits on the reader.
//
// Single writer (the link task), single reader (the control loop). There
// is no queue: a new capture of any protocol overwrites the previous one.
type FrameSlot struct {
	seq   atomic.Uint32
	frame motorwire.Frame
}

// Publish stores a newly captured frame. Link task only.
func (s *FrameSlot) Publish(f *motorwire.Frame) {
	s.beginWrite()
	s.frame = *f
	s.endWrite()
}

func (s *FrameSlot) beginWrite() {
	s.seq.Add(1) // odd: write in progress
}

func (s *FrameSlot) endWrite() {
	s.seq.Add(1) // even: slot consistent
}

// Snapshot copies the slot into dst without tearing. It returns false if
// the slot has never been written or the writer kept colliding for every
// retry. Control loop only.
func (s *FrameSlot) Snapshot(dst *motorwire.Frame) bool {
	for attempt := 0; attempt < maxSnapshotRetries; attempt++ {
		s1 := s.seq.Load()
		if s1 == 0 || s1&1 != 0 {
			if s1 == 0 {
				return false
			}
			continue
		}
		*dst = s.frame
		if s.seq.Load() == s1 {
			return true
		}
	}
	return false
}
