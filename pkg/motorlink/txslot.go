// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"sync/atomic"

	"github.com/openebike/linkview/pkg/motorstate"
	"github.com/openebike/linkview/pkg/motorwire"
)

// TxSlot hands one outbound frame from the control loop to the link
// task. Each field has exactly one writer, so no seqlock is needed: the
// pending flag is the ownership token, set only after the frame body is
// fully written and cleared only by the link task after a full transmit
// attempt completes or fails.
type TxSlot struct {
	pending atomic.Bool

	// Written by the control loop while pending is false.
	buf          [motorwire.MaxFrameSize]byte
	length       int
	proto        motorwire.Protocol
	expectsReply bool
	replyLen     int
	msgID        uint16
}

// Queue stages an outbound frame. Returns false if a transmit is still
// pending or the frame does not fit. Control loop only.
func (s *TxSlot) Queue(p motorwire.Protocol, out motorstate.Outbound) bool {
	if s.pending.Load() {
		return false
	}
	if len(out.Bytes) > len(s.buf) {
		return false
	}
	s.length = copy(s.buf[:], out.Bytes)
	s.proto = p
	s.expectsReply = out.ExpectsReply
	s.replyLen = out.ReplyLen
	s.msgID = out.MsgID
	s.pending.Store(true)
	return true
}

// Pending reports whether a frame is staged and not yet transmitted.
func (s *TxSlot) Pending() bool {
	return s.pending.Load()
}

// release returns slot ownership to the control loop. Link task only,
// after the transmit attempt is over.
func (s *TxSlot) release() {
	s.pending.Store(false)
}
