// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

import "errors"

// Frame rejection reasons. Recognizers wrap these with context; the Set
// classifies them into checksum and structural counters.
var (
	ErrChecksum      = errors.New("checksum mismatch")
	ErrBadLength     = errors.New("declared length out of range")
	ErrBadHeader     = errors.New("bad header continuation")
	ErrBadTerminator = errors.New("bad terminator")
	ErrOverflow      = errors.New("frame buffer overflow")
)

// recognizer is one per-protocol byte-at-a-time state machine. A returned
// error reports a rejected frame; the recognizer has already reset itself
// when it reports one.
type recognizer interface {
	proto() Protocol
	// accept consumes one byte and returns a completed frame, a
	// rejection error, or neither. The returned frame is owned by the
	// recognizer and valid until its next accept call.
	accept(b byte) (*Frame, error)
	reset()
}

// Set runs all four protocol recognizers side by side on a single byte
// stream. A byte consumed by one recognizer is still evaluated by the
// others: until the link locks onto a protocol, every recognizer is a
// live candidate.
//
// Set is not safe for concurrent use; it is owned by the link task.
type Set struct {
	recognizers [ProtocolCount]recognizer
	d           *codecD
	capture     uint32

	checksumErrs   [protoCount]uint32
	structuralErrs [protoCount]uint32
}

// NewSet creates a recognizer set with all four protocols active.
func NewSet() *Set {
	s := &Set{d: newCodecD()}
	s.recognizers = [ProtocolCount]recognizer{
		newCodecA(), newCodecB(), newCodecC(), s.d,
	}
	return s
}

// AcceptByte feeds one byte to every recognizer. On a capture it returns
// the frame, stamped with the next capture sequence number. The error
// return carries variant A rejections only: the other variants fail
// silently because mismatches are the expected common case while several
// recognizers compete. All rejections are counted regardless.
func (s *Set) AcceptByte(b byte) (*Frame, error) {
	var captured *Frame
	var aErr error
	for _, r := range s.recognizers {
		f, err := r.accept(b)
		if err != nil {
			if errors.Is(err, ErrChecksum) {
				s.checksumErrs[r.proto()]++
			} else {
				s.structuralErrs[r.proto()]++
			}
			if r.proto() == ProtoA {
				aErr = err
			}
			continue
		}
		if f != nil && captured == nil {
			s.capture++
			f.Capture = s.capture
			captured = f
		}
	}
	return captured, aErr
}

// ArmExpect arms variant D's request-aligned capture: the next n bytes are
// captured unconditionally and checked once against the additive
// relations, bypassing the sliding-window heuristic. Call immediately
// before transmitting the matching request.
func (s *Set) ArmExpect(n int, id uint16) {
	s.d.arm(n, id)
}

// DisarmExpect cancels a pending request-aligned capture and returns
// variant D to the sliding-window heuristic. Call when the armed request
// was never actually transmitted.
func (s *Set) DisarmExpect() {
	s.d.disarm()
}

// Reset returns every recognizer to its initial state and discards any
// in-progress partial frames. Counters are preserved.
func (s *Set) Reset() {
	for _, r := range s.recognizers {
		r.reset()
	}
}

// Captured returns the total number of frames captured since creation.
func (s *Set) Captured() uint32 {
	return s.capture
}

// ChecksumErrors returns the checksum rejection count for one protocol.
func (s *Set) ChecksumErrors(p Protocol) uint32 {
	return s.checksumErrs[p]
}

// StructuralErrors returns the structural rejection count for one
// protocol.
func (s *Set) StructuralErrors(p Protocol) uint32 {
	return s.structuralErrs[p]
}
