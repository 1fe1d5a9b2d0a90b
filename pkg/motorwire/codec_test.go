// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

import (
	"bytes"
	"errors"
	"testing"
)

// feed pushes a byte sequence through a recognizer set and returns every
// captured frame plus the last variant A error seen.
func feed(t *testing.T, s *Set, data []byte) ([]Frame, error) {
	t.Helper()
	var frames []Frame
	var lastErr error
	for _, b := range data {
		f, err := s.AcceptByte(b)
		if err != nil {
			lastErr = err
		}
		if f != nil {
			frames = append(frames, *f)
		}
	}
	return frames, lastErr
}

// ofProto filters captures down to one protocol. The variant D sliding
// window is allowed to coincidentally match inside other variants' checksum
// bytes, so tests assert on the protocol they built, not on total capture
// count.
func ofProto(frames []Frame, p Protocol) []Frame {
	var out []Frame
	for _, f := range frames {
		if f.Proto == p {
			out = append(out, f)
		}
	}
	return out
}

// ============================================================
// Checksum Tests
// ============================================================

func TestSum16_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"empty", []byte{}, 0x0000},
		{"single", []byte{0x3A}, 0x003A},
		{"wraps past 16 bits", bytes.Repeat([]byte{0xFF}, 257), 0x00FF},
		{"header plus opcode", []byte{0x3A, 0x1A, 0x52, 0x00}, 0x00A6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sum16(tt.data); got != tt.expected {
				t.Errorf("Sum16(%v) = 0x%04X, want 0x%04X", tt.data, got, tt.expected)
			}
		})
	}
}

func TestXor8_KnownValues(t *testing.T) {
	if got := Xor8([]byte{0xAA, 0x55, 0xFF}); got != 0x00 {
		t.Errorf("Xor8 = 0x%02X, want 0x00", got)
	}
	if got := Xor8(nil); got != 0x00 {
		t.Errorf("Xor8(nil) = 0x%02X, want 0x00", got)
	}
}

func TestSum8_Bias(t *testing.T) {
	data := []byte{0x11, 0x02}
	if got := Sum8(data, 0); got != 0x13 {
		t.Errorf("Sum8 primary = 0x%02X, want 0x13", got)
	}
	if got := Sum8(data, DChecksumBias); got != 0x13+DChecksumBias {
		t.Errorf("Sum8 biased = 0x%02X, want 0x%02X", got, 0x13+DChecksumBias)
	}
}

// ============================================================
// Round-Trip Tests
// ============================================================

func TestVariantA_RoundTrip(t *testing.T) {
	payload := []byte{0x12, 0x34, 0x56, 0x78}
	wire := BuildFrameA(AOpStatus, payload)

	all, err := feed(t, NewSet(), wire)
	if err != nil {
		t.Fatalf("unexpected variant A error: %v", err)
	}
	frames := ofProto(all, ProtoA)
	if len(frames) != 1 {
		t.Fatalf("expected 1 variant A frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Opcode != AOpStatus {
		t.Errorf("opcode = 0x%02X, want 0x%02X", f.Opcode, AOpStatus)
	}
	if !bytes.Equal(f.Payload(), payload) {
		t.Errorf("payload = %v, want %v", f.Payload(), payload)
	}
}

func TestVariantA_EmptyPayload(t *testing.T) {
	wire := BuildFrameA(AOpSwitchProtocol, nil)
	all, err := feed(t, NewSet(), wire)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frames := ofProto(all, ProtoA)
	if len(frames) != 1 || frames[0].Opcode != AOpSwitchProtocol {
		t.Fatalf("expected one SWITCH_PROTOCOL frame, got %v", frames)
	}
	if len(frames[0].Payload()) != 0 {
		t.Errorf("payload length = %d, want 0", len(frames[0].Payload()))
	}
}

func TestVariantB_RoundTrip(t *testing.T) {
	payload := []byte{0x1A, 0x0C, 0x20, 0x0F, 0x80, 0x14, 0x00}
	wire := BuildFrameB(BOpCommand, payload)

	all, err := feed(t, NewSet(), wire)
	if err != nil {
		t.Fatalf("unexpected variant A error: %v", err)
	}
	frames := ofProto(all, ProtoB)
	if len(frames) != 1 {
		t.Fatalf("expected 1 variant B frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Opcode != BOpCommand {
		t.Errorf("opcode = 0x%02X, want 0x%02X", f.Opcode, BOpCommand)
	}
	if !bytes.Equal(f.Payload(), payload) {
		t.Errorf("payload = %v, want %v", f.Payload(), payload)
	}
}

func TestVariantC_RoundTrip(t *testing.T) {
	wire := BuildFrameC(CHeaderCmd, 0x25, 0x83)
	all, err := feed(t, NewSet(), wire)
	if err != nil {
		t.Fatalf("unexpected variant A error: %v", err)
	}
	frames := ofProto(all, ProtoC)
	if len(frames) != 1 {
		t.Fatalf("expected 1 variant C frame, got %d", len(frames))
	}
	f := frames[0]
	if !bytes.Equal(f.Payload(), []byte{0x25, 0x83}) {
		t.Errorf("payload = %v, want [0x25 0x83]", f.Payload())
	}
}

func TestVariantC_FillerAvoidsTerminator(t *testing.T) {
	// b1 ^ b2 == CTerminator, so a zero filler would put the checksum at
	// the terminator value; the builder must pick another filler.
	b1, b2 := byte(0x1D), byte(0x10)
	if b1^b2 != CTerminator {
		t.Fatal("test precondition broken")
	}
	wire := BuildFrameC(CHeaderCmd, b1, b2)
	if wire[4] == CTerminator {
		t.Errorf("checksum byte equals terminator: % X", wire)
	}
	frames, _ := feed(t, NewSet(), wire)
	if len(ofProto(frames, ProtoC)) != 1 {
		t.Fatalf("frame with adjusted filler not accepted: % X", wire)
	}
}

func TestVariantD_ArmedRoundTrip(t *testing.T) {
	for _, id := range []uint8{DReqStatus, DReqVoltage, DReqSpeed} {
		req, replyLen, ok := BuildRequestD(id)
		if !ok {
			t.Fatalf("unknown request id 0x%02X", id)
		}
		if len(req) < 2 || len(req) > DMaxFrame {
			t.Errorf("request 0x%02X length %d out of the 2..5 range", id, len(req))
		}
		if replyLen < DMinFrame || replyLen > DMaxFrame {
			t.Errorf("request 0x%02X reply length %d out of range", id, replyLen)
		}

		// Simulate the reply: replyLen-1 data bytes plus a primary sum.
		reply := make([]byte, replyLen)
		for i := 0; i < replyLen-1; i++ {
			reply[i] = byte(0x20 + i)
		}
		reply[replyLen-1] = Sum8(reply[:replyLen-1], 0)

		s := NewSet()
		s.ArmExpect(replyLen, uint16(id))
		all, _ := feed(t, s, reply)
		frames := ofProto(all, ProtoD)
		if len(frames) != 1 {
			t.Fatalf("id 0x%02X: expected 1 variant D frame, got %d", id, len(frames))
		}
		if frames[0].Aux != uint16(id) {
			t.Errorf("id 0x%02X: aux = 0x%04X, want request id", id, frames[0].Aux)
		}
	}
}

func TestVariantD_ArmedChecksumFailSilent(t *testing.T) {
	s := NewSet()
	s.ArmExpect(3, DReqVoltage)
	frames, err := feed(t, s, []byte{0x10, 0x20, 0x99})
	if err != nil {
		t.Errorf("variant D failures must be silent, got %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("bad checksum accepted: %v", frames)
	}
	if s.ChecksumErrors(ProtoD) != 1 {
		t.Errorf("checksum error count = %d, want 1", s.ChecksumErrors(ProtoD))
	}
}

func TestVariantD_DisarmDropsExpectation(t *testing.T) {
	s := NewSet()
	s.ArmExpect(5, DReqStatus)
	s.DisarmExpect()

	// An armed capture would swallow these five bytes unconditionally
	// and count a checksum rejection; the sliding window sees nothing.
	all, err := feed(t, s, []byte{0x81, 0x83, 0x87, 0x8F, 0x9F})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(ofProto(all, ProtoD)); n != 0 {
		t.Errorf("captured %d variant D frames after disarm, want 0", n)
	}
	if s.ChecksumErrors(ProtoD) != 0 {
		t.Errorf("checksum error count = %d, want 0", s.ChecksumErrors(ProtoD))
	}
}

func TestVariantD_SlidingWindow(t *testing.T) {
	// 3-byte frame with a biased checksum appearing mid-stream.
	frame := []byte{0x31, 0x42, 0x31 + 0x42 + DChecksumBias}
	stream := append([]byte{0xF7}, frame...)

	s := NewSet()
	var got *Frame
	for _, b := range stream {
		f, _ := s.AcceptByte(b)
		if f != nil && f.Proto == ProtoD {
			got = f
		}
	}
	if got == nil {
		t.Fatal("sliding window did not capture the frame")
	}
	if got.Opcode != 0x31 {
		t.Errorf("opcode = 0x%02X, want 0x31", got.Opcode)
	}
}

// ============================================================
// Corruption Tests (no false accepts)
// ============================================================

// corruptEachByte verifies that flipping any single non-checksum byte of a
// valid frame is rejected by the recognizer for the given protocol.
func corruptEachByte(t *testing.T, wire []byte, proto Protocol, checksumAt func(i int) bool) {
	t.Helper()
	for i := range wire {
		if checksumAt(i) {
			continue
		}
		mutated := append([]byte(nil), wire...)
		mutated[i] ^= 0x04
		s := NewSet()
		for _, b := range mutated {
			f, _ := s.AcceptByte(b)
			if f != nil && f.Proto == proto {
				t.Errorf("byte %d corrupted: frame falsely accepted (% X)", i, mutated)
			}
		}
	}
}

func TestVariantA_SingleByteCorruptionRejected(t *testing.T) {
	wire := BuildFrameA(AOpStatus, []byte{0x10, 0x20, 0x30, 0x40, 0x55, 0x66})
	ckLo := len(wire) - 4
	corruptEachByte(t, wire, ProtoA, func(i int) bool {
		return i == ckLo || i == ckLo+1
	})
}

func TestVariantB_SingleByteCorruptionRejected(t *testing.T) {
	wire := BuildFrameB(BOpStatus, []byte{0x9E, 0x01, 0x32, 0x00, 0x64, 0x80})
	corruptEachByte(t, wire, ProtoB, func(i int) bool {
		return i == len(wire)-1
	})
}

func TestVariantC_SingleByteCorruptionRejected(t *testing.T) {
	wire := BuildFrameC(CHeaderReply, 0x47, 0x12)
	corruptEachByte(t, wire, ProtoC, func(i int) bool {
		return i == 4
	})
}

// ============================================================
// Structural Failure Tests
// ============================================================

func TestVariantA_BadHeaderContinuationRaisesError(t *testing.T) {
	s := NewSet()
	_, err := feed(t, s, []byte{AHeader1, 0x99})
	if !errors.Is(err, ErrBadHeader) {
		t.Errorf("expected ErrBadHeader, got %v", err)
	}
	if s.StructuralErrors(ProtoA) != 1 {
		t.Errorf("structural error count = %d, want 1", s.StructuralErrors(ProtoA))
	}
}

func TestVariantA_LengthOutOfBounds(t *testing.T) {
	s := NewSet()
	_, err := feed(t, s, []byte{AHeader1, AHeader2, AOpStatus, AMaxPayload + 1})
	if !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength, got %v", err)
	}
}

func TestVariantA_LengthOverflowsFrameBuffer(t *testing.T) {
	s := NewSet()
	_, err := feed(t, s, []byte{AHeader1, AHeader2, AOpStatus, 0xFF})
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
	if s.StructuralErrors(ProtoA) != 1 {
		t.Errorf("structural error count = %d, want 1", s.StructuralErrors(ProtoA))
	}
}

func TestVariantB_LengthOverflowsFrameBuffer(t *testing.T) {
	c := newCodecB()
	c.accept(BHeader)
	_, err := c.accept(0xFF)
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestVariantB_FailsSilently(t *testing.T) {
	s := NewSet()
	_, err := feed(t, s, []byte{BHeader, 0x01})
	if err != nil {
		t.Errorf("variant B failures must not surface, got %v", err)
	}
	if s.StructuralErrors(ProtoB) != 1 {
		t.Errorf("structural error count = %d, want 1", s.StructuralErrors(ProtoB))
	}
}

func TestRecognizerReset_DoesNotAffectSiblings(t *testing.T) {
	s := NewSet()
	// Start a variant B frame, then kill it with a bad length while a
	// variant A frame begins; A must still complete.
	feed(t, s, []byte{BHeader, 0x01})
	all, err := feed(t, s, BuildFrameA(AOpStatus, []byte{0x01}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ofProto(all, ProtoA)) != 1 {
		t.Fatalf("variant A frame lost after sibling reset: %v", all)
	}
}

func TestCaptureSequenceMonotonic(t *testing.T) {
	s := NewSet()
	var last uint32
	for i := 0; i < 3; i++ {
		all, err := feed(t, s, BuildFrameA(AOpStatus, []byte{byte(i)}))
		frames := ofProto(all, ProtoA)
		if err != nil || len(frames) != 1 {
			t.Fatalf("frame %d not captured: %v %v", i, frames, err)
		}
		if frames[0].Capture <= last {
			t.Errorf("capture %d not monotonic after %d", frames[0].Capture, last)
		}
		last = frames[0].Capture
	}
}
