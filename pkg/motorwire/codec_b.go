// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

import "fmt"

// Variant B wire format:
//
//	[0]    0x41    header
//	[1]    L       total frame length, including the checksum byte
//	[2]    opcode
//	[3..]  payload L-4 bytes
//	[L-1]  XOR of bytes [0..L-1)
//
// There is no terminator; completion is reaching the declared length.

const (
	bStateIdle = iota
	bStateLength
	bStateBody
)

type codecB struct {
	state    int
	buf      [MaxFrameSize]byte
	idx      int
	frameLen int
	frame    Frame
}

func newCodecB() *codecB {
	return &codecB{state: bStateIdle}
}

func (c *codecB) proto() Protocol { return ProtoB }

func (c *codecB) reset() {
	c.state = bStateIdle
	c.idx = 0
	c.frameLen = 0
}

func (c *codecB) accept(b byte) (*Frame, error) {
	switch c.state {
	case bStateIdle:
		if b == BHeader {
			c.buf[0] = b
			c.idx = 1
			c.state = bStateLength
		}
		return nil, nil

	case bStateLength:
		if int(b) > BMaxLength {
			c.reset()
			return nil, fmt.Errorf("frame length %d: %w", b, ErrOverflow)
		}
		if int(b) < BMinLength {
			c.reset()
			return nil, fmt.Errorf("frame length %d: %w", b, ErrBadLength)
		}
		c.frameLen = int(b)
		c.buf[c.idx] = b
		c.idx++
		c.state = bStateBody
		return nil, nil

	case bStateBody:
		c.buf[c.idx] = b
		c.idx++
		if c.idx < c.frameLen {
			return nil, nil
		}
		want := Xor8(c.buf[:c.frameLen-1])
		got := c.buf[c.frameLen-1]
		if got != want {
			c.reset()
			return nil, fmt.Errorf("xor 0x%02X, want 0x%02X: %w", got, want, ErrChecksum)
		}
		f := &c.frame
		f.Proto = ProtoB
		f.Opcode = c.buf[2]
		f.Aux = 0
		f.setRaw(c.buf[:c.frameLen], 3, c.frameLen-4)
		c.reset()
		return f, nil

	default:
		c.reset()
		return nil, nil
	}
}

// BuildFrameB encodes a complete variant B frame ready for transmission.
// The payload must fit within BMaxLength-4 bytes.
func BuildFrameB(opcode byte, payload []byte) []byte {
	total := len(payload) + 4
	frame := make([]byte, 0, total)
	frame = append(frame, BHeader, byte(total), opcode)
	frame = append(frame, payload...)
	frame = append(frame, Xor8(frame))
	return frame
}
