// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

import "fmt"

// Variant C wire format, fixed six bytes:
//
//	[0] header       0x10 (command) or 0x11 (reply)
//	[1] payload 1
//	[2] payload 2
//	[3] filler
//	[4] XOR of bytes [1..3]
//	[5] 0x0D         terminator
//
// Parsing is positional, so a checksum byte that happens to equal the
// terminator value decodes fine here; it is the encoder's job to choose a
// filler byte that keeps the checksum away from the terminator value, via
// BuildFrameC.

type codecC struct {
	buf   [CFrameSize]byte
	idx   int
	frame Frame
}

func newCodecC() *codecC {
	return &codecC{}
}

func (c *codecC) proto() Protocol { return ProtoC }

func (c *codecC) reset() {
	c.idx = 0
}

func (c *codecC) accept(b byte) (*Frame, error) {
	if c.idx == 0 {
		if b != CHeaderCmd && b != CHeaderReply {
			return nil, nil
		}
		c.buf[0] = b
		c.idx = 1
		return nil, nil
	}

	c.buf[c.idx] = b
	c.idx++
	if c.idx < CFrameSize {
		return nil, nil
	}

	if c.buf[5] != CTerminator {
		c.reset()
		return nil, fmt.Errorf("expected terminator, got 0x%02X: %w", c.buf[5], ErrBadTerminator)
	}
	want := Xor8(c.buf[1:4])
	if c.buf[4] != want {
		c.reset()
		return nil, fmt.Errorf("xor 0x%02X, want 0x%02X: %w", c.buf[4], want, ErrChecksum)
	}
	f := &c.frame
	f.Proto = ProtoC
	f.Opcode = c.buf[0]
	f.Aux = uint16(c.buf[0])
	f.setRaw(c.buf[:], 1, 2)
	c.reset()
	return f, nil
}

// BuildFrameC encodes a variant C frame. The filler byte is chosen so the
// resulting checksum never equals the terminator value; the search always
// terminates because flipping any filler bit flips the same checksum bit.
func BuildFrameC(header, b1, b2 byte) []byte {
	var filler byte
	for {
		if b1^b2^filler != CTerminator {
			break
		}
		filler++
	}
	return []byte{header, b1, b2, filler, b1 ^ b2 ^ filler, CTerminator}
}
