// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

import "fmt"

// Variant A wire format:
//
//	[0]   0x3A          header
//	[1]   0x1A          header
//	[2]   opcode
//	[3]   N             payload length
//	[4..] payload       N bytes
//	      ck_lo ck_hi   16-bit additive sum over bytes [0..4+N), little-endian
//	      0x0D 0x0A     terminator
//
// Variant A is the only recognizer that reports its failures upward: its
// two-byte header makes a partial match strong evidence the peer really
// speaks this protocol, so a malformed continuation is worth an event.

// Decoder states (internal)
const (
	aStateIdle = iota
	aStateHeader2
	aStateOpcode
	aStateLength
	aStatePayload
	aStateCkLo
	aStateCkHi
	aStateCR
	aStateLF
)

type codecA struct {
	state      int
	buf        [MaxFrameSize]byte
	idx        int
	payloadLen int
	gotCk      uint16
	frame      Frame
}

func newCodecA() *codecA {
	return &codecA{state: aStateIdle}
}

func (c *codecA) proto() Protocol { return ProtoA }

func (c *codecA) reset() {
	c.state = aStateIdle
	c.idx = 0
	c.payloadLen = 0
	c.gotCk = 0
}

func (c *codecA) accept(b byte) (*Frame, error) {
	switch c.state {
	case aStateIdle:
		if b == AHeader1 {
			c.buf[0] = b
			c.idx = 1
			c.state = aStateHeader2
		}
		return nil, nil

	case aStateHeader2:
		if b != AHeader2 {
			c.reset()
			return nil, fmt.Errorf("second header byte 0x%02X: %w", b, ErrBadHeader)
		}
		c.buf[c.idx] = b
		c.idx++
		c.state = aStateOpcode
		return nil, nil

	case aStateOpcode:
		c.buf[c.idx] = b
		c.idx++
		c.state = aStateLength
		return nil, nil

	case aStateLength:
		if 4+int(b) > MaxFrameSize {
			c.reset()
			return nil, fmt.Errorf("payload length %d: %w", b, ErrOverflow)
		}
		if int(b) > AMaxPayload {
			c.reset()
			return nil, fmt.Errorf("payload length %d (max %d): %w", b, AMaxPayload, ErrBadLength)
		}
		c.payloadLen = int(b)
		c.buf[c.idx] = b
		c.idx++
		if c.payloadLen == 0 {
			c.state = aStateCkLo
		} else {
			c.state = aStatePayload
		}
		return nil, nil

	case aStatePayload:
		c.buf[c.idx] = b
		c.idx++
		if c.idx >= 4+c.payloadLen {
			c.state = aStateCkLo
		}
		return nil, nil

	case aStateCkLo:
		c.gotCk = uint16(b)
		c.state = aStateCkHi
		return nil, nil

	case aStateCkHi:
		c.gotCk |= uint16(b) << 8
		c.state = aStateCR
		return nil, nil

	case aStateCR:
		if b != ACR {
			c.reset()
			return nil, fmt.Errorf("expected CR, got 0x%02X: %w", b, ErrBadTerminator)
		}
		c.state = aStateLF
		return nil, nil

	case aStateLF:
		if b != ALF {
			c.reset()
			return nil, fmt.Errorf("expected LF, got 0x%02X: %w", b, ErrBadTerminator)
		}
		want := Sum16(c.buf[:c.idx])
		got := c.gotCk
		if got != want {
			c.reset()
			return nil, fmt.Errorf("sum16 0x%04X, want 0x%04X: %w", got, want, ErrChecksum)
		}
		f := &c.frame
		f.Proto = ProtoA
		f.Opcode = c.buf[2]
		f.Aux = uint16(c.buf[2])
		f.setRaw(c.buf[:c.idx], 4, c.payloadLen)
		c.reset()
		return f, nil

	default:
		c.reset()
		return nil, nil
	}
}

// BuildFrameA encodes a complete variant A frame ready for transmission.
func BuildFrameA(opcode byte, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, AHeader1, AHeader2, opcode, byte(len(payload)))
	frame = append(frame, payload...)
	ck := Sum16(frame)
	frame = append(frame, byte(ck), byte(ck>>8), ACR, ALF)
	return frame
}
