// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

import "fmt"

// Variant D has no structural framing at all: replies are short
// fixed-length byte runs whose last byte satisfies one of two additive
// relations over the preceding bytes (the OEM firmware computes a
// "primary" plain sum and a "biased" sum offset by DChecksumBias).
//
// Two capture modes:
//
//   - Request-aligned: arm() is called with the exact expected reply
//     length immediately before the matching request is sent; the next n
//     bytes are captured unconditionally and checked once.
//
//   - Sliding window: with nothing armed, a ring of the last DWindowSize
//     bytes is probed against every plausible length on each new byte.
//     This heuristic can in principle false-positive on coincidental byte
//     patterns from another protocol's traffic; the OEM firmware accepts
//     that risk and so do we, since the selector's confirmation threshold
//     absorbs a single spurious match.

type codecD struct {
	window [DWindowSize]byte
	filled int

	armed     bool
	expectLen int
	msgID     uint16
	abuf      [DMaxFrame]byte
	aidx      int

	frame Frame
}

func newCodecD() *codecD {
	return &codecD{}
}

func (c *codecD) proto() Protocol { return ProtoD }

func (c *codecD) reset() {
	c.filled = 0
	c.armed = false
	c.expectLen = 0
	c.aidx = 0
}

// arm switches to request-aligned capture for the next n bytes. Lengths
// outside the valid frame range leave the heuristic mode active.
func (c *codecD) arm(n int, id uint16) {
	if n < DMinFrame || n > DMaxFrame {
		return
	}
	c.armed = true
	c.expectLen = n
	c.msgID = id
	c.aidx = 0
	c.filled = 0
}

// disarm cancels a pending request-aligned capture without touching the
// sliding window.
func (c *codecD) disarm() {
	c.armed = false
	c.expectLen = 0
	c.aidx = 0
}

func (c *codecD) accept(b byte) (*Frame, error) {
	if c.armed {
		c.abuf[c.aidx] = b
		c.aidx++
		if c.aidx < c.expectLen {
			return nil, nil
		}
		n := c.expectLen
		c.armed = false
		c.aidx = 0
		if !dChecksumOK(c.abuf[:n]) {
			return nil, fmt.Errorf("armed %d-byte reply: %w", n, ErrChecksum)
		}
		return c.capture(c.abuf[:n], c.msgID), nil
	}

	// Sliding-window heuristic
	if c.filled < DWindowSize {
		c.window[c.filled] = b
		c.filled++
	} else {
		copy(c.window[:], c.window[1:])
		c.window[DWindowSize-1] = b
	}
	for n := DMinFrame; n <= DMaxFrame; n++ {
		if n > c.filled {
			break
		}
		tail := c.window[c.filled-n : c.filled]
		if dChecksumOK(tail) {
			return c.capture(tail, 0), nil
		}
	}
	return nil, nil
}

func (c *codecD) capture(raw []byte, id uint16) *Frame {
	f := &c.frame
	f.Proto = ProtoD
	f.Opcode = raw[0]
	f.Aux = id
	f.setRaw(raw, 0, len(raw)-1)
	c.filled = 0
	return f
}

func dChecksumOK(raw []byte) bool {
	got := raw[len(raw)-1]
	sum := Sum8(raw[:len(raw)-1], 0)
	return got == sum || got == sum+DChecksumBias
}

// dRequest describes one entry of the variant D request table.
type dRequest struct {
	body     []byte // request bytes before the checksum
	biased   bool   // use the biased additive relation
	replyLen int    // expected reply length, used to arm the capture
}

// dRequests is the per-request-id table of variant D commands.
var dRequests = map[uint8]dRequest{
	DReqStatus:  {body: []byte{0x11, DReqStatus}, replyLen: 5},
	DReqVoltage: {body: []byte{0x11, DReqVoltage}, biased: true, replyLen: 3},
	DReqSpeed:   {body: []byte{0x11, DReqSpeed}, replyLen: 4},
}

// BuildRequestD encodes the variant D request for the given id and
// returns the request bytes plus the expected reply length for arming the
// request-aligned capture. Unknown ids return ok=false.
func BuildRequestD(id uint8) (req []byte, replyLen int, ok bool) {
	r, ok := dRequests[id]
	if !ok {
		return nil, 0, false
	}
	var bias byte
	if r.biased {
		bias = DChecksumBias
	}
	req = make([]byte, 0, len(r.body)+1)
	req = append(req, r.body...)
	req = append(req, Sum8(r.body, bias))
	return req, r.replyLen, true
}
