// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

// Frame is one complete, checksum-valid protocol message captured off the
// wire. The buffer is fixed-capacity: frames are copied by value between
// contexts and never heap-share their bytes.
type Frame struct {
	Buf    [MaxFrameSize]byte
	Len    int
	Proto  Protocol
	Opcode byte
	// Aux carries a protocol-specific 16-bit value: the request id for
	// variant D replies, the header byte for variant C.
	Aux uint16
	// Capture is a monotonically increasing sequence number assigned by
	// the recognizer set at capture time.
	Capture uint32

	payloadOff int
	payloadLen int
}

// Bytes returns the raw frame bytes.
func (f *Frame) Bytes() []byte {
	return f.Buf[:f.Len]
}

// Payload returns the payload section of the frame. For variant D frames,
// which have no structural payload, this is the whole frame minus the
// checksum byte.
func (f *Frame) Payload() []byte {
	return f.Buf[f.payloadOff : f.payloadOff+f.payloadLen]
}

// setRaw copies raw bytes into the frame buffer and records the payload
// window. Callers guarantee n <= MaxFrameSize.
func (f *Frame) setRaw(raw []byte, payloadOff, payloadLen int) {
	f.Len = copy(f.Buf[:], raw)
	f.payloadOff = payloadOff
	f.payloadLen = payloadLen
}
