// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

// Package motorwire implements frame recognition and encoding for the four
// motor-controller wire protocols found on OEM e-bike UART links.
//
// The protocol in use is not known in advance: all four recognizers run
// byte-at-a-time on the same input stream, and each independently reports
// complete, checksum-valid frames. See the Set type.
package motorwire

// Protocol identifies one of the four supported wire formats.
type Protocol uint8

// Protocol variants, in detection order.
const (
	ProtoNone Protocol = iota
	// ProtoA: length-prefixed, 16-bit additive checksum, CR/LF terminated.
	ProtoA
	// ProtoB: length-prefixed, XOR checksum, no terminator.
	ProtoB
	// ProtoC: fixed-size, XOR checksum, single-byte terminator. Legacy
	// 1200-baud link.
	ProtoC
	// ProtoD: headerless short fixed-length frames, additive checksum.
	ProtoD

	protoCount = 5 // including ProtoNone
)

// ProtocolCount is the number of real protocol variants.
const ProtocolCount = 4

// String returns a short protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtoA:
		return "A"
	case ProtoB:
		return "B"
	case ProtoC:
		return "C"
	case ProtoD:
		return "D"
	default:
		return "none"
	}
}

// Frame size limits
const (
	MaxFrameSize   = 48
	MaxPayloadSize = 32
)

// Variant A framing
const (
	AHeader1 = 0x3A
	AHeader2 = 0x1A
	ACR      = 0x0D
	ALF      = 0x0A

	AMaxPayload = MaxPayloadSize
)

// Variant A opcodes
const (
	AOpStatus         = 0x52 // motor -> display periodic status
	AOpCommand        = 0x53 // display -> motor assist/flags command
	AOpSwitchProtocol = 0x60 // motor -> display in-band protocol switch request
)

// Variant A command flags byte layout
const (
	AFlagSpeedOver  = 1 << 0
	AFlagWalk       = 1 << 4
	AFlagBatteryLow = 1 << 5
	AFlagLight      = 1 << 7
)

// Variant B framing. The length byte counts the whole frame including the
// trailing XOR checksum byte.
const (
	BHeader    = 0x41
	BMinLength = 4
	BMaxLength = MaxFrameSize
)

// Variant B opcodes
const (
	BOpStatus  = 0x30 // motor -> display unsolicited status
	BOpCommand = 0x31 // display -> motor periodic command
)

// Variant C framing: fixed six-byte frames, one of two header bytes,
// XOR checksum over the bytes strictly between header and checksum.
const (
	CHeaderCmd   = 0x10 // display -> motor
	CHeaderReply = 0x11 // motor -> display
	CTerminator  = 0x0D
	CFrameSize   = 6
)

// Variant C command field packing (first payload byte)
const (
	CAssistMask = 0x0F
	CAssistOff  = 0x0F // assist 0 is reserved on the wire; max nibble means off
	CWalkBit    = 1 << 4
	CLightBit   = 1 << 5
	CSpeedBias  = 10 // 5-bit speed field is mph minus this offset
	CSpeedMask  = 0x1F
	CWheelShift = 5
)

// Variant D framing: no header, completion by expected length plus a
// passing additive checksum. The biased relation adds a constant the OEM
// firmware folds into certain replies.
const (
	DMinFrame     = 3
	DMaxFrame     = 5
	DWindowSize   = 5
	DChecksumBias = 0x02
)

// Variant D request ids. Each id has a fixed request body and a known
// expected reply length used to arm the request-aligned capture.
const (
	DReqStatus  = 0x01
	DReqVoltage = 0x02
	DReqSpeed   = 0x03
)
