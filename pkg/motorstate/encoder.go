// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorstate

import (
	"fmt"

	"github.com/openebike/linkview/pkg/motorwire"
)

// Outbound is one encoded command frame plus the reply expectation the
// timing state machine needs.
type Outbound struct {
	Bytes []byte
	// ExpectsReply selects the request/response path of the timing state
	// machine. Variant B status commands are fire-and-forget.
	ExpectsReply bool
	// ReplyLen, when nonzero, arms variant D's request-aligned capture
	// with the exact expected reply length.
	ReplyLen int
	MsgID    uint16
}

// Variant B command flags byte. Bit 7 is always set; the OEM firmware
// sends it on every observed frame and clears it never (OEM default, not
// fully understood).
const (
	bCmdFlagBase  = 0x80
	bCmdFlagLight = 1 << 6
	bCmdFlagWalk  = 1 << 5 // one-shot: pulsed for a single frame on walk start
)

// Variant B reserved trailer bytes (OEM default, not fully understood).
const (
	bCmdReserved5 = 0x14
	bCmdReserved6 = 0x00
)

// Encoder builds outbound command frames from CommandState for the active
// protocol. It is stateful: variant B's walk pulse is edge-triggered and
// variant D rotates through its request table.
type Encoder struct {
	walkPrev bool
	dNext    int
}

// dRotation is the order variant D requests are cycled in.
var dRotation = [...]uint8{
	motorwire.DReqStatus,
	motorwire.DReqVoltage,
	motorwire.DReqSpeed,
}

// NewEncoder creates a command encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Reset clears the encoder's edge-detection and rotation state. Call on
// protocol switches.
func (e *Encoder) Reset() {
	e.walkPrev = false
	e.dNext = 0
}

// Encode builds the next outbound frame for the given protocol.
func (e *Encoder) Encode(p motorwire.Protocol, cs CommandState, prof Profile) (Outbound, error) {
	switch p {
	case motorwire.ProtoA:
		return e.encodeA(cs, prof), nil
	case motorwire.ProtoB:
		return e.encodeB(cs, prof), nil
	case motorwire.ProtoC:
		return e.encodeC(cs, prof), nil
	case motorwire.ProtoD:
		return e.encodeD(), nil
	default:
		return Outbound{}, fmt.Errorf("no encoder for protocol %s", p)
	}
}

func (e *Encoder) encodeA(cs CommandState, prof Profile) Outbound {
	var flags byte
	if cs.Headlight {
		flags |= motorwire.AFlagLight
	}
	if cs.BatteryLow {
		flags |= motorwire.AFlagBatteryLow
	}
	if cs.WalkAssist {
		flags |= motorwire.AFlagWalk
	}
	if cs.SpeedOver {
		flags |= motorwire.AFlagSpeedOver
	}
	payload := []byte{
		MapAssist(prof.GearCount, cs.AssistLevel, cs.WalkAssist),
		flags,
	}
	return Outbound{
		Bytes:        motorwire.BuildFrameA(motorwire.AOpCommand, payload),
		ExpectsReply: true,
	}
}

func (e *Encoder) encodeB(cs CommandState, prof Profile) Outbound {
	flags := byte(bCmdFlagBase) | prof.BFeatureBits&0x0F
	if cs.Headlight {
		flags |= bCmdFlagLight
	}
	// Walk is signalled as a single-frame pulse on the rising edge; the
	// motor controller latches it itself.
	if cs.WalkAssist && !e.walkPrev {
		flags |= bCmdFlagWalk
	}
	e.walkPrev = cs.WalkAssist

	payload := []byte{
		prof.WheelDiameterCode,
		PowerLevel(prof.GearCount, cs.AssistLevel, cs.WalkAssist),
		byte(prof.SpeedCapMph),
		byte(prof.CurrentCapAmps),
		flags,
		bCmdReserved5,
		bCmdReserved6,
	}
	return Outbound{
		Bytes: motorwire.BuildFrameB(motorwire.BOpCommand, payload),
	}
}

func (e *Encoder) encodeC(cs CommandState, prof Profile) Outbound {
	count := CollapseGearCount(prof.GearCount)
	nibble := byte(collapseIndex(prof.GearCount, cs.AssistLevel, count)) & motorwire.CAssistMask
	if cs.AssistLevel <= 0 {
		// Assist 0 is reserved on this wire; it is encoded as the
		// maximum nibble value by OEM convention.
		nibble = motorwire.CAssistOff
	}
	b1 := nibble
	if cs.WalkAssist {
		b1 |= motorwire.CWalkBit
	}
	if cs.Headlight {
		b1 |= motorwire.CLightBit
	}

	speed := prof.SpeedCapMph - motorwire.CSpeedBias
	if speed < 0 {
		speed = 0
	}
	if speed > motorwire.CSpeedMask {
		speed = motorwire.CSpeedMask
	}
	b2 := byte(speed) | prof.WheelSizeCode<<motorwire.CWheelShift

	return Outbound{
		Bytes:        motorwire.BuildFrameC(motorwire.CHeaderCmd, b1, b2),
		ExpectsReply: true,
	}
}

func (e *Encoder) encodeD() Outbound {
	id := dRotation[e.dNext]
	e.dNext = (e.dNext + 1) % len(dRotation)
	req, replyLen, _ := motorwire.BuildRequestD(id)
	return Outbound{
		Bytes:        req,
		ExpectsReply: true,
		ReplyLen:     replyLen,
		MsgID:        uint16(id),
	}
}
