// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

import "fmt"

// FormatFrame formats a captured frame into a human-readable string
func FormatFrame(f *Frame) string {
	result := fmt.Sprintf("proto=%s %s (0x%02X) len=%d seq=%d\n",
		f.Proto, FormatOpcode(f.Proto, f.Opcode), f.Opcode, f.Len, f.Capture)
	if len(f.Payload()) > 0 {
		result += "  Payload: "
		for i, b := range f.Payload() {
			if i > 0 && i%16 == 0 {
				result += "\n           "
			}
			result += fmt.Sprintf("%02X ", b)
		}
		result += "\n"
	}
	return result
}

// FormatOpcode returns the human-readable name for an opcode of the given
// protocol
func FormatOpcode(p Protocol, opcode byte) string {
	switch p {
	case ProtoA:
		switch opcode {
		case AOpStatus:
			return "STATUS"
		case AOpCommand:
			return "COMMAND"
		case AOpSwitchProtocol:
			return "SWITCH_PROTOCOL"
		}
	case ProtoB:
		switch opcode {
		case BOpStatus:
			return "STATUS"
		case BOpCommand:
			return "COMMAND"
		}
	case ProtoC:
		switch opcode {
		case CHeaderCmd:
			return "COMMAND"
		case CHeaderReply:
			return "REPLY"
		}
	case ProtoD:
		switch opcode {
		case DReqStatus:
			return "STATUS"
		case DReqVoltage:
			return "VOLTAGE"
		case DReqSpeed:
			return "SPEED"
		}
	}
	return "UNKNOWN"
}
