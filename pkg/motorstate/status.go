// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorstate

import (
	"fmt"
	"math"
	"time"

	"github.com/openebike/linkview/pkg/motorwire"
)

// OfflineAfter is the staleness threshold: consumers treat the motor link
// as offline once the status record is at least this old.
const OfflineAfter = 500 * time.Millisecond

// Status is the decoded, engineering-unit motor status record consumed by
// telemetry and UI collaborators.
type Status struct {
	SpeedTenthsMph   uint16
	CurrentTenthsAmp uint16
	VoltageTenths    uint16
	SOC              uint8
	ErrorCode        uint8
	AssistEcho       uint8
	Updated          time.Time
}

// Motor error codes, normalized across protocols.
const (
	ErrCodeNone       = 0x00
	ErrCodeBrakeCut   = 0x02
	ErrCodeOvervolt   = 0x03
	ErrCodeUndervolt  = 0x04
	ErrCodeController = 0x06
	ErrCodeThrottle   = 0x07
	ErrCodeMotorHall  = 0x08
)

// bErrorPriority maps variant B status flag bits to error codes. The
// first matching bit in this order wins; independent bits do not combine.
var bErrorPriority = []struct {
	bit  byte
	code byte
}{
	{1 << 6, ErrCodeMotorHall},
	{1 << 5, ErrCodeThrottle},
	{1 << 3, ErrCodeController},
	{1 << 2, ErrCodeUndervolt},
	{1 << 1, ErrCodeOvervolt},
	{1 << 0, ErrCodeBrakeCut},
}

// voltageMask extracts the packed voltage sub-field from the low-order
// bits of the raw status word.
const voltageMask = 0x03FF

// currentScaleTenths converts the raw current code to tenths of an amp
// (one code step is 0.5 A).
const currentScaleTenths = 5

// Tracker turns validated inbound frames into a Status record, smoothing
// the battery voltage for state-of-charge derivation.
type Tracker struct {
	status     Status
	smoothed   float64
	haveSample bool
}

// NewTracker creates a status tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Status returns the last decoded status record.
func (tr *Tracker) Status() Status {
	return tr.status
}

// Offline reports whether the status record has gone stale.
func (tr *Tracker) Offline(now time.Time) bool {
	return tr.status.Updated.IsZero() || now.Sub(tr.status.Updated) >= OfflineAfter
}

// Decode extracts motor status from a captured frame. Frames that carry
// no status (commands, protocol switch requests) return ok=false without
// touching the record.
func (tr *Tracker) Decode(f *motorwire.Frame, prof Profile, now time.Time) (Status, bool, error) {
	switch f.Proto {
	case motorwire.ProtoA:
		return tr.decodeA(f, prof, now)
	case motorwire.ProtoB:
		return tr.decodeB(f, prof, now)
	case motorwire.ProtoC:
		return tr.decodeC(f, now)
	case motorwire.ProtoD:
		return tr.decodeD(f, prof, now)
	default:
		return Status{}, false, fmt.Errorf("no decoder for protocol %s", f.Proto)
	}
}

// Variant A status payload:
//
//	[0..1] packed status word, low 10 bits = battery voltage in 0.1 V
//	[2]    current code, 0.5 A per step
//	[3..4] wheel rotation period in ms, little-endian
//	[5]    error code
//	[6]    assist level echo
func (tr *Tracker) decodeA(f *motorwire.Frame, prof Profile, now time.Time) (Status, bool, error) {
	if f.Opcode != motorwire.AOpStatus {
		return Status{}, false, nil
	}
	p := f.Payload()
	if len(p) < 7 {
		return Status{}, false, fmt.Errorf("status payload %d bytes, want >= 7", len(p))
	}
	raw := uint16(p[0]) | uint16(p[1])<<8
	tr.status.VoltageTenths = raw & voltageMask
	tr.status.CurrentTenthsAmp = uint16(p[2]) * currentScaleTenths
	period := uint16(p[3]) | uint16(p[4])<<8
	tr.status.SpeedTenthsMph = speedFromPeriod(period, prof.WheelCircumferenceMM)
	tr.status.ErrorCode = p[5]
	tr.status.AssistEcho = p[6]
	tr.finish(now, prof)
	return tr.status, true, nil
}

// Variant B status payload shares variant A's field packing for voltage,
// current and wheel period, but reports errors as independent flag bits
// and carries two trailing bytes the OEM firmware always sends as 0x80
// 0x00 (OEM default, not fully understood).
func (tr *Tracker) decodeB(f *motorwire.Frame, prof Profile, now time.Time) (Status, bool, error) {
	if f.Opcode != motorwire.BOpStatus {
		return Status{}, false, nil
	}
	p := f.Payload()
	if len(p) < 7 {
		return Status{}, false, fmt.Errorf("status payload %d bytes, want >= 7", len(p))
	}
	raw := uint16(p[0]) | uint16(p[1])<<8
	tr.status.VoltageTenths = raw & voltageMask
	tr.status.CurrentTenthsAmp = uint16(p[2]) * currentScaleTenths
	period := uint16(p[3]) | uint16(p[4])<<8
	tr.status.SpeedTenthsMph = speedFromPeriod(period, prof.WheelCircumferenceMM)
	tr.status.ErrorCode = bErrorFromFlags(p[5])
	tr.status.AssistEcho = p[6]
	tr.finish(now, prof)
	return tr.status, true, nil
}

// Variant C replies carry only a coarse voltage code (0.2 V per step) and
// a flags byte.
func (tr *Tracker) decodeC(f *motorwire.Frame, now time.Time) (Status, bool, error) {
	if f.Opcode != motorwire.CHeaderReply {
		return Status{}, false, nil
	}
	p := f.Payload()
	tr.status.VoltageTenths = uint16(p[0]) * 2
	tr.status.ErrorCode = bErrorFromFlags(p[1])
	tr.finish(now, Profile{})
	return tr.status, true, nil
}

// Variant D replies are keyed by the request id the capture was armed
// with; unsolicited window captures (id 0) carry no decodable fields.
func (tr *Tracker) decodeD(f *motorwire.Frame, prof Profile, now time.Time) (Status, bool, error) {
	p := f.Payload()
	switch uint8(f.Aux) {
	case motorwire.DReqVoltage:
		if len(p) < 2 {
			return Status{}, false, fmt.Errorf("voltage reply %d bytes, want 2", len(p))
		}
		tr.status.VoltageTenths = uint16(p[0]) | uint16(p[1])<<8
	case motorwire.DReqSpeed:
		if len(p) < 3 {
			return Status{}, false, fmt.Errorf("speed reply %d bytes, want 3", len(p))
		}
		period := uint16(p[1]) | uint16(p[2])<<8
		tr.status.SpeedTenthsMph = speedFromPeriod(period, prof.WheelCircumferenceMM)
	case motorwire.DReqStatus:
		if len(p) < 4 {
			return Status{}, false, fmt.Errorf("status reply %d bytes, want 4", len(p))
		}
		tr.status.CurrentTenthsAmp = uint16(p[1]) * currentScaleTenths
		tr.status.ErrorCode = p[2]
		tr.status.AssistEcho = p[3]
	default:
		return Status{}, false, nil
	}
	tr.finish(now, prof)
	return tr.status, true, nil
}

// finish stamps the record and refreshes the smoothed-voltage SOC.
func (tr *Tracker) finish(now time.Time, prof Profile) {
	if tr.status.VoltageTenths > 0 {
		v := float64(tr.status.VoltageTenths)
		if !tr.haveSample {
			tr.smoothed = v
			tr.haveSample = true
		} else {
			tr.smoothed += (v - tr.smoothed) / 8
		}
		tr.status.SOC = SOCForVoltage(prof.NominalVoltage, uint16(math.Round(tr.smoothed)))
	}
	tr.status.Updated = now
}

func bErrorFromFlags(flags byte) byte {
	for _, e := range bErrorPriority {
		if flags&e.bit != 0 {
			return e.code
		}
	}
	return ErrCodeNone
}

// speedFromPeriod converts a wheel rotation period in milliseconds plus
// the configured wheel circumference into tenths of a mph. A zero or
// saturated period means the wheel is stopped.
func speedFromPeriod(periodMs uint16, circumferenceMM int) uint16 {
	if periodMs == 0 || periodMs == 0xFFFF || circumferenceMM <= 0 {
		return 0
	}
	// mm/ms is m/s; 1 m/s = 2.236936 mph.
	metersPerSecond := float64(circumferenceMM) / float64(periodMs)
	tenths := math.Round(metersPerSecond * 2.236936 * 10)
	if tenths < 0 {
		return 0
	}
	if tenths > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(tenths)
}
