// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

// Package motorstate maps between the protocol-independent command/status
// model of the display and the wire formats of the motor controller. The
// Encoder builds outbound command frames for whichever protocol the link
// has locked onto; the Tracker decodes validated inbound frames into
// engineering-unit status.
package motorstate

// CommandState is the protocol-independent command model supplied by the
// assist/walk/headlight collaborators each control-loop tick. The encoder
// reads it, never mutates it.
type CommandState struct {
	AssistLevel int // 0 = off, 1..GearCount
	Headlight   bool
	WalkAssist  bool
	BatteryLow  bool
	SpeedOver   bool
}

// Profile carries the per-ride configuration the encoders and decoder
// need. It is read-only per tick.
type Profile struct {
	GearCount            int  // virtual gear count presented to the rider, 1..12
	WheelCircumferenceMM int  // for speed derivation
	WheelDiameterCode    byte // variant B wheel code
	WheelSizeCode        byte // variant C wheel code, 3 bits
	SpeedCapMph          int
	CurrentCapAmps       int
	NominalVoltage       int  // battery class: 24, 36 or 48
	BFeatureBits         byte // variant B flags low bits, from feature toggles
}

// oemGearCounts are the only assist-level counts motor-controller
// firmwares actually support.
var oemGearCounts = [...]int{1, 3, 5, 6, 9}

// CollapseGearCount maps a virtual gear count (1..12) to the nearest
// OEM-supported count. Ties favor the larger count, so 4 collapses to 5
// and 7 collapses to 6.
func CollapseGearCount(virtual int) int {
	if virtual < 1 {
		virtual = 1
	}
	if virtual > 12 {
		virtual = 12
	}
	best := oemGearCounts[0]
	bestDist := abs(virtual - best)
	for _, c := range oemGearCounts[1:] {
		d := abs(virtual - c)
		if d <= bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// assistTables translate an OEM gear index into the assist byte the motor
// controller expects. Index 0 is "off"; the entry one past the top gear is
// the walk-assist code.
var assistTables = map[int][]byte{
	1: {0x00, 0x28, 0x30},
	3: {0x00, 0x0C, 0x1C, 0x28, 0x30},
	5: {0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30},
	6: {0x00, 0x07, 0x0E, 0x15, 0x1C, 0x23, 0x28, 0x30},
	9: {0x00, 0x05, 0x0A, 0x0F, 0x14, 0x19, 0x1E, 0x23, 0x26, 0x28, 0x30},
}

// collapseIndex rescales a virtual gear index onto the collapsed OEM
// count, rounding to nearest.
func collapseIndex(virtualCount, level, oemCount int) int {
	if virtualCount < 1 {
		virtualCount = 1
	}
	if level <= 0 {
		return 0
	}
	if level > virtualCount {
		level = virtualCount
	}
	idx := (level*oemCount + virtualCount/2) / virtualCount
	if idx < 1 {
		idx = 1 // a nonzero virtual gear never collapses to "off"
	}
	if idx > oemCount {
		idx = oemCount
	}
	return idx
}

// MapAssist translates the rider-facing assist level into the single byte
// the motor controller expects. Walk-assist maps to one index past the
// top of the gear table.
func MapAssist(virtualCount, level int, walk bool) byte {
	count := CollapseGearCount(virtualCount)
	table := assistTables[count]
	if walk {
		return table[len(table)-1]
	}
	return table[collapseIndex(virtualCount, level, count)]
}

// powerTables derive variant B's "power level" byte from the assist gear.
// The OEM firmware ships distinct tables for 3-, 5- and 9-gear profiles;
// other counts are collapsed onto the nearest of those three.
var powerTables = map[int][]byte{
	3: {0x00, 0x21, 0x43, 0x64},
	5: {0x00, 0x14, 0x28, 0x3C, 0x50, 0x64},
	9: {0x00, 0x0B, 0x16, 0x21, 0x2C, 0x38, 0x43, 0x4E, 0x59, 0x64},
}

// bPowerCounts are the gear counts variant B has power tables for.
var bPowerCounts = [...]int{3, 5, 9}

// walkPowerLevel is the fixed low power variant B commands during
// walk-assist.
const walkPowerLevel = 0x0A

// PowerLevel derives the variant B power byte from the assist gear index.
func PowerLevel(virtualCount, level int, walk bool) byte {
	if walk {
		return walkPowerLevel
	}
	count := bPowerCounts[0]
	bestDist := abs(CollapseGearCount(virtualCount) - count)
	for _, c := range bPowerCounts[1:] {
		d := abs(CollapseGearCount(virtualCount) - c)
		if d <= bestDist {
			count = c
			bestDist = d
		}
	}
	return powerTables[count][collapseIndex(virtualCount, level, count)]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
