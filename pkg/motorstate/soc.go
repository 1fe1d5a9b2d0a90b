// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorstate

import "math"

// State of charge is derived from the smoothed pack voltage against a
// per-nominal-voltage discharge curve. Each curve has 13 break points;
// between break points the percentage is linearly interpolated, and the
// extremes saturate at 100% and 0%.

// socPercents are the tabulated percentages shared by every voltage
// class, full to empty.
var socPercents = [13]uint8{100, 95, 90, 80, 70, 60, 50, 40, 30, 20, 10, 5, 0}

// socCurves hold the break-point voltages in tenths of a volt, full to
// empty, keyed by nominal pack voltage.
var socCurves = map[int][13]uint16{
	24: {294, 285, 277, 269, 261, 253, 245, 238, 231, 224, 217, 210, 203},
	36: {420, 407, 395, 383, 371, 359, 347, 338, 329, 320, 311, 302, 293},
	48: {546, 530, 514, 498, 482, 466, 450, 438, 426, 414, 402, 390, 378},
}

// SOCForVoltage returns the state of charge in percent for the given pack
// voltage (tenths of a volt). Unknown nominal voltages fall back to the
// 36 V curve.
func SOCForVoltage(nominalVoltage int, voltageTenths uint16) uint8 {
	curve, ok := socCurves[nominalVoltage]
	if !ok {
		curve = socCurves[36]
	}
	if voltageTenths >= curve[0] {
		return socPercents[0]
	}
	last := len(curve) - 1
	if voltageTenths <= curve[last] {
		return socPercents[last]
	}
	for i := 0; i < last; i++ {
		hi, lo := curve[i], curve[i+1]
		if voltageTenths >= lo {
			frac := float64(voltageTenths-lo) / float64(hi-lo)
			pct := float64(socPercents[i+1]) + frac*float64(socPercents[i]-socPercents[i+1])
			return uint8(math.Round(pct))
		}
	}
	return socPercents[last]
}
