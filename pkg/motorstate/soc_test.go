// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorstate

import "testing"

func TestSOCForVoltage_BreakPoints(t *testing.T) {
	tests := []struct {
		name     string
		nominal  int
		tenths   uint16
		expected uint8
	}{
		{"48V full", 48, 546, 100},
		{"48V documented break point", 48, 514, 90},
		{"48V half", 48, 450, 50},
		{"48V empty", 48, 378, 0},
		{"36V full", 36, 420, 100},
		{"36V empty", 36, 293, 0},
		{"24V break point", 24, 277, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SOCForVoltage(tt.nominal, tt.tenths); got != tt.expected {
				t.Errorf("SOCForVoltage(%d, %d) = %d%%, want %d%%", tt.nominal, tt.tenths, got, tt.expected)
			}
		})
	}
}

func TestSOCForVoltage_Interpolation(t *testing.T) {
	// Halfway between 53.0 V (95%) and 54.6 V (100%) on the 48 V curve.
	if got := SOCForVoltage(48, 538); got != 98 {
		t.Errorf("SOC at 53.8 V = %d%%, want 98%% (97.5 rounded)", got)
	}
	// Quarter of the way from 51.4 V (90%) toward 53.0 V (95%).
	if got := SOCForVoltage(48, 518); got != 91 {
		t.Errorf("SOC at 51.8 V = %d%%, want 91%%", got)
	}
}

func TestSOCForVoltage_Saturation(t *testing.T) {
	if got := SOCForVoltage(48, 600); got != 100 {
		t.Errorf("SOC above curve = %d%%, want 100%%", got)
	}
	if got := SOCForVoltage(48, 100); got != 0 {
		t.Errorf("SOC below curve = %d%%, want 0%%", got)
	}
}

func TestSOCForVoltage_UnknownClassFallsBackTo36V(t *testing.T) {
	if got, want := SOCForVoltage(52, 420), SOCForVoltage(36, 420); got != want {
		t.Errorf("unknown class SOC = %d%%, want %d%%", got, want)
	}
}
