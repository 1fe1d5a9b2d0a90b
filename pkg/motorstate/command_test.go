// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorstate

import "testing"

func TestCollapseGearCount(t *testing.T) {
	tests := []struct {
		virtual  int
		expected int
	}{
		{1, 1},
		{2, 3}, // tie between 1 and 3 favors the larger
		{3, 3},
		{4, 5}, // tie between 3 and 5 favors the larger
		{5, 5},
		{6, 6},
		{7, 6}, // nearest of {6, 9}
		{8, 9},
		{9, 9},
		{10, 9},
		{12, 9},
		{0, 1},  // clamped
		{99, 9}, // clamped
	}
	for _, tt := range tests {
		if got := CollapseGearCount(tt.virtual); got != tt.expected {
			t.Errorf("CollapseGearCount(%d) = %d, want %d", tt.virtual, got, tt.expected)
		}
	}
}

func TestMapAssist_TableLookup(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		level    int
		walk     bool
		expected byte
	}{
		{"off", 5, 0, false, 0x00},
		{"5-gear mid", 5, 3, false, 0x18},
		{"5-gear top", 5, 5, false, 0x28},
		{"walk is one past the top", 5, 3, true, 0x30},
		{"7 gears collapse to 6, top still maps to top", 7, 7, false, 0x23},
		{"single gear on", 1, 1, false, 0x28},
		{"level beyond count clamps to top", 3, 9, false, 0x28},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapAssist(tt.count, tt.level, tt.walk); got != tt.expected {
				t.Errorf("MapAssist(%d, %d, %v) = 0x%02X, want 0x%02X",
					tt.count, tt.level, tt.walk, got, tt.expected)
			}
		})
	}
}

func TestMapAssist_NonzeroGearNeverCollapsesToOff(t *testing.T) {
	for count := 1; count <= 12; count++ {
		for level := 1; level <= count; level++ {
			if got := MapAssist(count, level, false); got == 0x00 {
				t.Errorf("MapAssist(%d, %d) collapsed to off", count, level)
			}
		}
	}
}

func TestPowerLevel(t *testing.T) {
	if got := PowerLevel(9, 9, false); got != 0x64 {
		t.Errorf("top gear power = 0x%02X, want 0x64", got)
	}
	if got := PowerLevel(9, 0, false); got != 0x00 {
		t.Errorf("assist off power = 0x%02X, want 0x00", got)
	}
	if got := PowerLevel(5, 3, true); got != walkPowerLevel {
		t.Errorf("walk power = 0x%02X, want 0x%02X", got, walkPowerLevel)
	}
	// 6 virtual gears have no dedicated power table; 5-gear is nearest.
	if got := PowerLevel(6, 6, false); got != 0x64 {
		t.Errorf("collapsed top gear power = 0x%02X, want 0x64", got)
	}
}
