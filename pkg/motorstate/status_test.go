// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorstate

import (
	"testing"
	"time"

	"github.com/openebike/linkview/pkg/motorwire"
)

// captureFrame runs wire bytes through a recognizer set and returns the
// single frame of the wanted protocol.
func captureFrame(t *testing.T, s *motorwire.Set, wire []byte, want motorwire.Protocol) *motorwire.Frame {
	t.Helper()
	var got motorwire.Frame
	found := false
	for _, b := range wire {
		f, _ := s.AcceptByte(b)
		if f != nil && f.Proto == want {
			got = *f
			found = true
		}
	}
	if !found {
		t.Fatalf("no %s frame captured from % X", want, wire)
	}
	return &got
}

// statusPayloadA builds a variant A status payload with the given raw
// field values.
func statusPayloadA(voltageTenths uint16, currentCode byte, periodMs uint16, errCode, assist byte) []byte {
	return []byte{
		byte(voltageTenths), byte(voltageTenths >> 8),
		currentCode,
		byte(periodMs), byte(periodMs >> 8),
		errCode,
		assist,
	}
}

func TestDecodeA_Fields(t *testing.T) {
	now := time.Now()
	wire := motorwire.BuildFrameA(motorwire.AOpStatus, statusPayloadA(514, 20, 500, 0x05, 3))
	f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoA)

	st, ok, err := NewTracker().Decode(f, testProfile, now)
	if err != nil || !ok {
		t.Fatalf("decode failed: ok=%v err=%v", ok, err)
	}
	if st.VoltageTenths != 514 {
		t.Errorf("voltage = %d, want 514", st.VoltageTenths)
	}
	if st.CurrentTenthsAmp != 100 {
		t.Errorf("current = %d tenths, want 100", st.CurrentTenthsAmp)
	}
	// 2075 mm per rotation / 500 ms = 4.15 m/s = 9.28 mph
	if st.SpeedTenthsMph != 93 {
		t.Errorf("speed = %d tenths mph, want 93", st.SpeedTenthsMph)
	}
	if st.ErrorCode != 0x05 {
		t.Errorf("error code = 0x%02X, want 0x05", st.ErrorCode)
	}
	if st.AssistEcho != 3 {
		t.Errorf("assist echo = %d, want 3", st.AssistEcho)
	}
	// 51.4 V is an exact break point of the 48 V discharge curve.
	if st.SOC != 90 {
		t.Errorf("SOC = %d%%, want 90%%", st.SOC)
	}
	if !st.Updated.Equal(now) {
		t.Error("update timestamp not stamped")
	}
}

func TestDecodeA_PackedVoltageMasksHighBits(t *testing.T) {
	// High bits of the packed word are unrelated flags; only the low 10
	// bits are voltage.
	raw := uint16(0xA000) | 402
	wire := motorwire.BuildFrameA(motorwire.AOpStatus, statusPayloadA(raw, 0, 0, 0, 0))
	f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoA)
	st, _, err := NewTracker().Decode(f, testProfile, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if st.VoltageTenths != 402 {
		t.Errorf("voltage = %d, want 402", st.VoltageTenths)
	}
}

func TestDecode_ZeroPeriodMeansStopped(t *testing.T) {
	for _, period := range []uint16{0, 0xFFFF} {
		wire := motorwire.BuildFrameA(motorwire.AOpStatus, statusPayloadA(480, 0, period, 0, 0))
		f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoA)
		st, _, err := NewTracker().Decode(f, testProfile, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if st.SpeedTenthsMph != 0 {
			t.Errorf("period %d: speed = %d, want 0", period, st.SpeedTenthsMph)
		}
	}
}

func TestDecodeB_ErrorFlagPriority(t *testing.T) {
	tests := []struct {
		name     string
		flags    byte
		expected byte
	}{
		{"no flags", 0x00, ErrCodeNone},
		{"brake only", 0x01, ErrCodeBrakeCut},
		{"hall beats undervolt", 1<<6 | 1<<2, ErrCodeMotorHall},
		{"throttle beats brake", 1<<5 | 1<<0, ErrCodeThrottle},
		{"undervolt beats overvolt", 1<<2 | 1<<1, ErrCodeUndervolt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := statusPayloadA(480, 10, 400, tt.flags, 2)
			wire := motorwire.BuildFrameB(motorwire.BOpStatus, payload)
			f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoB)
			st, ok, err := NewTracker().Decode(f, testProfile, time.Now())
			if err != nil || !ok {
				t.Fatalf("decode failed: ok=%v err=%v", ok, err)
			}
			if st.ErrorCode != tt.expected {
				t.Errorf("error code = 0x%02X, want 0x%02X", st.ErrorCode, tt.expected)
			}
		})
	}
}

func TestDecodeD_VoltageReply(t *testing.T) {
	s := motorwire.NewSet()
	s.ArmExpect(3, motorwire.DReqVoltage)
	reply := []byte{0x92, 0x01, 0x00}
	reply[2] = motorwire.Sum8(reply[:2], 0)
	f := captureFrame(t, s, reply, motorwire.ProtoD)

	st, ok, err := NewTracker().Decode(f, testProfile, time.Now())
	if err != nil || !ok {
		t.Fatalf("decode failed: ok=%v err=%v", ok, err)
	}
	if st.VoltageTenths != 0x0192 {
		t.Errorf("voltage = %d, want %d", st.VoltageTenths, 0x0192)
	}
}

func TestDecode_CommandFramesCarryNoStatus(t *testing.T) {
	wire := motorwire.BuildFrameA(motorwire.AOpCommand, []byte{0x18, 0x80})
	f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoA)
	_, ok, err := NewTracker().Decode(f, testProfile, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("command frame decoded as status")
	}
}

func TestDecode_ShortPayloadRejected(t *testing.T) {
	wire := motorwire.BuildFrameA(motorwire.AOpStatus, []byte{0x01, 0x02})
	f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoA)
	if _, _, err := NewTracker().Decode(f, testProfile, time.Now()); err == nil {
		t.Error("expected error for truncated status payload")
	}
}

func TestTracker_Offline(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	if !tr.Offline(now) {
		t.Error("tracker with no samples must report offline")
	}

	wire := motorwire.BuildFrameA(motorwire.AOpStatus, statusPayloadA(480, 0, 0, 0, 0))
	f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoA)
	if _, _, err := tr.Decode(f, testProfile, now); err != nil {
		t.Fatal(err)
	}
	if tr.Offline(now.Add(100 * time.Millisecond)) {
		t.Error("fresh status reported offline")
	}
	if !tr.Offline(now.Add(OfflineAfter)) {
		t.Error("stale status not reported offline at the threshold")
	}
}

func TestTracker_VoltageSmoothingConverges(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	for i := 0; i < 64; i++ {
		wire := motorwire.BuildFrameA(motorwire.AOpStatus, statusPayloadA(514, 0, 0, 0, 0))
		f := captureFrame(t, motorwire.NewSet(), wire, motorwire.ProtoA)
		if _, _, err := tr.Decode(f, testProfile, now); err != nil {
			t.Fatal(err)
		}
	}
	if st := tr.Status(); st.SOC != 90 {
		t.Errorf("steady-state SOC = %d%%, want 90%%", st.SOC)
	}
}
