// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"testing"
	"time"

	"github.com/openebike/linkview/pkg/motorwire"
)

func TestTiming_RequestResponseCycle(t *testing.T) {
	var tm Timing
	t0 := time.Unix(100, 0)

	if tm.State() != StateIdle {
		t.Fatalf("initial state %s, want IDLE", tm.State())
	}
	if !tm.CanSend(motorwire.ProtoA, true, t0) {
		t.Fatal("first send blocked")
	}

	tm.NoteSent(t0, true)
	if tm.State() != StateWaitResponse {
		t.Fatalf("state after send %s, want WAIT_RESPONSE", tm.State())
	}
	if tm.CanSend(motorwire.ProtoA, true, t0.Add(time.Second)) {
		t.Fatal("send allowed with a response outstanding")
	}

	tm.NoteRxByte(t0.Add(20 * time.Millisecond))
	if tm.State() != StateRxActive {
		t.Fatalf("state after rx byte %s, want RX_ACTIVE", tm.State())
	}

	tm.NoteFrame(t0.Add(30 * time.Millisecond))
	if tm.State() != StateIdle {
		t.Fatalf("state after frame %s, want IDLE", tm.State())
	}
}

func TestTiming_SendIntervalGate(t *testing.T) {
	var tm Timing
	t0 := time.Unix(100, 0)
	tm.NoteSent(t0, false)

	interval := SendInterval(motorwire.ProtoA)
	if tm.CanSend(motorwire.ProtoA, false, t0.Add(interval-time.Millisecond)) {
		t.Fatal("send allowed before the minimum interval")
	}
	if !tm.CanSend(motorwire.ProtoA, false, t0.Add(interval)) {
		t.Fatal("send blocked at exactly the minimum interval")
	}
}

func TestTiming_PerProtocolIntervals(t *testing.T) {
	cases := []struct {
		proto motorwire.Protocol
		want  time.Duration
	}{
		{motorwire.ProtoA, 100 * time.Millisecond},
		{motorwire.ProtoB, 100 * time.Millisecond},
		{motorwire.ProtoC, 150 * time.Millisecond},
		{motorwire.ProtoD, 60 * time.Millisecond},
		{motorwire.ProtoNone, 100 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := SendInterval(tc.proto); got != tc.want {
			t.Errorf("SendInterval(%s) = %v, want %v", tc.proto, got, tc.want)
		}
	}
}

func TestTiming_TimeoutBoundary(t *testing.T) {
	var tm Timing
	t0 := time.Unix(100, 0)
	tm.NoteSent(t0, true)

	if tm.CheckTimeout(t0.Add(RxTimeout - time.Millisecond)) {
		t.Fatal("timeout fired before the deadline")
	}
	if tm.State() != StateWaitResponse {
		t.Fatalf("early check disturbed state: %s", tm.State())
	}
	if !tm.CheckTimeout(t0.Add(RxTimeout)) {
		t.Fatal("timeout did not fire at the deadline")
	}
	if tm.State() != StateIdle {
		t.Fatalf("state after timeout %s, want IDLE", tm.State())
	}
}

func TestTiming_TimeoutMeasuredFromSend(t *testing.T) {
	// Receive activity moves the state machine but not the deadline: a
	// partial frame that never completes still times out.
	var tm Timing
	t0 := time.Unix(100, 0)
	tm.NoteSent(t0, true)
	tm.NoteRxByte(t0.Add(150 * time.Millisecond))

	if !tm.CheckTimeout(t0.Add(RxTimeout)) {
		t.Fatal("timeout suppressed by a stray rx byte")
	}
}

func TestTiming_IdleNeverTimesOut(t *testing.T) {
	var tm Timing
	if tm.CheckTimeout(time.Unix(9999, 0)) {
		t.Fatal("timeout fired while idle")
	}
}

func TestTiming_FireAndForgetStaysIdle(t *testing.T) {
	var tm Timing
	t0 := time.Unix(100, 0)
	tm.NoteSent(t0, false)
	if tm.State() != StateIdle {
		t.Fatalf("state after fire-and-forget send %s, want IDLE", tm.State())
	}
	if tm.CheckTimeout(t0.Add(time.Hour)) {
		t.Fatal("timeout fired after a fire-and-forget send")
	}
}
