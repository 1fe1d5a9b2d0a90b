// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"time"

	"github.com/openebike/linkview/pkg/motorwire"
)

// LinkState is the request/response phase of the link.
type LinkState uint8

// Link states.
const (
	StateIdle LinkState = iota
	StateWaitResponse
	StateRxActive
)

func (s LinkState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWaitResponse:
		return "WAIT_RESPONSE"
	case StateRxActive:
		return "RX_ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Link cadence and timeout constants.
const (
	// TickInterval is the period of the time-critical link task.
	TickInterval = 5 * time.Millisecond
	// PollInterval is the coarser control-loop cadence.
	PollInterval = 20 * time.Millisecond
	// RxTimeout is how long after a request the link waits for a valid
	// frame before forcing the state machine back to idle.
	RxTimeout = 200 * time.Millisecond
	// txPollAttempts bounds the transmitter-ready polling during a send;
	// the link task abandons the send rather than stall.
	txPollAttempts = 8
)

// sendIntervals is the protocol-specific minimum spacing between
// outbound commands.
var sendIntervals = [...]time.Duration{
	motorwire.ProtoNone: 100 * time.Millisecond,
	motorwire.ProtoA:    100 * time.Millisecond,
	motorwire.ProtoB:    100 * time.Millisecond,
	motorwire.ProtoC:    150 * time.Millisecond,
	motorwire.ProtoD:    60 * time.Millisecond,
}

// SendInterval returns the minimum inter-send interval for a protocol.
func SendInterval(p motorwire.Protocol) time.Duration {
	if int(p) < len(sendIntervals) {
		return sendIntervals[p]
	}
	return sendIntervals[motorwire.ProtoNone]
}

// Timing is the link's request/response state machine. Mutated only by
// the link task.
type Timing struct {
	state   LinkState
	rxStart time.Time
	txLast  time.Time
}

// State returns the current phase.
func (tm *Timing) State() LinkState {
	return tm.state
}

// Reset forces the machine back to idle.
func (tm *Timing) Reset() {
	tm.state = StateIdle
	tm.rxStart = time.Time{}
}

// CanSend gates the next transmit: the protocol's minimum inter-send
// interval must have elapsed, and a request/response protocol must not
// have a request outstanding. Protocols without a response pattern run on
// the interval alone.
func (tm *Timing) CanSend(p motorwire.Protocol, expectsReply bool, now time.Time) bool {
	if expectsReply && tm.state != StateIdle {
		return false
	}
	return tm.txLast.IsZero() || now.Sub(tm.txLast) >= SendInterval(p)
}

// NoteSent records a completed transmit.
func (tm *Timing) NoteSent(now time.Time, expectsReply bool) {
	tm.txLast = now
	if expectsReply {
		tm.state = StateWaitResponse
		tm.rxStart = now
	}
}

// NoteRxByte records receive activity while a response is outstanding.
func (tm *Timing) NoteRxByte(now time.Time) {
	if tm.state == StateWaitResponse {
		tm.state = StateRxActive
	}
}

// NoteFrame records a successful capture, completing the exchange.
func (tm *Timing) NoteFrame(now time.Time) {
	if tm.state != StateIdle {
		tm.state = StateIdle
		tm.rxStart = time.Time{}
	}
}

// CheckTimeout reports whether the response timeout has expired, forcing
// the machine back to idle when it has. The caller clears in-flight parse
// buffers.
func (tm *Timing) CheckTimeout(now time.Time) bool {
	if tm.state == StateIdle {
		return false
	}
	if now.Sub(tm.rxStart) < RxTimeout {
		return false
	}
	tm.Reset()
	return true
}
