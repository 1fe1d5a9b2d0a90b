// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"github.com/openebike/linkview/pkg/motorwire"
)

// SelectorMode distinguishes runtime auto-detection from a forced
// protocol choice.
type SelectorMode uint8

// Selector modes.
const (
	SelectAuto SelectorMode = iota
	SelectForced
)

// ConfirmThreshold is how many confirmed captures of one protocol the
// selector requires before locking. Two is deliberately conservative: a
// single frame can be a coincidental match from another protocol's
// traffic (the variant D window heuristic in particular), and locking the
// bit rate onto noise is far more expensive than waiting one more frame.
const ConfirmThreshold = 2

// Bit rates. One historical variant runs its physical link at 1200 baud;
// everything else uses 9600.
const (
	bitRateDefault = 9600
	bitRateLegacy  = 1200
)

// BitRateFor returns the physical bit rate the given protocol runs at.
func BitRateFor(p motorwire.Protocol) int {
	if p == motorwire.ProtoC {
		return bitRateLegacy
	}
	return bitRateDefault
}

// Selector decides which protocol the attached motor controller speaks.
// Not safe for concurrent use; the Link serializes access under its
// mutex and the link task never touches it.
type Selector struct {
	mode   SelectorMode
	active motorwire.Protocol
	locked bool
	scores [motorwire.ProtocolCount + 1]uint8
}

// NewSelector creates a selector. Pass ProtoNone for auto-detection or a
// concrete protocol to force it from the start.
func NewSelector(forced motorwire.Protocol) *Selector {
	s := &Selector{}
	if forced != motorwire.ProtoNone {
		s.Force(forced)
	}
	return s
}

// Observe scores a newly captured frame's protocol. It returns true the
// moment the score reaches the confirmation threshold and the selector
// locks. Forced or already-locked selectors ignore observations.
func (s *Selector) Observe(p motorwire.Protocol) bool {
	if s.locked || s.mode == SelectForced || p == motorwire.ProtoNone {
		return false
	}
	if s.scores[p] < ConfirmThreshold {
		s.scores[p]++
	}
	if s.scores[p] >= ConfirmThreshold {
		s.locked = true
		s.active = p
		return true
	}
	return false
}

// Force fixes the active protocol immediately, bypassing detection. All
// scores reset. Also the documented recovery path when captures disagree
// after a lock: there is no automatic re-detection.
func (s *Selector) Force(p motorwire.Protocol) {
	s.mode = SelectForced
	s.active = p
	s.locked = true
	s.resetScores()
}

// ResetAuto returns the selector to auto-detection with cleared scores.
func (s *Selector) ResetAuto() {
	s.mode = SelectAuto
	s.active = motorwire.ProtoNone
	s.locked = false
	s.resetScores()
}

func (s *Selector) resetScores() {
	for i := range s.scores {
		s.scores[i] = 0
	}
}

// Active returns the active protocol and whether the selector has
// committed to it.
func (s *Selector) Active() (motorwire.Protocol, bool) {
	return s.active, s.locked
}

// Mode returns the selector mode.
func (s *Selector) Mode() SelectorMode {
	return s.mode
}

// Score returns the confirmation score of one protocol.
func (s *Selector) Score(p motorwire.Protocol) int {
	return int(s.scores[p])
}
