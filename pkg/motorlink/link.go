// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openebike/linkview/pkg/motorstate"
	"github.com/openebike/linkview/pkg/motorwire"
)

// maxRxPerTick bounds how many received bytes one tick consumes, so a
// flooded receive buffer cannot starve the transmit and timeout paths.
const maxRxPerTick = 32

// probeRotateInterval is how long the control loop listens on one
// candidate protocol's bit rate before rotating to the next while
// auto-detection has not locked.
const probeRotateInterval = 500 * time.Millisecond

// Link drives one motor controller connection. Two goroutines share it:
// Tick is the time-critical link task (5ms cadence) and Poll is the
// control loop (20ms cadence). They communicate only through the seqlock
// frame slot, the event queue, the transmit slot and a pair of atomics;
// neither ever blocks on the other. Run starts both.
type Link struct {
	transport Transport

	// Link-task state.
	set    *motorwire.Set
	timing Timing

	// Handoff structures.
	slot   FrameSlot
	events EventQueue
	tx     TxSlot

	// wireProto is the protocol the link task is configured for (bit
	// rate, parser expectations). Written by the control loop, applied
	// by the link task when resetParse is set.
	wireProto  atomic.Uint32
	resetParse atomic.Bool

	stats *Statistics

	// Control-loop state. mu guards everything the public override and
	// query methods share with the control loop: selector, encoder,
	// tracker, probe rotation and the rider command state.
	mu         sync.Mutex
	selector   *Selector
	encoder    *motorstate.Encoder
	tracker    *motorstate.Tracker
	profile    motorstate.Profile
	probeProto motorwire.Protocol
	probeSince time.Time
	cmd        motorstate.CommandState

	// lastCapture is touched by Poll only.
	lastCapture uint32

	// Observers, set before Run, called on the control loop goroutine.
	onEvent func(Event)
	onFrame func(*motorwire.Frame, time.Time)
}

// SetEventHandler installs an observer for link events. Call before Run.
func (l *Link) SetEventHandler(fn func(Event)) {
	l.onEvent = fn
}

// SetFrameHandler installs an observer for newly captured frames. Call
// before Run.
func (l *Link) SetFrameHandler(fn func(*motorwire.Frame, time.Time)) {
	l.onFrame = fn
}

// NewLink creates a link over the given transport. The configuration
// supplies the rider profile and an optional forced protocol.
func NewLink(t Transport, cfg Config) *Link {
	l := &Link{
		transport:  t,
		set:        motorwire.NewSet(),
		stats:      NewStatistics(),
		selector:   NewSelector(cfg.ForcedProtocol()),
		encoder:    motorstate.NewEncoder(),
		tracker:    motorstate.NewTracker(),
		profile:    cfg.Profile(),
		probeProto: motorwire.ProtoA,
	}
	if p, locked := l.selector.Active(); locked {
		l.requestWireConfig(p)
	} else {
		l.requestWireConfig(l.probeProto)
	}
	return l
}

// requestWireConfig asks the link task to reconfigure for a protocol.
// The actual bit-rate change and parser reset happen inside Tick so the
// transport stays single-owner.
func (l *Link) requestWireConfig(p motorwire.Protocol) {
	l.wireProto.Store(uint32(p))
	l.resetParse.Store(true)
}

// Tick runs one iteration of the time-critical link task. Call it every
// TickInterval from a dedicated goroutine; it never blocks.
func (l *Link) Tick(now time.Time) {
	if l.resetParse.Swap(false) {
		p := motorwire.Protocol(l.wireProto.Load())
		l.set.Reset()
		l.timing.Reset()
		// A frame staged for the previous wire configuration must not
		// go out after the switch.
		if l.tx.Pending() && l.tx.proto != p {
			l.tx.release()
		}
		if err := l.transport.SetBitRate(BitRateFor(p)); err == nil {
			l.events.Push(Event{Kind: EventReady, Payload: uint16(p), Timestamp: now})
		}
	}

	for i := 0; i < maxRxPerTick && l.transport.ByteAvailable(); i++ {
		b, err := l.transport.ReadByte()
		if err != nil {
			break
		}
		l.timing.NoteRxByte(now)
		frame, perr := l.set.AcceptByte(b)
		if perr != nil {
			if errors.Is(perr, motorwire.ErrChecksum) {
				l.stats.noteChecksumError()
			} else {
				l.stats.noteStructural()
			}
			l.events.Push(Event{Kind: EventProtocolError, Payload: uint16(motorwire.ProtoA), Timestamp: now})
		}
		if frame != nil {
			l.slot.Publish(frame)
			l.timing.NoteFrame(now)
			l.stats.noteCapture(frame.Proto)
			l.events.Push(Event{
				Kind:      EventFrameCaptured,
				Payload:   uint16(frame.Proto)<<8 | uint16(frame.Opcode),
				Timestamp: now,
			})
		}
	}

	prev := l.timing.State()
	if l.timing.CheckTimeout(now) {
		l.set.Reset()
		l.stats.noteTimeout()
		l.events.Push(Event{Kind: EventTimeout, Payload: uint16(prev), Timestamp: now})
	}

	l.transmit(now)
	l.stats.setDroppedEvents(l.events.Dropped())
}

// transmit pushes the staged frame out byte by byte, polling transmitter
// readiness a bounded number of times per byte. A transmitter that never
// becomes ready costs an abandoned send, not a stalled tick.
func (l *Link) transmit(now time.Time) {
	if !l.tx.Pending() {
		return
	}
	if !l.timing.CanSend(l.tx.proto, l.tx.expectsReply, now) {
		return
	}

	// Arm the silent-variant capture immediately before the request
	// leaves, so the expected reply length cannot go stale.
	if l.tx.proto == motorwire.ProtoD && l.tx.replyLen > 0 {
		l.set.ArmExpect(l.tx.replyLen, l.tx.msgID)
	}

	for i := 0; i < l.tx.length; i++ {
		ready := false
		for attempt := 0; attempt < txPollAttempts; attempt++ {
			if l.transport.WriteReady() {
				ready = true
				break
			}
		}
		if !ready || l.transport.WriteByte(l.tx.buf[i]) != nil {
			// The request never went out; a live expectation would
			// capture unrelated bytes against it.
			if l.tx.proto == motorwire.ProtoD && l.tx.replyLen > 0 {
				l.set.DisarmExpect()
			}
			l.stats.noteAbandonedSend()
			l.tx.release()
			return
		}
	}

	l.timing.NoteSent(now, l.tx.expectsReply)
	l.tx.release()
}

// Poll runs one iteration of the control loop: consume events, pick up
// the latest captured frame, advance protocol detection and stage the
// next outbound command. Call it every PollInterval.
func (l *Link) Poll(now time.Time) {
	// The queue has to be consumed even with nobody watching, or it
	// overflows; the statistics counters already recorded everything.
	l.events.Drain(func(ev Event) {
		if l.onEvent != nil {
			l.onEvent(ev)
		}
	})

	var f motorwire.Frame
	if l.slot.Snapshot(&f) && f.Capture != l.lastCapture {
		l.lastCapture = f.Capture
		l.consumeFrame(&f, now)
	}

	l.rotateProbe(now)
	l.stageCommand()
}

// consumeFrame handles one newly captured frame on the control side.
func (l *Link) consumeFrame(f *motorwire.Frame, now time.Time) {
	if l.onFrame != nil {
		l.onFrame(f, now)
	}
	// In-band protocol switch: some head units command the display to
	// move to another variant mid-session.
	if f.Proto == motorwire.ProtoA && f.Opcode == motorwire.AOpSwitchProtocol {
		if pl := f.Payload(); len(pl) >= 1 && int(pl[0]) <= int(motorwire.ProtoD) {
			l.ForceProtocol(motorwire.Protocol(pl[0]))
			return
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if locked := l.selector.Observe(f.Proto); locked {
		l.applyProtocolLocked(f.Proto)
	}

	if active, ok := l.selector.Active(); ok && f.Proto == active {
		l.tracker.Decode(f, l.profile, now)
	}
}

// applyProtocolLocked commits a newly selected protocol: fresh encoder
// state and a wire reconfiguration request for the link task. Callers
// hold mu.
func (l *Link) applyProtocolLocked(p motorwire.Protocol) {
	l.encoder.Reset()
	l.requestWireConfig(p)
}

// rotateProbe cycles the listening bit rate through the candidate
// protocols while auto-detection has not locked. Detection itself is
// passive; the rotation only matters because one variant runs at a
// different physical speed and cannot be heard otherwise.
func (l *Link) rotateProbe(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, locked := l.selector.Active(); locked {
		return
	}
	if l.probeSince.IsZero() {
		l.probeSince = now
		return
	}
	if now.Sub(l.probeSince) < probeRotateInterval {
		return
	}
	l.probeSince = now
	if l.probeProto == motorwire.ProtoD {
		l.probeProto = motorwire.ProtoA
	} else {
		l.probeProto++
	}
	l.requestWireConfig(l.probeProto)
}

// stageCommand encodes the current command state for the active (or
// probed) protocol and hands it to the link task.
func (l *Link) stageCommand() {
	if l.tx.Pending() {
		return
	}

	l.mu.Lock()
	p, locked := l.selector.Active()
	if !locked {
		p = l.probeProto
	}
	out, err := l.encoder.Encode(p, l.cmd, l.profile)
	l.mu.Unlock()

	if err != nil {
		return
	}
	l.tx.Queue(p, out)
}

// ForceProtocol abandons detection and fixes the wire variant. Safe
// from any goroutine.
func (l *Link) ForceProtocol(p motorwire.Protocol) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selector.Force(p)
	l.applyProtocolLocked(p)
}

// SetAuto restarts automatic protocol detection from scratch. Safe from
// any goroutine.
func (l *Link) SetAuto() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selector.ResetAuto()
	l.probeProto = motorwire.ProtoA
	l.probeSince = time.Time{}
	l.requestWireConfig(l.probeProto)
}

// SetCommandState replaces the rider command state sent to the motor.
// Safe from any goroutine.
func (l *Link) SetCommandState(cs motorstate.CommandState) {
	l.mu.Lock()
	l.cmd = cs
	l.mu.Unlock()
}

// CommandState returns the current rider command state.
func (l *Link) CommandState() motorstate.CommandState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd
}

// Active returns the selected protocol and whether detection has locked.
// Safe from any goroutine.
func (l *Link) Active() (motorwire.Protocol, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selector.Active()
}

// Status returns the last decoded motor status and whether the link is
// live: a link with no valid status frame for the staleness window
// reports offline and the caller should present dashes, not numbers.
func (l *Link) Status(now time.Time) (motorstate.Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tracker.Status(), !l.tracker.Offline(now)
}

// Stats returns a snapshot of the link health counters.
func (l *Link) Stats() StatisticsSnapshot {
	return l.stats.Snapshot()
}

// Run drives the link until the context is cancelled: the link task on
// its own goroutine at TickInterval, the control loop on the calling
// goroutine at PollInterval.
func (l *Link) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Tick(now)
			}
		}
	}()

	poll := time.NewTicker(PollInterval)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			<-done
			return ctx.Err()
		case now := <-poll.C:
			l.Poll(now)
		}
	}
}
