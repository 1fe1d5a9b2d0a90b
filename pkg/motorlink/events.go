// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"math"
	"sync/atomic"
	"time"
)

// EventKind classifies link events.
type EventKind uint8

// Event kinds produced by the link task.
const (
	// EventReady signals the link has (re)configured itself for a
	// protocol; payload is the protocol tag.
	EventReady EventKind = iota
	// EventFrameCaptured signals a new frame in the exchange slot;
	// payload is protocol<<8 | opcode.
	EventFrameCaptured
	// EventProtocolError signals a variant A structural or checksum
	// failure; payload is the protocol tag.
	EventProtocolError
	// EventTimeout signals the response timeout expired; payload is the
	// timing state the machine was forced out of.
	EventTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "READY"
	case EventFrameCaptured:
		return "FRAME_CAPTURED"
	case EventProtocolError:
		return "PROTOCOL_ERROR"
	case EventTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Event is one link notification, consumed exactly once.
type Event struct {
	Kind      EventKind
	Payload   uint16
	Timestamp time.Time
}

// eventQueueSize must be a power of two.
const eventQueueSize = 16

// EventQueue is a bounded single-producer/single-consumer FIFO. The link
// task pushes, the control loop pops; a full queue drops the newest event
// and bumps a saturating counter, so the producer never blocks.
type EventQueue struct {
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint32
	slots   [eventQueueSize]Event
}

// Push enqueues an event. Returns false when the queue is full and the
// event was dropped. Link task only.
func (q *EventQueue) Push(ev Event) bool {
	t := q.tail.Load()
	h := q.head.Load()
	if t-h >= eventQueueSize {
		if d := q.dropped.Load(); d < math.MaxUint32 {
			q.dropped.Store(d + 1)
		}
		return false
	}
	q.slots[t%eventQueueSize] = ev
	q.tail.Store(t + 1)
	return true
}

// Pop dequeues the oldest event. Control loop only.
func (q *EventQueue) Pop() (Event, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return Event{}, false
	}
	ev := q.slots[h%eventQueueSize]
	q.head.Store(h + 1)
	return ev, true
}

// Drain pops every queued event through the handler. Control loop only.
func (q *EventQueue) Drain(handler func(Event)) {
	for {
		ev, ok := q.Pop()
		if !ok {
			return
		}
		handler(ev)
	}
}

// Dropped returns the saturating count of events lost to overflow.
func (q *EventQueue) Dropped() uint32 {
	return q.dropped.Load()
}
