// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorlink

import (
	"testing"
	"time"
)

func TestEventQueue_FIFO(t *testing.T) {
	var q EventQueue
	ts := time.Unix(1000, 0)
	for i := 0; i < 5; i++ {
		if !q.Push(Event{Kind: EventFrameCaptured, Payload: uint16(i), Timestamp: ts}) {
			t.Fatalf("push %d failed on a non-full queue", i)
		}
	}
	for i := 0; i < 5; i++ {
		ev, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if ev.Payload != uint16(i) {
			t.Fatalf("pop %d returned payload %d, want %d", i, ev.Payload, i)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop succeeded on an empty queue")
	}
}

func TestEventQueue_OverflowDropsNewest(t *testing.T) {
	var q EventQueue
	for i := 0; i < eventQueueSize; i++ {
		if !q.Push(Event{Payload: uint16(i)}) {
			t.Fatalf("push %d failed while filling", i)
		}
	}
	if q.Push(Event{Payload: 0xFFFF}) {
		t.Fatal("push succeeded on a full queue")
	}
	if q.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", q.Dropped())
	}

	// The queued events survive intact; the overflow event is gone.
	ev, ok := q.Pop()
	if !ok || ev.Payload != 0 {
		t.Fatalf("oldest event disturbed by overflow: %+v ok=%v", ev, ok)
	}
}

func TestEventQueue_DropCounterAccumulates(t *testing.T) {
	var q EventQueue
	for i := 0; i < eventQueueSize; i++ {
		q.Push(Event{})
	}
	for i := 0; i < 3; i++ {
		q.Push(Event{})
	}
	if q.Dropped() != 3 {
		t.Fatalf("dropped = %d, want 3", q.Dropped())
	}
}

func TestEventQueue_Drain(t *testing.T) {
	var q EventQueue
	q.Push(Event{Kind: EventReady})
	q.Push(Event{Kind: EventTimeout})

	var kinds []EventKind
	q.Drain(func(ev Event) { kinds = append(kinds, ev.Kind) })

	if len(kinds) != 2 || kinds[0] != EventReady || kinds[1] != EventTimeout {
		t.Fatalf("drained %v, want [READY TIMEOUT]", kinds)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("queue not empty after drain")
	}
}

func TestEventQueue_ReusableAfterWraparound(t *testing.T) {
	var q EventQueue
	for round := 0; round < 4; round++ {
		for i := 0; i < eventQueueSize; i++ {
			if !q.Push(Event{Payload: uint16(round*100 + i)}) {
				t.Fatalf("round %d push %d failed", round, i)
			}
		}
		for i := 0; i < eventQueueSize; i++ {
			ev, ok := q.Pop()
			if !ok || ev.Payload != uint16(round*100+i) {
				t.Fatalf("round %d pop %d: %+v ok=%v", round, i, ev, ok)
			}
		}
	}
	if q.Dropped() != 0 {
		t.Fatalf("dropped = %d, want 0", q.Dropped())
	}
}
