// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

// Package motorlink drives the UART link to the motor controller: it owns
// the time-critical receive/transmit tick, the non-blocking handoff of
// captured frames to the control loop, runtime protocol selection, and
// the request/response timing state machine.
package motorlink

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Transport is the byte-level UART boundary supplied by the platform.
// All methods must be non-blocking: the link task polls them at a fixed
// cadence and never waits.
type Transport interface {
	ByteAvailable() bool
	ReadByte() (byte, error)
	WriteReady() bool
	WriteByte(b byte) error
	// SetBitRate reconfigures the physical link speed. Called by the
	// control loop on protocol lock and on forced-mode switches.
	SetBitRate(baud int) error
}

// SerialTransport adapts a serial port to the Transport interface. Reads
// are buffered through a short read timeout so ByteAvailable never
// blocks the tick.
type SerialTransport struct {
	port    serial.Port
	pending []byte
	rbuf    [64]byte
}

// OpenSerial opens a serial port at the given bit rate.
func OpenSerial(path string, baud int) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return &SerialTransport{port: port}, nil
}

func (s *SerialTransport) fill() {
	if len(s.pending) > 0 {
		return
	}
	n, err := s.port.Read(s.rbuf[:])
	if err != nil || n == 0 {
		return
	}
	s.pending = s.rbuf[:n]
}

// ByteAvailable reports whether a received byte is waiting.
func (s *SerialTransport) ByteAvailable() bool {
	s.fill()
	return len(s.pending) > 0
}

// ReadByte returns the next received byte.
func (s *SerialTransport) ReadByte() (byte, error) {
	s.fill()
	if len(s.pending) == 0 {
		return 0, fmt.Errorf("no byte available")
	}
	b := s.pending[0]
	s.pending = s.pending[1:]
	return b, nil
}

// WriteReady reports whether the transmitter can accept a byte. Host
// serial drivers buffer writes, so this is always true.
func (s *SerialTransport) WriteReady() bool {
	return true
}

// WriteByte transmits one byte.
func (s *SerialTransport) WriteByte(b byte) error {
	_, err := s.port.Write([]byte{b})
	return err
}

// SetBitRate reconfigures the port speed in place.
func (s *SerialTransport) SetBitRate(baud int) error {
	return s.port.SetMode(&serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Close releases the port.
func (s *SerialTransport) Close() error {
	return s.port.Close()
}

// Loopback is an in-memory Transport for tests and offline replay: bytes
// queued with FeedBytes are returned by ReadByte, and transmitted bytes
// are collected for inspection.
type Loopback struct {
	rx          []byte
	tx          []byte
	writeBudget int // -1 = unlimited; otherwise WriteReady successes left
	bitRate     int
}

// NewLoopback creates a loopback transport with unlimited write budget
// at the default 9600 baud.
func NewLoopback() *Loopback {
	return &Loopback{writeBudget: -1, bitRate: 9600}
}

// FeedBytes queues bytes for the receive path.
func (l *Loopback) FeedBytes(data []byte) {
	l.rx = append(l.rx, data...)
}

// Sent returns everything transmitted so far.
func (l *Loopback) Sent() []byte {
	return l.tx
}

// ClearSent discards the transmit capture.
func (l *Loopback) ClearSent() {
	l.tx = nil
}

// SetWriteBudget limits how many times WriteReady reports true; use 0 to
// simulate a transmitter that never becomes ready.
func (l *Loopback) SetWriteBudget(n int) {
	l.writeBudget = n
}

// BitRate returns the last configured bit rate.
func (l *Loopback) BitRate() int {
	return l.bitRate
}

func (l *Loopback) ByteAvailable() bool {
	return len(l.rx) > 0
}

func (l *Loopback) ReadByte() (byte, error) {
	if len(l.rx) == 0 {
		return 0, fmt.Errorf("no byte available")
	}
	b := l.rx[0]
	l.rx = l.rx[1:]
	return b, nil
}

func (l *Loopback) WriteReady() bool {
	return l.writeBudget != 0
}

func (l *Loopback) WriteByte(b byte) error {
	if l.writeBudget == 0 {
		return fmt.Errorf("transmitter not ready")
	}
	if l.writeBudget > 0 {
		l.writeBudget--
	}
	l.tx = append(l.tx, b)
	return nil
}

func (l *Loopback) SetBitRate(baud int) error {
	l.bitRate = baud
	return nil
}
