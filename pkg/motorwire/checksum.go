// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the linkview authors

package motorwire

// Sum16 computes the 16-bit additive checksum used by variant A: the
// unsigned sum of all bytes, truncated to 16 bits.
func Sum16(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// Xor8 computes the XOR checksum used by variants B and C.
func Xor8(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}

// Sum8 computes the additive checksum used by variant D: the unsigned sum
// of all bytes truncated to 8 bits, optionally offset by a fixed bias.
func Sum8(data []byte, bias byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum + bias
}
