// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang16

import "periph.io/x/conn/v3/gpio"

// extractSample pulls the bit sampled on all sixteen buses for the
// sampleIndex-th Sample-bit issued during a transaction (0-based, counting
// every Get-ACK and data sample in staging order) out of the two flushed,
// header-stripped IN buffers.
//
// Each Sample-bit call appends exactly four bytes to each of inA and inB: a
// discarded pair read back as SCL rises, and the valid pair read back once
// SCL is held low again, which is the stable sample (the original firmware's
// io_operations.c takes the same falling-edge-only reading). The discarded
// byte for buses 0-3/8-11 lands at sampleIndex*4, and for buses 4-7/12-15 at
// sampleIndex*4+1; the valid pair occupies the two bytes after that, which
// is why the stride between samples is four rather than two.
func extractSample(inA, inB []byte, sampleIndex int) [16]byte {
	k := sampleIndex*4 + 2
	var bits [16]byte
	readNibble(inA[k], 0, &bits)
	readNibble(inA[k+1], 4, &bits)
	readNibble(inB[k], 8, &bits)
	readNibble(inB[k+1], 12, &bits)
	return bits
}

// readNibble unpacks the four even-position SDA bits of b (one per bus in
// a byte-wide GPIO group) into bits[base:base+4].
func readNibble(b byte, base int, bits *[16]byte) {
	for n := 0; n < 4; n++ {
		bits[base+n] = (b >> uint(2*n)) & 1
	}
}

// decodeByte reconstructs one MSB-first byte per bus from eight consecutive
// samples starting at startSample. This is the single primitive every wider
// decode (16-bit word, 72-bit combined read) is built from.
func decodeByte(inA, inB []byte, startSample int) [16]byte {
	var out [16]byte
	for j := 0; j < 8; j++ {
		bits := extractSample(inA, inB, startSample+j)
		shift := uint(7 - j)
		for bus, b := range bits {
			out[bus] |= b << shift
		}
	}
	return out
}

// decodeWord reconstructs one little-endian 16-bit value per bus from
// sixteen consecutive samples (low byte transmitted first, then high byte),
// matching the sensor's auto-incrementing register read order.
func decodeWord(inA, inB []byte, startSample int) [16]uint16 {
	lo := decodeByte(inA, inB, startSample)
	hi := decodeByte(inA, inB, startSample+8)
	var out [16]uint16
	for bus := range out {
		out[bus] = uint16(lo[bus]) | uint16(hi[bus])<<8
	}
	return out
}

// BusLevels decodes the sampleIndex-th Sample-bit into each bus's raw SDA
// level. It is the typed counterpart of extractSample for callers outside
// this package that want to inspect one sampled bit directly — an ACK/NAK
// check, or a diagnostic dump — rather than a fully assembled byte.
func BusLevels(inA, inB []byte, sampleIndex int) [16]gpio.Level {
	bits := extractSample(inA, inB, sampleIndex)
	var levels [16]gpio.Level
	for bus, b := range bits {
		levels[bus] = gpio.Level(b != 0)
	}
	return levels
}
