// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang16

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
)

// buildSamples lays out, for each sample in turn, a rising-edge byte-pair
// (discarded) followed by the valid falling-edge byte-pair, for channel A
// and B given the per-bus bit values the caller wants each sample to carry.
func buildSamples(bits [][16]byte) (inA, inB []byte) {
	for _, sample := range bits {
		var aLow, aHigh, bLow, bHigh byte
		for n := 0; n < 4; n++ {
			aLow |= sample[n] << uint(2*n)
			aHigh |= sample[4+n] << uint(2*n)
			bLow |= sample[8+n] << uint(2*n)
			bHigh |= sample[12+n] << uint(2*n)
		}
		// discarded rising-edge pair, then the valid falling-edge sample.
		inA = append(inA, 0, 0, aLow, aHigh)
		inB = append(inB, 0, 0, bLow, bHigh)
	}
	return inA, inB
}

func TestExtractSample(t *testing.T) {
	var sample [16]byte
	sample[0] = 1
	sample[7] = 1
	sample[15] = 1
	inA, inB := buildSamples([][16]byte{sample})

	got := extractSample(inA, inB, 0)
	if got != sample {
		t.Fatalf("extractSample = %v, want %v", got, sample)
	}
}

func TestDecodeByteAllBusesSameValue(t *testing.T) {
	// 0x5A = 01011010, MSB first.
	want := byte(0x5A)
	var samples [][16]byte
	for bitPos := 7; bitPos >= 0; bitPos-- {
		bit := (want >> uint(bitPos)) & 1
		var s [16]byte
		for bus := range s {
			s[bus] = bit
		}
		samples = append(samples, s)
	}
	inA, inB := buildSamples(samples)

	got := decodeByte(inA, inB, 0)
	for bus, b := range got {
		if b != want {
			t.Fatalf("bus %d decoded 0x%02x, want 0x%02x", bus, b, want)
		}
	}
}

func TestDecodeByteDistinctPerBus(t *testing.T) {
	// Bus n gets value n (0-15), transmitted MSB first over 8 bits.
	var samples [][16]byte
	for bitPos := 7; bitPos >= 0; bitPos-- {
		var s [16]byte
		for bus := 0; bus < 16; bus++ {
			s[bus] = byte(bus>>uint(bitPos)) & 1
		}
		samples = append(samples, s)
	}
	inA, inB := buildSamples(samples)

	got := decodeByte(inA, inB, 0)
	for bus, b := range got {
		if int(b) != bus {
			t.Fatalf("bus %d decoded %d, want %d", bus, b, bus)
		}
	}
}

func TestBusLevelsReportsHighAndLow(t *testing.T) {
	var sample [16]byte
	sample[2] = 1
	sample[13] = 1
	inA, inB := buildSamples([][16]byte{sample})

	got := BusLevels(inA, inB, 0)
	for bus, lvl := range got {
		want := gpio.Low
		if sample[bus] != 0 {
			want = gpio.High
		}
		if lvl != want {
			t.Fatalf("bus %d level = %v, want %v", bus, lvl, want)
		}
	}
}

func TestDecodeWordLowByteFirst(t *testing.T) {
	// All buses carry 0x1234: low byte 0x34 transmitted first.
	var samples [][16]byte
	for _, byteVal := range []byte{0x34, 0x12} {
		for bitPos := 7; bitPos >= 0; bitPos-- {
			bit := (byteVal >> uint(bitPos)) & 1
			var s [16]byte
			for bus := range s {
				s[bus] = bit
			}
			samples = append(samples, s)
		}
	}
	inA, inB := buildSamples(samples)

	got := decodeWord(inA, inB, 0)
	for bus, w := range got {
		if w != 0x1234 {
			t.Fatalf("bus %d decoded 0x%04x, want 0x1234", bus, w)
		}
	}
}
