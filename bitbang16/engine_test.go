// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang16

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/waizi/colorctrl/mpsse"
	"periph.io/x/conn/v3/physic"
)

// fakeChannel replays a canned IN buffer and discards what was written,
// a reduced form of mpsse's own test fake.
type fakeChannel struct {
	in  []byte
	err error
}

func (f *fakeChannel) Write(b []byte) (int, error) { return len(b), nil }

func (f *fakeChannel) ReadAll(ctx context.Context, b []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := copy(b, f.in)
	return n, nil
}

func (f *fakeChannel) Purge() error { return nil }

// allZeroIn builds a header-prefixed IN buffer of n falling+rising sample
// pairs, every bit zero, which ACKs every byte (ACK bit low) and decodes
// every data bit as zero.
func allZeroIn(nSamples int) []byte {
	buf := make([]byte, 2+nSamples*4)
	return buf
}

func TestTransactWriteHappyPath(t *testing.T) {
	// power_on: address byte + ENABLE register + value = 3 bytes => 3 ACKs.
	a := &fakeChannel{in: allZeroIn(3)}
	b := &fakeChannel{in: allZeroIn(3)}
	tr := mpsse.NewTransport(a, b)
	tr.SleepFunc = func(time.Duration) {}

	e := NewEngine(tr, Config{})
	buf := []byte{0x39 << 1, 0x80, 0x03}
	if err := e.TransactWrite(context.Background(), buf); err != nil {
		t.Fatalf("TransactWrite: %v", err)
	}
}

func TestTransactWriteAssertACKRejectsNAK(t *testing.T) {
	// Single byte write -> one ACK sample. Make every bus's sampled bit 1
	// (NAK).
	inA := make([]byte, 2+4)
	inB := make([]byte, 2+4)
	inA[2+2] = 0xFF // valid falling-edge low byte, all four buses high
	inA[2+3] = 0xFF
	inB[2+2] = 0xFF
	inB[2+3] = 0xFF

	a := &fakeChannel{in: inA}
	b := &fakeChannel{in: inB}
	tr := mpsse.NewTransport(a, b)
	tr.SleepFunc = func(time.Duration) {}

	e := NewEngine(tr, Config{AssertACK: true})
	err := e.TransactWrite(context.Background(), []byte{0x39 << 1})
	if !errors.Is(err, ErrNAK) {
		t.Fatalf("err = %v, want ErrNAK", err)
	}
}

func TestEnginePanicsOnReentrantUse(t *testing.T) {
	a := &fakeChannel{in: allZeroIn(64)}
	b := &fakeChannel{in: allZeroIn(64)}
	tr := mpsse.NewTransport(a, b)
	tr.SleepFunc = func(time.Duration) {}

	e := NewEngine(tr, Config{})
	e.busy = true

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on reentrant call")
		}
	}()
	_ = e.TransactWrite(context.Background(), []byte{0x00})
}

func TestTransactRead8DecodesZeroBus(t *testing.T) {
	// identify: addr+reg write (2 ACKs), repeated start, addr write (1 ACK),
	// then 8 data samples. All-zero IN means every bus reads back 0x00 and
	// every ACK is acked (bit 0).
	totalSamples := 2 + 1 + 8
	a := &fakeChannel{in: allZeroIn(totalSamples)}
	b := &fakeChannel{in: allZeroIn(totalSamples)}
	tr := mpsse.NewTransport(a, b)
	tr.SleepFunc = func(time.Duration) {}

	e := NewEngine(tr, Config{})
	got, err := e.TransactRead8(context.Background(), []byte{0x39 << 1, 0x92})
	if err != nil {
		t.Fatalf("TransactRead8: %v", err)
	}
	for bus, v := range got {
		if v != 0 {
			t.Fatalf("bus %d decoded 0x%02x, want 0x00", bus, v)
		}
	}
}

func TestValidateClockRate(t *testing.T) {
	cases := []struct {
		name string
		rate physic.Frequency
		ok   bool
	}{
		{"zero means no preference", 0, true},
		{"100kHz standard mode", 100 * physic.KiloHertz, true},
		{"400kHz fast mode ceiling", 400 * physic.KiloHertz, true},
		{"above fast mode", physic.MegaHertz, false},
		{"below minimum useful rate", 500 * physic.Hertz, false},
	}
	for _, c := range cases {
		err := ValidateClockRate(c.rate)
		if c.ok && err != nil {
			t.Errorf("%s: ValidateClockRate(%s) = %v, want nil", c.name, c.rate, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: ValidateClockRate(%s) = nil, want error", c.name, c.rate)
		}
	}
}

func TestConfigValidateRejectsOutOfRangeClockRate(t *testing.T) {
	cfg := Config{ClockRate: physic.GigaHertz}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for 1GHz clock rate")
	}
}

func TestOneBusValueRejectsOutOfRange(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for out-of-range bus index")
		}
	}()
	oneBusValue(1, 16)
}
