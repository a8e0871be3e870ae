// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang16

import (
	"context"
	"errors"
	"fmt"

	"github.com/waizi/colorctrl/mpsse"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Line masks over the bridge's 32-bit GPIO word. Even bit positions carry
// SDA for the four buses of a byte-wide group, odd positions carry SCL.
const (
	SCLMask    uint32 = 0xAAAAAAAA
	SDAMask    uint32 = 0x55555555
	allOutputs uint32 = 0xFFFFFFFF
)

// ErrNAK reports that a slave pulled SDA high (NAK) on a byte the caller
// asked to have acknowledged; only returned when Config.AssertACK is set.
var ErrNAK = errors.New("bitbang16: slave NAKed an acknowledged write")

// ErrBusy reports a reentrant call into an Engine already mid-transaction.
var ErrBusy = errors.New("bitbang16: engine is already busy")

// Config tunes optional protocol-level strictness the original firmware
// never enforced.
type Config struct {
	// AssertACK, when true, causes every Get-ACK sampled during a
	// transaction to be checked; any bus whose slave NAKed turns into an
	// ErrNAK identifying the offending bus mask. The firmware this engine
	// replicates stages the ACK bit but never looks at it.
	AssertACK bool

	// ClockRate is the target SCL clock rate, validated against I2C's
	// standard/fast-mode range but not yet otherwise used: every
	// transaction still runs at the fixed bit-bang rate the Transport's
	// SleepFunc drives. It exists as a typed, validated knob for a future
	// timing-accurate implementation instead of an untyped duration. Zero
	// means "use the engine's fixed rate".
	ClockRate physic.Frequency
}

// ValidateClockRate bounds-checks a target SCL clock rate the way
// ftdi/i2c.go's SetSpeed validates a bus speed: zero is accepted as "no
// preference", anything above I2C fast mode (400kHz) or below a usefully
// slow rate (1kHz) is rejected.
func ValidateClockRate(f physic.Frequency) error {
	if f == 0 {
		return nil
	}
	if f > 400*physic.KiloHertz {
		return fmt.Errorf("bitbang16: clock rate %s exceeds I2C fast mode's 400kHz", f)
	}
	if f < physic.KiloHertz {
		return fmt.Errorf("bitbang16: clock rate %s is below the minimum useful rate of 1kHz", f)
	}
	return nil
}

// Validate reports whether cfg's fields hold an acceptable combination,
// currently just ClockRate's range.
func (cfg Config) Validate() error {
	return ValidateClockRate(cfg.ClockRate)
}

// Engine drives one physical bridge's pair of channels as a sixteen-bus
// parallel I²C master. It owns a Stager and a Transport and is not safe for
// concurrent or reentrant use; callers serialize their own access.
type Engine struct {
	stager    *mpsse.Stager
	transport *mpsse.Transport
	cfg       Config

	busy        bool
	sampleCount int
	ackSamples  []int
}

// NewEngine returns an Engine driving the given transport.
func NewEngine(t *mpsse.Transport, cfg Config) *Engine {
	return &Engine{
		stager:    mpsse.NewStager(),
		transport: t,
		cfg:       cfg,
	}
}

func (e *Engine) begin() {
	if e.busy {
		panic(ErrBusy)
	}
	e.busy = true
	e.sampleCount = 0
	e.ackSamples = e.ackSamples[:0]
}

func (e *Engine) end() {
	e.busy = false
}

// --- single-clock primitives -------------------------------------------

func (e *Engine) stageStep(value uint32) {
	e.stager.StageStep(allOutputs, value)
}

// start stages a START condition: with SDA and SCL both high, SDA is
// lowered first, then SCL.
func (e *Engine) start() {
	e.stageStep(SDAMask)             // SCL low,  SDA high
	e.stageStep(SDAMask | SCLMask)   // SCL high, SDA high
	e.stageStep(SCLMask)             // SCL high, SDA low
	e.stageStep(0)                   // SCL low,  SDA low
}

// repeatedStart is electrically identical to start; the bus lines are
// already low beforehand rather than high, but staging the same four steps
// produces the same waveform on the wire.
func (e *Engine) repeatedStart() {
	e.start()
}

// stop stages a STOP condition: with SCL and SDA both low, SCL is raised
// first, then SDA.
func (e *Engine) stop() {
	e.stageStep(SCLMask)           // SCL high, SDA low
	e.stageStep(SCLMask | SDAMask) // SCL high, SDA high
}

// sendBit stages one clock pulse with sdaValue held steady throughout:
// SCL low, SCL high, SCL low. sdaValue must already carry the bit fanned
// out to whichever buses are meant to see it (broadcastValue or
// oneBusValue).
func (e *Engine) sendBit(sdaValue uint32) {
	e.stageStep(sdaValue)
	e.stageStep(sdaValue | SCLMask)
	e.stageStep(sdaValue)
}

// sampleBit stages one input clock: SCL is driven while SDA is released to
// the slave, sampled on the falling edge. It returns the index of the
// sample within this transaction, for use by getAck's optional ACK check.
func (e *Engine) sampleBit() int {
	idx := e.sampleCount
	e.stager.StageStepSample(SCLMask, SCLMask) // SCL high (rising edge)
	e.stager.StageStepSample(SCLMask, 0)       // SCL low (sampling edge)
	e.sampleCount++
	return idx
}

// getAck stages a sample-bit for the ACK/NAK bit following a written byte.
// The sampled value is discarded unless Config.AssertACK is set.
func (e *Engine) getAck() {
	idx := e.sampleBit()
	if e.cfg.AssertACK {
		e.ackSamples = append(e.ackSamples, idx)
	}
}

// giveAck stages the master's ACK after a byte it read: SDA driven low for
// one clock pulse on every bus.
func (e *Engine) giveAck() {
	e.sendBit(0)
}

func broadcastValue(bit int) uint32 {
	if bit&1 != 0 {
		return SDAMask
	}
	return 0
}

// oneBusValue places bit on the SDA line of the given bus (0-15) and leaves
// every other bus's SDA line low.
func oneBusValue(bit, bus int) uint32 {
	if bus < 0 || bus > 15 {
		panic(fmt.Sprintf("bitbang16: bus index %d out of range", bus))
	}
	return uint32(bit&1) << uint(2*bus)
}

// --- byte-level primitives ----------------------------------------------

// writeBytes stages buf MSB-first across all sixteen buses, with an
// ACK sampled after every byte. The low bit of buf[0] is overridden with rw
// (0 for a write address phase, 1 for a read address phase); callers supply
// buf[0] already shifted left by one with that bit left as a placeholder.
func (e *Engine) writeBytes(buf []byte, rw int) {
	for i, v := range buf {
		for bitPos := 7; bitPos >= 0; bitPos-- {
			bit := int(v>>uint(bitPos)) & 1
			if i == 0 && bitPos == 0 {
				bit = rw
			}
			e.sendBit(broadcastValue(bit))
		}
		e.getAck()
	}
}

// writeBytesOneBus is writeBytes restricted to a single bus; every other
// bus's SDA line is held low throughout, so it observes a write it is not
// addressed by.
func (e *Engine) writeBytesOneBus(buf []byte, bus, rw int) {
	for i, v := range buf {
		for bitPos := 7; bitPos >= 0; bitPos-- {
			bit := int(v>>uint(bitPos)) & 1
			if i == 0 && bitPos == 0 {
				bit = rw
			}
			e.sendBit(oneBusValue(bit, bus))
		}
		e.getAck()
	}
}

// readBits stages nBits worth of Sample-bit, giving a master ACK after
// every eighth bit except the last, then stages STOP. It returns the index
// of the first sample staged, for the decoder to start from.
func (e *Engine) readBits(nBits int) int {
	start := e.sampleCount
	for i := 0; i < nBits; i++ {
		e.sampleBit()
		if (i+1)%8 == 0 && i+1 != nBits {
			e.giveAck()
		}
	}
	e.stop()
	return start
}

// checkACKs evaluates every sample recorded in e.ackSamples against the
// flushed IN buffers and returns ErrNAK naming the bus mask of any slave
// that left SDA high.
func (e *Engine) checkACKs(inA, inB []byte) error {
	var nakMask uint16
	for _, idx := range e.ackSamples {
		levels := BusLevels(inA, inB, idx)
		for bus, lvl := range levels {
			if lvl == gpio.High {
				nakMask |= 1 << uint(bus)
			}
		}
	}
	if nakMask != 0 {
		return fmt.Errorf("%w: bus mask 0x%04x", ErrNAK, nakMask)
	}
	return nil
}

// --- transactions ---------------------------------------------------------

// TransactWrite performs a complete broadcast write transaction: START,
// buf staged MSB-first with the R/W bit forced low, STOP, then a single
// flush.
func (e *Engine) TransactWrite(ctx context.Context, buf []byte) error {
	e.begin()
	defer e.end()

	e.start()
	e.writeBytes(buf, 0)
	e.stop()

	inA, inB, err := e.transport.Flush(ctx, e.stager)
	if err != nil {
		return err
	}
	if e.cfg.AssertACK {
		return e.checkACKs(inA, inB)
	}
	return nil
}

// TransactWriteOneBus is TransactWrite restricted to a single bus.
func (e *Engine) TransactWriteOneBus(ctx context.Context, buf []byte, bus int) error {
	e.begin()
	defer e.end()

	e.start()
	e.writeBytesOneBus(buf, bus, 0)
	e.stop()

	inA, inB, err := e.transport.Flush(ctx, e.stager)
	if err != nil {
		return err
	}
	if e.cfg.AssertACK {
		return e.checkACKs(inA, inB)
	}
	return nil
}

// transactRead stages the common read preamble — START, buf (address plus
// any register bytes) with R/W=0, a repeated START, the address byte again
// with R/W=1 — followed by nBits worth of sampled read bits, and flushes
// once. It returns the flushed buffers and the sample index the data phase
// starts at, for the decoder.
func (e *Engine) transactRead(ctx context.Context, buf []byte, nBits int) (inA, inB []byte, startSample int, err error) {
	e.begin()
	defer e.end()

	e.start()
	e.writeBytes(buf, 0)
	e.repeatedStart()
	e.writeBytes(buf[:1], 1)
	startSample = e.readBits(nBits)

	inA, inB, err = e.transport.Flush(ctx, e.stager)
	if err != nil {
		return nil, nil, 0, err
	}
	if e.cfg.AssertACK {
		if err := e.checkACKs(inA, inB); err != nil {
			return nil, nil, 0, err
		}
	}
	return inA, inB, startSample, nil
}

// TransactRead8 performs a transaction reading a single byte register.
func (e *Engine) TransactRead8(ctx context.Context, buf []byte) ([16]byte, error) {
	inA, inB, start, err := e.transactRead(ctx, buf, 8)
	if err != nil {
		return [16]byte{}, err
	}
	return decodeByte(inA, inB, start), nil
}

// TransactRead16 performs a transaction reading a little-endian 16-bit
// register pair (low byte transmitted first, as the sensor's auto-increment
// register map does).
func (e *Engine) TransactRead16(ctx context.Context, buf []byte) ([16]uint16, error) {
	inA, inB, start, err := e.transactRead(ctx, buf, 16)
	if err != nil {
		return [16]uint16{}, err
	}
	return decodeWord(inA, inB, start), nil
}

// TransactRead72 performs the combined status-plus-four-channels read: one
// status byte followed by clear, red, green and blue 16-bit words.
func (e *Engine) TransactRead72(ctx context.Context, buf []byte) (status [16]byte, clear, red, green, blue [16]uint16, err error) {
	inA, inB, start, err := e.transactRead(ctx, buf, 72)
	if err != nil {
		return [16]byte{}, [16]uint16{}, [16]uint16{}, [16]uint16{}, [16]uint16{}, err
	}
	status = decodeByte(inA, inB, start)
	clear = decodeWord(inA, inB, start+8)
	red = decodeWord(inA, inB, start+24)
	green = decodeWord(inA, inB, start+40)
	blue = decodeWord(inA, inB, start+56)
	return status, clear, red, green, blue, nil
}
