// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package colorctrl

import (
	"time"

	"github.com/waizi/colorctrl/bitbang16"
	"github.com/waizi/colorctrl/mpsse"
	"periph.io/x/conn/v3/physic"
)

// Config tunes device discovery and engine strictness. There is no
// file-based configuration layer: a program that wants one constructs a
// Config from whatever format it prefers and passes it to NewManager.
type Config struct {
	// VendorID and ProductID name the bridge's USB identity and are passed
	// to mpsse.OpenSerial by Open. Default: the real bridge's 0x1939/0x0024.
	// Neither Scan nor Open compares them against the enumerated devices:
	// Scan matches on Description, Open on serial number.
	VendorID, ProductID uint16

	// Description filters Scan to bridges whose EEPROM description string
	// matches exactly. Default: "COLOR-CTRL".
	Description string

	// ReadTimeout and WriteTimeout bound each channel's USB bulk transfers.
	// Zero means "use the driver's own 15s default" (see
	// [mpsse.Handle.InitMPSSE]).
	ReadTimeout, WriteTimeout time.Duration

	// AssertACK, when true, turns a sampled NAK during any transaction into
	// a reported protocol error instead of the original firmware's silent
	// discard. See [bitbang16.Config.AssertACK].
	AssertACK bool

	// ClockRate is the target SCL clock rate passed through to
	// [bitbang16.Config.ClockRate]. Zero uses the engine's fixed rate.
	ClockRate physic.Frequency
}

// DefaultConfig returns the Config matching the real bridge's documented
// USB identity and the original firmware's lenient ACK handling.
func DefaultConfig() Config {
	return Config{
		VendorID:    mpsse.VID,
		ProductID:   mpsse.PID,
		Description: mpsse.DescriptionMatch,
	}
}

func (c Config) engineConfig() bitbang16.Config {
	return bitbang16.Config{AssertACK: c.AssertACK, ClockRate: c.ClockRate}
}

func (c Config) timeoutsMS() (readMS, writeMS uint32) {
	readMS, writeMS = 15000, 15000
	if c.ReadTimeout > 0 {
		readMS = uint32(c.ReadTimeout / time.Millisecond)
	}
	if c.WriteTimeout > 0 {
		writeMS = uint32(c.WriteTimeout / time.Millisecond)
	}
	return readMS, writeMS
}
