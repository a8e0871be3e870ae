// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tcs3472

// Address is the sensor's fixed 7-bit I²C slave address.
const Address = 0x29

// Command-register framing bits. Every register access ORs one of these
// into the register offset in the first data byte of a transaction.
const (
	cmdBit          = 0x80 // must be set on every register access
	cmdAutoIncr     = 0x20 // block read/write, register auto-increments
	cmdSpecialFn    = 0x60 // special function (used for interrupt clear)
)

// Register offsets, named exactly as the datasheet and the firmware this
// package replicates name them.
const (
	regEnable = 0x00
	regATime  = 0x01
	regWTime  = 0x03
	regAILTL  = 0x04 // low interrupt threshold, named but unwired: no code
	regAIHTL  = 0x06 // path ever sets a threshold or enables the comparator.
	regPers   = 0x0C // interrupt persistence filter, named but unwired for
	// the same reason as the threshold registers.
	regConfig  = 0x0D
	regControl = 0x0F
	regID      = 0x12
	regStatus  = 0x13
	regCData   = 0x14 // CDATA low byte; the combined read starts at STATUS and
	// auto-increments through CDATA/RDATA/GDATA/BDATA (eight bytes) after it.
)

// ENABLE register bits.
const (
	enablePON  = 0x01
	enableAEN  = 0x02
	enableAIEN = 0x10
)

// STATUS register bits.
const statusAVALID = 0x01

// interruptClearByte is written to the special-function command to clear a
// latched RGBC interrupt.
const interruptClearByte = cmdBit | cmdSpecialFn | 0x06

// Gain selects the ADC's analog gain, written to the low two bits of the
// CONTROL register.
type Gain byte

const (
	Gain1x  Gain = 0x00
	Gain4x  Gain = 0x01
	Gain16x Gain = 0x02
	Gain60x Gain = 0x03
)

// IntegrationTime is the raw ATIME register value for one of the six
// integration times the sensor supports. Each carries the saturation
// ceiling a full-scale conversion reaches at that time, used by
// [CheckSaturation].
type IntegrationTime struct {
	atime     byte
	Ceiling   uint16
}

var (
	Integration2_4ms IntegrationTime = IntegrationTime{atime: 0xFF, Ceiling: 1024}
	Integration24ms  IntegrationTime = IntegrationTime{atime: 0xF6, Ceiling: 10240}
	Integration100ms IntegrationTime = IntegrationTime{atime: 0xD6, Ceiling: 43008}
	Integration154ms IntegrationTime = IntegrationTime{atime: 0xC0, Ceiling: 65535}
	Integration200ms IntegrationTime = IntegrationTime{atime: 0xAD, Ceiling: 65535}
	Integration700ms IntegrationTime = IntegrationTime{atime: 0x00, Ceiling: 65535}
)

// validIDs are the ID register values tcs_identify accepted: 0x14 for the
// TCS34725/TMD27725, 0x44 for the TCS34721/TMD27721. A third constant
// documented in the original header (0x1D) never appeared in the actual
// comparison and is not carried forward.
var validIDs = map[byte]bool{0x14: true, 0x44: true}
