// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mpsse

import (
	"context"
	"errors"
	"io"

	"periph.io/x/d2xx"
)

// bitMode is used by SetBitMode to change the chip's mode of operation.
type bitMode uint8

const (
	bitModeReset bitMode = 0x00
	// bitModeMpsse switches the channel into the Multi-Protocol Synchronous
	// Serial Engine mode used to bit-bang GPIOs under command-byte control.
	bitModeMpsse bitMode = 0x02
)

// VID and PID identify the color controller bridge on the USB bus.
const (
	VID uint16 = 0x1939
	PID uint16 = 0x0024
)

// DescriptionMatch is the exact USB descriptor string a color controller
// bridge must report.
const DescriptionMatch = "COLOR-CTRL"

// NumDevices returns the number of FTDI devices currently enumerated by the
// driver, regardless of VID/PID/description.
func NumDevices() (int, error) {
	num, e := d2xx.CreateDeviceInfoList()
	if e != 0 {
		return 0, toErr("CreateDeviceInfoList", e)
	}
	return num, nil
}

// Identity holds the USB descriptor strings of a bridge channel, as reported
// by its EEPROM.
type Identity struct {
	Manufacturer string
	Description  string
	Serial       string
}

// Matches reports whether the identity belongs to a color controller bridge:
// exact description match, as led_analyzer.c's scan_devices does with
// strcmp(sMatch, description).
func (id Identity) Matches() bool {
	return id.Description == DescriptionMatch
}

// Handle is a thin, Go-idiomatic wrapper around one d2xx channel handle.
//
// It carries no I²C or GPIO semantics of its own; those live in [Stager] and
// the bitbang16 package. Handle only owns the USB transport primitives.
type Handle struct {
	h   d2xx.Handle
	dev d2xx.DevType
}

// Open opens the i'th enumerated FTDI device as seen by the d2xx driver,
// without filtering by VID/PID/description; callers that need the color
// controller's matching semantics should use the colorctrl package's
// Manager instead.
func Open(i int) (*Handle, error) {
	h, e := d2xx.Open(i)
	if e != 0 {
		return nil, toErr("Open", e)
	}
	dev, _, _, e := h.GetDeviceInfo()
	if e != 0 {
		_ = h.Close()
		return nil, toErr("GetDeviceInfo", e)
	}
	return &Handle{h: h, dev: dev}, nil
}

// OpenSerial opens the first enumerated FTDI device whose serial matches
// serial exactly. vid and pid are not compared against the devices found.
//
// periph.io/x/d2xx does not expose open-by-serial directly, so this scans
// the numbered devices and compares identities, mirroring the loop
// scan_devices/connect_to_devices perform together in the original C.
func OpenSerial(vid, pid uint16, serial string) (*Handle, error) {
	n, err := NumDevices()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		h, err := Open(i)
		if err != nil {
			continue
		}
		id, err := h.Identity()
		if err == nil && id.Serial == serial {
			return h, nil
		}
		_ = h.Close()
	}
	return nil, errors.New("mpsse: no device with matching serial number")
}

// Identity reads back the manufacturer, description and serial number
// strings the bridge reports over USB.
func (h *Handle) Identity() (Identity, error) {
	ee := d2xx.EEPROM{Raw: make([]byte, 256)}
	e := h.h.EEPROMRead(uint32(h.dev), &ee)
	if e != 0 && e != 15 {
		// 15 == FT_EEPROM_NOT_PROGRAMMED; still yields Manufacturer/Desc/Serial
		// on some devices, so it is not treated as fatal here.
		return Identity{}, toErr("EEPROMRead", e)
	}
	return Identity{Manufacturer: ee.Manufacturer, Description: ee.Desc, Serial: ee.Serial}, nil
}

// Close releases the underlying d2xx handle.
func (h *Handle) Close() error {
	return toErr("Close", h.h.Close())
}

// InitMPSSE configures common parameters and switches the channel into MPSSE
// mode with all pins initially inputs, purging any stale buffered data.
//
// Grounded on led_analyzer.c's connect_to_devices: set the interface, open
// by serial, ftdi_set_bitmode(0xFF, BITMODE_MPSSE), ftdi_usb_purge_buffers.
func (h *Handle) InitMPSSE() error {
	if e := h.h.SetUSBParameters(65536, 0); e != 0 {
		return toErr("SetUSBParameters", e)
	}
	if e := h.h.SetTimeouts(15000, 15000); e != 0 {
		return toErr("SetTimeouts", e)
	}
	if e := h.h.SetLatencyTimer(1); e != 0 {
		return toErr("SetLatencyTimer", e)
	}
	if e := h.h.SetBitMode(0xFF, byte(bitModeMpsse)); e != 0 {
		return toErr("SetBitMode", e)
	}
	return h.Purge()
}

// SetTimeouts overrides the USB read/write timeouts InitMPSSE set to their
// 15s default. Callers needing a tighter bound (for example a test harness
// against a known-responsive fake) can call this right after InitMPSSE.
func (h *Handle) SetTimeouts(readMS, writeMS uint32) error {
	return toErr("SetTimeouts", h.h.SetTimeouts(readMS, writeMS))
}

// Purge discards any data still sitting in the device's read buffer.
func (h *Handle) Purge() error {
	var buf [128]byte
	for {
		p, err := h.Read(buf[:])
		if err != nil {
			return err
		}
		if p == 0 {
			return nil
		}
	}
}

// Read returns as much as is immediately available, without blocking.
func (h *Handle) Read(b []byte) (int, error) {
	p, e := h.h.GetQueueStatus()
	if p == 0 || e != 0 {
		return int(p), toErr("GetQueueStatus", e)
	}
	v := int(p)
	if v > len(b) {
		v = len(b)
	}
	n, e := h.h.Read(b[:v])
	return n, toErr("Read", e)
}

// ReadAll blocks until len(b) bytes have been read or ctx is done.
func (h *Handle) ReadAll(ctx context.Context, b []byte) (int, error) {
	for offset := 0; offset != len(b); {
		if ctx.Err() != nil {
			return offset, io.EOF
		}
		chunk := len(b) - offset
		if chunk > 4096 {
			chunk = 4096
		}
		n, err := h.Read(b[offset : offset+chunk])
		if offset += n; err != nil {
			return offset, err
		}
	}
	return len(b), nil
}

// Write blocks until all of b has been written.
func (h *Handle) Write(b []byte) (int, error) {
	for offset := 0; offset != len(b); {
		chunk := len(b) - offset
		if chunk > 4096 {
			chunk = 4096
		}
		n, e := h.h.Write(b[offset : offset+chunk])
		if err := toErr("Write", e); err != nil {
			return offset + n, err
		}
		if n != 0 {
			offset += n
		}
	}
	return len(b), nil
}

func toErr(op string, e d2xx.Err) error {
	if e == 0 {
		return nil
	}
	return errors.New("mpsse: " + op + ": " + e.String())
}
