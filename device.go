// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package colorctrl

import (
	"fmt"
	"strings"

	"github.com/waizi/colorctrl/bitbang16"
	"github.com/waizi/colorctrl/mpsse"
	"github.com/waizi/colorctrl/tcs3472"
)

// scanHandle is the subset of *mpsse.Handle Scan needs: enough to read an
// identity and close the handle again. Declared as an interface, rather
// than used as *mpsse.Handle directly, purely so tests substitute a fake
// without touching real USB hardware; *mpsse.Handle satisfies it without
// any changes to that package.
type scanHandle interface {
	Identity() (mpsse.Identity, error)
	Close() error
}

// scanner is the subset of package-level mpsse functions Scan drives.
type scanner interface {
	NumDevices() (int, error)
	Open(i int) (scanHandle, error)
}

type realScanner struct{}

func (realScanner) NumDevices() (int, error) { return mpsse.NumDevices() }
func (realScanner) Open(i int) (scanHandle, error) { return mpsse.Open(i) }

// Manager scans for color controller bridges and holds them in a
// caller-reorderable serial-number list. It owns no USB handles itself;
// Open returns a [Device] the caller is responsible for closing.
type Manager struct {
	cfg     Config
	scan    scanner
	serials []string
}

// NewManager returns a Manager using cfg for device discovery and engine
// strictness.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, scan: realScanner{}}
}

// channelSerial strips the trailing interface letter ("A" or "B") a
// multi-channel bridge's EEPROM serial carries per-interface, so the two
// channels of one physical device collapse to a single serial in the
// ordering list. Grounded on led_analyzer.c's scan_devices, which performs
// the same collapse by only ever recording the "A" interface's serial.
func channelSerial(raw string) string {
	if n := len(raw); n > 1 && (raw[n-1] == 'A' || raw[n-1] == 'B') {
		return raw[:n-1]
	}
	return raw
}

// Scan enumerates every USB device the d2xx driver can see, opens each
// briefly to read its identity, and records the serial numbers of the ones
// whose description equals cfg's Description (cfg's VendorID/ProductID are
// not compared), deduplicated across the
// two channel interfaces of the same physical bridge and in enumeration
// order. It replaces any previously scanned ordering.
func (m *Manager) Scan() error {
	n, err := m.scan.NumDevices()
	if err != nil {
		return err
	}
	var serials []string
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		h, err := m.scan.Open(i)
		if err != nil {
			// A device another process has already claimed, or one that glitches
			// on open, is not a scan failure; skip it and keep going.
			continue
		}
		id, err := h.Identity()
		_ = h.Close()
		if err != nil {
			continue
		}
		if id.Description != m.cfg.Description {
			continue
		}
		base := channelSerial(id.Serial)
		if !seen[base] {
			seen[base] = true
			serials = append(serials, base)
		}
	}
	m.serials = serials
	logf("colorctrl: scan found %d matching bridge(s): %s", len(serials), describeSerials(serials))
	return nil
}

// Serials returns the current device ordering as scanned, or as rearranged
// by SwapUp/SwapDown.
func (m *Manager) Serials() []string {
	out := make([]string, len(m.serials))
	copy(out, m.serials)
	return out
}

// SerialIndex returns the ordinal position of serial in the current
// ordering, or ok=false if it is not present.
func (m *Manager) SerialIndex(serial string) (index int, ok bool) {
	for i, s := range m.serials {
		if s == serial {
			return i, true
		}
	}
	return 0, false
}

// SwapUp moves serial one position earlier in the ordering. A serial
// already first, or not present, is a no-op; SwapUp has no error to
// report, as the original firmware's swap_up treats "nothing to do" as
// success rather than an error.
func (m *Manager) SwapUp(serial string) {
	i, ok := m.SerialIndex(serial)
	if !ok || i == 0 {
		return
	}
	m.serials[i-1], m.serials[i] = m.serials[i], m.serials[i-1]
}

// SwapDown moves serial one position later in the ordering. A serial
// already last, or not present, is a no-op.
func (m *Manager) SwapDown(serial string) {
	i, ok := m.SerialIndex(serial)
	if !ok || i == len(m.serials)-1 {
		return
	}
	m.serials[i+1], m.serials[i] = m.serials[i], m.serials[i+1]
}

// HandleIndex returns the position channel 'A' or 'B' of the devIndex-th
// device in the current ordering would occupy in a flat, interleaved
// [handleA0, handleB0, handleA1, handleB1, ...] array, matching §3's
// handleIndex = devIndex*2 invariant. A program that keeps such an array
// (rather than a slice of *Device, as Open returns) uses this to place a
// freshly opened pair.
func HandleIndex(devIndex int, channel byte) int {
	switch channel {
	case 'A':
		return devIndex * 2
	case 'B':
		return devIndex*2 + 1
	default:
		panic(fmt.Sprintf("colorctrl: channel must be 'A' or 'B', got %q", channel))
	}
}

// Device is one physical bridge opened as a matched channel-A/channel-B
// pair, with the sixteen-bus I²C engine and TCS3472 sensor layer already
// wired on top of it.
type Device struct {
	Serial   string
	ChannelA *mpsse.Handle
	ChannelB *mpsse.Handle
	Bus      *bitbang16.Engine
	Sensors  *tcs3472.Engine
}

// Open opens the bridge identified by serial as two channel handles, both
// switched into MPSSE mode, and wires them into a ready-to-use Device. The
// two handles are always opened and closed together (§3's invariant); Open
// itself never partially succeeds — a failure on either channel closes
// whichever one already opened before returning the error.
func (m *Manager) Open(serial string) (*Device, error) {
	a, err := mpsse.OpenSerial(m.cfg.VendorID, m.cfg.ProductID, serial+"A")
	if err != nil {
		return nil, fmt.Errorf("colorctrl: open channel A of %s: %w", serial, err)
	}
	if err := initChannel(a, m.cfg); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("colorctrl: init channel A of %s: %w", serial, err)
	}

	b, err := mpsse.OpenSerial(m.cfg.VendorID, m.cfg.ProductID, serial+"B")
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("colorctrl: open channel B of %s: %w", serial, err)
	}
	if err := initChannel(b, m.cfg); err != nil {
		_ = a.Close()
		_ = b.Close()
		return nil, fmt.Errorf("colorctrl: init channel B of %s: %w", serial, err)
	}

	ec := m.cfg.engineConfig()
	if err := ec.Validate(); err != nil {
		_ = a.Close()
		_ = b.Close()
		return nil, fmt.Errorf("colorctrl: %w", err)
	}

	transport := mpsse.NewTransport(a, b)
	bus := bitbang16.NewEngine(transport, ec)
	logf("colorctrl: opened device %s", serial)
	return &Device{
		Serial:   serial,
		ChannelA: a,
		ChannelB: b,
		Bus:      bus,
		Sensors:  tcs3472.NewEngine(bus),
	}, nil
}

func initChannel(h *mpsse.Handle, cfg Config) error {
	if err := h.InitMPSSE(); err != nil {
		return err
	}
	readMS, writeMS := cfg.timeoutsMS()
	return h.SetTimeouts(readMS, writeMS)
}

// Close releases both of the device's channel handles. It returns the first
// error encountered but always attempts both closes.
func (d *Device) Close() error {
	errA := d.ChannelA.Close()
	errB := d.ChannelB.Close()
	if errA != nil {
		return errA
	}
	return errB
}

// describeSerials renders the manager's current ordering for log lines,
// trimming to a form useful in a diagnostic message without leaking the
// full identity scan.
func describeSerials(serials []string) string {
	return "[" + strings.Join(serials, ", ") + "]"
}
