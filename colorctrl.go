// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package colorctrl is the device manager for a bank of up to sixteen
// TCS3472 RGBC color sensors driven in lock-step over a dual-channel
// USB-to-MPSSE bridge (see [github.com/waizi/colorctrl/mpsse] and
// [github.com/waizi/colorctrl/bitbang16] for the engine underneath it, and
// [github.com/waizi/colorctrl/tcs3472] for the sensor protocol layer).
//
// A [Manager] scans for bridges by USB VID/PID/description, holds them in a
// caller-reorderable list of serial numbers, and opens a chosen serial as a
// [Device] pairing its two channel handles with the engines built on top of
// them.
package colorctrl

import "periph.io/x/conn/v3/driver/driverreg"

// Init calls driverreg.Init(), registering any host drivers the periph.io
// ecosystem packages linked into the binary have added to the global
// registry (for example a sysfs GPIO driver used elsewhere in the same
// process). colorctrl's own device discovery does not go through
// driverreg/i2creg/gpioreg — the sixteen-way broadcast bus has no
// equivalent in periph's per-pin, per-bus interfaces (see DESIGN.md) — but
// this entry point is kept so a colorctrl-based program composes cleanly
// with other periph.io device drivers in the same process, exactly as the
// original periph.io/x/host package's Init did for its whole driver set.
func Init() (*driverreg.State, error) {
	return driverreg.Init()
}
