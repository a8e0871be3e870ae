// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mpsse wraps a FTDI dual-channel MPSSE bridge (VID 0x1939, PID
// 0x0024) as used by a sixteen-bus parallel I²C controller: one [Handle] per
// USB interface, plus a [Stager] that batches GPIO set/read commands into a
// per-channel byte buffer for a single bulk transfer.
//
// Use build tag colorctrl_debug to enable logging of every transport
// flush and of each failed channel read.
package mpsse
