// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbang16 implements a parallel, sixteen-bus bit-banged I²C
// master built on top of the MPSSE pin stager and transport in
// [github.com/waizi/colorctrl/mpsse]. One logical transaction — START,
// address/register bytes, an optional repeated START and read phase, STOP —
// is emitted identically on all sixteen buses in lock-step, and a single
// flush per transaction services the whole bank.
//
// The engine is not safe for concurrent or reentrant use against the same
// device; an [Engine] value is owned by exactly one caller at a time.
package bitbang16
