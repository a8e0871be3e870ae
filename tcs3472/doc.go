// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tcs3472 implements the TCS3472 RGBC color sensor's register
// protocol on top of the sixteen-bus broadcast I²C engine in
// [github.com/waizi/colorctrl/bitbang16]. Every operation addresses all
// sixteen sensors in lock-step unless its name ends in "ForBus".
//
// Luminance and correlated color temperature computation is deliberately
// out of scope: upstream firmware computed it in a separate scripting layer
// and never used the on-chip gain/integration-time lookup tables for
// anything else.
package tcs3472
