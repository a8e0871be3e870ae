// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !colorctrl_debug
// +build !colorctrl_debug

package colorctrl

// logf is disabled when the build tag colorctrl_debug is not specified.
func logf(format string, v ...interface{}) {
}
