// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package colorctrl_test

import (
	"context"
	"fmt"
	"log"

	colorctrl "github.com/waizi/colorctrl"
)

// Example demonstrates the scan, open and read-colors sequence a program
// drives against a color controller bridge. It has no "Output:" comment, so
// it is compiled but not run: it needs real USB hardware attached.
func Example() {
	if _, err := colorctrl.Init(); err != nil {
		log.Fatal(err)
	}

	mgr := colorctrl.NewManager(colorctrl.DefaultConfig())
	if err := mgr.Scan(); err != nil {
		log.Fatal(err)
	}
	serials := mgr.Serials()
	if len(serials) == 0 {
		log.Fatal("no color controller bridges found")
	}

	dev, err := mgr.Open(serials[0])
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close()

	colors, _, err := dev.Sensors.ReadColors(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("bus 0: clear=%d red=%d green=%d blue=%d\n",
		colors.Clear[0], colors.Red[0], colors.Green[0], colors.Blue[0])
}
