// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command colorctrl is a smoke test for the sixteen-sensor color controller
// rig: scan for bridges, open one, identify its sensors, and print one
// round of color readings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	colorctrl "github.com/waizi/colorctrl"
	"github.com/waizi/colorctrl/tcs3472"
)

func main() {
	serial := flag.String("serial", "", "serial number of the bridge to open; default: first one scanned")
	assertACK := flag.Bool("assert-ack", false, "fail a transaction if any sampled ACK bit is a NAK")
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*serial, *assertACK); err != nil {
		log.Fatal(err)
	}
}

func run(serial string, assertACK bool) error {
	if _, err := colorctrl.Init(); err != nil {
		return fmt.Errorf("colorctrl.Init: %w", err)
	}

	cfg := colorctrl.DefaultConfig()
	cfg.AssertACK = assertACK
	mgr := colorctrl.NewManager(cfg)
	if err := mgr.Scan(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	serials := mgr.Serials()
	if len(serials) == 0 {
		return errors.New("no color controller bridges found")
	}
	fmt.Printf("found %d bridge(s): %v\n", len(serials), serials)

	if serial == "" {
		serial = serials[0]
	}
	dev, err := mgr.Open(serial)
	if err != nil {
		return fmt.Errorf("open %s: %w", serial, err)
	}
	defer func() { _ = dev.Close() }()

	ctx := context.Background()
	if mismatch, err := dev.Sensors.Identify(ctx); err != nil {
		return fmt.Errorf("identify: %w", err)
	} else if mismatch != 0 {
		fmt.Printf("warning: unexpected sensor ID on buses %s\n", tcs3472.BusList(uint16(mismatch)))
	}

	if err := dev.Sensors.PowerOn(ctx); err != nil {
		return fmt.Errorf("power on: %w", err)
	}
	if err := dev.Sensors.SetIntegration(ctx, tcs3472.Integration100ms); err != nil {
		return fmt.Errorf("set integration: %w", err)
	}

	colors, flags, err := dev.Sensors.ReadColors(ctx)
	if err != nil {
		return fmt.Errorf("read colors: %w", err)
	}
	if flags&tcs3472.FlagIncompleteConversion != 0 {
		fmt.Printf("warning: incomplete conversion on buses %s\n", tcs3472.BusList(uint16(flags)))
	}
	sat := tcs3472.CheckSaturation(colors.Clear, tcs3472.Integration100ms)
	if sat != 0 {
		fmt.Printf("warning: saturated on buses %s\n", tcs3472.BusList(uint16(sat)))
	}

	for bus := 0; bus < 16; bus++ {
		fmt.Printf("bus %2d: status=0x%02x clear=%5d red=%5d green=%5d blue=%5d\n",
			bus, colors.Status[bus], colors.Clear[bus], colors.Red[bus], colors.Green[bus], colors.Blue[bus])
	}
	return nil
}
