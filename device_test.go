// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package colorctrl

import (
	"errors"
	"testing"

	"github.com/waizi/colorctrl/mpsse"
)

type fakeHandle struct {
	id  mpsse.Identity
	err error
}

func (f *fakeHandle) Identity() (mpsse.Identity, error) { return f.id, f.err }
func (f *fakeHandle) Close() error                      { return nil }

type fakeScanner struct {
	handles []scanHandle
	openErr map[int]error
}

func (f *fakeScanner) NumDevices() (int, error) { return len(f.handles), nil }

func (f *fakeScanner) Open(i int) (scanHandle, error) {
	if err, ok := f.openErr[i]; ok {
		return nil, err
	}
	return f.handles[i], nil
}

func TestScanDedupesChannelsAndFiltersDescription(t *testing.T) {
	fs := &fakeScanner{handles: []scanHandle{
		&fakeHandle{id: mpsse.Identity{Description: "COLOR-CTRL", Serial: "S1A"}},
		&fakeHandle{id: mpsse.Identity{Description: "COLOR-CTRL", Serial: "S1B"}},
		&fakeHandle{id: mpsse.Identity{Description: "OTHER-DEVICE", Serial: "X1A"}},
		&fakeHandle{id: mpsse.Identity{Description: "COLOR-CTRL", Serial: "S2A"}},
		&fakeHandle{id: mpsse.Identity{Description: "COLOR-CTRL", Serial: "S2B"}},
	}}
	m := NewManager(DefaultConfig())
	m.scan = fs
	if err := m.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := m.Serials()
	want := []string{"S1", "S2"}
	if len(got) != len(want) {
		t.Fatalf("Serials() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Serials() = %v, want %v", got, want)
		}
	}
}

func TestScanSkipsUnopenableDevices(t *testing.T) {
	fs := &fakeScanner{
		handles: []scanHandle{nil, &fakeHandle{id: mpsse.Identity{Description: "COLOR-CTRL", Serial: "S1A"}}},
		openErr: map[int]error{0: errors.New("device busy")},
	}
	m := NewManager(DefaultConfig())
	m.scan = fs
	if err := m.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := m.Serials(); len(got) != 1 || got[0] != "S1" {
		t.Fatalf("Serials() = %v, want [S1]", got)
	}
}

func TestSwapUpReordersAndIsNoOpAtFront(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.serials = []string{"S1", "S2"}
	m.SwapUp("S2")
	if got := m.Serials(); got[0] != "S2" || got[1] != "S1" {
		t.Fatalf("after SwapUp(S2): %v, want [S2 S1]", got)
	}
	m.SwapUp("S2") // already first: no-op, no panic
	if got := m.Serials(); got[0] != "S2" {
		t.Fatalf("SwapUp on first element should be a no-op, got %v", got)
	}
}

func TestSwapDownAndUnknownSerialAreNoOps(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.serials = []string{"S1", "S2"}
	m.SwapDown("S1")
	if got := m.Serials(); got[0] != "S2" || got[1] != "S1" {
		t.Fatalf("after SwapDown(S1): %v, want [S2 S1]", got)
	}
	m.SwapDown("nope")
	m.SwapUp("nope")
	if got := m.Serials(); got[0] != "S2" || got[1] != "S1" {
		t.Fatalf("unknown serial should be a no-op, got %v", got)
	}
}

func TestSerialIndex(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.serials = []string{"S1", "S2"}
	if i, ok := m.SerialIndex("S2"); !ok || i != 1 {
		t.Fatalf("SerialIndex(S2) = %d, %v, want 1, true", i, ok)
	}
	if _, ok := m.SerialIndex("nope"); ok {
		t.Fatal("SerialIndex(nope) should report not found")
	}
}

func TestHandleIndexInvariant(t *testing.T) {
	if HandleIndex(3, 'A') != 6 || HandleIndex(3, 'B') != 7 {
		t.Fatalf("HandleIndex(3, A/B) = %d/%d, want 6/7", HandleIndex(3, 'A'), HandleIndex(3, 'B'))
	}
}

func TestHandleIndexPanicsOnBadChannel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid channel letter")
		}
	}()
	HandleIndex(0, 'C')
}
