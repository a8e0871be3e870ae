// Copyright 2024 The Colorctrl Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mpsse

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel transport errors, one per failure site named by the bridge
// protocol. Compare with errors.Is; Flush wraps the sentinel and the
// underlying cause together, so the cause is reachable with errors.Is and
// errors.As (errors.Unwrap returns nil for such a two-cause error).
var (
	ErrWriteChanA   = errors.New("mpsse: write channel A failed")
	ErrWriteChanB   = errors.New("mpsse: write channel B failed")
	ErrReadChanA    = errors.New("mpsse: read channel A failed")
	ErrReadChanB    = errors.New("mpsse: read channel B failed")
	ErrShortReadLen = errors.New("mpsse: bulk read returned an unexpected number of bytes")
)

// channel is the transport-level surface a bridge interface must offer; it
// is satisfied both by *Handle and by test fakes.
type channel interface {
	Write(b []byte) (int, error)
	ReadAll(ctx context.Context, b []byte) (int, error)
	Purge() error
}

// statusHeaderLen is the chip's fixed 2-byte status prefix prepended to
// every bulk IN packet.
const statusHeaderLen = 2

// readTimeout bounds each channel's bulk IN wait.
const readTimeout = 200 * time.Millisecond

// Transport flushes a Stager's two channel buffers to the bridge and
// harvests the corresponding bulk IN responses.
//
// Transport owns no staging state of its own; it is handed a *Stager on
// every call and never retains one across calls.
type Transport struct {
	A, B channel

	// SleepFunc is invoked between the bulk OUT and bulk IN phases to give the
	// bridge time to execute its staged command stream. Defaults to a ~1ms
	// real sleep; tests substitute a no-op.
	SleepFunc func(time.Duration)
}

// NewTransport returns a Transport driving the two given channel handles.
func NewTransport(a, b channel) *Transport {
	return &Transport{A: a, B: b, SleepFunc: time.Sleep}
}

// Flush commits the staged commands on both channels, waits for the bridge
// to execute them, reads back both channels' IN streams, and resets the
// Stager's counters regardless of outcome.
//
// The returned byte slices are the raw bulk IN payloads with the 2-byte
// status header already stripped; decoding them into per-bus values is an
// L3 concern (see the bitbang16 package).
func (t *Transport) Flush(ctx context.Context, s *Stager) (inA, inB []byte, err error) {
	defer s.Reset()

	if _, err := t.A.Write(s.PendingA()); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrWriteChanA, err)
	}
	if _, err := t.B.Write(s.PendingB()); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrWriteChanB, err)
	}

	sleep := t.SleepFunc
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(time.Millisecond)

	inA, err = t.readChannel(ctx, t.A, s.ReadExpectA())
	if err != nil {
		logf("mpsse: channel A read failed: %v", err)
		return nil, nil, fmt.Errorf("%w: %w", ErrReadChanA, err)
	}
	inB, err = t.readChannel(ctx, t.B, s.ReadExpectB())
	if err != nil {
		logf("mpsse: channel B read failed: %v", err)
		return nil, nil, fmt.Errorf("%w: %w", ErrReadChanB, err)
	}
	logf("mpsse: flush ok: %d bytes A, %d bytes B", len(inA), len(inB))
	return inA, inB, nil
}

func (t *Transport) readChannel(ctx context.Context, c channel, expect int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	buf := make([]byte, expect+statusHeaderLen)
	n, err := c.ReadAll(ctx, buf)
	if err != nil || n != len(buf) {
		_ = c.Purge()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortReadLen, n, len(buf))
	}
	return buf[statusHeaderLen:], nil
}
