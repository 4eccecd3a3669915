// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebov-andrey/hindsight/frame"
)

func captureAll(skip int) []frame.PhysicalAddress {
	s := NewUnbounded()
	Capture(skip, s)
	return s.Result()
}

func TestCaptureSelfTraceNonEmpty(t *testing.T) {
	addrs := captureAll(0)
	require.NotEmpty(t, addrs)
	for _, a := range addrs {
		assert.False(t, a.IsAbsent())
	}
}

func TestCaptureBoundedTruncation(t *testing.T) {
	// Both captures go through the same call site, so their innermost
	// frames are the same address.
	u, b := NewUnbounded(), NewBounded(1)
	for _, s := range []Sink{u, b} {
		Capture(0, s)
	}
	full := u.Result()
	require.NotEmpty(t, full)

	got := b.Result()
	require.Len(t, got, 1)
	assert.Equal(t, full[0], got[0])
}

func TestCaptureSkipSemantics(t *testing.T) {
	// Both captures go through the same call site, so only skip differs.
	var runs [2][]frame.PhysicalAddress
	for skip := range runs {
		runs[skip] = captureAll(skip)
	}
	full, skipped := runs[0], runs[1]
	require.GreaterOrEqual(t, len(full), 2)

	assert.Equal(t, full[1:], skipped)
}

func TestCaptureSkipLargerThanDepthIsEmpty(t *testing.T) {
	got := captureAll(1 << 20)
	assert.Empty(t, got)
}

func TestCaptureInvokesSinkReturningStop(t *testing.T) {
	invoked := false
	Capture(0, SinkFunc(func(frame.PhysicalAddress) Decision {
		invoked = true
		return Stop
	}))
	assert.True(t, invoked, "a non-empty stack must invoke a sink accepting Stop immediately")
}

// fakeMemory is an in-memory MemoryReader backed by a map, used to build a
// synthetic frame-pointer chain without touching real process memory.
type fakeMemory map[uint64]uint64

func (m fakeMemory) ReadWord(addr uint64) (uint64, bool) {
	v, ok := m[addr]
	return v, ok
}

func TestCaptureFromWalksFramePointerChain(t *testing.T) {
	// Three synthetic frames: fp0 (innermost, from ctx) -> fp1 -> fp2 -> 0 (end).
	const fp0, fp1, fp2 = 0x1000, 0x2000, 0x3000
	mem := fakeMemory{
		fp0:            fp1,   // saved FP at [fp0]
		fp0 + wordSize: 0x500, // return address at [fp0+8]
		fp1:            fp2,
		fp1 + wordSize: 0x600,
		fp2:            0, // end of chain
		fp2 + wordSize: 0x700,
	}
	ctx := MachineContext{PC: 0x400, SP: 0, FP: fp0}

	s := NewUnbounded()
	CaptureFrom(ctx, mem, 0, s)
	got := s.Result()

	require.Len(t, got, 3)
	assert.Equal(t, frame.PhysicalAddress(0x400-1), got[0])
	assert.Equal(t, frame.PhysicalAddress(0x500-1), got[1])
	assert.Equal(t, frame.PhysicalAddress(0x600-1), got[2])
}

func TestCaptureFromSignalFrameNotDecremented(t *testing.T) {
	mem := fakeMemory{}
	ctx := MachineContext{PC: 0x400, FP: 0, IsSignalFrame: true}

	s := NewUnbounded()
	CaptureFrom(ctx, mem, 0, s)
	got := s.Result()

	require.Len(t, got, 1)
	assert.Equal(t, frame.PhysicalAddress(0x400), got[0])
}

func TestCaptureFromIdenticalContextIdenticalResult(t *testing.T) {
	mem := fakeMemory{0x1000: 0, 0x1008: 0x500}
	ctx := MachineContext{PC: 0x400, FP: 0x1000}

	s1, s2 := NewUnbounded(), NewUnbounded()
	CaptureFrom(ctx, mem, 0, s1)
	CaptureFrom(ctx, mem, 0, s2)
	assert.Equal(t, s1.Result(), s2.Result())
}

func TestCaptureFromZeroPCYieldsNothing(t *testing.T) {
	s := NewUnbounded()
	CaptureFrom(MachineContext{}, fakeMemory{}, 0, s)
	assert.Empty(t, s.Result())
}

func TestCaptureFromSkipLargerThanDepth(t *testing.T) {
	mem := fakeMemory{0x1000: 0, 0x1008: 0x500}
	ctx := MachineContext{PC: 0x400, FP: 0x1000}

	s := NewUnbounded()
	CaptureFrom(ctx, mem, 1<<10, s)
	assert.Empty(t, s.Result())
}
