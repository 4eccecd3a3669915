// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebov-andrey/hindsight/frame"
	"github.com/glebov-andrey/hindsight/unwind"
)

// TestResolveUnknownAddressYieldsPlaceholder exercises the whole Resolver
// path - module lookup miss - for an address no process could ever map.
func TestResolveUnknownAddressYieldsPlaceholder(t *testing.T) {
	r := New()
	defer r.Close()

	var got []frame.LogicalFrame
	r.Resolve(frame.PhysicalAddress(0xdead0000), func(lf frame.LogicalFrame) Decision {
		got = append(got, lf)
		return Continue
	})

	require.Len(t, got, 1)
	assert.True(t, got[0].IsPlaceholder())
}

// TestResolveAbsentAddressYieldsPlaceholder covers the zero/"absent"
// sentinel address, which must never reach the module map at all.
func TestResolveAbsentAddressYieldsPlaceholder(t *testing.T) {
	r := New()
	defer r.Close()

	var got []frame.LogicalFrame
	r.Resolve(frame.PhysicalAddress(0), func(lf frame.LogicalFrame) Decision {
		got = append(got, lf)
		return Continue
	})

	require.Len(t, got, 1)
	assert.True(t, got[0].IsPlaceholder())
}

// TestResolveOwnCapturedStackProducesNonPlaceholderFrames captures the
// current goroutine's own stack and resolves every address in it against
// the running test binary. Since the test binary is built with symbol
// information at minimum, at least one resolved frame must carry a name.
func TestResolveOwnCapturedStackProducesNonPlaceholderFrames(t *testing.T) {
	addrs := unwind.NewUnbounded()
	unwind.Capture(0, addrs)
	pcs := addrs.Result()
	require.NotEmpty(t, pcs)

	r := New()
	defer r.Close()

	sawResolved := false
	for _, pc := range pcs {
		r.Resolve(pc, func(lf frame.LogicalFrame) Decision {
			if !lf.IsPlaceholder() {
				sawResolved = true
			}
			return Continue
		})
	}
	assert.True(t, sawResolved, "at least one frame of the test binary's own stack should resolve")
}

// TestResolveStopHaltsImmediately verifies that a sink returning Stop
// prevents any further frame from the same Resolve call.
func TestResolveStopHaltsImmediately(t *testing.T) {
	r := New()
	defer r.Close()

	calls := 0
	r.Resolve(frame.PhysicalAddress(0xdead0000), func(frame.LogicalFrame) Decision {
		calls++
		return Stop
	})
	assert.Equal(t, 1, calls)
}

// TestResolverSessionCacheReused resolves the same address (in the test
// binary's own text segment) twice and checks no
// observable behavior differs between the first (cache-populating) and
// second (cache-hit) call - a change-detector for the cache wiring rather
// than the resolution algorithm itself.
func TestResolverSessionCacheReused(t *testing.T) {
	addrs := unwind.NewBounded(1)
	unwind.Capture(0, addrs)
	pcs := addrs.Result()
	require.NotEmpty(t, pcs)

	r := New()
	defer r.Close()

	var first, second []frame.LogicalFrame
	r.Resolve(pcs[0], func(lf frame.LogicalFrame) Decision { first = append(first, lf); return Continue })
	r.Resolve(pcs[0], func(lf frame.LogicalFrame) Decision { second = append(second, lf); return Continue })

	assert.Equal(t, first, second)
}

// TestNewForProcMapsUsesSuppliedSnapshot exercises the constructor that
// takes ownership of an already-opened /proc/<pid>/maps descriptor instead
// of a live PID.
func TestNewForProcMapsUsesSuppliedSnapshot(t *testing.T) {
	f, err := os.Open("/proc/self/maps")
	require.NoError(t, err)

	r, err := NewForProcMaps(f)
	require.NoError(t, err)
	defer r.Close()

	var got []frame.LogicalFrame
	r.Resolve(frame.PhysicalAddress(0xdead0000), func(lf frame.LogicalFrame) Decision {
		got = append(got, lf)
		return Continue
	})
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPlaceholder())
}

// TestNewForProcessUnknownPIDStillResolvesToPlaceholder covers the remote
// constructor against a PID that (almost certainly) does not exist: module
// lookup exhausts its retries and falls back to the placeholder path
// rather than blocking forever or panicking.
func TestNewForProcessUnknownPIDStillResolvesToPlaceholder(t *testing.T) {
	r := NewForProcess(1 << 30)
	defer r.Close()

	var got []frame.LogicalFrame
	r.Resolve(frame.PhysicalAddress(0x1000), func(lf frame.LogicalFrame) Decision {
		got = append(got, lf)
		return Continue
	})
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPlaceholder())
}
