// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package modulemap

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebov-andrey/hindsight/frame"
)

const sampleMaps = `` +
	"55a1a1a1a000-55a1a1a1b000 r--p 00000000 08:01 123 /usr/bin/sample\n" +
	"55a1a1a1b000-55a1a1a1c000 r-xp 00001000 08:01 123 /usr/bin/sample\n" +
	"55a1a1a1c000-55a1a1a1d000 r--p 00002000 08:01 123 /usr/bin/sample\n" +
	"7f0000000000-7f0000020000 r-xp 00000000 08:01 456 /usr/lib/libc.so.6\n" +
	"7f0000100000-7f0000101000 rwxp 00000000 00:00 0 \n" +
	"7ffd00000000-7ffd00021000 r-xp 00000000 00:00 0 [vdso]\n"

func TestParseMapsMergesSegmentsByFile(t *testing.T) {
	modules, err := parseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	require.Len(t, modules, 3) // sample, libc and [vdso]; non-executable and anonymous mappings are dropped

	m := modules[0]
	assert.Equal(t, "/usr/bin/sample", m.path)
	assert.Equal(t, uint64(0x55a1a1a1b000), m.base)
	assert.Equal(t, uint64(0x55a1a1a1c000), m.end)
}

func TestLookupInFindsContainingModule(t *testing.T) {
	modules, err := parseMaps(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	info, ok := lookupIn(modules, 0x55a1a1a1b500)
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/sample", info.FileName)

	_, ok = lookupIn(modules, 0x1)
	assert.False(t, ok)
}

func TestLocalLookupModuleFindsSelf(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	f, err := os.Open("/proc/self/maps")
	require.NoError(t, err)
	defer f.Close()
	modules, err := parseMaps(f)
	require.NoError(t, err)

	var found bool
	for _, m := range modules {
		if m.path == exe {
			found = true
			break
		}
	}
	assert.True(t, found, "expected at least one executable mapping for %s", exe)
}

func TestRemoteBackoffSchedule(t *testing.T) {
	assert.Equal(t, time.Duration(0), remoteBackoff(0))
	assert.Equal(t, time.Millisecond, remoteBackoff(1))
	assert.Equal(t, 10*time.Millisecond, remoteBackoff(2))
	assert.Equal(t, 10*time.Millisecond, remoteBackoff(3))
	assert.Equal(t, 100*time.Millisecond, remoteBackoff(12))
}

func TestRemoteLookupModuleUnknownPID(t *testing.T) {
	r := NewRemote(1 << 30) // implausible PID: enumeration always fails
	_, ok := r.LookupModule(frame.PhysicalAddress(1))
	assert.False(t, ok)
	assert.NoError(t, r.Close())
}
