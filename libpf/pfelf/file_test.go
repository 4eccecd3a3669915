// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pfelf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebov-andrey/hindsight/libpf"
)

func TestGnuHash(t *testing.T) {
	assert.Equal(t, uint32(0x00001505), calcGNUHash(""))
	assert.Equal(t, uint32(0x156b2bb8), calcGNUHash("printf"))
	assert.Equal(t, uint32(0x7c967e3f), calcGNUHash("exit"))
	assert.Equal(t, uint32(0xbac212a0), calcGNUHash("syscall"))
}

func TestSysvHash(t *testing.T) {
	assert.Equal(t, uint32(0x0), calcSysvHash(""))
	assert.NotEqual(t, calcSysvHash("printf"), calcSysvHash("exit"))
}

// TestOpenSelf exercises the full header/program-header parse path against
// the test binary's own executable, which is guaranteed to exist.
func TestOpenSelf(t *testing.T) {
	ef, err := Open("/proc/self/exe")
	require.NoError(t, err)
	defer ef.Close()

	assert.NotEmpty(t, ef.Progs)
	assert.Equal(t, CurrentMachine, ef.Machine)

	eh, err := ef.EHFrame()
	if err == nil {
		assert.NotZero(t, eh.Vaddr)
	}

	symtab, err := ef.ReadSymbols()
	if err == nil {
		assert.Positive(t, symtab.Len())
	}
}

func TestLookupSymbolAddressMissing(t *testing.T) {
	ef, err := Open("/proc/self/exe")
	require.NoError(t, err)
	defer ef.Close()

	_, err = ef.LookupSymbolAddress(libpf.SymbolName("___definitely_not_a_real_symbol___"))
	assert.Error(t, err)
}
