// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysicalAddressFormatRoundTrip(t *testing.T) {
	for _, a := range []PhysicalAddress{0, 1, 0xdeadbeef, ^PhysicalAddress(0)} {
		parsed, err := ParsePhysicalAddress(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}
}

func TestPhysicalAddressIsAbsent(t *testing.T) {
	assert.True(t, PhysicalAddress(0).IsAbsent())
	assert.False(t, PhysicalAddress(1).IsAbsent())
}

func TestPlaceholderIsPlaceholder(t *testing.T) {
	p := Placeholder(PhysicalAddress(0x1000))
	assert.True(t, p.IsPlaceholder())
	assert.Equal(t, PhysicalAddress(0x1000), p.Physical)
	assert.False(t, p.IsInline)
}

func TestNewLogicalFrameNotPlaceholder(t *testing.T) {
	f := NewLogicalFrame(PhysicalAddress(1), false, "main", false, SourceLocation{FileName: "main.go", Line: 1})
	assert.False(t, f.IsPlaceholder())
}

func TestSanitizeUTF8Projection(t *testing.T) {
	valid := "hello world"
	assert.Equal(t, valid, sanitizeUTF8(valid))

	invalid := "abc\xffdef"
	once := sanitizeUTF8(invalid)
	twice := sanitizeUTF8(once)
	assert.Equal(t, once, twice)
}

func TestSymbolUTF8Sanitizes(t *testing.T) {
	f := LogicalFrame{Symbol: "foo\xffbar"}
	assert.NotContains(t, f.SymbolUTF8(), "\xff")
}

func TestDemangleFallsBackOnUnmangled(t *testing.T) {
	assert.Equal(t, "not_mangled_at_all", demangle("not_mangled_at_all"))
}

func TestDemangleItaniumName(t *testing.T) {
	out := demangle("_Znwm")
	assert.NotEqual(t, "", out)
}
