// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	gccdemangle "github.com/ianlancetaylor/demangle"
)

// demangle runs the Itanium C++ ABI demangler over a linkage name flagged
// "maybe mangled" by the producing backend (DWARF/libdw-style and generic
// backtrace backends; DIA already hands back demangled names). An empty
// result - the demangler declined, typically because the name was not
// actually mangled - falls back to the raw name.
func demangle(name string) string {
	if name == "" {
		return name
	}
	out := gccdemangle.Filter(name, gccdemangle.NoTemplateParams)
	if out == "" {
		return name
	}
	return out
}
