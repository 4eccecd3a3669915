// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame defines the value types shared by the unwinder, the module
// map and the resolver: a physical return address, a source location and a
// logical (possibly inlined) stack frame.
package frame // import "github.com/glebov-andrey/hindsight/frame"

import (
	"fmt"
	"math/bits"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/glebov-andrey/hindsight/libpf"
)

// PhysicalAddress is an opaque, totally ordered machine address. The zero
// value represents "absent" - the Unwinder never emits it and the Resolver
// treats it as already-unresolved.
//
// For every non-signal frame the Unwinder has already subtracted one from
// the raw return address, so a PhysicalAddress always points inside the
// calling instruction rather than just past it.
type PhysicalAddress libpf.Address

// addressHexDigits is the formatted width of a PhysicalAddress: 8 hex
// digits on 32-bit platforms, 16 on 64-bit ones.
const addressHexDigits = bits.UintSize / 4

// String renders the address as "0x" followed by zero-padded lowercase hex,
// full pointer width. Formatting is idempotent with ParsePhysicalAddress.
func (a PhysicalAddress) String() string {
	return fmt.Sprintf("0x%0*x", addressHexDigits, uint64(a))
}

// ParsePhysicalAddress parses the output of PhysicalAddress.String.
func ParsePhysicalAddress(s string) (PhysicalAddress, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "0x%x", &v); err != nil {
		return 0, fmt.Errorf("parse physical address %q: %w", s, err)
	}
	return PhysicalAddress(v), nil
}

// IsAbsent reports whether this is the sentinel zero value.
func (a PhysicalAddress) IsAbsent() bool {
	return a == 0
}

// SourceLocation identifies a position in source code. Column is zero when
// the backend that produced the enclosing LogicalFrame does not supply one.
type SourceLocation struct {
	FileName string
	Line     uint32
	Column   uint32
}

// IsEmpty reports whether no source information is carried at all.
func (s SourceLocation) IsEmpty() bool {
	return s.FileName == "" && s.Line == 0 && s.Column == 0
}

// narrowEncoding is used for the "native narrow" accessors. It stands in
// for the current process's narrow code page the way the Windows backend
// would use the ACP: any character outside it is replaced, never rejected.
var narrowEncoding = charmap.Windows1252

// LogicalFrame is one function activation as seen at source level. A single
// PhysicalAddress may expand into several LogicalFrames - one per inlined
// callee plus the enclosing physical function - produced innermost first.
//
// The last frame produced for a given physical address (the enclosing
// physical function) is never inline; every earlier frame expanded from the
// same address is. A LogicalFrame
// with an empty Symbol and an empty SourceLocation.FileName is the
// "unresolved" placeholder: it is produced exactly once per input address
// when the resolver has no other information, so callers never see an
// input address that yielded nothing at all.
type LogicalFrame struct {
	Physical PhysicalAddress
	IsInline bool
	Symbol   string
	Source   SourceLocation

	// maybeMangled marks names the producing backend could not guarantee
	// were already demangled (Itanium linkage names). DIA's names are
	// never flagged since DIA already demangles.
	maybeMangled bool
}

// NewLogicalFrame constructs a LogicalFrame, demangling symbol if the
// backend flagged it as possibly mangled. Demangling happens eagerly here
// because accessors must not re-invoke a fallible demangler on every call.
func NewLogicalFrame(
	physical PhysicalAddress, isInline bool, symbol string, maybeMangled bool, source SourceLocation,
) LogicalFrame {
	if maybeMangled {
		symbol = demangle(symbol)
	}
	return LogicalFrame{
		Physical: physical,
		IsInline: isInline,
		Symbol:   symbol,
		Source:   source,
	}
}

// Placeholder builds the "unresolved" frame for a physical address that
// could not be mapped to any module or any symbol.
func Placeholder(physical PhysicalAddress) LogicalFrame {
	return LogicalFrame{Physical: physical}
}

// IsPlaceholder reports whether this is the unresolved placeholder frame.
func (f LogicalFrame) IsPlaceholder() bool {
	return f.Symbol == "" && f.Source.FileName == ""
}

// SymbolUTF8 returns the symbol name, sanitized to valid UTF-8 (invalid
// sequences are stripped, never rejected).
func (f LogicalFrame) SymbolUTF8() string {
	return sanitizeUTF8(f.Symbol)
}

// SymbolNative transcodes the symbol name to the narrow encoding used to
// stand in for the current process's code page.
func (f LogicalFrame) SymbolNative() string {
	return toNarrow(f.Symbol)
}

// SourceFileUTF8 returns the source file name, sanitized to valid UTF-8.
func (f LogicalFrame) SourceFileUTF8() string {
	return sanitizeUTF8(f.Source.FileName)
}

// SourceFileNative transcodes the source file name to the narrow encoding.
func (f LogicalFrame) SourceFileNative() string {
	return toNarrow(f.Source.FileName)
}

// sanitizeUTF8 strips invalid UTF-8 byte sequences. It is a projection:
// applying it twice is equivalent to applying it once, and it is the
// identity on already-valid input.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

// toNarrow transcodes s from UTF-8 to the narrow encoding, replacing
// unrepresentable characters rather than failing.
func toNarrow(s string) string {
	if s == "" {
		return ""
	}
	out, err := narrowEncoding.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return out
}

// ModuleInfo identifies the loaded image containing an address.
type ModuleInfo struct {
	// BaseOffset is the load bias: the amount added to the module's
	// link-time virtual addresses to get the runtime addresses it was
	// actually loaded at. Subtracting it from a runtime address recovers
	// the link-time virtual address that DWARF and the symbol table key
	// their data by.
	BaseOffset uint64
	FileName   string
}
