// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind

import (
	"golang.org/x/arch/x86/x86asm"
)

// byteReader is implemented by a MemoryReader that can also hand back a
// contiguous range of raw bytes, not just 64-bit words. It backs the
// optional call-site sanity check below; a MemoryReader that doesn't
// implement it (or a non-amd64 target) simply skips the check.
type byteReader interface {
	ReadBytes(addr uint64, n int) ([]byte, bool)
}

// maxX86InstructionLen is the longest possible x86-64 instruction
// encoding.
const maxX86InstructionLen = 15

// looksLikeReturnAddress is a defensive check on the frame-pointer walk:
// a return address read from a corrupted or already-exhausted chain is
// unlikely to be preceded by a real CALL instruction. Used to cut a
// walk short instead of following garbage arbitrarily far once the
// chain has gone bad, the simplified frame-pointer walk's only guard
// against runaway traces since it does not validate against CFI the way
// the other platforms' backend does.
//
// It is intentionally permissive: any decode failure or any instruction
// shape it doesn't specifically recognize as "definitely not a call" is
// accepted, since the goal is only to catch the common case of a return
// address landing in the middle of unrelated code.
func looksLikeReturnAddress(mem MemoryReader, retAddr uint64) bool {
	br, ok := mem.(byteReader)
	if !ok || retAddr < maxX86InstructionLen {
		return true
	}

	code, ok := br.ReadBytes(retAddr-maxX86InstructionLen, maxX86InstructionLen)
	if !ok {
		return true
	}

	// Try every possible start offset within the window for an
	// instruction that decodes exactly up to retAddr and is a call; a
	// CALL immediately preceding retAddr is sufficient evidence, and we
	// don't know the true instruction boundary without decoding from
	// the start of the function.
	sawNonCall := false
	for start := 0; start < len(code); start++ {
		inst, err := x86asm.Decode(code[start:], 64)
		if err != nil || inst.Len == 0 {
			continue
		}
		if start+inst.Len != len(code) {
			continue
		}
		if inst.Op == x86asm.CALL || inst.Op == x86asm.LCALL {
			return true
		}
		sawNonCall = true
	}
	return !sawNonCall
}
