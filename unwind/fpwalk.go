// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind

import (
	"github.com/glebov-andrey/hindsight/frame"
)

// CaptureFrom walks the stack described by a read-only machine-context
// snapshot, omitting the first skip frames and invoking sink for each
// remaining physical address. ctx is not modified.
//
// Unlike Capture, this path has no access to the Go runtime's own unwind
// tables - ctx may describe a foreign thread, a signal handler's
// interrupted context, or a snapshot taken long after the fact - so it
// steps the stack itself by following the saved frame-pointer chain
// through mem. This mirrors the CFI-cursor algorithm the design describes
// for non-table-based platforms, specialized to the frame-pointer calling
// convention (the caller's FP and return address are the two words at and
// just above the callee's own FP) rather than interpreting call-frame-information
// programs; binaries built without frame pointers (the default for some
// Itanium toolchains prior to frame-pointer reinstatement) will unwind
// short or not at all, which is within the "errors terminate capture
// silently" failure semantics the design specifies for this component.
func CaptureFrom(ctx MachineContext, mem MemoryReader, skip int, sink Sink) {
	c := ctx
	walkFramePointers(&c, mem, skip, sink)
}

// CaptureFromMut is CaptureFrom, but is permitted to overwrite ctx in
// place rather than copying it, saving a copy when the caller no longer
// needs the original snapshot.
func CaptureFromMut(ctx *MachineContext, mem MemoryReader, skip int, sink Sink) {
	walkFramePointers(ctx, mem, skip, sink)
}

// walkFramePointers applies the -1 rule to every frame that is not a signal
// frame, the context's own topmost PC included: a topmost PC that is not a
// return address is therefore reported one byte before the instruction it
// points at.
func walkFramePointers(ctx *MachineContext, mem MemoryReader, skip int, sink Sink) {
	if skip < 0 {
		skip = 0
	}
	pc := ctx.PC
	fp := ctx.FP
	signal := ctx.IsSignalFrame
	for {
		if pc == 0 {
			return
		}

		if skip > 0 {
			skip--
		} else {
			addr := pc
			if !signal {
				// The -1 rule: the return address points past the
				// call instruction; subtracting one puts it inside
				// the call. A signal-delivered PC is the faulting
				// instruction itself and is preserved as-is.
				addr--
			}
			if frame.PhysicalAddress(addr).IsAbsent() {
				return
			}
			if sink.Visit(frame.PhysicalAddress(addr)) == Stop {
				return
			}
		}
		// Only the context's own top frame can be a signal frame; every
		// frame reached by stepping the FP chain is an ordinary call.
		signal = false

		if fp == 0 {
			return
		}
		// Standard frame-pointer convention: the saved caller FP lives
		// at [fp], the return address at [fp+wordSize].
		savedFP, ok := mem.ReadWord(fp)
		if !ok {
			return
		}
		retAddr, ok := mem.ReadWord(fp + wordSize)
		if !ok {
			return
		}
		if savedFP <= fp {
			// The chain must move outward (toward higher addresses,
			// stack growing down); a non-increasing FP means either
			// end-of-stack or corrupted state. Either way, stop.
			return
		}
		if retAddr != 0 && !looksLikeReturnAddress(mem, retAddr) {
			// The word we read at what should be the return-address slot
			// doesn't look like it follows a call; the FP chain has most
			// likely run into a function built without frame pointers or
			// otherwise gone off the rails. Truncate rather than keep
			// following garbage.
			return
		}
		pc = retAddr
		fp = savedFP
	}
}

// wordSize is the machine pointer width in bytes.
const wordSize = 8
