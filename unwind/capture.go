// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind

import (
	"runtime"

	"github.com/glebov-andrey/hindsight/frame"
)

// callersBatch bounds a single runtime.Callers call; Capture loops when the
// stack is deeper than this so arbitrarily deep stacks are still fully
// walked.
const callersBatch = 128

// Capture produces the sequence of physical return addresses for the
// calling goroutine's own stack, omitting the first skip frames, and
// invokes sink for each remaining one until the stack is exhausted or sink
// returns Stop.
//
// This is the "current execution point" capture form. It walks the Go
// runtime's own unwind tables rather than a platform unwinder, which is
// the idiomatic and always-correct way to describe "the stack right now"
// from within the process that owns it; CaptureFrom/CaptureFromMut cover
// the register-snapshot and foreign-context forms the design also asks
// for.
//
// Capture is not itself marked noinline in source; captureSkipSelf is, so
// that Capture's own frame never appears in the result regardless of
// whether the compiler inlines Capture into its caller.
func Capture(skip int, sink Sink) {
	captureSkipSelf(skip, sink)
}

//go:noinline
func captureSkipSelf(skip int, sink Sink) {
	if skip < 0 {
		skip = 0
	}
	// +4 hides the frames of runtime.Callers, walkCallers, captureSkipSelf
	// and Capture, matching the "don't-count-the-unwinder's-own-frame"
	// discipline the design asks every capture entry point to apply.
	walkCallers(skip+4, sink)
}

func walkCallers(skip int, sink Sink) {
	var pcs [callersBatch]uintptr
	for {
		n := runtime.Callers(skip, pcs[:])
		if n == 0 {
			return
		}
		for i := 0; i < n; i++ {
			// runtime.Callers returns return PCs; subtract one so the
			// address falls inside the call instruction, matching the
			// non-signal-frame rule every backend applies.
			addr := frame.PhysicalAddress(pcs[i] - 1)
			if addr.IsAbsent() {
				return
			}
			if sink.Visit(addr) == Stop {
				return
			}
		}
		if n < callersBatch {
			return
		}
		skip += n
	}
}
