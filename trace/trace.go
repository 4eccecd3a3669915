// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace bundles a captured stack trace with the Resolver that
// symbolizes it, a one-call convenience on top of unwind and resolve
// for the common case of capturing and resolving the calling goroutine's
// own stack.
package trace // import "github.com/glebov-andrey/hindsight/trace"

import (
	"iter"

	"github.com/glebov-andrey/hindsight/frame"
	"github.com/glebov-andrey/hindsight/resolve"
	"github.com/glebov-andrey/hindsight/unwind"
)

// Trace is a captured sequence of physical addresses bound to the
// Resolver that will symbolize them. It does not own the Resolver -
// Capture never creates one - so a Trace is cheap to produce repeatedly
// against a single long-lived Resolver, the same session-reuse pattern
// the Resolver's own per-module cache is built around.
type Trace struct {
	resolver *resolve.Resolver
	addrs    []frame.PhysicalAddress
}

// Capture walks the calling goroutine's own stack, omitting the first
// skip frames, and binds the result to resolver for later symbolization.
// It never returns an error: an exhausted or corrupted stack simply
// yields a shorter Trace, per the unwinder's silent-partial-result
// failure semantics.
func Capture(resolver *resolve.Resolver, skip int) Trace {
	s := unwind.NewUnbounded()
	// +1 accounts for this function's own frame, on top of the noinline
	// adjustment unwind.Capture already makes for its own.
	unwind.Capture(skip+1, s)
	return Trace{resolver: resolver, addrs: s.Result()}
}

// Addresses returns the raw physical addresses captured, before
// symbolization.
func (t Trace) Addresses() []frame.PhysicalAddress {
	return t.addrs
}

// Len reports the number of physical frames captured.
func (t Trace) Len() int {
	return len(t.addrs)
}

// Frames resolves every captured address in turn and yields the
// resulting logical frames, innermost inlinee first within each
// physical address, innermost (most recent) call first across addresses
// (the order Capture produced them in). Iteration stops as soon as the range
// function's consumer stops ranging, which is translated into a Stop
// decision for whichever Resolve call is in flight.
func (t Trace) Frames() iter.Seq[frame.LogicalFrame] {
	return func(yield func(frame.LogicalFrame) bool) {
		for _, addr := range t.addrs {
			cont := true
			t.resolver.Resolve(addr, func(lf frame.LogicalFrame) resolve.Decision {
				if !yield(lf) {
					cont = false
					return resolve.Stop
				}
				return resolve.Continue
			})
			if !cont {
				return
			}
		}
	}
}
