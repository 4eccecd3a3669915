// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package unwind produces the sequence of physical return addresses for a
// call stack: the caller's own stack via the Go runtime's own unwind
// tables, or a foreign stack described by a captured machine-register
// snapshot via a frame-pointer-chain walk over local or remote memory.
package unwind // import "github.com/glebov-andrey/hindsight/unwind"

import "github.com/glebov-andrey/hindsight/frame"

// Decision is returned by a Sink for every address offered to it.
type Decision bool

const (
	// Continue asks the unwinder to keep producing addresses.
	Continue Decision = true
	// Stop asks the unwinder to finish immediately.
	Stop Decision = false
)

// Sink consumes physical addresses one at a time, iteration-driven. Capture
// stops either when the stack is exhausted or when Visit returns Stop.
type Sink interface {
	Visit(addr frame.PhysicalAddress) Decision
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(frame.PhysicalAddress) Decision

func (f SinkFunc) Visit(addr frame.PhysicalAddress) Decision {
	return f(addr)
}

// Bounded is a fixed-capacity Sink: capture stops once it is full, even if
// the stack is not exhausted.
type Bounded struct {
	dst []frame.PhysicalAddress
	n   int
}

// NewBounded returns a Sink that accepts at most capacity addresses.
func NewBounded(capacity int) *Bounded {
	return &Bounded{dst: make([]frame.PhysicalAddress, capacity)}
}

func (b *Bounded) Visit(addr frame.PhysicalAddress) Decision {
	if b.n >= len(b.dst) {
		return Stop
	}
	b.dst[b.n] = addr
	b.n++
	return Decision(b.n < len(b.dst))
}

// Result returns the addresses collected so far.
func (b *Bounded) Result() []frame.PhysicalAddress {
	return b.dst[:b.n]
}

// Unbounded is an append-only Sink with no capacity limit: capture stops
// only when the stack is exhausted.
type Unbounded struct {
	addrs []frame.PhysicalAddress
}

// NewUnbounded returns a Sink with no capacity limit.
func NewUnbounded() *Unbounded {
	return &Unbounded{}
}

func (u *Unbounded) Visit(addr frame.PhysicalAddress) Decision {
	u.addrs = append(u.addrs, addr)
	return Continue
}

// Result returns every address collected.
func (u *Unbounded) Result() []frame.PhysicalAddress {
	return u.addrs
}
