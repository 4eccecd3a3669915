// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind

// MachineContext is a platform-neutral machine-register snapshot: enough
// to seed a cursor, whether it came from an explicit capture-context call
// or from a signal/exception handler.
//
// IsSignalFrame marks a context captured at a signal/trap boundary: the
// program counter it carries is the faulting instruction itself, not a
// return address, and must not be decremented by one the way every other
// frame's address is.
type MachineContext struct {
	PC uint64
	SP uint64
	FP uint64

	IsSignalFrame bool
}

// MemoryReader reads one pointer-width word from an address space: the
// calling process's own, or a foreign one reached over process_vm_readv or
// ptrace. CaptureFrom/CaptureFromMut are parameterized over it so the same
// frame-pointer-chain walk serves both the local and the remote case.
type MemoryReader interface {
	ReadWord(addr uint64) (uint64, bool)
}
