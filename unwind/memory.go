// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package unwind

import (
	"runtime/debug"
	"unsafe"

	"github.com/glebov-andrey/hindsight/libpf"
	"github.com/glebov-andrey/hindsight/remotememory"
)

// RemoteReader adapts a remotememory.RemoteMemory - reading another
// process over process_vm_readv - to MemoryReader, so the same
// frame-pointer walk in CaptureFrom serves the out-of-process case.
type RemoteReader struct {
	remotememory.RemoteMemory
}

func (r RemoteReader) ReadWord(addr uint64) (uint64, bool) {
	var buf [8]byte
	if err := r.Read(libpf.Address(addr), buf[:]); err != nil {
		return 0, false
	}
	return leUint64(buf[:]), true
}

func (r RemoteReader) ReadBytes(addr uint64, n int) ([]byte, bool) {
	buf := make([]byte, n)
	if err := r.Read(libpf.Address(addr), buf); err != nil {
		return nil, false
	}
	return buf, true
}

// LocalReader reads the calling process's own address space directly. It
// is used for CaptureFrom when the context describes a thread of the
// current process (e.g. a signal handler's ucontext) rather than a
// foreign one. An out-of-range address is recovered from rather than
// crashing the process, matching the "unwinding errors terminate capture
// silently" failure semantics the design specifies.
type LocalReader struct{}

func (LocalReader) ReadWord(addr uint64) (word uint64, ok bool) {
	if addr == 0 {
		return 0, false
	}
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if recover() != nil {
			word, ok = 0, false
		}
	}()
	return *(*uint64)(unsafe.Pointer(uintptr(addr))), true
}

func (LocalReader) ReadBytes(addr uint64, n int) (b []byte, ok bool) {
	if addr == 0 {
		return nil, false
	}
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if recover() != nil {
			b, ok = nil, false
		}
	}()
	buf := make([]byte, n)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n))
	return buf, true
}

func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
