// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"debug/dwarf"
	"debug/elf"
	"os"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/glebov-andrey/hindsight/frame"
	"github.com/glebov-andrey/hindsight/libpf"
	"github.com/glebov-andrey/hindsight/libpf/freelru"
	"github.com/glebov-andrey/hindsight/libpf/pfelf"
)

// resolveCacheSize bounds the per-session cache of already-expanded
// addresses. A profiler-style caller resolves the same hot PCs over and
// over across many samples; without this, every one of those repeats
// redrives the DWARF DFS from scratch. Sized generously since an entry is
// just a handful of small frames.
const resolveCacheSize = 4096

// hashFileAddr is the freelru.HashKeyCallback for the resolve cache,
// grounded on the profiler's own practice of hashing address-shaped cache
// keys with xxh3 rather than the map built-in.
func hashFileAddr(addr uint64) uint32 {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(addr >> (8 * i))
	}
	return uint32(xxh3.Hash(buf[:]))
}

// session is the backend session for one module: a debug-info container
// that has been opened and parsed once, then reused for every address
// that falls inside that module for as long as the owning Resolver lives.
type session struct {
	file *os.File
	elf  *elf.File

	// dwarfData is nil when the module carries no DWARF debug info at
	// all (stripped, or a release build with only a symbol table).
	dwarfData *dwarf.Data

	// symbols backs the "module's symbol table" fallback path; nil when
	// the module has neither a regular nor a dynamic symbol table.
	symbols *libpf.SymbolMap

	// resolved caches the logical frames already produced for a file
	// address, so a repeat lookup (the common case under sampling) skips
	// the DWARF walk entirely. go-freelru's LRU is not safe for
	// concurrent use on its own, and the design requires that concurrent
	// resolve calls on the same module never corrupt state, so access is
	// guarded by resolvedMu rather than assumed thread-safe.
	resolved   *freelru.LRU[uint64, []frame.LogicalFrame]
	resolvedMu sync.Mutex
}

// openSession loads a module's debug info. It never fails solely because
// DWARF or the symbol table is missing - those degrade to a smaller
// session, not an error - only I/O/parse failures on the file itself are
// reported.
func openSession(path string) (*session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	dwarfData, _ := ef.DWARF()

	var symbols *libpf.SymbolMap
	if pf, perr := pfelf.Open(path); perr == nil {
		symbols, _ = pf.ReadSymbols()
		if symbols == nil || symbols.Len() == 0 {
			if dyn, derr := pf.ReadDynamicSymbols(); derr == nil {
				symbols = dyn
			}
		}
		_ = pf.Close()
	}

	resolved, err := freelru.New[uint64, []frame.LogicalFrame](resolveCacheSize, hashFileAddr)
	if err != nil {
		// A construction failure here means a bad capacity, not an
		// environment problem; the cache is a pure optimization, so
		// resolution still works correctly (just slower) without it.
		resolved = nil
	}

	return &session{file: f, elf: ef, dwarfData: dwarfData, symbols: symbols, resolved: resolved}, nil
}

func (s *session) Close() error {
	return s.file.Close()
}

// resolve drives the per-address algorithm: DWARF inline expansion first,
// the module's symbol table if DWARF found nothing, and the unresolved
// placeholder if neither did. fileAddr is addr already rebased to the
// module's own (link-time) address space.
func (s *session) resolve(fileAddr uint64, physical frame.PhysicalAddress, sink func(frame.LogicalFrame) Decision) {
	if frames, ok := s.cachedFrames(fileAddr); ok {
		emit(frames, physical, sink)
		return
	}

	// collected accumulates every frame produced for fileAddr so the full
	// chain can be cached; stopped tracks whether the sink cut emission
	// short (Stop), in which case collected is only a prefix and must
	// never be cached - a later replay of a cached prefix would emit an
	// inline frame (is_inline=true) as the last frame, with the enclosing
	// physical frame missing.
	var collected []frame.LogicalFrame
	stopped := false
	collect := func(lf frame.LogicalFrame) Decision {
		collected = append(collected, lf)
		d := sink(lf)
		if d == Stop {
			stopped = true
		}
		return d
	}

	if s.dwarfData != nil && s.resolveDWARF(fileAddr, physical, collect) {
		if !stopped {
			s.cacheFrames(fileAddr, collected)
		}
		return
	}

	if s.symbols != nil {
		if name, _, ok := s.symbols.LookupByAddress(libpf.SymbolValue(fileAddr)); ok && name != "" {
			lf := frame.NewLogicalFrame(physical, false, string(name), true, frame.SourceLocation{})
			s.cacheFrames(fileAddr, []frame.LogicalFrame{lf})
			sink(lf)
			return
		}
	}

	s.cacheFrames(fileAddr, nil)
	sink(frame.Placeholder(physical))
}

// cachedFrames returns a previously resolved set of frames for fileAddr.
// The frames still carry the physical address of the call that cached
// them; emit rebases them onto the caller's current physical address (the
// cache key is per-module file-relative, but the physical address differs
// by the module's load bias across runs and across processes for the same
// binary).
func (s *session) cachedFrames(fileAddr uint64) ([]frame.LogicalFrame, bool) {
	if s.resolved == nil {
		return nil, false
	}
	s.resolvedMu.Lock()
	frames, ok := s.resolved.Get(fileAddr)
	s.resolvedMu.Unlock()
	return frames, ok
}

func (s *session) cacheFrames(fileAddr uint64, frames []frame.LogicalFrame) {
	if s.resolved == nil {
		return
	}
	s.resolvedMu.Lock()
	s.resolved.Add(fileAddr, frames)
	s.resolvedMu.Unlock()
}

// emit replays cached frames (resolved relative to their module) against
// sink under the caller's current physical address, stopping as soon as
// the sink asks to.
func emit(frames []frame.LogicalFrame, physical frame.PhysicalAddress, sink func(frame.LogicalFrame) Decision) {
	if len(frames) == 0 {
		sink(frame.Placeholder(physical))
		return
	}
	for _, lf := range frames {
		lf.Physical = physical
		if sink(lf) == Stop {
			return
		}
	}
}
