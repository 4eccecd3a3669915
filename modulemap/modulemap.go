// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package modulemap answers, for a physical address, which loaded image
// (executable or shared library) owns it: its on-disk path and load bias.
// A local variant inspects the calling process; a remote variant inspects
// another process by PID, tolerating the module list changing mid-lookup.
package modulemap // import "github.com/glebov-andrey/hindsight/modulemap"

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/glebov-andrey/hindsight/frame"
	"github.com/glebov-andrey/hindsight/libpf/pfelf"
)

// Lookup is implemented by both the local and the remote module map.
type Lookup interface {
	// LookupModule returns the loaded image owning addr, or false if no
	// loaded image claims it. "Not found" is a normal outcome, never an
	// error.
	LookupModule(addr frame.PhysicalAddress) (frame.ModuleInfo, bool)
}

// module is one entry of a parsed /proc/<pid>/maps listing: a single
// executable mapping, merged with any other executable mapping backed by
// the same file (shared libraries are typically mapped in several
// discontiguous, differently-permissioned segments).
type module struct {
	base uint64
	end  uint64
	path string
	// fileOffset is the maps-file "offset" field of the mapping at base,
	// needed to recover the module's load bias: the segment covering this
	// file offset tells us the link-time virtual address that ended up
	// loaded at base, and base minus that virtual address is the bias.
	fileOffset uint64
}

func (m module) contains(addr uint64) bool {
	return addr >= m.base && addr < m.end
}

// parseMaps reads a /proc/<pid>/maps-formatted stream and returns the
// executable mappings, merged by backing file and ordered by base address.
// Non-executable and anonymous mappings contribute nothing to module
// resolution and are skipped. An executable pseudo-file mapping such as
// "[vdso]" is kept under its synthetic name, so it still acts as a
// resolvable "module" with no backing file on disk.
func parseMaps(r io.Reader) ([]module, error) {
	var modules []module
	byPath := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		addrRange := fields[0]
		perms := fields[1]
		if len(perms) < 3 || perms[2] != 'x' {
			continue
		}
		lo, hi, ok := strings.Cut(addrRange, "-")
		if !ok {
			continue
		}
		base, err := strconv.ParseUint(lo, 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(hi, 16, 64)
		if err != nil {
			continue
		}
		fileOffset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			continue
		}

		path := ""
		if len(fields) >= 6 {
			path = strings.TrimSuffix(strings.Join(fields[5:], " "), " (deleted)")
		}
		if path == "" {
			// Anonymous executable mapping (JIT code, etc.): not
			// attributable to any on-disk module.
			continue
		}

		if idx, ok := byPath[path]; ok {
			if base < modules[idx].base {
				modules[idx].base = base
				modules[idx].fileOffset = fileOffset
			}
			if end > modules[idx].end {
				modules[idx].end = end
			}
			continue
		}
		byPath[path] = len(modules)
		modules = append(modules, module{base: base, end: end, path: path, fileOffset: fileOffset})
	}
	return modules, scanner.Err()
}

// lookupIn finds the module containing addr among an already-parsed list.
func lookupIn(modules []module, addr uint64) (frame.ModuleInfo, bool) {
	for _, m := range modules {
		if m.contains(addr) {
			return frame.ModuleInfo{BaseOffset: loadBias(m), FileName: m.path}, true
		}
	}
	return frame.ModuleInfo{}, false
}

// loadBias returns the value that, subtracted from a runtime address inside
// m, yields the link-time virtual address DWARF and the symbol table key
// their data by. It is m.base only when the file offset the mapping starts
// at corresponds to virtual address 0; in general the mapping's start
// address is not the bias, it is mapping_start - p_vaddr of the LOAD
// segment that covers the file offset the mapping starts at.
func loadBias(m module) uint64 {
	if !strings.HasPrefix(m.path, "/") {
		// A pseudo-mapping such as "[vdso]" has no on-disk file to read
		// program headers from, and no debug-info session will ever be
		// opened for it either; the mapping base is the best we can do.
		return m.base
	}
	vaddr, ok := vaddrForFileOffset(m.path, m.fileOffset)
	if !ok {
		return m.base
	}
	return m.base - vaddr
}

// vaddrForFileOffset maps a /proc/<pid>/maps file offset to the link-time
// virtual address the ELF loader would place it at, via the executable's own
// program headers.
func vaddrForFileOffset(path string, fileOffset uint64) (uint64, bool) {
	f, err := pfelf.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	mapper := f.GetAddressMapper()
	return mapper.FileOffsetToVirtualAddress(fileOffset)
}

// mapsPath returns the /proc path for the given PID's memory-map listing.
func mapsPath(pid int) string {
	return fmt.Sprintf("/proc/%d/maps", pid)
}

// openMaps opens a /proc/<pid>/maps file, wrapping any error to make its
// origin explicit in logs downstream.
func openMaps(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
