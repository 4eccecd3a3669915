// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"debug/dwarf"

	"github.com/glebov-andrey/hindsight/frame"
)

// attrMIPSLinkageName is the GNU extension DW_AT_MIPS_linkage_name
// (0x2007): some older compilers emit it instead of (or alongside)
// DW_AT_linkage_name for the mangled name of a function. The stdlib does
// not define a named constant for it.
const attrMIPSLinkageName = dwarf.Attr(0x2007)

// dieFrame is one entry of the chain built while descending into the DIE
// tree towards fileAddr: every subprogram,
// inlined_subroutine or entry_point DIE whose ranges cover fileAddr, in
// outermost-first tree order (reversed by the caller before emission).
type dieFrame struct {
	entry    *dwarf.Entry
	isInline bool
}

// resolveDWARF looks for a compile unit covering fileAddr and, if found,
// descends its DIE tree collecting every enclosing subprogram and inlined
// subroutine, then emits them innermost first. It reports found=false
// (never reaching the sink) when fileAddr falls outside of any DWARF
// compile unit known to this session, so the caller can fall back to the
// symbol table.
func (s *session) resolveDWARF(
	fileAddr uint64,
	physical frame.PhysicalAddress,
	sink func(frame.LogicalFrame) Decision,
) bool {
	r := s.dwarfData.Reader()
	cu, err := r.SeekPC(fileAddr)
	if err != nil || cu == nil {
		return false
	}

	chain := s.collectChain(r, cu, fileAddr)
	if len(chain) == 0 {
		return false
	}

	lines, _ := s.dwarfData.LineReader(cu)

	// chain is outermost-first (tree order); emit innermost-first. The
	// source location attached to frame i is the call site recorded on
	// frame i+1 (the inlinee it called), except for the innermost frame,
	// whose location comes from the line table.
	for i := len(chain) - 1; i >= 0; i-- {
		df := chain[i]
		name, maybeMangled := s.resolveName(df.entry)

		var loc frame.SourceLocation
		if i == len(chain)-1 {
			loc = lineForPC(lines, fileAddr)
		} else {
			loc = callSiteOf(chain[i+1].entry, lines)
		}

		lf := frame.NewLogicalFrame(physical, df.isInline, name, maybeMangled, loc)
		if sink(lf) == Stop {
			return true
		}
	}
	return true
}

// collectChain descends from cu (already positioned by SeekPC, i.e. the
// next Next() call yields the compile unit's first child) and returns
// every subprogram/inlined_subroutine/entry_point DIE on the path to
// fileAddr, outermost first.
func (s *session) collectChain(r *dwarf.Reader, cu *dwarf.Entry, fileAddr uint64) []dieFrame {
	_ = cu
	var chain []dieFrame
	depth := 0
	for {
		entry, err := r.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag == 0 { // end of this level's children
			depth--
			if depth < 0 {
				break // end of the compile unit itself
			}
			continue
		}

		isFrameTag := entry.Tag == dwarf.TagSubprogram ||
			entry.Tag == dwarf.TagInlinedSubroutine ||
			entry.Tag == dwarf.TagEntryPoint

		// DWARF ranges nest: once a frame-shaped DIE is found not to
		// cover fileAddr, none of its descendants can either, so its
		// subtree is skipped outright rather than just not recorded.
		if isFrameTag && !s.pcInEntry(entry, fileAddr) {
			if entry.Children {
				r.SkipChildren()
			}
			continue
		}

		if isFrameTag {
			chain = append(chain, dieFrame{entry: entry, isInline: entry.Tag == dwarf.TagInlinedSubroutine})
		}
		if entry.Children {
			depth++
		}
	}
	return chain
}

// pcInEntry reports whether fileAddr falls within entry's PC ranges,
// trying the cheap low/high-PC attribute pair before falling back to a
// (possibly discontiguous) DW_AT_ranges list.
func (s *session) pcInEntry(entry *dwarf.Entry, pc uint64) bool {
	low, lowOK := entry.Val(dwarf.AttrLowpc).(uint64)
	if lowOK {
		high, highOK := highPC(entry, low)
		if highOK {
			return pc >= low && pc < high
		}
	}

	ranges, err := s.dwarfData.Ranges(entry)
	if err != nil {
		return false
	}
	for _, rg := range ranges {
		if pc >= rg[0] && pc < rg[1] {
			return true
		}
	}
	return false
}

// highPC resolves DW_AT_high_pc, which DWARF 4+ encodes either as an
// absolute address (class address) or as an offset from low (class
// constant), depending on the producer.
func highPC(entry *dwarf.Entry, low uint64) (uint64, bool) {
	field := entry.AttrField(dwarf.AttrHighpc)
	if field == nil {
		return 0, false
	}
	switch v := field.Val.(type) {
	case uint64:
		if field.Class == dwarf.ClassAddress {
			return v, true
		}
		return low + v, true
	case int64:
		return low + uint64(v), true
	default:
		return 0, false
	}
}

// resolveName implements the mangled/linkage-name-first resolution order:
// DW_AT_linkage_name, then the GNU DW_AT_MIPS_linkage_name extension, then
// following DW_AT_specification, then DW_AT_abstract_origin, and finally
// the DIE's own DW_AT_name. The returned bool reports whether the name may
// be a mangled (Itanium ABI) symbol that still needs demangling.
func (s *session) resolveName(entry *dwarf.Entry) (string, bool) {
	if name, ok := entry.Val(dwarf.AttrLinkageName).(string); ok && name != "" {
		return name, true
	}
	if name, ok := entry.Val(attrMIPSLinkageName).(string); ok && name != "" {
		return name, true
	}

	if ref, ok := entry.Val(dwarf.AttrSpecification).(dwarf.Offset); ok {
		if target := s.entryAt(ref); target != nil {
			if name, mangled := s.resolveName(target); name != "" {
				return name, mangled
			}
		}
	}
	if ref, ok := entry.Val(dwarf.AttrAbstractOrigin).(dwarf.Offset); ok {
		if target := s.entryAt(ref); target != nil {
			if name, mangled := s.resolveName(target); name != "" {
				return name, mangled
			}
		}
	}

	if name, ok := entry.Val(dwarf.AttrName).(string); ok {
		return name, false
	}
	return "", false
}

// entryAt re-seeks the info reader to an absolute DIE offset, used to
// follow DW_AT_specification/DW_AT_abstract_origin references. A fresh
// Reader is used so this never disturbs the caller's traversal position.
func (s *session) entryAt(off dwarf.Offset) *dwarf.Entry {
	r := s.dwarfData.Reader()
	r.Seek(off)
	entry, err := r.Next()
	if err != nil || entry == nil || entry.Tag == 0 {
		return nil
	}
	return entry
}

// callSiteOf extracts the call_file/call_line/call_column of an
// inlined_subroutine DIE: the source location inside the *caller* at
// which that inlinee was expanded, which becomes the emitted source
// location of the frame one level further out in our innermost-first
// chain. DW_AT_call_file indexes the compile unit's line-table file list;
// the file name is left empty when lines is nil or the index is out of
// range.
func callSiteOf(entry *dwarf.Entry, lines *dwarf.LineReader) frame.SourceLocation {
	line, _ := entry.Val(dwarf.AttrCallLine).(int64)
	col, _ := entry.Val(dwarf.AttrCallColumn).(int64)
	var fileName string
	if idx, ok := entry.Val(dwarf.AttrCallFile).(int64); ok && lines != nil {
		if files := lines.Files(); idx >= 0 && idx < int64(len(files)) && files[idx] != nil {
			fileName = files[idx].Name
		}
	}
	return frame.SourceLocation{FileName: fileName, Line: uint32(line), Column: uint32(col)}
}

// lineForPC resolves fileAddr's source position from the compile unit's
// line table. An empty SourceLocation is returned when the unit has no
// line table or the address has no table entry (e.g. compiler-generated
// code).
func lineForPC(lines *dwarf.LineReader, fileAddr uint64) frame.SourceLocation {
	if lines == nil {
		return frame.SourceLocation{}
	}
	var entry dwarf.LineEntry
	if err := lines.SeekPC(fileAddr, &entry); err != nil {
		return frame.SourceLocation{}
	}
	var fileName string
	if entry.File != nil {
		fileName = entry.File.Name
	}
	return frame.SourceLocation{FileName: fileName, Line: uint32(entry.Line), Column: uint32(entry.Column)}
}
