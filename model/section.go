// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import "debug/elf"

// SectionHeader is the subset of an ELF section header the engine cares
// about. Type/Flags/Link/Info retain debug/elf's own types so every stage
// can compare and test against the stdlib constants directly instead of a
// hand-rolled duplicate.
type SectionHeader struct {
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint64
	AddrAlign uint64
	EntSize   uint64
	Size      uint64
	Link      uint32
	Info      uint32
}

// Section is a named, contiguous region of an object file: code, data, a
// string table, a relocation table, or a metadata table.
type Section struct {
	Object *Object
	Name   string
	ID     SectionID

	// RawIndex is this section's index in the underlying ELF section
	// table. Migration into the output object resets it to -1, and
	// sections the assembler synthesizes start at 0, until the output
	// assembler's reindexing pass assigns the final index.
	RawIndex int

	Header SectionHeader

	// Data holds this section's raw bytes. It is nil for NOBITS
	// (zero-initialized) sections.
	Data []byte

	// Relocs holds the parsed relocation entries when this section's
	// header type is itself a relocation section (see IsRelocationSection).
	Relocs []*Relocation

	// Base is set on a relocation section: the section it relocates.
	// Rela is the inverse: set on any relocatable section that has a
	// companion relocation section. For a populated pair,
	// rela.Base.Rela == rela and sec.Rela.Base == sec.
	Base *Section
	Rela *Section

	// Sym is this section's SECTION-type symbol, if the symbol table
	// carries one.
	Sym *Symbol

	// Bundled is the function or object symbol that uniquely owns this
	// section under per-function/per-data sectioning, set at load time
	// by elfio's bundled-symbol detection (detectBundledSymbols).
	Bundled *Symbol

	// Twin is the paired section in the other object, set by the
	// Correlator. It is transient: nothing after the Comparator and
	// mark-ignored passes may dereference it into a freed Object.
	Twin *Section

	Status Status

	SectionFlags
}

// SectionFlags is a set of boolean properties of a Section, embedded so
// Section inherits its accessor methods (mirroring obj.SectionFlags).
type SectionFlags struct {
	f sectionFlagBits
}

type sectionFlagBits uint8

const (
	sectionGrouped sectionFlagBits = 1 << iota
	sectionIgnore
	sectionInclude
)

// Grouped reports whether this section was named by some GROUP section's
// payload.
func (f SectionFlags) Grouped() bool { return f.f&sectionGrouped != 0 }

// SetGrouped sets the Grouped flag to v.
func (f *SectionFlags) SetGrouped(v bool) { f.set(sectionGrouped, v) }

// Ignore reports whether this section has been excluded from comparison
// by an ignore directive (see compare's ignore-directive handling).
func (f SectionFlags) Ignore() bool { return f.f&sectionIgnore != 0 }

// SetIgnore sets the Ignore flag to v.
func (f *SectionFlags) SetIgnore(v bool) { f.set(sectionIgnore, v) }

// Include reports whether this section is part of the output object.
func (f SectionFlags) Include() bool { return f.f&sectionInclude != 0 }

// SetInclude sets the Include flag to v.
func (f *SectionFlags) SetInclude(v bool) { f.set(sectionInclude, v) }

func (f *SectionFlags) set(bit sectionFlagBits, v bool) {
	if v {
		f.f |= bit
	} else {
		f.f &^= bit
	}
}

// Group returns the raw ELF section indices named by a GROUP section's
// payload (the group flag word is not included). It panics if s is not a
// GROUP section.
func (s *Section) Group() []uint32 {
	if s.Header.Type != elf.SHT_GROUP {
		panic("model: Group called on non-GROUP section " + s.Name)
	}
	if len(s.Data) < 4 {
		return nil
	}
	var out []uint32
	for off := 4; off+4 <= len(s.Data); off += 4 {
		out = append(out, s.Object.Layout.Uint32(s.Data[off:off+4]))
	}
	return out
}
