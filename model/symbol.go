// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import "debug/elf"

// Symbol is an entry in an object file's symbol table.
type Symbol struct {
	Object *Object
	Name   string
	ID     SymID

	// RawIndex is this symbol's index in the original ELF symbol
	// table. Migration into the output object resets it to -1; symbols
	// the assembler synthesizes leave it at 0.
	RawIndex int

	Bind  elf.SymBind
	Type  elf.SymType
	Other uint8
	Value uint64
	Size  uint64

	// Shndx is the raw ELF st_shndx field as last read or written. It
	// is kept around for diagnostics; Section below is what every
	// stage after elfio.Read actually dereferences.
	Shndx elf.SectionIndex

	// Section is the section this symbol is defined in, or nil for an
	// undefined or absolute symbol.
	Section *Section

	Twin   *Symbol
	Status Status

	SymFlags
}

// SymFlags is a set of boolean properties of a Symbol.
type SymFlags struct {
	f symFlagBits
}

type symFlagBits uint8

const (
	symInclude symFlagBits = 1 << iota
	symStrip
)

// Include reports whether this symbol is part of the output object.
func (f SymFlags) Include() bool { return f.f&symInclude != 0 }

// SetInclude sets the Include flag to v.
func (f *SymFlags) SetInclude(v bool) { f.set(symInclude, v) }

// Strip reports whether this symbol must not appear in the output even
// if otherwise reachable. Include and Strip are never both set: assemble's
// migration clears Strip on every included symbol.
func (f SymFlags) Strip() bool { return f.f&symStrip != 0 }

// SetStrip sets the Strip flag to v.
func (f *SymFlags) SetStrip(v bool) { f.set(symStrip, v) }

func (f *SymFlags) set(bit symFlagBits, v bool) {
	if v {
		f.f |= bit
	} else {
		f.f &^= bit
	}
}

// IsLocal reports whether sym has local binding.
func (sym *Symbol) IsLocal() bool { return sym.Bind == elf.STB_LOCAL }

// IsGlobal reports whether sym has global or weak binding.
func (sym *Symbol) IsGlobal() bool { return sym.Bind == elf.STB_GLOBAL || sym.Bind == elf.STB_WEAK }

// IsFunc reports whether sym is a function symbol.
func (sym *Symbol) IsFunc() bool { return sym.Type == elf.STT_FUNC }

// IsObject reports whether sym is a data-object symbol.
func (sym *Symbol) IsObject() bool { return sym.Type == elf.STT_OBJECT }

// IsSection reports whether sym names a section (STT_SECTION).
func (sym *Symbol) IsSection() bool { return sym.Type == elf.STT_SECTION }

// IsFile reports whether sym is a STT_FILE symbol.
func (sym *Symbol) IsFile() bool { return sym.Type == elf.STT_FILE }

// IsUndef reports whether sym is undefined (SHN_UNDEF, no Section).
func (sym *Symbol) IsUndef() bool { return sym.Section == nil && sym.Shndx != elf.SHN_ABS }

// IsAbs reports whether sym has an absolute value (SHN_ABS).
func (sym *Symbol) IsAbs() bool { return sym.Shndx == elf.SHN_ABS }
