// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elfio is the object-file reader/writer the differencing engine
// treats as an external collaborator: it knows nothing about correlation,
// comparison, or inclusion, only how to turn an io.ReaderAt into a
// *model.Object and back. It plays the same role obj/elf.go plays for
// aclements-go-obj, narrowed to the ELF64/RELA/x86-64 combination this
// engine targets and simplified by not memory-mapping section data (the
// inputs here are small build-time objects, not multi-gigabyte executables).
package elfio

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/xsplice/objdiff/asm"
	"github.com/xsplice/objdiff/model"
)

// fileHeaderFields are the e_ident/e_flags/e_ehsize/e_phentsize/e_phnum/
// e_shentsize/e_phoff fields of the ELF64 file header. debug/elf's
// FileHeader stops at Entry and exposes none of these, so Read decodes
// them itself straight off the same 64 bytes elf.NewFile already
// validated, using the byte order elf.NewFile determined from e_ident.
type fileHeaderFields struct {
	ident     [elf.EI_NIDENT]byte
	phoff     uint64
	flags     uint32
	ehsize    uint16
	phentsize uint16
	phnum     uint16
	shentsize uint16
}

func readFileHeaderFields(r io.ReaderAt, order binary.ByteOrder) (fileHeaderFields, error) {
	raw := make([]byte, ehdrSize)
	if _, err := r.ReadAt(raw, 0); err != nil {
		return fileHeaderFields{}, fmt.Errorf("elfio: reading file header: %w", err)
	}
	var f fileHeaderFields
	copy(f.ident[:], raw[0:elf.EI_NIDENT])
	f.phoff = order.Uint64(raw[32:40])
	f.flags = order.Uint32(raw[48:52])
	f.ehsize = order.Uint16(raw[52:54])
	f.phentsize = order.Uint16(raw[54:56])
	f.phnum = order.Uint16(raw[56:58])
	f.shentsize = order.Uint16(raw[58:60])
	return f, nil
}

// Read parses r as an ELF64 relocatable object and returns the
// corresponding *model.Object. It refuses inputs with program headers
// (only relocatable objects are accepted, matching the Correlator's
// header precheck) and inputs that aren't ELFCLASS64/little-endian
// x86-64, the only configuration relocation-type semantics are defined
// for.
func Read(r io.ReaderAt) (*model.Object, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("elfio: %w", err)
	}
	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("elfio: unsupported ELF class %s", f.Class)
	}
	if f.Type != elf.ET_REL {
		return nil, fmt.Errorf("elfio: not a relocatable object (type %s)", f.Type)
	}
	if f.Data != elf.ELFDATA2LSB || f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("elfio: unsupported ELF data/machine %s/%s", f.Data, f.Machine)
	}

	hdrFields, err := readFileHeaderFields(r, f.ByteOrder)
	if err != nil {
		return nil, err
	}
	if hdrFields.phoff != 0 || hdrFields.phnum != 0 {
		return nil, fmt.Errorf("elfio: ELF contains program header")
	}

	o := model.NewObject()
	o.Layout = model.LayoutFor(f.ByteOrder)
	o.Header = model.Header{
		Ident:     hdrFields.ident,
		Type:      f.Type,
		Machine:   f.Machine,
		Version:   uint32(f.Version),
		Entry:     f.Entry,
		Flags:     hdrFields.flags,
		Ehsize:    hdrFields.ehsize,
		PhentSize: hdrFields.phentsize,
		ShentSize: hdrFields.shentsize,
		PhnumRaw:  hdrFields.phnum,
		PhoffRaw:  hdrFields.phoff,
	}

	// First pass: create every non-NULL section, in ELF order, so raw
	// indices and compact IDs can be cross-referenced afterward.
	rawToID := make(map[int]model.SectionID, len(f.Sections))
	for i, s := range f.Sections {
		if s.Type == elf.SHT_NULL {
			continue
		}
		sec := &model.Section{
			Name:     s.Name,
			RawIndex: i,
			Header: model.SectionHeader{
				Type:      s.Type,
				Flags:     s.Flags,
				Addr:      s.Addr,
				AddrAlign: s.Addralign,
				EntSize:   s.Entsize,
				Size:      s.Size,
				Link:      s.Link,
				Info:      s.Info,
			},
		}
		if s.Type != elf.SHT_NOBITS && s.Type != elf.SHT_NULL {
			data, err := s.Data()
			if err != nil {
				return nil, fmt.Errorf("elfio: reading section %s: %w", s.Name, err)
			}
			sec.Data = data
		}
		id := o.AddSection(sec)
		rawToID[i] = id
	}

	// Second pass: symbol table. debug/elf concatenates .symtab across
	// the (at most one, for our inputs) symbol table section; we keep
	// the raw index so st_shndx-based cross-links can be rebuilt.
	syms, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, fmt.Errorf("elfio: reading symbols: %w", err)
	}
	// Symbol index 0 is always the reserved null symbol; debug/elf's
	// Symbols() omits it, so we synthesize it to keep SymID stable with
	// the raw numbering every relocation's r_sym refers to.
	o.AddSymbol(&model.Symbol{Name: "", RawIndex: 0})
	for i, s := range syms {
		sym := &model.Symbol{
			Name:     s.Name,
			RawIndex: i + 1,
			Bind:     elf.ST_BIND(s.Info),
			Type:     elf.ST_TYPE(s.Info),
			Other:    s.Other,
			Value:    s.Value,
			Size:     s.Size,
			Shndx:    s.Section,
		}
		if int(s.Section) < len(f.Sections) && s.Section < elf.SHN_LORESERVE {
			if id, ok := rawToID[int(s.Section)]; ok {
				sym.Section = o.Section(id)
			}
		}
		o.AddSymbol(sym)
	}

	// Third pass: relocation sections, section-symbol cross-links, and
	// bundled-symbol detection (model §4.1).
	for _, sec := range o.Sections {
		if !sec.IsRelocationSection() {
			continue
		}
		if base := o.FindSectionByRawIndex(int(sec.Header.Info)); base != nil {
			sec.Base = base
			base.Rela = sec
		}
		relocs, err := decodeRela(sec.Data, o)
		if err != nil {
			return nil, fmt.Errorf("elfio: decoding %s: %w", sec.Name, err)
		}
		for _, rel := range relocs {
			rel.Sec = sec
			resolveRelaString(rel)
		}
		sec.Relocs = relocs
	}
	for _, sym := range o.Symbols {
		if sym.IsSection() && sym.Section != nil {
			sym.Section.Sym = sym
		}
	}
	detectBundledSymbols(o)

	return o, nil
}

// decodeRela decodes an SHT_RELA section's raw bytes into model
// Relocations. Our inputs are always RELA (explicit addend); REL-style
// sections don't appear in the x86-64 relocatable objects this engine
// targets.
func decodeRela(data []byte, o *model.Object) ([]*model.Relocation, error) {
	const entSize = 24 // r_offset, r_info, r_addend, each 8 bytes
	if len(data)%entSize != 0 {
		return nil, fmt.Errorf("rela section size %d not a multiple of %d", len(data), entSize)
	}
	layout := o.Layout
	n := len(data) / entSize
	out := make([]*model.Relocation, 0, n)
	for i := 0; i < n; i++ {
		b := data[i*entSize:]
		offset := layout.Uint64(b[0:8])
		info := layout.Uint64(b[8:16])
		addend := layout.Int64(b[16:24])
		symIdx := model.SymID(info >> 32)
		typ := elf.R_X86_64(info & 0xffffffff)
		var target *model.Symbol
		if int(symIdx) < len(o.Symbols) {
			target = o.Sym(symIdx)
		}
		out = append(out, &model.Relocation{
			Type:   typ,
			Offset: offset,
			Target: target,
			Addend: addend,
		})
	}
	return out, nil
}

// resolveRelaString interns the referenced text for a relocation into a
// string-merge section. The linker may reshuffle merged strings between
// builds, so two such relocations compare by string contents, not by
// addend (see compare's relocation-equality rule).
func resolveRelaString(rel *model.Relocation) {
	sym := rel.Target
	if sym == nil || sym.Section == nil {
		return
	}
	sec := sym.Section
	if !strings.HasPrefix(sec.Name, ".rodata.str1.") {
		return
	}
	off := int64(sym.Value) + rel.Addend
	if rel.Type == elf.R_X86_64_PC32 {
		// A PC-relative reference is biased by the distance from the
		// relocation site to the end of its instruction.
		base := rel.Sec.Base
		if base == nil || base.Data == nil {
			return
		}
		next := asm.NextInstructionBoundary(base.Data, int(rel.Offset))
		off += int64(next) - int64(rel.Offset)
	}
	if off < 0 || off >= int64(len(sec.Data)) {
		return
	}
	text := sec.Data[off:]
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	rel.Str = &model.String{Text: string(text)}
}

// detectBundledSymbols implements model §4.1's bundled-symbol rule: if a
// non-group section contains exactly one function/object symbol at
// offset 0 spanning the section, that symbol is the section's bundled
// symbol.
func detectBundledSymbols(o *model.Object) {
	counts := make(map[model.SectionID]int)
	candidate := make(map[model.SectionID]*model.Symbol)
	for _, sym := range o.Symbols {
		if sym.Section == nil || (!sym.IsFunc() && !sym.IsObject()) {
			continue
		}
		counts[sym.Section.ID]++
		candidate[sym.Section.ID] = sym
	}
	for id, n := range counts {
		if n != 1 {
			continue
		}
		sec := o.Section(id)
		if sec.Header.Type == elf.SHT_GROUP {
			continue
		}
		sym := candidate[id]
		if sym.Value == 0 && sym.Size == sec.Header.Size {
			sec.Bundled = sym
		}
	}
}
