// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfio

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xsplice/objdiff/model"
)

// elfHeader and elfSectionHeader mirror the on-disk ELF64 layout; unlike
// arc-language-core-codegen/format/elf/writer.go's hand-rolled constants,
// field values throughout this package are debug/elf's own types, so the
// only thing these structs contribute is the wire byte layout for
// encoding/binary.
type elfHeader struct {
	Ident     [elf.EI_NIDENT]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elfSectionHeader struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

const (
	ehdrSize = 64
	shdrSize = 64
	symSize  = 24
	relaSize = 24
)

// Write serializes obj as a relocatable ELF64 object, in the assembler's
// final section/symbol order (Write does not reorder or reindex; see
// assemble for that). obj must already carry synthesized .shstrtab,
// .strtab, and .symtab sections with final names, as produced by the
// Output assembler.
func Write(obj *model.Object, w io.Writer) error {
	var body bytes.Buffer
	offsets := make([]uint64, len(obj.Sections))

	cur := uint64(ehdrSize)
	for i, sec := range obj.Sections {
		if sec.Header.Type == elf.SHT_NOBITS {
			offsets[i] = cur
			continue
		}
		if align := sec.Header.AddrAlign; align > 1 {
			if rem := cur % align; rem != 0 {
				pad := align - rem
				body.Write(make([]byte, pad))
				cur += pad
			}
		}
		offsets[i] = cur
		body.Write(sec.Data)
		cur += uint64(len(sec.Data))
	}

	shoff := cur
	shstrndx := 0
	if s := obj.FindSectionByName(".shstrtab"); s != nil {
		shstrndx = int(s.ID) + 1 // +1: section 0 is the reserved NULL section
	}

	var out bytes.Buffer
	if err := writeHeader(&out, obj, shoff, uint16(shstrndx)); err != nil {
		return err
	}
	out.Write(body.Bytes())

	// Section header 0 is the reserved NULL entry.
	var zero elfSectionHeader
	if err := binary.Write(&out, binary.LittleEndian, zero); err != nil {
		return err
	}
	for i, sec := range obj.Sections {
		shdr := elfSectionHeader{
			Type:      uint32(sec.Header.Type),
			Flags:     uint64(sec.Header.Flags),
			Addr:      sec.Header.Addr,
			Offset:    offsets[i],
			Size:      sec.Header.Size,
			Link:      sec.Header.Link,
			Info:      sec.Header.Info,
			Addralign: sec.Header.AddrAlign,
			Entsize:   sec.Header.EntSize,
		}
		if shstrtab := obj.FindSectionByName(".shstrtab"); shstrtab != nil {
			shdr.Name = nameOffset(shstrtab.Data, sec.Name)
		}
		if err := binary.Write(&out, binary.LittleEndian, shdr); err != nil {
			return err
		}
	}

	_, err := w.Write(out.Bytes())
	return err
}

func writeHeader(w io.Writer, obj *model.Object, shoff uint64, shstrndx uint16) error {
	var hdr elfHeader
	copy(hdr.Ident[:], obj.Header.Ident[:])
	hdr.Type = uint16(elf.ET_REL)
	hdr.Machine = uint16(obj.Header.Machine)
	hdr.Version = obj.Header.Version
	hdr.Entry = obj.Header.Entry
	hdr.Shoff = shoff
	hdr.Flags = obj.Header.Flags
	hdr.Ehsize = ehdrSize
	hdr.Shentsize = shdrSize
	hdr.Shnum = uint16(len(obj.Sections) + 1) // +1 for the NULL section
	hdr.Shstrndx = shstrndx
	return binary.Write(w, binary.LittleEndian, hdr)
}

// nameOffset finds name's NUL-terminated offset within a string table's
// raw bytes. The empty name always resolves to offset 0, the table's
// leading NUL. Used only for .shstrtab lookups at write time, where the
// section count is small enough that a linear scan costs nothing; symbol
// name lookups instead go through the offset map BuildStrtab returns
// (see WriteSymtab), since symbol counts aren't bounded the same way.
func nameOffset(strtab []byte, name string) uint32 {
	if name == "" {
		return 0
	}
	target := append([]byte(name), 0)
	for i := 0; i+len(target) <= len(strtab); i++ {
		if (i == 0 || strtab[i-1] == 0) && bytes.Equal(strtab[i:i+len(target)], target) {
			return uint32(i)
		}
	}
	return 0
}

// WriteSymtab serializes syms (in final order) as an ELF64 symbol table,
// resolving each symbol's section index through sym.Section.RawIndex
// (set by assemble's reindexing pass) and its name through nameOffsets
// (as returned by BuildStrtab for .strtab). It is called by assemble
// once symbols have been reordered and reindexed, before Write lays out
// the final section list.
func WriteSymtab(syms []*model.Symbol, nameOffsets map[string]uint32) ([]byte, error) {
	var buf bytes.Buffer
	for _, sym := range syms {
		var shndx uint16
		switch {
		case sym.Section != nil:
			shndx = uint16(sym.Section.RawIndex)
		case sym.IsAbs():
			shndx = uint16(elf.SHN_ABS)
		default:
			shndx = uint16(elf.SHN_UNDEF)
		}
		info := byte(sym.Bind)<<4 | byte(sym.Type)&0xf
		fields := []any{
			nameOffsets[sym.Name],
			info,
			sym.Other,
			shndx,
			sym.Value,
			sym.Size,
		}
		for _, f := range fields {
			if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
				return nil, fmt.Errorf("elfio: writing symbol %s: %w", sym.Name, err)
			}
		}
	}
	return buf.Bytes(), nil
}

// WriteRela serializes relocs as an ELF64 RELA section's raw bytes. The
// symbol index of each relocation's target is its final (post-reindex)
// SymID.
func WriteRela(relocs []*model.Relocation) []byte {
	buf := make([]byte, 0, len(relocs)*relaSize)
	for _, r := range relocs {
		var symIdx uint64
		if r.Target != nil {
			symIdx = uint64(r.Target.ID)
		}
		info := symIdx<<32 | uint64(r.Type)
		var entry [relaSize]byte
		binary.LittleEndian.PutUint64(entry[0:8], r.Offset)
		binary.LittleEndian.PutUint64(entry[8:16], info)
		binary.LittleEndian.PutUint64(entry[16:24], uint64(r.Addend))
		buf = append(buf, entry[:]...)
	}
	return buf
}

// BuildStrtab concatenates names into a NUL-terminated string table,
// deduplicating repeats the way a linker's strtab builder does, and
// returns the offset map alongside it so callers don't have to rescan
// the table (see nameOffset's linear scan above, used only for sections,
// which number in the dozens rather than thousands).
func BuildStrtab(names []string) ([]byte, map[string]uint32) {
	buf := []byte{0}
	offsets := map[string]uint32{"": 0}
	for _, n := range names {
		if _, ok := offsets[n]; ok {
			continue
		}
		offsets[n] = uint32(len(buf))
		buf = append(buf, n...)
		buf = append(buf, 0)
	}
	return buf, offsets
}
