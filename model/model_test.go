// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"debug/elf"
	"encoding/binary"
	"testing"
)

func TestAddSectionAssignsIDs(t *testing.T) {
	o := NewObject()
	a := o.AddSection(&Section{Name: ".text", RawIndex: 1})
	b := o.AddSection(&Section{Name: ".data", RawIndex: 2})
	if a != 0 || b != 1 {
		t.Fatalf("got IDs %d, %d, want 0, 1", a, b)
	}
	if o.Section(a).Name != ".text" || o.Section(b).Name != ".data" {
		t.Fatalf("section lookup by ID returned wrong section")
	}
}

func TestFindSectionByRawIndex(t *testing.T) {
	o := NewObject()
	o.AddSection(&Section{Name: ".text", RawIndex: 5})
	if s := o.FindSectionByRawIndex(5); s == nil || s.Name != ".text" {
		t.Fatalf("FindSectionByRawIndex(5) = %v, want .text", s)
	}
	if s := o.FindSectionByRawIndex(6); s != nil {
		t.Fatalf("FindSectionByRawIndex(6) = %v, want nil", s)
	}
}

func TestSectionFlags(t *testing.T) {
	var f SectionFlags
	if f.Grouped() || f.Ignore() || f.Include() {
		t.Fatalf("zero-value SectionFlags should have no flags set")
	}
	f.SetGrouped(true)
	f.SetInclude(true)
	if !f.Grouped() || f.Ignore() || !f.Include() {
		t.Fatalf("SectionFlags after SetGrouped/SetInclude = %+v", f)
	}
	f.SetGrouped(false)
	if f.Grouped() {
		t.Fatalf("SetGrouped(false) did not clear the flag")
	}
}

func TestSymFlagsIncludeStripExclusive(t *testing.T) {
	var f SymFlags
	f.SetInclude(true)
	if !f.Include() || f.Strip() {
		t.Fatalf("SymFlags = %+v after SetInclude(true)", f)
	}
}

func TestIsDebugSection(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".debug_info", true},
		{".debug_line", true},
		{".text", false},
		{".debugger", true}, // prefix match, matching the C tool's strncmp(".debug")
	}
	for _, test := range tests {
		s := &Section{Name: test.name}
		if got := s.IsDebugSection(); got != test.want {
			t.Errorf("IsDebugSection(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestIsRelocationSection(t *testing.T) {
	rela := &Section{Header: SectionHeader{Type: elf.SHT_RELA}}
	text := &Section{Header: SectionHeader{Type: elf.SHT_PROGBITS}}
	if !rela.IsRelocationSection() {
		t.Error("RELA section not recognized")
	}
	if text.IsRelocationSection() {
		t.Error("PROGBITS section misclassified as relocation section")
	}
}

func TestIsTextSection(t *testing.T) {
	text := &Section{Header: SectionHeader{Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR}}
	data := &Section{Header: SectionHeader{Flags: elf.SHF_ALLOC | elf.SHF_WRITE}}
	if !text.IsTextSection() {
		t.Error("EXECINSTR section not recognized as text")
	}
	if data.IsTextSection() {
		t.Error("writable data section misclassified as text")
	}
}

func TestStringPoolInterning(t *testing.T) {
	var p StringPool
	a := p.Intern("foo")
	b := p.Intern("bar")
	c := p.Intern("foo")
	if a != c {
		t.Fatalf("Intern(\"foo\") twice returned different *String")
	}
	if a.Offset != 0 || b.Offset != 4 {
		t.Fatalf("offsets = %d, %d, want 0, 4", a.Offset, b.Offset)
	}
	want := "foo\x00bar\x00"
	if got := string(p.Bytes()); got != want {
		t.Fatalf("Bytes() = %q, want %q", got, want)
	}
	if p.Len() != uint64(len(want)) {
		t.Fatalf("Len() = %d, want %d", p.Len(), len(want))
	}
}

func TestLayoutZeroValueIsLittleEndian(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	var l Layout
	if l.Order() != binary.LittleEndian {
		t.Fatalf("zero-value Layout order = %v, want little-endian", l.Order())
	}
	if got := l.Uint32(data); got != 0x04030201 {
		t.Errorf("Uint32 = %#x, want 0x04030201", got)
	}
	if got := l.Uint64(data); got != 0x0807060504030201 {
		t.Errorf("Uint64 = %#x, want 0x0807060504030201", got)
	}
	if got := l.Int64([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}); got != -1 {
		t.Errorf("Int64(all ones) = %d, want -1", got)
	}
}

func TestLayoutFor(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	if got := LayoutFor(binary.BigEndian).Uint32(data); got != 0x01020304 {
		t.Errorf("big-endian Uint32 = %#x, want 0x01020304", got)
	}
	if got := LayoutFor(binary.LittleEndian).Uint32(data); got != 0x04030201 {
		t.Errorf("little-endian Uint32 = %#x, want 0x04030201", got)
	}
}

func TestGroup(t *testing.T) {
	o := NewObject()
	sec := &Section{
		Object: o,
		Header: SectionHeader{Type: elf.SHT_GROUP},
		Data:   []byte{1, 0, 0, 0, 3, 0, 0, 0, 7, 0, 0, 0},
	}
	got := sec.Group()
	want := []uint32{3, 7}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Group() = %v, want %v", got, want)
	}
}
