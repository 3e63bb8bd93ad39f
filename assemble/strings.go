// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package assemble

import (
	"debug/elf"

	"github.com/xsplice/objdiff/model"
)

// CreateStringsElements adds an empty .xsplice.strings PROGBITS section
// and its SECTION-type symbol to o. The section's data is populated
// later, once CreatePatchesSections has interned every name it needs
// into o.Strings (see BuildStringsSectionData).
func CreateStringsElements(o *model.Object) {
	sec := &model.Section{
		Name: ".xsplice.strings",
		Header: model.SectionHeader{
			Type:      elf.SHT_PROGBITS,
			Flags:     elf.SHF_ALLOC,
			EntSize:   1,
			AddrAlign: 1,
		},
	}
	o.AddSection(sec)

	sym := &model.Symbol{
		Name:    ".xsplice.strings",
		Bind:    elf.STB_LOCAL,
		Type:    elf.STT_SECTION,
		Section: sec,
	}
	o.AddSymbol(sym)
	sec.Sym = sym
}

// BuildStringsSectionData populates .xsplice.strings' Data from o's
// interned string pool, in insertion order, each NUL-terminated.
func BuildStringsSectionData(o *model.Object) {
	sec := o.FindSectionByName(".xsplice.strings")
	if sec == nil {
		return
	}
	sec.Data = o.Strings.Bytes()
	sec.Header.Size = uint64(len(sec.Data))
}
