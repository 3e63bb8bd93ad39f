// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package assemble

import (
	"debug/elf"

	"github.com/xsplice/objdiff/model"
)

func isNullSym(sym *model.Symbol) bool { return sym.Name == "" }
func isFileSym(sym *model.Symbol) bool { return sym.IsFile() }
func isLocalFuncSym(sym *model.Symbol) bool {
	return sym.IsLocal() && sym.IsFunc()
}

// ReorderSymbols reorders o.Symbols into linker-compliant order: the
// NULL symbol, then STT_FILE symbols, then local FUNC symbols, then
// every other local symbol, then every global symbol — all stable
// within each group.
func ReorderSymbols(o *model.Object) {
	var null, file, localFunc, otherLocal, global []*model.Symbol
	for _, sym := range o.Symbols {
		switch {
		case isNullSym(sym):
			null = append(null, sym)
		case isFileSym(sym):
			file = append(file, sym)
		case isLocalFuncSym(sym):
			localFunc = append(localFunc, sym)
		case sym.IsLocal():
			otherLocal = append(otherLocal, sym)
		default:
			global = append(global, sym)
		}
	}

	ordered := make([]*model.Symbol, 0, len(o.Symbols))
	ordered = append(ordered, null...)
	ordered = append(ordered, file...)
	ordered = append(ordered, localFunc...)
	ordered = append(ordered, otherLocal...)
	ordered = append(ordered, global...)
	o.Symbols = ordered
}

// ReindexElements assigns final raw ELF indices: sections starting at 1
// (index 0 is the implicit NULL section elfio.Write always emits) in
// their current slice order, and symbols starting at 0 in their current
// slice order (expected to already be ReorderSymbols'd). Each symbol's
// Shndx and ID are brought in sync with its (possibly nil) Section.
func ReindexElements(o *model.Object) {
	for i, sec := range o.Sections {
		sec.RawIndex = i + 1
		sec.ID = model.SectionID(i)
	}

	for i, sym := range o.Symbols {
		sym.ID = model.SymID(i)
		switch {
		case sym.Section != nil:
			sym.Shndx = elf.SectionIndex(sym.Section.RawIndex)
		case sym.IsAbs():
			// Shndx already SHN_ABS; leave it.
		default:
			sym.Shndx = elf.SHN_UNDEF
		}
	}
}
