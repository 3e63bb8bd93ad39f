// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package assemble

import (
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/elfio"
	"github.com/xsplice/objdiff/model"
)

// Assemble migrates patched's included elements into a fresh object,
// synthesizes the xsplice metadata sections against lookup, and
// produces the final section/symbol order and on-disk byte layout
// ready for elfio.Write. patched must already have been through
// special.ProcessSpecialSections and verify.Patchability.
func Assemble(patched *model.Object, lookup SymbolLookup, resolve bool, log diag.Logger) (*model.Object, error) {
	out := MigrateIncludedElements(patched)

	var hint string
	for _, sym := range out.Symbols {
		if sym.IsFile() {
			hint = sym.Name
			break
		}
	}
	if hint == "" {
		return nil, diag.Errorf("FILE symbol not found in output, stripped?")
	}

	CreateStringsElements(out)
	if err := CreatePatchesSections(out, lookup, hint, resolve, log); err != nil {
		return nil, err
	}
	BuildStringsSectionData(out)

	RenameLocalSymbols(out, hint, log)

	ReorderSymbols(out)
	ReindexElements(out)

	symtab := out.FindSectionByName(".symtab")
	strtab := out.FindSectionByName(".strtab")
	shstrtab := out.FindSectionByName(".shstrtab")
	if symtab == nil || strtab == nil || shstrtab == nil {
		return nil, diag.Errorf("output object missing standard symbol/string tables")
	}

	for _, sec := range out.Sections {
		if !sec.IsRelocationSection() || sec.Base == nil {
			continue
		}
		sec.Header.Link = uint32(symtab.RawIndex)
		sec.Header.Info = uint32(sec.Base.RawIndex)
		log.Debugf("Rebuild rela section data for %s\n", sec.Name)
		sec.Data = elfio.WriteRela(sec.Relocs)
		sec.Header.Size = uint64(len(sec.Data))
	}

	var names []string
	for _, sec := range out.Sections {
		names = append(names, sec.Name)
	}
	shstrtab.Data, _ = elfio.BuildStrtab(names)
	shstrtab.Header.Size = uint64(len(shstrtab.Data))

	var symNames []string
	for _, sym := range out.Symbols {
		symNames = append(symNames, sym.Name)
	}
	strtabData, nameOffsets := elfio.BuildStrtab(symNames)
	strtab.Data = strtabData
	strtab.Header.Size = uint64(len(strtab.Data))

	symtabData, err := elfio.WriteSymtab(out.Symbols, nameOffsets)
	if err != nil {
		return nil, err
	}
	symtab.Data = symtabData
	symtab.Header.Size = uint64(len(symtabData))
	symtab.Header.Link = uint32(strtab.RawIndex)
	symtab.Header.Info = uint32(firstGlobalIndex(out.Symbols))

	return out, nil
}

// firstGlobalIndex returns the symbol-table index of the first global
// (non-local) symbol, the value ELF requires in .symtab's sh_info.
func firstGlobalIndex(syms []*model.Symbol) int {
	for i, sym := range syms {
		if !sym.IsLocal() {
			return i
		}
	}
	return len(syms)
}
