// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

// Package include implements the inclusion engine (spec §4.4): starting
// from the set of changed functions and new globals, it computes the
// transitive closure of sections and symbols that must ship in the
// output object.
package include

import (
	"debug/elf"
	"strings"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// StandardElements force-includes the sections every output object
// carries regardless of whether anything in them changed: the string
// tables, symbol table, and read-only string-merge sections, plus the
// NULL symbol.
func StandardElements(o *model.Object) {
	for _, sec := range o.Sections {
		if sec.Name == ".shstrtab" || sec.Name == ".strtab" || sec.Name == ".symtab" ||
			strings.HasPrefix(sec.Name, ".rodata.str1.") {
			sec.SetInclude(true)
			if sec.Sym != nil {
				sec.Sym.SetInclude(true)
			}
		}
	}
	if len(o.Symbols) > 0 {
		o.Symbols[0].SetInclude(true)
	}
}

// Symbol marks sym (and, transitively, its section, section symbol, and
// every symbol targeted by that section's relocations) for inclusion.
// Recursion bottoms out at symbols with no section, symbols whose section
// is already included, and SAME symbols other than SECTION symbols (their
// existing copy is referenced in place), mirroring xsplice_include_symbol's
// base case.
func Symbol(sym *model.Symbol, log diag.Logger) {
	includeSymbol(sym, log, 0)
}

func includeSymbol(sym *model.Symbol, log diag.Logger, depth int) {
	sym.SetInclude(true)
	log.Debugf("%*sincluding symbol %s\n", depth, "", sym.Name)

	if sym.Section == nil || sym.Section.Include() ||
		(!sym.IsSection() && sym.Status == model.StatusSame) {
		return
	}
	sec := sym.Section
	sec.SetInclude(true)
	log.Debugf("%*sincluding section %s\n", depth, "", sec.Name)
	if sec.Sym != nil && sec.Sym != sym {
		sec.Sym.SetInclude(true)
	}
	if sec.Rela == nil {
		return
	}
	sec.Rela.SetInclude(true)
	for _, rela := range sec.Rela.Relocs {
		includeSymbol(rela.Target, log, depth+1)
	}
}

// ChangedFunctions includes every CHANGED function symbol's transitive
// closure and every FILE symbol, returning the number of changed
// functions found.
func ChangedFunctions(o *model.Object, log diag.Logger) int {
	n := 0
	for _, sym := range o.Symbols {
		if sym.Status == model.StatusChanged && sym.IsFunc() {
			n++
			Symbol(sym, log)
		}
		if sym.IsFile() {
			sym.SetInclude(true)
		}
	}
	return n
}

// DebugSections includes every DWARF debug section, then strips
// relocation entries from .rela.debug_* sections that target
// not-included symbols (since the symbols they describe were dropped).
func DebugSections(o *model.Object) {
	for _, sec := range o.Sections {
		if sec.IsDebugSection() {
			sec.SetInclude(true)
			if !sec.IsRelocationSection() && sec.Sym != nil {
				sec.Sym.SetInclude(true)
			}
		}
	}
	for _, sec := range o.Sections {
		if !sec.IsRelocationSection() || !sec.IsDebugSection() {
			continue
		}
		kept := sec.Relocs[:0]
		for _, rela := range sec.Relocs {
			if rela.Target.Section != nil && rela.Target.Section.Include() {
				kept = append(kept, rela)
			}
		}
		sec.Relocs = kept
	}
}

// HookElements includes the xsplice load/unload hook sections, retargets
// each hook's sole relocation onto the hook function's section symbol
// (stripping the raw function symbol so it doesn't also get emitted),
// and de-includes the temporary function-pointer objects the
// xsplice_load/xsplice_unload macros generate.
func HookElements(o *model.Object, log diag.Logger) {
	for _, sec := range o.Sections {
		switch sec.Name {
		case ".xsplice.hooks.load", ".xsplice.hooks.unload",
			".rela.xsplice.hooks.load", ".rela.xsplice.hooks.unload":
		default:
			continue
		}
		sec.SetInclude(true)
		if sec.IsRelocationSection() {
			if len(sec.Relocs) == 0 {
				continue
			}
			rela := sec.Relocs[0]
			sym := rela.Target
			log.Debugf("found hook: %s\n", sym.Name)
			Symbol(sym, log)
			sym.SetInclude(false)
			if sym.Section != nil {
				sym.Section.Bundled = nil
				rela.Target = sym.Section.Sym
			}
		} else if sec.Sym != nil {
			sec.Sym.SetInclude(true)
		}
	}

	for _, sym := range o.Symbols {
		if sym.Name == "xsplice_load_data" || sym.Name == "xsplice_unload_data" {
			sym.SetInclude(false)
		}
	}
}

// NewGlobals includes the transitive closure of every global symbol
// that is new (no twin in base), returning the count found.
func NewGlobals(o *model.Object, log diag.Logger) int {
	n := 0
	for _, sym := range o.Symbols {
		if sym.Bind == elf.STB_GLOBAL && sym.Section != nil && sym.Status == model.StatusNew {
			Symbol(sym, log)
			n++
		}
	}
	return n
}
