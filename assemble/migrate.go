// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

// Package assemble implements the output assembler (spec §4.7): it
// migrates every included element of a compared, included patched
// object into a fresh model.Object, synthesizes the xsplice metadata
// sections, and reorders/reindexes everything into a linker-compliant
// final layout ready for elfio.Write.
package assemble

import (
	"github.com/xsplice/objdiff/model"
)

// MigrateIncludedElements copies every section and symbol of patched
// that was marked Include into a new, empty model.Object, breaking the
// cross-links (section symbol, owning section) that point at elements
// left behind. The migrated elements are shared, not copied: patched's
// own Sections/Symbols slices are left as they were, but the elements in
// them are now owned and mutated by the output object, so nothing after
// this call should still walk patched.Sections/Symbols.
func MigrateIncludedElements(patched *model.Object) *model.Object {
	out := model.NewObject()
	out.Header = patched.Header
	out.Layout = patched.Layout

	for _, sec := range patched.Sections {
		if !sec.Include() {
			continue
		}
		sec.RawIndex = -1
		if !sec.IsRelocationSection() && sec.Sym != nil && !sec.Sym.Include() {
			sec.Sym = nil
		}
		out.AddSection(sec)
	}

	for _, sym := range patched.Symbols {
		if !sym.Include() {
			continue
		}
		sym.RawIndex = -1
		sym.SetStrip(false)
		if sym.Section != nil && !sym.Section.Include() {
			sym.Section = nil
		}
		out.AddSymbol(sym)
	}

	return out
}
