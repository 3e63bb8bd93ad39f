// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package assemble

import (
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// MangleLocalSymbol builds the "filename#symbol" name used by the
// special symbol table that resolves local symbols by originating
// source file.
func MangleLocalSymbol(hint, name string) string {
	return hint + "#" + name
}

// RenameLocalSymbols renames every local FUNC/OBJECT symbol of o (other
// than the reserved NULL symbol) to its mangled "hint#name" form.
func RenameLocalSymbols(o *model.Object, hint string, log diag.Logger) {
	for _, sym := range o.Symbols {
		if sym.Name == "" {
			continue
		}
		if !sym.IsFunc() && !sym.IsObject() {
			continue
		}
		if !sym.IsLocal() {
			continue
		}
		sym.Name = MangleLocalSymbol(hint, sym.Name)
		log.Debugf("Local symbol mangled to: %s\n", sym.Name)
	}
}
