// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package correlate

import (
	"unicode"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// MangledCompare reports whether a and b are equal under gcc's mangled-
// name convention: wherever one side has a '.' followed by digits, both
// sides must, and the digit runs are skipped without comparison. For
// names without any such run, it reduces to strict equality (spec §8
// property 8).
func MangledCompare(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] != b[j] {
			return false
		}
		if a[i] == '.' && i+1 < len(a) && isDigit(a[i+1]) {
			if !(j+1 < len(b) && isDigit(b[j+1])) {
				return false
			}
			i++
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			j++
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			continue
		}
		i++
		j++
	}
	return i == len(a) && j == len(b)
}

func isDigit(b byte) bool { return unicode.IsDigit(rune(b)) }

// mangledSuffixes are the compiler-introduced name-mangling markers that
// trigger mangled-function renaming (isra/constprop/part partial
// specialization suffixes).
var mangledSuffixes = []string{".isra.", ".constprop.", ".part."}

// RenameMangledFunctions renames every mangled FUNC symbol in patched
// that has exactly one candidate name in base under MangledCompare back
// to the base name, propagating the rename to the symbol's bundled
// section (and that section's relocation section and sibling .rodata
// section) when the symbol is its section's bundled symbol. A name
// matched by two differently named base symbols is ambiguous and is
// left alone with a warning.
func RenameMangledFunctions(base, patched *model.Object, log diag.Logger) {
	for _, sym := range patched.Symbols {
		if !sym.IsFunc() || !hasAnySubstr(sym.Name, mangledSuffixes...) {
			continue
		}

		var baseSym *model.Symbol
		ambiguous := false
		for _, cand := range base.Symbols {
			if !MangledCompare(cand.Name, sym.Name) {
				continue
			}
			if baseSym != nil && cand.Name != baseSym.Name {
				ambiguous = true
				break
			}
			baseSym = cand
		}
		if baseSym == nil || baseSym.Name == sym.Name {
			continue
		}
		if ambiguous {
			log.Warnf("multiple base candidates for mangled function %s, not renaming\n", sym.Name)
			continue
		}

		log.Debugf("renaming %s to %s\n", sym.Name, baseSym.Name)
		origName := sym.Name
		sym.Name = baseSym.Name

		if sym.Section == nil || sym.Section.Bundled != sym {
			continue
		}
		sym.Section.Name = baseSym.Section.Name
		if sym.Section.Rela != nil && baseSym.Section.Rela != nil {
			sym.Section.Rela.Name = baseSym.Section.Rela.Name
		}

		// A function's switch-statement jump table can live in a
		// sibling .rodata.<name> section; rename it to match too.
		rodataOld := ".rodata." + origName
		sec := patched.FindSectionByName(rodataOld)
		if sec == nil {
			continue
		}
		baseSec := base.FindSectionByName(".rodata." + baseSym.Name)
		if baseSec == nil {
			continue
		}
		sec.Name = baseSec.Name
		if sec.Sym != nil {
			sec.Sym.Name = sec.Name
		}
		if sec.Rela != nil && baseSec.Rela != nil {
			sec.Rela.Name = baseSec.Rela.Name
		}
	}
}
