// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package correlate

import (
	"debug/elf"
	"strings"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// specialStaticPrefixes are the local OBJECT name prefixes that mark a
// "special static": generated compiler/runtime bookkeeping variables
// that must never be correlated and are always included when referenced.
var specialStaticPrefixes = []string{"__key.", "__warned.", "descriptor.", "__func__.", "_rs."}

// IsSpecialStatic reports whether sym is a special static, applying the
// bundled-symbol indirection first when sym is itself a SECTION symbol.
func IsSpecialStatic(sym *model.Symbol) bool {
	if sym == nil {
		return false
	}
	if sym.IsSection() {
		if sym.Name == "__verbose" {
			return true
		}
		if sym.Section == nil || sym.Section.Bundled == nil {
			return false
		}
		sym = sym.Section.Bundled
	}
	if !sym.IsObject() || !sym.IsLocal() {
		return false
	}
	for _, prefix := range specialStaticPrefixes {
		if strings.HasPrefix(sym.Name, prefix) {
			return true
		}
	}
	return false
}

// IsConstantLabel reports whether sym is a compiler-generated constant
// label (".LC" followed only by digits, local binding).
func IsConstantLabel(sym *model.Symbol) bool {
	if !sym.IsLocal() || !strings.HasPrefix(sym.Name, ".LC") {
		return false
	}
	suffix := sym.Name[3:]
	if suffix == "" {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if !isDigit(suffix[i]) {
			return false
		}
	}
	return true
}

// CorrelateSections pairs sections of base and patched by name. Special-
// static sections are excluded; group sections additionally require
// byte-equal payloads.
func CorrelateSections(base, patched *model.Object, log diag.Logger) {
	for _, s1 := range base.Sections {
		for _, s2 := range patched.Sections {
			if s1.Name != s2.Name {
				continue
			}

			if IsSpecialStatic(specialStaticSymbolFor(s1)) {
				continue
			}

			if s1.Header.Type == elf.SHT_GROUP {
				if len(s1.Data) != len(s2.Data) || string(s1.Data) != string(s2.Data) {
					continue
				}
			}

			log.Debugf("Found section twins: %s\n", s1.Name)
			s1.Twin = s2
			s2.Twin = s1
			s1.Status = model.StatusSame
			s2.Status = model.StatusSame
			break
		}
	}
}

// specialStaticSymbolFor returns the symbol IsSpecialStatic should
// examine for sec: its own section-symbol if it has one (a rela
// section's base's section-symbol, for a rela section), matching the
// original's `is_rela_section(sec1) ? sec1->base->secsym : sec1->secsym`.
func specialStaticSymbolFor(sec *model.Section) *model.Symbol {
	s := sec
	if s.IsRelocationSection() {
		s = s.Base
	}
	return s.Sym
}

// CorrelateSymbols pairs symbols of base and patched by (name, type).
// Special-static symbols and constant labels are excluded. Symbols of
// type SECTION whose section is a GROUP additionally require the
// section's twin to already match.
func CorrelateSymbols(base, patched *model.Object, log diag.Logger) {
	for _, sym1 := range base.Symbols {
		for _, sym2 := range patched.Symbols {
			if sym1.Name != sym2.Name || sym1.Type != sym2.Type {
				continue
			}
			if IsSpecialStatic(sym1) {
				continue
			}
			if IsConstantLabel(sym1) {
				continue
			}
			if sym1.Section != nil && sym1.Section.Header.Type == elf.SHT_GROUP && sym1.Section.Twin != sym2.Section {
				continue
			}

			log.Debugf("Found symbol twins: %s\n", sym1.Name)
			sym1.Twin = sym2
			sym2.Twin = sym1
			sym1.Status = model.StatusSame
			sym2.Status = model.StatusSame
			break
		}
	}
}
