// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package correlate

import (
	"strings"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// findStaticTwin looks, within sec.Twin's relocation list, for the base
// candidate matching sym under MangledCompare. It enforces uniqueness on
// both sides: a second uncorrelated match within sec itself, or two
// different matches within sec.Twin, are both fatal.
func findStaticTwin(sec *model.Section, sym *model.Symbol) (*model.Symbol, error) {
	if sec.Twin == nil {
		return nil, nil
	}

	for _, rela := range sec.Relocs {
		if rela.Target == sym || rela.Target.Twin != nil {
			continue
		}
		if MangledCompare(rela.Target.Name, sym.Name) {
			return nil, diag.DiffFatalf(
				"found another static local variable matching %s in patched %s",
				sym.Name, sectionFunctionName(sec))
		}
	}

	var baseSym *model.Symbol
	for _, rela := range sec.Twin.Relocs {
		if rela.Target.Twin != nil {
			continue
		}
		if !MangledCompare(rela.Target.Name, sym.Name) {
			continue
		}
		if baseSym != nil && baseSym != rela.Target {
			return nil, diag.DiffFatalf(
				"found two static local variables matching %s in orig %s",
				sym.Name, sectionFunctionName(sec))
		}
		baseSym = rela.Target
	}
	return baseSym, nil
}

// CorrelateStaticLocalVariables renames and twins static local OBJECT
// symbols whose compiler-assigned numeric suffix may have changed
// between base and patched (spec §4.2's static-local correlation), e.g.
// count.31452 vs count.8842.
func CorrelateStaticLocalVariables(base, patched *model.Object, log diag.Logger) error {
	for _, sym := range patched.Symbols {
		if !sym.IsObject() || !sym.IsLocal() || sym.Twin != nil {
			continue
		}
		if IsSpecialStatic(sym) {
			continue
		}
		if !strings.Contains(sym.Name, ".") {
			continue
		}

		var sec *model.Section
		var baseSym *model.Symbol
		for _, tmpSec := range patched.Sections {
			if !tmpSec.IsRelocationSection() || tmpSec.Base == nil ||
				!tmpSec.Base.IsTextSection() || tmpSec.IsDebugSection() {
				continue
			}
			found := false
			for _, rela := range tmpSec.Relocs {
				if rela.Target != sym {
					continue
				}
				found = true
				tmpSym, err := findStaticTwin(tmpSec, sym)
				if err != nil {
					return err
				}
				if baseSym != nil && tmpSym != nil && baseSym != tmpSym {
					return diag.DiffFatalf(
						"found two twins for static local variable %s: %s and %s",
						sym.Name, baseSym.Name, tmpSym.Name)
				}
				if tmpSym != nil && baseSym == nil {
					baseSym = tmpSym
				}
				break
			}
			if found {
				sec = tmpSec
			}
		}

		if sec == nil {
			return diag.Errorf("static local variable %s not used", sym.Name)
		}

		if baseSym == nil {
			log.Warnf("unable to correlate static local variable %s used by %s, assuming variable is new\n",
				sym.Name, sectionFunctionName(sec))
			continue
		}

		bundled := sym.Section != nil && sym.Section.Bundled == sym
		baseBundled := baseSym.Section != nil && baseSym.Section.Bundled == baseSym
		if bundled != baseBundled {
			return diag.DiffFatalf("bundle mismatch for symbol %s", sym.Name)
		}
		if !bundled && sym.Section.Twin != baseSym.Section {
			return diag.DiffFatalf("sections %s and %s aren't correlated",
				sym.Section.Name, baseSym.Section.Name)
		}

		log.Debugf("renaming and correlating %s to %s\n", sym.Name, baseSym.Name)
		sym.Name = baseSym.Name
		sym.Twin = baseSym
		baseSym.Twin = sym
		sym.Status = model.StatusSame
		baseSym.Status = model.StatusSame

		if bundled {
			sym.Section.Twin = baseSym.Section
			baseSym.Section.Twin = sym.Section
		}
	}
	return nil
}
