// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package compare

import (
	"github.com/xsplice/objdiff/correlate"
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// MarkIgnoredFunctionsSame processes .xsplice.ignore.functions: every
// function named by the section's relocations is forced SAME (along
// with its section, section-symbol, and relocation section), with a
// warning if the function wasn't actually CHANGED.
func MarkIgnoredFunctionsSame(o *model.Object, log diag.Logger) error {
	sec := o.FindSectionByName(".xsplice.ignore.functions")
	if sec == nil || sec.Rela == nil {
		return nil
	}
	for _, rela := range sec.Rela.Relocs {
		sym := rela.Target
		if sym.Section == nil {
			return diag.Errorf("expected bundled symbol")
		}
		if !sym.IsFunc() {
			return diag.Errorf("expected function symbol")
		}
		log.Warnf("ignoring function: %s\n", sym.Name)
		if sym.Status != model.StatusChanged {
			log.Warnf("NOTICE: no change detected in function %s, unnecessary ignore directive?\n", sym.Name)
		}
		sym.Status = model.StatusSame
		sym.Section.Status = model.StatusSame
		if sym.Section.Sym != nil {
			sym.Section.Sym.Status = model.StatusSame
		}
		if sym.Section.Rela != nil {
			sym.Section.Rela.Status = model.StatusSame
		}
	}
	return nil
}

// MarkIgnoredSections processes .xsplice.ignore.sections: each
// relocation's target string (interpreted as a section name within the
// referenced string section) is looked up and the named section (and
// its twin) is marked Ignore. The string section itself is force-
// included so a literal ignored-section name doesn't itself trigger a
// spurious "changed section not shipped" error.
func MarkIgnoredSections(o *model.Object, log diag.Logger) error {
	sec := o.FindSectionByName(".xsplice.ignore.sections")
	if sec == nil || sec.Rela == nil {
		return nil
	}
	for _, rela := range sec.Rela.Relocs {
		strSec := rela.Target.Section
		strSec.Status = model.StatusChanged
		strSec.SetInclude(true)

		if rela.Addend < 0 || int(rela.Addend) >= len(strSec.Data) {
			return diag.Errorf("ignore directive: addend out of range for %s", strSec.Name)
		}
		name := cString(strSec.Data[rela.Addend:])

		ignoreSec := o.FindSectionByName(name)
		if ignoreSec == nil {
			return diag.Errorf("XSPLICE_IGNORE_SECTION: can't find %s", name)
		}
		log.Warnf("ignoring section: %s\n", name)
		if ignoreSec.IsRelocationSection() {
			ignoreSec = ignoreSec.Base
		}
		ignoreSec.SetIgnore(true)
		if ignoreSec.Twin != nil {
			ignoreSec.Twin.SetIgnore(true)
		}
	}
	return nil
}

// MarkIgnoredSectionsSame forces SAME status onto every section (and its
// section-symbol, relocation section, and owned symbols) that carries
// the Ignore flag.
func MarkIgnoredSectionsSame(o *model.Object) {
	for _, sec := range o.Sections {
		if !sec.Ignore() {
			continue
		}
		sec.Status = model.StatusSame
		if sec.Sym != nil {
			sec.Sym.Status = model.StatusSame
		}
		if sec.Rela != nil {
			sec.Rela.Status = model.StatusSame
		}
		for _, sym := range o.Symbols {
			if sym.Section == sec {
				sym.Status = model.StatusSame
			}
		}
	}
}

// MarkConstantLabelsSame forces SAME status onto every constant-label
// symbol (their contents are equal by construction; see spec §4.3).
func MarkConstantLabelsSame(o *model.Object) {
	for _, sym := range o.Symbols {
		if correlate.IsConstantLabel(sym) {
			sym.Status = model.StatusSame
		}
	}
}

// cString returns the NUL-terminated string starting at the front of b.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
