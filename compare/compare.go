// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

// Package compare implements the Comparator (spec §4.3): it classifies
// every correlated element as SAME or CHANGED, and marks uncorrelated
// patched elements NEW.
package compare

import (
	"bytes"
	"debug/elf"

	"github.com/xsplice/objdiff/correlate"
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// relaEqual reports whether rela1 and rela2 (from twinned relocation
// sections) should be considered equal for section-comparison purposes.
func relaEqual(rela1, rela2 *model.Relocation) bool {
	if rela1.Type != rela2.Type || rela1.Offset != rela2.Offset {
		return false
	}
	if rela1.Str != nil {
		return rela2.Str != nil && rela1.Str.Text == rela2.Str.Text
	}
	if rela1.Addend != rela2.Addend {
		return false
	}
	if correlate.IsConstantLabel(rela1.Target) && correlate.IsConstantLabel(rela2.Target) {
		return true
	}
	if correlate.IsSpecialStatic(rela1.Target) {
		return correlate.MangledCompare(rela1.Target.Name, rela2.Target.Name)
	}
	return rela1.Target.Name == rela2.Target.Name
}

// compareCorrelatedRelaSection walks sec and its twin's relocation lists
// in parallel; if every pair compares equal under relaEqual, sec is SAME.
func compareCorrelatedRelaSection(sec *model.Section) {
	twin := sec.Twin.Relocs
	if len(sec.Relocs) != len(twin) {
		sec.Status = model.StatusChanged
		return
	}
	for i, rela1 := range sec.Relocs {
		if !relaEqual(rela1, twin[i]) {
			sec.Status = model.StatusChanged
			return
		}
	}
	sec.Status = model.StatusSame
}

func compareCorrelatedNonRelaSection(sec *model.Section) {
	if sec.Header.Type != elf.SHT_NOBITS && !bytes.Equal(sec.Data, sec.Twin.Data) {
		sec.Status = model.StatusChanged
	} else {
		sec.Status = model.StatusSame
	}
}

// compareCorrelatedSection compares a twinned section's header strictly
// (fatal on mismatch), then its contents.
func compareCorrelatedSection(sec *model.Section, log diag.Logger) error {
	twin := sec.Twin
	log.Debugf("Compare correlated section: %s\n", sec.Name)

	if sec.Header.Type != twin.Header.Type ||
		sec.Header.Flags != twin.Header.Flags ||
		sec.Header.Addr != twin.Header.Addr ||
		sec.Header.AddrAlign != twin.Header.AddrAlign ||
		sec.Header.EntSize != twin.Header.EntSize {
		return diag.DiffFatalf("%s section header details differ", sec.Name)
	}

	if sec.Header.Size != twin.Header.Size || len(sec.Data) != len(twin.Data) {
		sec.Status = model.StatusChanged
	} else if sec.IsRelocationSection() {
		compareCorrelatedRelaSection(sec)
	} else {
		compareCorrelatedNonRelaSection(sec)
	}

	if sec.Status == model.StatusChanged {
		log.Debugf("section %s has changed\n", sec.Name)
	}
	return nil
}

// CompareSections classifies every section of o as SAME/CHANGED (if
// twinned) or NEW, then propagates each section's status onto its
// bundled symbol unless the symbol is already CHANGED.
func CompareSections(o *model.Object, log diag.Logger) error {
	for _, sec := range o.Sections {
		if sec.Twin == nil {
			sec.Status = model.StatusNew
			continue
		}
		if err := compareCorrelatedSection(sec, log); err != nil {
			return err
		}
	}

	for _, sec := range o.Sections {
		if sec.IsRelocationSection() {
			if sec.Base != nil && sec.Base.Bundled != nil && sec.Base.Bundled.Status != model.StatusChanged {
				sec.Base.Bundled.Status = sec.Status
			}
		} else if sec.Bundled != nil && sec.Bundled.Status != model.StatusChanged {
			sec.Bundled.Status = sec.Status
		}
	}
	return nil
}

// compareCorrelatedSymbol enforces that a twinned symbol's binding/type/
// visibility and section-presence agree (fatal otherwise), allows a
// section change only when the patched twin's section-twin is ignored,
// forbids an OBJECT size change, and forces SAME for undefined/absolute
// symbols.
func compareCorrelatedSymbol(sym *model.Symbol) error {
	twin := sym.Twin
	info1 := byte(sym.Bind)<<4 | byte(sym.Type)&0xf
	info2 := byte(twin.Bind)<<4 | byte(twin.Type)&0xf
	if info1 != info2 || sym.Other != twin.Other ||
		(sym.Section != nil) != (twin.Section != nil) {
		return diag.DiffFatalf("symbol info mismatch: %s", sym.Name)
	}

	if sym.Section != nil && twin.Section != nil && sym.Section.Twin != twin.Section {
		if twin.Section.Twin != nil && twin.Section.Twin.Ignore() {
			sym.Status = model.StatusChanged
		} else {
			return diag.DiffFatalf("symbol changed sections: %s, %s, %s, %s",
				sym.Name, twin.Name, sym.Section.Name, twin.Section.Name)
		}
	}

	if sym.IsObject() && sym.Size != twin.Size {
		return diag.DiffFatalf("object size mismatch: %s", sym.Name)
	}

	if sym.IsUndef() || sym.IsAbs() {
		sym.Status = model.StatusSame
	}
	// Local symbols inherit their section's status, set during section
	// comparison above; nothing more to do here.
	return nil
}

// CompareSymbols classifies every symbol of o as SAME/CHANGED (if
// twinned, deferring to the section-driven status for locals) or NEW.
func CompareSymbols(o *model.Object, log diag.Logger) error {
	for _, sym := range o.Symbols {
		if sym.Twin != nil {
			if err := compareCorrelatedSymbol(sym); err != nil {
				return err
			}
		} else {
			sym.Status = model.StatusNew
		}
		log.Debugf("symbol %s is %s\n", sym.Name, sym.Status)
	}
	return nil
}

// CompareCorrelatedElements runs CompareSections then CompareSymbols over
// the (already correlated) patched object.
func CompareCorrelatedElements(patched *model.Object, log diag.Logger) error {
	log.Debugf("Compare sections\n")
	if err := CompareSections(patched, log); err != nil {
		return err
	}
	log.Debugf("Compare symbols\n")
	return CompareSymbols(patched, log)
}
