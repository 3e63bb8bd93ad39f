// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.
//
// Package correlate implements the Correlator (spec §4.2): it pairs base-
// object elements with patched-object elements by name, type, and
// structural constraints, resolving compiler-mangled names and
// static-local renaming along the way.
//
// The package never mutates status beyond SAME/initial; that's the
// Comparator's job. It only establishes Twin links and renames patched
// symbols/sections to match their base counterparts so later stages can
// compare them by identity.
package correlate

import (
	"debug/elf"
	"strings"

	"github.com/xsplice/objdiff/asm"
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// Precheck refuses to proceed unless base and patched agree on identity,
// type, machine, version, entry, program-header offset, flags, ehsize,
// and the three entry-size fields of the header, and refuses any input
// that carries program headers.
func Precheck(base, patched *model.Object) error {
	if base.Header.Ident != patched.Header.Ident {
		return diag.DiffFatalf("ELF headers differ: identity")
	}
	if base.Header.Type != patched.Header.Type ||
		base.Header.Machine != patched.Header.Machine ||
		base.Header.Version != patched.Header.Version ||
		base.Header.Entry != patched.Header.Entry ||
		base.Header.PhoffRaw != patched.Header.PhoffRaw ||
		base.Header.Flags != patched.Header.Flags ||
		base.Header.Ehsize != patched.Header.Ehsize ||
		base.Header.PhentSize != patched.Header.PhentSize ||
		base.Header.ShentSize != patched.Header.ShentSize {
		return diag.DiffFatalf("ELF headers differ")
	}
	for _, o := range []*model.Object{base, patched} {
		if o.Header.PhoffRaw != 0 {
			return diag.DiffFatalf("ELF contains program header")
		}
	}
	return nil
}

// MarkGroupedSections scans every GROUP section's payload and flags each
// referenced section Grouped.
func MarkGroupedSections(o *model.Object) error {
	for _, sec := range o.Sections {
		if sec.Header.Type != elf.SHT_GROUP {
			continue
		}
		for _, rawIdx := range sec.Group() {
			target := o.FindSectionByRawIndex(int(rawIdx))
			if target == nil {
				return diag.Errorf("group section not found")
			}
			target.SetGrouped(true)
		}
	}
	return nil
}

// ReplaceSectionSyms rewrites every SECTION-typed relocation target in
// every non-debug relocation section to point at a concrete
// function/object symbol instead, so relocations can be correlated by
// symbol identity rather than by section-plus-offset.
func ReplaceSectionSyms(o *model.Object, log diag.Logger) {
	for _, sec := range o.Sections {
		if !sec.IsRelocationSection() || sec.IsDebugSection() {
			continue
		}
		for _, rela := range sec.Relocs {
			if rela.Target == nil || !rela.Target.IsSection() {
				continue
			}

			if rela.Target.Section != nil && rela.Target.Section.Bundled != nil {
				rela.Target = rela.Target.Section.Bundled
				continue
			}

			var addOff int64
			switch rela.Type {
			case elf.R_X86_64_PC32:
				base := sec.Base
				next := asm.NextInstructionBoundary(base.Data, int(rela.Offset))
				addOff = int64(next) - int64(rela.Offset)
			case elf.R_X86_64_64, elf.R_X86_64_32S:
				addOff = 0
			default:
				continue
			}

			for _, sym := range o.Symbols {
				if sym.IsSection() || sym.Section != rela.Target.Section {
					continue
				}
				start := int64(sym.Value)
				end := start + int64(sym.Size)
				target := rela.Addend + addOff
				if target < start || target >= end {
					continue
				}
				log.Debugf("%s: replacing %s+%d reference with %s+%d\n",
					sec.Name, rela.Target.Name, rela.Addend, sym.Name, rela.Addend-start)
				rela.Target = sym
				rela.Addend -= start
				break
			}
		}
	}
}

// Correlate runs the full Correlator pipeline over base and patched:
// group marking, section-symbol substitution, mangled-function renaming,
// section/symbol pairing, and static-local correlation.
func Correlate(base, patched *model.Object, log diag.Logger) error {
	if err := Precheck(base, patched); err != nil {
		return err
	}
	if err := MarkGroupedSections(patched); err != nil {
		return err
	}
	ReplaceSectionSyms(base, log)
	ReplaceSectionSyms(patched, log)
	RenameMangledFunctions(base, patched, log)

	CorrelateSections(base, patched, log)
	CorrelateSymbols(base, patched, log)

	return CorrelateStaticLocalVariables(base, patched, log)
}

// sectionFunctionName returns the name used in diagnostics for a
// section: its bundled symbol's name if it's a relocation section's
// base (or the section itself), falling back to the section's own name.
func sectionFunctionName(sec *model.Section) string {
	s := sec
	if s.IsRelocationSection() {
		s = s.Base
	}
	if s.Bundled != nil {
		return s.Bundled.Name
	}
	return s.Name
}

func hasAnySubstr(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
