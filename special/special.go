// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

// Package special implements the special-section processor (spec §4.5):
// sections built out of fixed-size or variable-size rela "groups" where
// only the groups referencing an included function may ship, unlike
// ordinary sections which are included or dropped as a whole.
package special

import (
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// groupSizer returns the size, in bytes, of the rela group starting at
// offset within a special section's base section.
type groupSizer func(o *model.Object, offset int) (int, error)

// specialSection names a special section and how to size its groups.
type specialSection struct {
	name  string
	sizer groupSizer
}

// table lists the known special sections in processing order. Order
// matters: .fixup's sizer walks .rela.ex_table's relocation list, so
// .fixup must be regenerated before .ex_table's own regeneration
// filters and re-offsets that list.
var table = []specialSection{
	{".bug_frames.0", fixedGroupSize(8)},
	{".bug_frames.1", fixedGroupSize(8)},
	{".bug_frames.2", fixedGroupSize(8)},
	{".bug_frames.3", fixedGroupSize(16)},
	{".fixup", fixupGroupSize},
	{".ex_table", fixedGroupSize(8)},
	{".altinstructions", fixedGroupSize(12)},
}

func fixedGroupSize(n int) groupSizer {
	return func(o *model.Object, offset int) (int, error) { return n, nil }
}

// fixupGroupSize locates offset within .rela.ex_table's relocation list
// (which references .fixup groups by addend) to find where the next
// group begins: the smallest .fixup addend greater than offset, or the
// end of .fixup for the last group. .rela.ex_table entries aren't
// guaranteed sorted, so the whole list is scanned each time.
func fixupGroupSize(o *model.Object, offset int) (int, error) {
	sec := o.FindSectionByName(".rela.ex_table")
	if sec == nil {
		return 0, diag.Errorf("missing .rela.ex_table section")
	}

	found := false
	for _, rela := range sec.Relocs {
		if rela.Target.Name == ".fixup" && int(rela.Addend) == offset {
			found = true
			break
		}
	}
	if !found {
		return 0, diag.Errorf("can't find .fixup rela group at offset %d", offset)
	}

	next := -1
	for _, rela := range sec.Relocs {
		addend := int(rela.Addend)
		if rela.Target.Name == ".fixup" && addend > offset && (next < 0 || addend < next) {
			next = addend
		}
	}
	if next >= 0 {
		return next - offset, nil
	}

	fixup := o.FindSectionByName(".fixup")
	if fixup == nil {
		return 0, diag.Errorf("missing .fixup section")
	}
	return int(fixup.Header.Size) - offset, nil
}

// shouldKeepRelaGroup reports whether any relocation in [start, start+size)
// of sec targets an included function symbol.
func shouldKeepRelaGroup(sec *model.Section, start, size int, log diag.Logger) bool {
	for _, rela := range sec.Relocs {
		off := int(rela.Offset)
		if off >= start && off < start+size && rela.Target.IsFunc() && rela.Target.Section != nil && rela.Target.Section.Include() {
			log.Debugf("new/changed symbol %s found in special section %s\n", rela.Target.Name, sec.Name)
			return true
		}
	}
	return false
}

// regenerate rebuilds sec's base section data (and sec's own relocation
// list) keeping only the rela groups that reference an included
// function, compacting the surviving groups to the front.
func regenerate(o *model.Object, name string, sizer groupSizer, sec *model.Section, log diag.Logger) error {
	base := sec.Base
	src := base.Data
	dest := make([]byte, len(base.Data))

	var newRelocs []*model.Relocation
	srcOffset, destOffset := 0, 0
	for srcOffset < len(src) {
		size, err := sizer(o, srcOffset)
		if err != nil {
			return err
		}
		if size <= 0 {
			return diag.Errorf("invalid group size for section %s at offset %d", name, srcOffset)
		}

		if shouldKeepRelaGroup(sec, srcOffset, size, log) {
			shift := srcOffset - destOffset
			for _, rela := range sec.Relocs {
				off := int(rela.Offset)
				if off >= srcOffset && off < srcOffset+size {
					rela.Offset -= uint64(shift)
					rela.Target.SetInclude(true)
					newRelocs = append(newRelocs, rela)
				}
			}
			copy(dest[destOffset:destOffset+size], src[srcOffset:srcOffset+size])
			destOffset += size
		}
		srcOffset += size
	}

	align := int(base.Header.AddrAlign)
	if align == 0 {
		align = 1
	}
	alignedSize := ((len(base.Data) + align - 1) / align) * align
	if srcOffset != alignedSize {
		return diag.Errorf("group size mismatch for section %s", base.Name)
	}

	if destOffset == 0 {
		sec.Status = model.StatusSame
		base.Status = model.StatusSame
		sec.SetInclude(false)
		base.SetInclude(false)
		return nil
	}

	sec.Relocs = newRelocs
	sec.SetInclude(true)
	base.SetInclude(true)
	base.Data = dest[:destOffset]
	base.Header.Size = uint64(destOffset)
	return nil
}

// ProcessSpecialSections regenerates every known special section down to
// the rela groups that reference an included function, then whole-
// section-includes .altinstr_replacement (whose groups have no size
// table because nothing in it may be partially dropped).
func ProcessSpecialSections(o *model.Object, log diag.Logger) error {
	for _, special := range table {
		base := o.FindSectionByName(special.name)
		if base == nil || base.Rela == nil {
			continue
		}
		if err := regenerate(o, special.name, special.sizer, base.Rela, log); err != nil {
			return err
		}
	}

	for _, sec := range o.Sections {
		if sec.Name != ".altinstr_replacement" {
			continue
		}
		sec.SetInclude(true)
		for _, sym := range o.Symbols {
			if sym.Section == sec {
				sym.SetInclude(true)
			}
		}
		if sec.Rela != nil {
			sec.Rela.SetInclude(true)
			for _, rela := range sec.Rela.Relocs {
				rela.Target.SetInclude(true)
			}
		}
	}
	return nil
}
