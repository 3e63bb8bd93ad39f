// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package assemble

import (
	"debug/elf"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// PatchInsnSize is the minimum prologue size a patched function's base
// implementation must have for the trampoline to be writable in place.
const PatchInsnSize = 5

// patchFuncSize is the on-disk size, in bytes, of one .xsplice.funcs
// record: five 8-byte fields (old_addr, old_size, new_addr, new_size,
// name) plus trailing padding to a round 48 bytes, giving the loader
// room to grow the record without an ABI break.
const patchFuncSize = 48

// Field byte offsets within a patchFuncSize record.
const (
	offOldAddr = 0
	offOldSize = 8
	offNewAddr = 16
	offNewSize = 24
	offName    = 32
)

// SymbolLookup resolves a kernel symbol's address and size, either by
// its global name or by its (local) name plus the originating source
// file hint. It is implemented by kernellookup.Table; assemble depends
// only on this narrow interface so it never imports kernellookup.
type SymbolLookup interface {
	GlobalSymbol(name string) (value, size uint64, ok bool)
	LocalSymbol(name, fileHint string) (value, size uint64, ok bool)
}

// createSectionPair appends a PROGBITS section named name (sized for nr
// entsize-byte records) and its companion RELA section to o, and
// returns the PROGBITS section with Rela already linked.
func createSectionPair(o *model.Object, name string, entsize, nr int) *model.Section {
	sec := &model.Section{
		Name: name,
		Data: make([]byte, entsize*nr),
		Header: model.SectionHeader{
			Type:      elf.SHT_PROGBITS,
			Flags:     elf.SHF_ALLOC,
			EntSize:   uint64(entsize),
			AddrAlign: 8,
			Size:      uint64(entsize * nr),
		},
	}
	o.AddSection(sec)

	relaSec := &model.Section{
		Name: ".rela" + name,
		Base: sec,
		Header: model.SectionHeader{
			Type:      elf.SHT_RELA,
			EntSize:   relaSize,
			AddrAlign: 8,
		},
	}
	o.AddSection(relaSec)
	sec.Rela = relaSec

	return sec
}

const relaSize = 24

// CreatePatchesSections builds .xsplice.funcs (one record per CHANGED
// FUNC symbol) and its relocation section. Each record's old_addr/
// old_size come from lookup (resolved eagerly when resolve is true,
// left zero for load-time resolution otherwise); new_size is the
// symbol's own size; new_addr and name are populated by relocations
// against the patched function symbol and the .xsplice.strings section
// symbol respectively.
func CreatePatchesSections(o *model.Object, lookup SymbolLookup, hint string, resolve bool, log diag.Logger) error {
	var funcs []*model.Symbol
	for _, sym := range o.Symbols {
		if sym.IsFunc() && sym.Status == model.StatusChanged {
			funcs = append(funcs, sym)
		}
	}

	sec := createSectionPair(o, ".xsplice.funcs", patchFuncSize, len(funcs))
	relaSec := sec.Rela

	strSym := o.FindSymbolByName(".xsplice.strings")
	if strSym == nil {
		return diag.Errorf("can't find .xsplice.strings symbol")
	}

	layout := o.Layout
	order := layout.Order()
	for i, sym := range funcs {
		var funcname string
		var value, size uint64
		var ok bool
		if sym.IsLocal() {
			funcname = MangleLocalSymbol(hint, sym.Name)
			value, size, ok = lookup.LocalSymbol(sym.Name, hint)
			if !ok {
				return diag.Errorf("lookup_local_symbol %s (%s)", sym.Name, hint)
			}
		} else {
			funcname = sym.Name
			value, size, ok = lookup.GlobalSymbol(sym.Name)
			if !ok {
				return diag.Errorf("lookup_global_symbol %s", sym.Name)
			}
		}
		log.Debugf("lookup for %s @ 0x%016x len %d\n", sym.Name, value, size)

		if size < PatchInsnSize {
			return diag.DiffFatalf("%s too small to patch", sym.Name)
		}

		rec := sec.Data[i*patchFuncSize : (i+1)*patchFuncSize]
		if resolve {
			order.PutUint64(rec[offOldAddr:], value)
		}
		order.PutUint64(rec[offOldSize:], size)
		order.PutUint64(rec[offNewSize:], sym.Size)

		str := o.Strings.Intern(funcname)

		relaSec.Relocs = append(relaSec.Relocs,
			&model.Relocation{
				Sec:    relaSec,
				Type:   elf.R_X86_64_64,
				Offset: uint64(i*patchFuncSize + offNewAddr),
				Target: sym,
				Addend: 0,
			},
			&model.Relocation{
				Sec:    relaSec,
				Type:   elf.R_X86_64_64,
				Offset: uint64(i*patchFuncSize + offName),
				Target: strSym,
				Addend: int64(str.Offset),
			},
		)
	}

	return nil
}
