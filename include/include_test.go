// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package include

import (
	"debug/elf"
	"testing"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

func TestStandardElements(t *testing.T) {
	o := model.NewObject()
	o.AddSymbol(&model.Symbol{Name: ""})
	strtab := &model.Section{Name: ".strtab"}
	o.AddSection(strtab)
	rostr := &model.Section{Name: ".rodata.str1.1"}
	o.AddSection(rostr)
	other := &model.Section{Name: ".text.foo"}
	o.AddSection(other)

	StandardElements(o)

	if !strtab.Include() || !rostr.Include() {
		t.Fatal(".strtab and .rodata.str1.1 should be included")
	}
	if other.Include() {
		t.Fatal(".text.foo should not be included by StandardElements")
	}
	if !o.Symbols[0].Include() {
		t.Fatal("NULL symbol should be included")
	}
}

func TestSymbolTransitiveClosure(t *testing.T) {
	sec := &model.Section{Name: ".text.foo"}
	relaSec := &model.Section{Name: ".rela.text.foo", Header: model.SectionHeader{Type: elf.SHT_RELA}}
	sec.Rela = relaSec
	relaSec.Base = sec

	dep := &model.Symbol{Name: "bar", Type: elf.STT_FUNC, Status: model.StatusSame}
	depSec := &model.Section{Name: ".text.bar"}
	dep.Section = depSec

	relaSec.Relocs = []*model.Relocation{{Target: dep}}

	fn := &model.Symbol{Name: "foo", Type: elf.STT_FUNC, Status: model.StatusChanged, Section: sec}

	Symbol(fn, diag.NopLogger{})

	if !fn.Include() || !sec.Include() || !relaSec.Include() {
		t.Fatal("function, its section, and its rela section must all be included")
	}
	if !dep.Include() {
		t.Fatal("transitively referenced symbol must be included")
	}
	if depSec.Include() {
		t.Fatal("unchanged dependency's section must not be pulled in (recursion should bottom out)")
	}
}

func TestChangedFunctionsCountsAndIncludesFileSymbols(t *testing.T) {
	o := model.NewObject()
	fileSym := &model.Symbol{Name: "foo.c", Type: elf.STT_FILE}
	o.AddSymbol(fileSym)
	fn := &model.Symbol{Name: "foo", Type: elf.STT_FUNC, Status: model.StatusChanged}
	o.AddSymbol(fn)

	n := ChangedFunctions(o, diag.NopLogger{})
	if n != 1 {
		t.Fatalf("changed count = %d, want 1", n)
	}
	if !fileSym.Include() {
		t.Fatal("FILE symbol should always be included")
	}
}

func TestDebugSectionsStripsUnincludedRelocs(t *testing.T) {
	o := model.NewObject()
	debugSec := &model.Section{Name: ".debug_info"}
	o.AddSection(debugSec)
	debugRela := &model.Section{Name: ".rela.debug_info", Header: model.SectionHeader{Type: elf.SHT_RELA}, Base: debugSec}
	o.AddSection(debugRela)

	keptTarget := &model.Symbol{Section: &model.Section{}}
	keptTarget.Section.SetInclude(true)
	droppedTarget := &model.Symbol{Section: &model.Section{}}

	debugRela.Relocs = []*model.Relocation{{Target: keptTarget}, {Target: droppedTarget}}

	DebugSections(o)

	if !debugSec.Include() || !debugRela.Include() {
		t.Fatal("debug sections should be included")
	}
	if len(debugRela.Relocs) != 1 || debugRela.Relocs[0].Target != keptTarget {
		t.Fatalf("expected only the included-target reloc to survive, got %d relocs", len(debugRela.Relocs))
	}
}

func TestNewGlobalsCounts(t *testing.T) {
	o := model.NewObject()
	sec := &model.Section{Name: ".text.newglobal"}
	sym := &model.Symbol{Name: "new_api", Bind: elf.STB_GLOBAL, Status: model.StatusNew, Section: sec}
	o.AddSymbol(sym)
	local := &model.Symbol{Name: "helper", Bind: elf.STB_LOCAL, Status: model.StatusNew, Section: sec}
	o.AddSymbol(local)

	n := NewGlobals(o, diag.NopLogger{})
	if n != 1 {
		t.Fatalf("new globals = %d, want 1", n)
	}
	if !sym.Include() {
		t.Fatal("new global symbol should be included")
	}
	if local.Include() {
		t.Fatal("local symbol should not be included by NewGlobals")
	}
}
