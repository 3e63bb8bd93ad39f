// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package compare

import (
	"debug/elf"
	"testing"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

func twinSections(name string) (*model.Section, *model.Section) {
	a := &model.Section{Name: name, Header: model.SectionHeader{Type: elf.SHT_PROGBITS}}
	b := &model.Section{Name: name, Header: model.SectionHeader{Type: elf.SHT_PROGBITS}}
	a.Twin, b.Twin = b, a
	return a, b
}

func TestCompareCorrelatedSectionSameBytes(t *testing.T) {
	a, b := twinSections(".text.foo")
	a.Data = []byte{1, 2, 3}
	b.Data = []byte{1, 2, 3}
	a.Header.Size, b.Header.Size = 3, 3
	if err := compareCorrelatedSection(a, diag.NopLogger{}); err != nil {
		t.Fatal(err)
	}
	if a.Status != model.StatusSame {
		t.Fatalf("status = %v, want SAME", a.Status)
	}
}

func TestCompareCorrelatedSectionChangedBytes(t *testing.T) {
	a, b := twinSections(".text.foo")
	a.Data = []byte{1, 2, 3}
	b.Data = []byte{1, 2, 4}
	a.Header.Size, b.Header.Size = 3, 3
	if err := compareCorrelatedSection(a, diag.NopLogger{}); err != nil {
		t.Fatal(err)
	}
	if a.Status != model.StatusChanged {
		t.Fatalf("status = %v, want CHANGED", a.Status)
	}
}

func TestCompareCorrelatedSectionHeaderMismatchFatal(t *testing.T) {
	a, b := twinSections(".text.foo")
	a.Header.Flags = elf.SHF_ALLOC
	b.Header.Flags = elf.SHF_WRITE
	if err := compareCorrelatedSection(a, diag.NopLogger{}); err == nil {
		t.Fatal("expected fatal error for header mismatch")
	}
}

func TestCompareCorrelatedSectionNobitsAlwaysSame(t *testing.T) {
	a, b := twinSections(".bss")
	a.Header.Type, b.Header.Type = elf.SHT_NOBITS, elf.SHT_NOBITS
	a.Header.Size, b.Header.Size = 8, 8
	if err := compareCorrelatedSection(a, diag.NopLogger{}); err != nil {
		t.Fatal(err)
	}
	if a.Status != model.StatusSame {
		t.Fatalf("status = %v, want SAME", a.Status)
	}
}

func TestRelaEqualStrictNameMatch(t *testing.T) {
	sym1 := &model.Symbol{Name: "foo"}
	sym2 := &model.Symbol{Name: "bar"}
	r1 := &model.Relocation{Type: elf.R_X86_64_PC32, Offset: 4, Target: sym1, Addend: -4}
	r2 := &model.Relocation{Type: elf.R_X86_64_PC32, Offset: 4, Target: sym2, Addend: -4}
	if relaEqual(r1, r2) {
		t.Fatal("different target names should not be equal")
	}
	r2.Target = sym1
	if !relaEqual(r1, r2) {
		t.Fatal("identical relocations should be equal")
	}
}

func TestRelaEqualStringInterned(t *testing.T) {
	str := &model.String{Text: "hello"}
	r1 := &model.Relocation{Type: elf.R_X86_64_64, Offset: 0, Str: str, Target: &model.Symbol{Name: ".rodata.str1.1"}}
	r2 := &model.Relocation{Type: elf.R_X86_64_64, Offset: 0, Str: &model.String{Text: "hello"}, Target: &model.Symbol{Name: ".rodata.str1.8"}}
	if !relaEqual(r1, r2) {
		t.Fatal("equal interned string contents should compare equal despite differing target names")
	}
}

func TestCompareCorrelatedSymbolSizeChangeFatal(t *testing.T) {
	sym := &model.Symbol{Name: "foo", Type: elf.STT_OBJECT, Size: 4}
	twin := &model.Symbol{Name: "foo", Type: elf.STT_OBJECT, Size: 8}
	sym.Twin, twin.Twin = twin, sym
	if err := compareCorrelatedSymbol(sym); err == nil {
		t.Fatal("expected fatal error for object size mismatch")
	}
}

func TestCompareCorrelatedSymbolUndefForcedSame(t *testing.T) {
	sym := &model.Symbol{Name: "foo", Type: elf.STT_NOTYPE, Shndx: elf.SHN_UNDEF}
	twin := &model.Symbol{Name: "foo", Type: elf.STT_NOTYPE, Shndx: elf.SHN_UNDEF}
	sym.Twin, twin.Twin = twin, sym
	if err := compareCorrelatedSymbol(sym); err != nil {
		t.Fatal(err)
	}
	if sym.Status != model.StatusSame {
		t.Fatalf("status = %v, want SAME for undefined symbol", sym.Status)
	}
}

func TestMarkConstantLabelsSame(t *testing.T) {
	o := model.NewObject()
	label := &model.Symbol{Name: ".LC0", Bind: elf.STB_LOCAL}
	o.AddSymbol(label)
	MarkConstantLabelsSame(o)
	if label.Status != model.StatusSame {
		t.Fatalf("status = %v, want SAME", label.Status)
	}
}

func TestMarkIgnoredSectionsSame(t *testing.T) {
	o := model.NewObject()
	sec := &model.Section{Name: ".text.foo"}
	sec.SetIgnore(true)
	o.AddSection(sec)
	sym := &model.Symbol{Name: "foo", Section: sec}
	o.AddSymbol(sym)

	MarkIgnoredSectionsSame(o)

	if sec.Status != model.StatusSame {
		t.Fatalf("section status = %v, want SAME", sec.Status)
	}
	if sym.Status != model.StatusSame {
		t.Fatalf("symbol status = %v, want SAME", sym.Status)
	}
}

func TestMarkIgnoredFunctionsSame(t *testing.T) {
	o := model.NewObject()
	fn := &model.Symbol{Name: "do_patch", Type: elf.STT_FUNC, Status: model.StatusChanged}
	fnSec := &model.Section{Name: ".text.do_patch", Status: model.StatusChanged}
	fn.Section = fnSec
	o.AddSection(fnSec)
	o.AddSymbol(fn)

	dirSec := &model.Section{Name: ".xsplice.ignore.functions"}
	relaSec := &model.Section{Name: ".rela.xsplice.ignore.functions", Base: dirSec}
	dirSec.Rela = relaSec
	relaSec.Relocs = []*model.Relocation{{Target: fn}}
	o.AddSection(dirSec)
	o.AddSection(relaSec)

	if err := MarkIgnoredFunctionsSame(o, diag.NopLogger{}); err != nil {
		t.Fatal(err)
	}
	if fn.Status != model.StatusSame || fnSec.Status != model.StatusSame {
		t.Fatalf("ignored function not forced SAME: sym=%v sec=%v", fn.Status, fnSec.Status)
	}
}

func TestMarkIgnoredFunctionsSameRejectsNonFunc(t *testing.T) {
	o := model.NewObject()
	data := &model.Symbol{Name: "counter", Type: elf.STT_OBJECT}
	dataSec := &model.Section{Name: ".data.counter"}
	data.Section = dataSec

	dirSec := &model.Section{Name: ".xsplice.ignore.functions"}
	relaSec := &model.Section{Name: ".rela.xsplice.ignore.functions", Base: dirSec}
	dirSec.Rela = relaSec
	relaSec.Relocs = []*model.Relocation{{Target: data}}
	o.AddSection(dirSec)
	o.AddSection(relaSec)

	if err := MarkIgnoredFunctionsSame(o, diag.NopLogger{}); err == nil {
		t.Fatal("expected error for non-function ignore target")
	}
}
