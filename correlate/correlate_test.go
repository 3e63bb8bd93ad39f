// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package correlate

import (
	"debug/elf"
	"testing"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

func TestMangledCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"foo", "foo", true},
		{"foo", "bar", false},
		{"sysctl_print_dir.isra.1", "sysctl_print_dir.isra.2", true},
		{"sysctl_print_dir", "sysctl_print_dir.isra.2", false},
		{"count.17", "count.42", true},
		{"count.17", "count", false},
		{"count.17x", "count.42y", false},
		{"a.1.b", "a.1.b", true},
		{"", "", true},
	}
	for _, test := range tests {
		if got := MangledCompare(test.a, test.b); got != test.want {
			t.Errorf("MangledCompare(%q, %q) = %v, want %v", test.a, test.b, got, test.want)
		}
		// Property 8: symmetric.
		if got := MangledCompare(test.b, test.a); got != test.want {
			t.Errorf("MangledCompare(%q, %q) [swapped] = %v, want %v", test.b, test.a, got, test.want)
		}
	}
}

func TestMangledCompareReflexive(t *testing.T) {
	for _, name := range []string{"foo", "count.17", "sysctl_print_dir.isra.2"} {
		if !MangledCompare(name, name) {
			t.Errorf("MangledCompare(%q, %q) = false, want true (reflexive)", name, name)
		}
	}
}

func TestRenameMangledFunctions(t *testing.T) {
	base := model.NewObject()
	baseSec := &model.Section{Name: ".text.sysctl_print_dir.isra.1"}
	baseRela := &model.Section{Name: ".rela.text.sysctl_print_dir.isra.1", Base: baseSec, Header: model.SectionHeader{Type: elf.SHT_RELA}}
	baseSec.Rela = baseRela
	base.AddSection(baseSec)
	base.AddSection(baseRela)
	baseSym := &model.Symbol{Name: "sysctl_print_dir.isra.1", Type: elf.STT_FUNC, Bind: elf.STB_LOCAL, Section: baseSec}
	baseSec.Bundled = baseSym
	base.AddSymbol(baseSym)
	base.AddSection(&model.Section{Name: ".rodata.sysctl_print_dir.isra.1"})

	patched := model.NewObject()
	sec := &model.Section{Name: ".text.sysctl_print_dir.isra.2"}
	rela := &model.Section{Name: ".rela.text.sysctl_print_dir.isra.2", Base: sec, Header: model.SectionHeader{Type: elf.SHT_RELA}}
	sec.Rela = rela
	patched.AddSection(sec)
	patched.AddSection(rela)
	sym := &model.Symbol{Name: "sysctl_print_dir.isra.2", Type: elf.STT_FUNC, Bind: elf.STB_LOCAL, Section: sec}
	sec.Bundled = sym
	patched.AddSymbol(sym)
	rodata := &model.Section{Name: ".rodata.sysctl_print_dir.isra.2"}
	patched.AddSection(rodata)

	RenameMangledFunctions(base, patched, diag.NopLogger{})

	if sym.Name != "sysctl_print_dir.isra.1" {
		t.Errorf("symbol name = %q, want sysctl_print_dir.isra.1", sym.Name)
	}
	if sec.Name != ".text.sysctl_print_dir.isra.1" {
		t.Errorf("section name = %q, want .text.sysctl_print_dir.isra.1", sec.Name)
	}
	if rela.Name != ".rela.text.sysctl_print_dir.isra.1" {
		t.Errorf("rela section name = %q, want .rela.text.sysctl_print_dir.isra.1", rela.Name)
	}
	if rodata.Name != ".rodata.sysctl_print_dir.isra.1" {
		t.Errorf("rodata section name = %q, want .rodata.sysctl_print_dir.isra.1", rodata.Name)
	}
}

func TestRenameMangledFunctionsAmbiguousCandidates(t *testing.T) {
	base := model.NewObject()
	base.AddSymbol(&model.Symbol{Name: "frob.isra.1", Type: elf.STT_FUNC})
	base.AddSymbol(&model.Symbol{Name: "frob.isra.3", Type: elf.STT_FUNC})

	patched := model.NewObject()
	sym := &model.Symbol{Name: "frob.isra.2", Type: elf.STT_FUNC}
	patched.AddSymbol(sym)

	RenameMangledFunctions(base, patched, diag.NopLogger{})

	if sym.Name != "frob.isra.2" {
		t.Fatalf("ambiguous mangled name was renamed to %q", sym.Name)
	}
}

func TestIsConstantLabel(t *testing.T) {
	tests := []struct {
		name  string
		local bool
		want  bool
	}{
		{".LC0", true, true},
		{".LC123", true, true},
		{".LC", true, false},
		{".LCx", true, false},
		{".LC0", false, false},
		{"foo", true, false},
	}
	for _, test := range tests {
		sym := &model.Symbol{Name: test.name}
		if test.local {
			sym.Bind = elf.STB_LOCAL
		} else {
			sym.Bind = elf.STB_GLOBAL
		}
		if got := IsConstantLabel(sym); got != test.want {
			t.Errorf("IsConstantLabel(%q, local=%v) = %v, want %v", test.name, test.local, got, test.want)
		}
	}
}

func TestIsSpecialStatic(t *testing.T) {
	local := func(name string) *model.Symbol {
		s := &model.Symbol{Name: name, Type: elf.STT_OBJECT, Bind: elf.STB_LOCAL}
		return s
	}
	if !IsSpecialStatic(local("__key.12")) {
		t.Error("__key.12 should be special static")
	}
	if !IsSpecialStatic(local("_rs.3")) {
		t.Error("_rs.3 should be special static")
	}
	if IsSpecialStatic(local("count.17")) {
		t.Error("count.17 should not be special static")
	}
	verbose := &model.Symbol{Name: "__verbose", Type: elf.STT_SECTION}
	if !IsSpecialStatic(verbose) {
		t.Error("__verbose section symbol should be special static")
	}
}

func TestMarkGroupedSections(t *testing.T) {
	o := model.NewObject()
	target := o.AddSection(&model.Section{Name: ".text.foo", RawIndex: 3})
	_ = target
	group := &model.Section{
		Name:     ".group",
		RawIndex: 1,
		Header:   model.SectionHeader{Type: elf.SHT_GROUP},
		Data:     []byte{1, 0, 0, 0, 3, 0, 0, 0},
	}
	o.AddSection(group)
	if err := MarkGroupedSections(o); err != nil {
		t.Fatal(err)
	}
	if !o.Section(target).Grouped() {
		t.Error("section 3 should be marked grouped")
	}
}

func TestCorrelateSections(t *testing.T) {
	base := model.NewObject()
	patched := model.NewObject()
	base.AddSection(&model.Section{Name: ".text.foo"})
	patched.AddSection(&model.Section{Name: ".text.foo"})

	CorrelateSections(base, patched, diag.NopLogger{})

	b := base.Section(0)
	p := patched.Section(0)
	if b.Twin != p || p.Twin != b {
		t.Fatalf("sections not correlated: base.Twin=%v patched.Twin=%v", b.Twin, p.Twin)
	}
	if b.Status != model.StatusSame || p.Status != model.StatusSame {
		t.Fatalf("statuses = %v, %v, want SAME", b.Status, p.Status)
	}
}

func TestCorrelateSymbols(t *testing.T) {
	base := model.NewObject()
	patched := model.NewObject()
	base.AddSymbol(&model.Symbol{Name: "foo", Type: elf.STT_FUNC})
	patched.AddSymbol(&model.Symbol{Name: "foo", Type: elf.STT_FUNC})

	CorrelateSymbols(base, patched, diag.NopLogger{})

	if base.Symbols[0].Twin != patched.Symbols[0] {
		t.Fatal("symbols not twinned")
	}
}

func TestCorrelateSymbolsExcludesConstantLabels(t *testing.T) {
	base := model.NewObject()
	patched := model.NewObject()
	a := &model.Symbol{Name: ".LC0", Type: elf.STT_OBJECT, Bind: elf.STB_LOCAL}
	b := &model.Symbol{Name: ".LC0", Type: elf.STT_OBJECT, Bind: elf.STB_LOCAL}
	base.AddSymbol(a)
	patched.AddSymbol(b)

	CorrelateSymbols(base, patched, diag.NopLogger{})

	if a.Twin != nil {
		t.Fatal("constant labels must never be correlated")
	}
}

func TestPrecheckRejectsHeaderMismatch(t *testing.T) {
	base := model.NewObject()
	patched := model.NewObject()
	base.Header.Machine = elf.EM_X86_64
	patched.Header.Machine = elf.EM_386
	if err := Precheck(base, patched); err == nil {
		t.Fatal("expected error for machine mismatch")
	}
}

func TestPrecheckRejectsProgramHeaders(t *testing.T) {
	base := model.NewObject()
	patched := model.NewObject()
	base.Header.PhoffRaw = 64
	if err := Precheck(base, patched); err == nil {
		t.Fatal("expected error for program headers present")
	}
}
