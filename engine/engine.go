// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

// Package engine drives the full differencing pipeline end to end: it
// owns the data flow spec.md §2 describes (parse, correlate, compare,
// mark-ignored, include, special-sections, verify, assemble, write) so
// that cmd/objdiff stays a thin flag-parsing shell, the way
// objbrowse/cmd/objbrowse/main.go defers everything past flag handling
// to obj.Open and its own internal packages.
package engine

import (
	"io"

	"github.com/xsplice/objdiff/assemble"
	"github.com/xsplice/objdiff/compare"
	"github.com/xsplice/objdiff/correlate"
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/elfio"
	"github.com/xsplice/objdiff/include"
	"github.com/xsplice/objdiff/model"
	"github.com/xsplice/objdiff/special"
	"github.com/xsplice/objdiff/verify"
)

// Options controls a single run of Run.
type Options struct {
	// Resolve, when true, has CreatePatchesSections eagerly fill in
	// old_addr from Lookup instead of leaving it for the loader.
	Resolve bool
	// Lookup resolves kernel symbol addresses/sizes. It is consulted for
	// every .xsplice.funcs record whatever Resolve says (old_size is
	// always looked up), so it may be nil only when the run emits no
	// changed function.
	Lookup assemble.SymbolLookup
	Log    diag.Logger
}

// Run executes the full pipeline over base and patched, writing the
// finished output object to out. It returns diag.ErrNoChanges (mapped by
// diag.ExitCode to exit code 3) when no function changed and no global
// was added, in which case out is never written to.
func Run(baseR, patchedR io.ReaderAt, out io.Writer, opts Options) error {
	log := opts.Log
	if log == nil {
		log = diag.NopLogger{}
	}

	base, err := elfio.Read(baseR)
	if err != nil {
		return diag.DiffFatalf("reading base object: %v", err)
	}
	patched, err := elfio.Read(patchedR)
	if err != nil {
		return diag.DiffFatalf("reading patched object: %v", err)
	}

	if err := correlate.Correlate(base, patched, log); err != nil {
		return err
	}

	// Ignore flags must be in place before symbol comparison: the
	// changed-sections allowance for correlated symbols consults them.
	if err := compare.MarkIgnoredSections(patched, log); err != nil {
		return err
	}
	if err := compare.CompareCorrelatedElements(patched, log); err != nil {
		return err
	}
	// base is never touched again past this point; twin links into it
	// are consumed entirely by CompareCorrelatedElements (spec §5).

	if err := compare.MarkIgnoredFunctionsSame(patched, log); err != nil {
		return err
	}
	compare.MarkIgnoredSectionsSame(patched)
	compare.MarkConstantLabelsSame(patched)

	include.StandardElements(patched)
	nChanged := include.ChangedFunctions(patched, log)
	include.DebugSections(patched)
	include.HookElements(patched, log)
	nNew := include.NewGlobals(patched, log)

	for _, sym := range patched.Symbols {
		if !sym.Include() || sym.Section == nil || !sym.IsFunc() {
			continue
		}
		switch sym.Status {
		case model.StatusNew:
			log.Warnf("new function: %s\n", sym.Name)
		case model.StatusChanged:
			log.Warnf("changed function: %s\n", sym.Name)
		}
	}

	if nChanged == 0 && nNew == 0 {
		return diag.ErrNoChanges
	}

	if err := special.ProcessSpecialSections(patched, log); err != nil {
		return err
	}

	if err := verify.Patchability(patched, log); err != nil {
		return err
	}

	output, err := assemble.Assemble(patched, opts.Lookup, opts.Resolve, log)
	if err != nil {
		return err
	}

	return elfio.Write(output, out)
}
