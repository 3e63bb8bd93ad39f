// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

// Package verify implements the patchability verifier (spec §4.6): a
// final sanity pass over the inclusion decision before anything is
// migrated into the output object.
package verify

import (
	"debug/elf"
	"strings"

	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/model"
)

// Patchability checks every section of o against the four conditions
// that make a diff unsuitable for live-patching, logging each violation
// through log and returning a single *diag.Error of DiffFatal severity
// naming the total count if any were found.
func Patchability(o *model.Object, log diag.Logger) error {
	errs := 0

	for _, sec := range o.Sections {
		if sec.Status == model.StatusChanged && !sec.Include() {
			log.Warnf("changed section %s not selected for inclusion\n", sec.Name)
			errs++
		}

		if sec.Status != model.StatusSame && sec.Grouped() {
			log.Warnf("changed section %s is part of a section group\n", sec.Name)
			errs++
		}

		if sec.Header.Type == elf.SHT_GROUP && sec.Status == model.StatusNew {
			log.Warnf("new/changed group sections are not supported\n")
			errs++
		}

		if sec.Include() && sec.Status != model.StatusNew &&
			(strings.HasPrefix(sec.Name, ".data") || strings.HasPrefix(sec.Name, ".bss")) &&
			sec.Name != ".data.unlikely" {
			log.Warnf("data section %s selected for inclusion\n", sec.Name)
			errs++
		}
	}

	if errs > 0 {
		return diag.DiffFatalf("%d unsupported section change(s)", errs)
	}
	return nil
}
