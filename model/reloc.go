// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import "debug/elf"

// Relocation is a single entry in a relocation section. The engine only
// ever builds RELA-shaped entries (explicit addend), reflecting the
// Non-goal of supporting architectures other than x86-64, which is
// RELA-only.
type Relocation struct {
	// Sec is the relocation section this entry belongs to. Sec.Base is
	// the section the relocation applies to.
	Sec *Section

	Type   elf.R_X86_64
	Offset uint64
	Target *Symbol
	Addend int64

	// Str is set when this relocation points into a string-merge
	// section and has been resolved to an interned String; see
	// compare's relocation-equality rule, which treats two
	// string-backed relocations as equal when their Str values match
	// even though their Target symbols differ.
	Str *String
}

// String returns the name of this relocation's target symbol, for use in
// diagnostics.
func (r *Relocation) String() string {
	if r.Target == nil {
		return "<nil target>"
	}
	return r.Target.Name
}
