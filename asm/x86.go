// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm answers exactly one question for the Correlator: given a
// run of x86-64 machine code and an offset into it, where does the
// instruction containing that offset end? The Correlator needs this to compute
// the PC-relative effective target of a PC32 relocation (see
// package correlate), and nothing more — it never needs to name an
// opcode or walk control flow.
package asm

import "golang.org/x/arch/x86/x86asm"

// NextInstructionBoundary returns the offset just past the end of the
// instruction containing offset. code is interpreted as x86-64 machine
// code and walked from the start, since offset usually points into the
// middle of an instruction (at its displacement or immediate field, in
// the relocation case) and x86 can't be decoded backward.
//
// Bytes that don't decode to a valid instruction are skipped one at a
// time so the walk always makes progress.
func NextInstructionBoundary(code []byte, offset int) int {
	pos := 0
	for pos < len(code) {
		inst, err := x86asm.Decode(code[pos:], 64)
		size := inst.Len
		if err != nil || size == 0 {
			size = 1
		}
		pos += size
		if pos > offset {
			break
		}
	}
	return pos
}
