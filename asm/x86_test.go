// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "testing"

func TestNextInstructionBoundary(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		off  int
		want int
	}{
		{"nop", []byte{0x90}, 0, 1},
		{"ret", []byte{0xc3}, 0, 1},
		{"push rbp", []byte{0x55}, 0, 1},
		{"mov rbp, rsp", []byte{0x48, 0x89, 0xe5}, 0, 3},
		{"call rel32", []byte{0xe8, 0x01, 0x02, 0x03, 0x04}, 0, 5},
		{"mid-stream", []byte{0x90, 0x48, 0x89, 0xe5, 0xc3}, 1, 4},
		{"mid-instruction", []byte{0x90, 0x48, 0x89, 0xe5, 0xc3}, 2, 4},
		{"reloc site in call disp", []byte{0xe8, 0x01, 0x02, 0x03, 0x04, 0xc3}, 1, 5},
		{"truncated", []byte{0x0f}, 0, 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := NextInstructionBoundary(test.code, test.off)
			if got != test.want {
				t.Errorf("NextInstructionBoundary(%v, %d) = %d, want %d", test.code, test.off, got, test.want)
			}
		})
	}
}
