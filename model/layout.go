// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import "encoding/binary"

// Layout is the byte order an Object's raw section payloads decode
// with. The x86-64 relocatable objects this engine accepts are always
// little-endian, which the zero value reflects; carrying the order on
// the owning Object keeps every raw-byte slice (GROUP payloads, RELA
// entries, patch records) decoding through one declared place instead
// of a scattering of binary.LittleEndian call sites.
type Layout struct {
	bigEndian bool
}

// LayoutFor returns the Layout for the given byte order.
func LayoutFor(order binary.ByteOrder) Layout {
	return Layout{bigEndian: order == binary.BigEndian}
}

// Order returns l as a binary.ByteOrder.
func (l Layout) Order() binary.ByteOrder {
	if l.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (l Layout) Uint32(b []byte) uint32 { return l.Order().Uint32(b) }

func (l Layout) Uint64(b []byte) uint64 { return l.Order().Uint64(b) }

func (l Layout) Int64(b []byte) int64 { return int64(l.Order().Uint64(b)) }
