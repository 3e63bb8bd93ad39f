// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

// String is an interned piece of text bound for a synthesized string
// pool (.xsplice.strings), identified by its eventual byte offset.
type String struct {
	Text   string
	Offset uint64
}

// StringPool deduplicates strings as they're interned and hands out
// their future offset within a NUL-terminated concatenation, the same
// map[string]offset shape used for ELF merge-string sections.
type StringPool struct {
	byText map[string]*String
	order  []*String
	size   uint64
}

// Intern returns the *String for text, creating and appending one if this
// is the first time text has been interned into the pool.
func (p *StringPool) Intern(text string) *String {
	if p.byText == nil {
		p.byText = make(map[string]*String)
	}
	if s, ok := p.byText[text]; ok {
		return s
	}
	s := &String{Text: text, Offset: p.size}
	p.byText[text] = s
	p.order = append(p.order, s)
	p.size += uint64(len(text)) + 1 // + NUL terminator
	return s
}

// Bytes returns the pool's payload: every interned string in insertion
// order, each NUL-terminated.
func (p *StringPool) Bytes() []byte {
	buf := make([]byte, 0, p.size)
	for _, s := range p.order {
		buf = append(buf, s.Text...)
		buf = append(buf, 0)
	}
	return buf
}

// Len reports the total size in bytes the pool will occupy once written.
func (p *StringPool) Len() uint64 { return p.size }
