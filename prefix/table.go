// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package prefix implements textual prefix-code
// tables shared by the Huffman and Shannon-Fano
// coders.
//
// Codes are strings of '0' and '1' characters,
// and so are encoded streams; nothing is packed
// into bytes.
package prefix

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrUnknownSymbol is returned when encoding a
	// symbol that has no code in the table.
	ErrUnknownSymbol = errors.New("symbol not in code table")
	// ErrNotInvertible is returned when two symbols
	// share the same code.
	ErrNotInvertible = errors.New("code table is not invertible")
	// ErrNotPrefixFree is returned by Validate when
	// a code is a prefix of another code.
	ErrNotPrefixFree = errors.New("code table is not prefix-free")
)

// Table maps each symbol to its code.
// A Table is never modified after construction.
type Table map[rune]string

// Encode concatenates the code of each symbol
// of text in order.
func (t Table) Encode(text string) (string, error) {
	var out strings.Builder
	for i, r := range text {
		code, ok := t[r]
		if !ok {
			return "", fmt.Errorf("%w: %q at offset %d", ErrUnknownSymbol, r, i)
		}
		out.WriteString(code)
	}
	return out.String(), nil
}

// Inverse returns the code-to-symbol mapping of t.
func (t Table) Inverse() (map[string]rune, error) {
	inv := make(map[string]rune, len(t))
	for _, sym := range t.Symbols() {
		code := t[sym]
		if prev, ok := inv[code]; ok {
			return nil, fmt.Errorf("%w: %q and %q both map to %q", ErrNotInvertible, prev, sym, code)
		}
		inv[code] = sym
	}
	return inv, nil
}

// Decode reverses Encode. It reads bits one at
// a time and emits a symbol whenever the bits
// accumulated since the last symbol form a
// code. Bits left over at the end of the input
// that do not complete a code are dropped.
func (t Table) Decode(bits string) (string, error) {
	inv, err := t.Inverse()
	if err != nil {
		return "", err
	}
	var out strings.Builder
	start := 0
	for i := 0; i < len(bits); i++ {
		if sym, ok := inv[bits[start:i+1]]; ok {
			out.WriteRune(sym)
			start = i + 1
		}
	}
	return out.String(), nil
}

// Validate checks that every code is a
// non-empty string of binary digits and that
// no code is a prefix of another.
func (t Table) Validate() error {
	codes := make([]string, 0, len(t))
	for _, sym := range t.Symbols() {
		code := t[sym]
		if code == "" {
			return fmt.Errorf("prefix: empty code for %q", sym)
		}
		if strings.Trim(code, "01") != "" {
			return fmt.Errorf("prefix: code %q for %q is not binary", code, sym)
		}
		codes = append(codes, code)
	}
	// after sorting, a code that prefixes
	// another sorts immediately before some
	// code it prefixes
	slices.Sort(codes)
	for i := 1; i < len(codes); i++ {
		if strings.HasPrefix(codes[i], codes[i-1]) {
			return fmt.Errorf("%w: %q is a prefix of %q", ErrNotPrefixFree, codes[i-1], codes[i])
		}
	}
	return nil
}

// Symbols returns the symbols of t in
// ascending order.
func (t Table) Symbols() []rune {
	syms := maps.Keys(t)
	slices.Sort(syms)
	return syms
}

// MaxLength returns the length of the
// longest code in t.
func (t Table) MaxLength() int {
	n := 0
	for _, code := range t {
		if len(code) > n {
			n = len(code)
		}
	}
	return n
}

// Covers reports whether every symbol of text
// has a code in t.
func (t Table) Covers(text string) bool {
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		if _, ok := t[r]; !ok {
			return false
		}
		text = text[size:]
	}
	return true
}
