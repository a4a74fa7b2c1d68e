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

// Package lz77 implements LZ77 dictionary
// compression over a bounded look-back window.
//
// Compressed data is a sequence of Triples.
// A Triple either carries a single literal
// symbol (Distance and Length both zero) or
// refers back to Length symbols starting
// Distance symbols before the current end of
// the output, followed by one literal symbol.
package lz77

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// DefaultWindow is the look-back window used
// when none is configured.
const DefaultWindow = 512

// None is the Next value of a Triple whose
// match extends to the end of the input.
const None rune = -1

var (
	// ErrMalformedMatchReference is returned by
	// Decompress for a Triple that refers back
	// past the start of the output.
	ErrMalformedMatchReference = errors.New("lz77: match reference out of range")
	// ErrInvalidSymbol is returned by Decompress
	// for a Triple whose Next is neither None nor
	// a valid code point, or is None where a
	// symbol is required.
	ErrInvalidSymbol = errors.New("lz77: invalid next symbol")
	// ErrWindowSize is returned for a window
	// smaller than one symbol.
	ErrWindowSize = errors.New("lz77: window size must be at least 1")
)

// Triple is one unit of compressed output.
type Triple struct {
	Distance int
	Length   int
	Next     rune
}

// Literal reports whether t carries only
// a literal symbol.
func (t Triple) Literal() bool { return t.Distance == 0 && t.Length == 0 }

// String formats t as (distance, length, next).
func (t Triple) String() string {
	if t.Next == None {
		return fmt.Sprintf("(%d, %d, '')", t.Distance, t.Length)
	}
	return fmt.Sprintf("(%d, %d, %q)", t.Distance, t.Length, t.Next)
}

// Compress encodes text as a sequence of
// triples, searching for matches in at most
// window preceding symbols.
//
// At each position the window is scanned
// from its oldest symbol forward and the
// longest match wins; of two matches of the
// same length the earlier one (the larger
// distance) is kept. A match never extends
// past the current position, so the copy a
// decoder performs never reads symbols it
// has not yet produced.
func Compress(text string, window int) ([]Triple, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrWindowSize, window)
	}
	src := []rune(text)
	n := len(src)
	var out []Triple
	for i := 0; i < n; {
		bestLen, bestDist := 0, 0
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		for j := lo; j < i; j++ {
			k := 0
			for i+k < n && src[j+k] == src[i+k] {
				k++
				if j+k >= i {
					break
				}
			}
			if k > bestLen {
				bestLen, bestDist = k, i-j
			}
		}
		if bestLen == 0 {
			out = append(out, Triple{Next: src[i]})
			i++
			continue
		}
		next := None
		if i+bestLen < n {
			next = src[i+bestLen]
		}
		out = append(out, Triple{Distance: bestDist, Length: bestLen, Next: next})
		i += bestLen + 1
	}
	return out, nil
}

// Decompress reverses Compress.
//
// Matches are copied one symbol at a time, so
// a triple whose Length exceeds its Distance
// repeats the symbols it has just produced.
func Decompress(triples []Triple) (string, error) {
	var out []rune
	for i, t := range triples {
		if t.Length != 0 || t.Distance != 0 {
			if t.Distance < 1 || t.Distance > len(out) || t.Length < 0 {
				return "", fmt.Errorf("%w: triple %d %s with %d symbols of output", ErrMalformedMatchReference, i, t, len(out))
			}
			start := len(out) - t.Distance
			for k := 0; k < t.Length; k++ {
				out = append(out, out[start+k])
			}
		}
		switch {
		case t.Next == None:
			// only a final match may end without a symbol
			if t.Length == 0 || i != len(triples)-1 {
				return "", fmt.Errorf("%w: triple %d %s", ErrInvalidSymbol, i, t)
			}
		case !utf8.ValidRune(t.Next):
			return "", fmt.Errorf("%w: triple %d has code point %d", ErrInvalidSymbol, i, t.Next)
		default:
			out = append(out, t.Next)
		}
	}
	return string(out), nil
}

// Metrics are the size figures of a
// compressed text. Sizes count symbols and
// triples, not bytes.
type Metrics struct {
	OriginalLength   int
	CompressedLength int
	// Ratio is OriginalLength/CompressedLength,
	// or 0 when there are no triples.
	Ratio float64
	// SavingsPercent is
	// (1 - CompressedLength/OriginalLength)*100,
	// or 0 for an empty text.
	SavingsPercent float64

	EncodeTime time.Duration
	DecodeTime time.Duration
}

// Measure computes the metrics of triples as
// the compressed form of a text of n symbols.
func Measure(n int, triples []Triple) Metrics {
	m := Metrics{
		OriginalLength:   n,
		CompressedLength: len(triples),
	}
	if m.CompressedLength > 0 {
		m.Ratio = float64(n) / float64(m.CompressedLength)
	}
	if n > 0 {
		m.SavingsPercent = (1 - float64(m.CompressedLength)/float64(n)) * 100
	}
	return m
}

// Result bundles the triples of a compressed
// text with their metrics.
type Result struct {
	Window  int
	Triples []Triple
	Metrics
}

// Encode compresses text and measures the result.
func Encode(text string, window int) (*Result, error) {
	start := time.Now()
	triples, err := Compress(text, window)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	m := Measure(utf8.RuneCountInString(text), triples)
	m.EncodeTime = elapsed
	return &Result{Window: window, Triples: triples, Metrics: m}, nil
}

// Decode decompresses r.Triples and records
// the elapsed time in r.DecodeTime.
func (r *Result) Decode() (string, error) {
	start := time.Now()
	text, err := Decompress(r.Triples)
	r.DecodeTime = time.Since(start)
	return text, err
}
