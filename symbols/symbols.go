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

// Package symbols computes per-symbol
// information statistics over a text.
//
// A symbol is a single Unicode code point.
// Analyze produces one Record per distinct
// symbol, ordered by descending count with
// ties kept in first-encounter order. The
// entropy coders depend on that ordering.
package symbols

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Tolerance is the maximum absolute deviation
// of the probability sum from 1.0.
const Tolerance = 1e-9

// ErrInconsistentDistribution is returned by
// Analyze when the symbol probabilities do not
// sum to one.
var ErrInconsistentDistribution = errors.New("inconsistent symbol distribution")

// Record describes one distinct symbol of a text.
type Record struct {
	Symbol rune
	// Count is the number of occurrences (>= 1).
	Count int
	// Probability is Count divided by the
	// number of symbols in the text.
	Probability float64
	// InverseProbability is 1/Probability.
	InverseProbability float64
	// SelfInformation is -log2(Probability), in bits.
	SelfInformation float64
	// Entropy is the contribution of this symbol
	// to the entropy of the text
	// (Probability * SelfInformation).
	Entropy float64
}

// NewRecord computes the derived fields of a
// Record for a symbol seen count times in a
// text of total symbols.
func NewRecord(sym rune, count, total int) Record {
	p := float64(count) / float64(total)
	info := -math.Log2(p)
	return Record{
		Symbol:             sym,
		Count:              count,
		Probability:        p,
		InverseProbability: 1 / p,
		SelfInformation:    info,
		Entropy:            p * info,
	}
}

// Stats is the result of Analyze.
// It must be treated as read-only.
type Stats struct {
	// Symbols holds one record per distinct
	// symbol in descending count order.
	Symbols []Record
	// TotalSymbols is the length of the
	// text in symbols.
	TotalSymbols int
	// TotalProbability is the sum of
	// Probability over Symbols.
	TotalProbability float64
	// TotalEntropy is the entropy of the
	// text in bits per symbol.
	TotalEntropy float64
}

// Analyze computes the symbol statistics of text.
// An empty text yields an empty Stats and no error.
func Analyze(text string) (*Stats, error) {
	st := &Stats{}
	if text == "" {
		return st, nil
	}
	index := make(map[rune]int)
	var order []rune
	var counts []int
	for _, r := range text {
		i, ok := index[r]
		if !ok {
			i = len(order)
			index[r] = i
			order = append(order, r)
			counts = append(counts, 0)
		}
		counts[i]++
		st.TotalSymbols++
	}
	st.Symbols = make([]Record, len(order))
	for i, r := range order {
		st.Symbols[i] = NewRecord(r, counts[i], st.TotalSymbols)
	}
	slices.SortStableFunc(st.Symbols, func(a, b Record) bool {
		return a.Count > b.Count
	})
	if err := st.finish(); err != nil {
		return nil, err
	}
	return st, nil
}

// FromRecords builds a Stats from records
// produced elsewhere (for example, reloaded
// from a report), re-checking the totals.
// The records must already be in descending
// count order.
func FromRecords(recs []Record) (*Stats, error) {
	st := &Stats{Symbols: slices.Clone(recs)}
	for i := range st.Symbols {
		if i > 0 && st.Symbols[i].Count > st.Symbols[i-1].Count {
			return nil, fmt.Errorf("symbols.FromRecords: record %d (%q) out of order", i, st.Symbols[i].Symbol)
		}
		st.TotalSymbols += st.Symbols[i].Count
	}
	if err := st.finish(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Stats) finish() error {
	if len(s.Symbols) == 0 {
		return nil
	}
	s.TotalProbability = 0
	s.TotalEntropy = 0
	for i := range s.Symbols {
		s.TotalProbability += s.Symbols[i].Probability
	}
	if math.Abs(s.TotalProbability-1) > Tolerance {
		return fmt.Errorf("%w: probabilities sum to %v", ErrInconsistentDistribution, s.TotalProbability)
	}
	for i := range s.Symbols {
		s.TotalEntropy += s.Symbols[i].Entropy
	}
	return nil
}

// Lookup returns the record for sym.
func (s *Stats) Lookup(sym rune) (Record, bool) {
	for i := range s.Symbols {
		if s.Symbols[i].Symbol == sym {
			return s.Symbols[i], true
		}
	}
	return Record{}, false
}

// Alphabet returns the distinct symbols
// in record order.
func (s *Stats) Alphabet() []rune {
	out := make([]rune, len(s.Symbols))
	for i := range s.Symbols {
		out[i] = s.Symbols[i].Symbol
	}
	return out
}
