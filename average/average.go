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

// Package average aggregates the symbol
// statistics of several texts.
package average

import (
	"github.com/SnellerInc/entropy/symbols"

	"golang.org/x/exp/constraints"
)

// General holds the averages of the
// per-text totals.
type General struct {
	Files            int
	TotalSymbols     float64
	TotalEntropy     float64
	TotalProbability float64
}

// Symbol holds the averages of one symbol's
// record over the texts in which it occurs.
type Symbol struct {
	Symbol rune
	// Occurrences is the number of texts
	// containing the symbol.
	Occurrences        int
	Count              float64
	Probability        float64
	InverseProbability float64
	SelfInformation    float64
	Entropy            float64
}

// Averages is the result of Compute.
type Averages struct {
	General General
	// Symbols is ordered by first appearance
	// across the inputs, in input order.
	Symbols []Symbol
}

type number interface {
	constraints.Integer | constraints.Float
}

func mean[T number](sum T, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// Compute averages stats. Totals are averaged
// over all inputs; each symbol's fields are
// averaged only over the inputs in which the
// symbol occurs. Compute of no inputs returns
// zero averages.
func Compute(stats []*symbols.Stats) *Averages {
	out := &Averages{}
	n := len(stats)
	if n == 0 {
		return out
	}
	var (
		totalSymbols     int
		totalEntropy     float64
		totalProbability float64
	)
	type sums struct {
		n                     int
		count                 int
		p, inv, info, entropy float64
	}
	index := make(map[rune]int)
	var order []rune
	var acc []sums
	for _, st := range stats {
		totalSymbols += st.TotalSymbols
		totalEntropy += st.TotalEntropy
		totalProbability += st.TotalProbability
		for i := range st.Symbols {
			r := &st.Symbols[i]
			j, ok := index[r.Symbol]
			if !ok {
				j = len(order)
				index[r.Symbol] = j
				order = append(order, r.Symbol)
				acc = append(acc, sums{})
			}
			s := &acc[j]
			s.n++
			s.count += r.Count
			s.p += r.Probability
			s.inv += r.InverseProbability
			s.info += r.SelfInformation
			s.entropy += r.Entropy
		}
	}
	out.General = General{
		Files:            n,
		TotalSymbols:     mean(totalSymbols, n),
		TotalEntropy:     mean(totalEntropy, n),
		TotalProbability: mean(totalProbability, n),
	}
	out.Symbols = make([]Symbol, len(order))
	for j, sym := range order {
		s := &acc[j]
		out.Symbols[j] = Symbol{
			Symbol:             sym,
			Occurrences:        s.n,
			Count:              mean(s.count, s.n),
			Probability:        mean(s.p, s.n),
			InverseProbability: mean(s.inv, s.n),
			SelfInformation:    mean(s.info, s.n),
			Entropy:            mean(s.entropy, s.n),
		}
	}
	return out
}
