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

// Package shannon builds Shannon-Fano prefix
// codes by recursive probability-balanced
// partitioning.
package shannon

import (
	"math"
	"time"

	"github.com/SnellerInc/entropy/prefix"
	"github.com/SnellerInc/entropy/symbols"
)

// Algorithm is the name recorded in results.
const Algorithm = "shannon-fano"

// Split partitions recs into a prefix and a
// suffix whose probability sums are as close
// as possible to half of the total. The
// partition is contiguous; recs is not
// reordered. Among equally good split points
// the first one wins. recs must hold at least
// two records.
func Split(recs []symbols.Record) (left, right []symbols.Record) {
	var total float64
	for i := range recs {
		total += recs[i].Probability
	}
	half := total / 2
	best := 0
	diff := math.Inf(1)
	var acc float64
	for i := 0; i < len(recs)-1; i++ {
		acc += recs[i].Probability
		if d := math.Abs(half - acc); d < diff {
			diff = d
			best = i
		}
	}
	return recs[:best+1], recs[best+1:]
}

// Assign computes the Shannon-Fano code of recs,
// which must be in descending count order as
// produced by symbols.Analyze.
func Assign(recs []symbols.Record) prefix.Table {
	codes := make(prefix.Table, len(recs))
	if len(recs) > 0 {
		assign(recs, make([]byte, 0, 32), codes)
	}
	return codes
}

func assign(recs []symbols.Record, path []byte, codes prefix.Table) {
	if len(recs) == 1 {
		if len(path) == 0 {
			codes[recs[0].Symbol] = "0"
		} else {
			codes[recs[0].Symbol] = string(path)
		}
		return
	}
	left, right := Split(recs)
	assign(left, append(path, '0'), codes)
	assign(right, append(path, '1'), codes)
}

// Encode builds the Shannon-Fano code for st
// and measures it against the distribution.
func Encode(st *symbols.Stats) (*prefix.Result, error) {
	start := time.Now()
	codes := Assign(st.Symbols)
	return prefix.NewResult(Algorithm, st, codes, time.Since(start))
}
