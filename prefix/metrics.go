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

package prefix

import (
	"fmt"
	"time"

	"github.com/SnellerInc/entropy/symbols"
)

// Assignment is the code assigned to one
// symbol, together with the per-symbol
// figures derived from it.
type Assignment struct {
	Symbol      rune
	Count       int
	Probability float64
	Code        string
	// Length is len(Code).
	Length int
	// TotalBits is Count*Length.
	TotalBits int
	// WeightedLength is Probability*Length.
	WeightedLength float64
}

// Metrics summarizes how well a table codes
// a distribution.
type Metrics struct {
	// AverageLength is the expected code
	// length in bits per symbol.
	AverageLength float64
	// TotalBits is the length of the encoded
	// text in bits.
	TotalBits int
	// Efficiency is entropy/AverageLength,
	// or 0 when AverageLength is 0.
	Efficiency float64

	BuildTime  time.Duration // constructing the table
	EncodeTime time.Duration // most recent EncodeText
	DecodeTime time.Duration // most recent DecodeText
}

// Measure computes the assignments and metrics
// of table t for the distribution recs whose
// entropy is entropy. Every record must have a
// code in t.
func Measure(recs []symbols.Record, t Table, entropy float64) ([]Assignment, Metrics, error) {
	var m Metrics
	out := make([]Assignment, len(recs))
	for i := range recs {
		r := &recs[i]
		code, ok := t[r.Symbol]
		if !ok {
			return nil, m, fmt.Errorf("%w: %q", ErrUnknownSymbol, r.Symbol)
		}
		a := Assignment{
			Symbol:      r.Symbol,
			Count:       r.Count,
			Probability: r.Probability,
			Code:        code,
			Length:      len(code),
		}
		a.TotalBits = a.Count * a.Length
		a.WeightedLength = a.Probability * float64(a.Length)
		m.TotalBits += a.TotalBits
		m.AverageLength += a.WeightedLength
		out[i] = a
	}
	if m.AverageLength > 0 {
		m.Efficiency = entropy / m.AverageLength
	}
	return out, m, nil
}

// Result is the output of one of the entropy
// coders: the code table, the per-symbol
// assignments in record order, and the
// metrics.
type Result struct {
	// Algorithm names the coder that
	// produced the table.
	Algorithm   string
	Codes       Table
	Assignments []Assignment
	Metrics
}

// NewResult measures t against st and returns
// the Result. built is the time spent
// constructing t.
func NewResult(algo string, st *symbols.Stats, t Table, built time.Duration) (*Result, error) {
	as, m, err := Measure(st.Symbols, t, st.TotalEntropy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", algo, err)
	}
	m.BuildTime = built
	return &Result{
		Algorithm:   algo,
		Codes:       t,
		Assignments: as,
		Metrics:     m,
	}, nil
}

// EncodeText encodes text with r.Codes and
// records the elapsed time in r.EncodeTime.
func (r *Result) EncodeText(text string) (string, error) {
	start := time.Now()
	out, err := r.Codes.Encode(text)
	r.EncodeTime = time.Since(start)
	return out, err
}

// DecodeText decodes bits with r.Codes and
// records the elapsed time in r.DecodeTime.
func (r *Result) DecodeText(bits string) (string, error) {
	start := time.Now()
	out, err := r.Codes.Decode(bits)
	r.DecodeTime = time.Since(start)
	return out, err
}
