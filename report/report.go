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

// Package report converts statistics and codec
// results to flat tabular sheets and back.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SnellerInc/entropy/average"
	"github.com/SnellerInc/entropy/compr"
	"github.com/SnellerInc/entropy/lz77"
	"github.com/SnellerInc/entropy/prefix"
	"github.com/SnellerInc/entropy/symbols"
	"github.com/SnellerInc/entropy/tabular"
)

// ErrBadRow is returned when a sheet row
// cannot be parsed back into a record.
var ErrBadRow = errors.New("malformed row")

// Sheet names.
const (
	SheetSymbols    = "symbols"
	SheetTotals     = "totals"
	SheetCompressed = "compressed"
	SheetReferences = "references"
	SheetGeneral    = "general"
)

// Meta identifies the run and input that
// produced a report. Empty fields are
// omitted from the totals sheet.
type Meta struct {
	Run    string
	Source string
	Digest string
	Config string
}

func (m *Meta) columns() []string {
	var cols []string
	for _, kv := range m.pairs() {
		cols = append(cols, kv[0])
	}
	return cols
}

func (m *Meta) values() []string {
	var vals []string
	for _, kv := range m.pairs() {
		vals = append(vals, kv[1])
	}
	return vals
}

func (m *Meta) pairs() [][2]string {
	if m == nil {
		return nil
	}
	var out [][2]string
	for _, kv := range [][2]string{
		{"run", m.Run},
		{"source", m.Source},
		{"digest", m.Digest},
		{"config", m.Config},
	} {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}

var symbolColumns = []string{
	"symbol", "codepoint", "count", "probability",
	"inverse_probability", "self_information", "entropy",
}

func seconds(d time.Duration) string { return tabular.Float(d.Seconds()) }

// Stats returns the symbol and totals
// sheets of st.
func Stats(st *symbols.Stats, meta *Meta) []*tabular.Sheet {
	syms := &tabular.Sheet{Name: SheetSymbols, Columns: symbolColumns}
	for i := range st.Symbols {
		r := &st.Symbols[i]
		syms.Append(
			tabular.Printable(string(r.Symbol)),
			tabular.Int(int(r.Symbol)),
			tabular.Int(r.Count),
			tabular.Float(r.Probability),
			tabular.Float(r.InverseProbability),
			tabular.Float(r.SelfInformation),
			tabular.Float(r.Entropy),
		)
	}
	totals := &tabular.Sheet{
		Name:    SheetTotals,
		Columns: append([]string{"total_symbols", "total_probability", "total_entropy"}, meta.columns()...),
	}
	totals.Append(append([]string{
		tabular.Int(st.TotalSymbols),
		tabular.Float(st.TotalProbability),
		tabular.Float(st.TotalEntropy),
	}, meta.values()...)...)
	return []*tabular.Sheet{syms, totals}
}

// Codes returns the per-symbol and totals
// sheets of an entropy coder result.
func Codes(st *symbols.Stats, res *prefix.Result, meta *Meta) []*tabular.Sheet {
	syms := &tabular.Sheet{
		Name: SheetSymbols,
		Columns: []string{
			"symbol", "codepoint", "count", "probability",
			"code", "code_length", "total_bits", "weighted_length",
		},
	}
	for i := range res.Assignments {
		a := &res.Assignments[i]
		syms.Append(
			tabular.Printable(string(a.Symbol)),
			tabular.Int(int(a.Symbol)),
			tabular.Int(a.Count),
			tabular.Float(a.Probability),
			a.Code,
			tabular.Int(a.Length),
			tabular.Int(a.TotalBits),
			tabular.Float(a.WeightedLength),
		)
	}
	totals := &tabular.Sheet{
		Name: SheetTotals,
		Columns: append([]string{
			"algorithm", "total_symbols", "total_probability", "total_entropy",
			"average_length", "total_bits", "efficiency",
			"build_seconds", "encode_seconds", "decode_seconds",
		}, meta.columns()...),
	}
	totals.Append(append([]string{
		res.Algorithm,
		tabular.Int(st.TotalSymbols),
		tabular.Float(st.TotalProbability),
		tabular.Float(st.TotalEntropy),
		tabular.Fixed(res.AverageLength, 6),
		tabular.Int(res.TotalBits),
		tabular.Fixed(res.Efficiency, 6),
		seconds(res.BuildTime),
		seconds(res.EncodeTime),
		seconds(res.DecodeTime),
	}, meta.values()...)...)
	return []*tabular.Sheet{syms, totals}
}

// LZ77 returns the triples and totals
// sheets of an LZ77 result.
func LZ77(res *lz77.Result, meta *Meta) []*tabular.Sheet {
	comp := &tabular.Sheet{
		Name:    SheetCompressed,
		Columns: []string{"distance", "length", "next", "next_codepoint"},
	}
	for _, t := range res.Triples {
		next, cp := "", ""
		if t.Next != lz77.None {
			next = tabular.Printable(string(t.Next))
			cp = tabular.Int(int(t.Next))
		}
		comp.Append(tabular.Int(t.Distance), tabular.Int(t.Length), next, cp)
	}
	totals := &tabular.Sheet{
		Name: SheetTotals,
		Columns: append([]string{
			"window", "original_length", "compressed_length",
			"ratio", "savings_percent", "encode_seconds", "decode_seconds",
		}, meta.columns()...),
	}
	totals.Append(append([]string{
		tabular.Int(res.Window),
		tabular.Int(res.OriginalLength),
		tabular.Int(res.CompressedLength),
		tabular.Fixed(res.Ratio, 3),
		tabular.Fixed(res.SavingsPercent, 2),
		seconds(res.EncodeTime),
		seconds(res.DecodeTime),
	}, meta.values()...)...)
	return []*tabular.Sheet{comp, totals}
}

// Baselines returns the sheet of reference
// compressor sizes.
func Baselines(refs []compr.Reference) *tabular.Sheet {
	s := &tabular.Sheet{
		Name:    SheetReferences,
		Columns: []string{"algorithm", "original_bytes", "compressed_bytes", "bits_per_byte", "ratio"},
	}
	for i := range refs {
		r := &refs[i]
		s.Append(r.Algorithm, tabular.Int(r.Original), tabular.Int(r.Compressed),
			tabular.Fixed(r.BitsPerByte, 4), tabular.Fixed(r.Ratio(), 4))
	}
	return s
}

// Averages returns the general and
// per-symbol sheets of avg.
func Averages(avg *average.Averages, meta *Meta) []*tabular.Sheet {
	g := &tabular.Sheet{
		Name: SheetGeneral,
		Columns: append([]string{
			"files", "average_total_symbols", "average_total_entropy", "average_total_probability",
		}, meta.columns()...),
	}
	g.Append(append([]string{
		tabular.Int(avg.General.Files),
		tabular.Float(avg.General.TotalSymbols),
		tabular.Float(avg.General.TotalEntropy),
		tabular.Float(avg.General.TotalProbability),
	}, meta.values()...)...)
	syms := &tabular.Sheet{
		Name: SheetSymbols,
		Columns: []string{
			"symbol", "codepoint", "files", "average_count", "average_probability",
			"average_inverse_probability", "average_self_information", "average_entropy",
		},
	}
	for i := range avg.Symbols {
		s := &avg.Symbols[i]
		syms.Append(
			tabular.Printable(string(s.Symbol)),
			tabular.Int(int(s.Symbol)),
			tabular.Int(s.Occurrences),
			tabular.Float(s.Count),
			tabular.Float(s.Probability),
			tabular.Float(s.InverseProbability),
			tabular.Float(s.SelfInformation),
			tabular.Float(s.Entropy),
		)
	}
	return []*tabular.Sheet{g, syms}
}

type rowReader struct {
	s   *tabular.Sheet
	idx map[string]int
	err error
}

func newRowReader(s *tabular.Sheet, cols ...string) (*rowReader, error) {
	rr := &rowReader{s: s, idx: make(map[string]int, len(cols))}
	for _, c := range cols {
		i, err := s.Index(c)
		if err != nil {
			return nil, err
		}
		rr.idx[c] = i
	}
	return rr, nil
}

func (rr *rowReader) str(row int, col string) string {
	return rr.s.Rows[row][rr.idx[col]]
}

func (rr *rowReader) atoi(row int, col string) int {
	if rr.err != nil {
		return 0
	}
	n, err := strconv.Atoi(rr.str(row, col))
	if err != nil {
		rr.err = fmt.Errorf("sheet %q row %d column %q: %w: %v", rr.s.Name, row, col, ErrBadRow, err)
	}
	return n
}

func (rr *rowReader) atof(row int, col string) float64 {
	if rr.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(rr.str(row, col), 64)
	if err != nil {
		rr.err = fmt.Errorf("sheet %q row %d column %q: %w: %v", rr.s.Name, row, col, ErrBadRow, err)
	}
	return f
}

// LoadStats rebuilds the statistics written
// by Stats from its symbols sheet.
func LoadStats(s *tabular.Sheet) (*symbols.Stats, error) {
	rr, err := newRowReader(s, symbolColumns...)
	if err != nil {
		return nil, err
	}
	recs := make([]symbols.Record, len(s.Rows))
	for i := range s.Rows {
		recs[i] = symbols.Record{
			Symbol:             rune(rr.atoi(i, "codepoint")),
			Count:              rr.atoi(i, "count"),
			Probability:        rr.atof(i, "probability"),
			InverseProbability: rr.atof(i, "inverse_probability"),
			SelfInformation:    rr.atof(i, "self_information"),
			Entropy:            rr.atof(i, "entropy"),
		}
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return symbols.FromRecords(recs)
}

// LoadCodes rebuilds the code table written
// by Codes from its symbols sheet.
func LoadCodes(s *tabular.Sheet) (prefix.Table, error) {
	rr, err := newRowReader(s, "codepoint", "code")
	if err != nil {
		return nil, err
	}
	t := make(prefix.Table, len(s.Rows))
	for i := range s.Rows {
		t[rune(rr.atoi(i, "codepoint"))] = rr.str(i, "code")
	}
	if rr.err != nil {
		return nil, rr.err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTriples rebuilds the triples written
// by LZ77 from its compressed sheet.
func LoadTriples(s *tabular.Sheet) ([]lz77.Triple, error) {
	rr, err := newRowReader(s, "distance", "length", "next_codepoint")
	if err != nil {
		return nil, err
	}
	out := make([]lz77.Triple, len(s.Rows))
	for i := range s.Rows {
		t := lz77.Triple{
			Distance: rr.atoi(i, "distance"),
			Length:   rr.atoi(i, "length"),
			Next:     lz77.None,
		}
		if rr.str(i, "next_codepoint") != "" {
			t.Next = rune(rr.atoi(i, "next_codepoint"))
		}
		out[i] = t
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return out, nil
}
