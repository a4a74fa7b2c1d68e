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

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/SnellerInc/entropy/average"
	"github.com/SnellerInc/entropy/huffman"
	"github.com/SnellerInc/entropy/lz77"
	"github.com/SnellerInc/entropy/report"
	"github.com/SnellerInc/entropy/tabular"

	"golang.org/x/exp/slices"
)

// Output subdirectories.
const (
	DirEncoded = "encoded"
	DirDecoded = "decoded"
	DirSheets  = "sheets"
)

// AveragesBase is the workbook name of
// the cross-file averages.
const AveragesBase = "averages"

// ErrReportMismatch is returned when sheets
// read back from disk do not reproduce the
// results they were written from.
var ErrReportMismatch = errors.New("reloaded report does not match")

// Workbook name suffixes for the per-input sheets.
const (
	WorkbookStats     = "stats"
	WorkbookBaselines = "baselines"
)

// Workbook returns the directory and base name
// of the workbook for the input called name
// and the given kind (WorkbookStats,
// WorkbookBaselines or a codec).
//
// Outputs mirror the directory structure of
// the inputs: "a/b.txt" produces
// "sheets/a/b.txt_stats.xlsx" and
// "encoded/a/b.txt_huffman.txt", so distinct
// inputs never share an output file.
func Workbook(output, name, kind string) (dir, base string) {
	return filepath.Join(output, DirSheets, filepath.FromSlash(path.Dir(name))), path.Base(name) + "_" + kind
}

// TextPath returns the path below the output
// directory of an encoded (DirEncoded) or
// decoded (DirDecoded) text.
func TextPath(output, sub, name, codec string) string {
	return filepath.Join(output, sub, filepath.FromSlash(name)+"_"+codec+".txt")
}

// outputDirs returns the output subdirectories
// that lie inside root, relative to root in
// slash form, so that a run never reads back
// its own results.
func outputDirs(root, output string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(absRoot, absOut)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return []string{
		path.Join(rel, DirEncoded),
		path.Join(rel, DirDecoded),
		path.Join(rel, DirSheets),
	}
}

type writer struct {
	conf   *Config
	sheets string
	meta   report.Meta
}

func newWriter(c *Config, run string) (*writer, error) {
	dirs := []string{DirSheets}
	if c.WriteText {
		dirs = append(dirs, DirEncoded, DirDecoded)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(c.Output, d), 0750); err != nil {
			return nil, err
		}
	}
	return &writer{
		conf:   c,
		sheets: filepath.Join(c.Output, DirSheets),
		meta:   report.Meta{Run: run, Config: c.hashString()},
	}, nil
}

type book struct {
	kind   string
	sheets []*tabular.Sheet
}

func (w *writer) report(rep *Report) error {
	meta := w.meta
	meta.Source = rep.Name
	meta.Digest = rep.Digest
	books := []book{
		{WorkbookStats, report.Stats(rep.Stats, &meta)},
		{CodecHuffman, report.Codes(rep.Stats, rep.Huffman, &meta)},
		{CodecShannon, report.Codes(rep.Stats, rep.ShannonFano, &meta)},
		{CodecLZ77, report.LZ77(rep.LZ77, &meta)},
	}
	if rep.References != nil {
		books = append(books, book{WorkbookBaselines, []*tabular.Sheet{report.Baselines(rep.References)}})
	}
	for _, b := range books {
		dir, base := Workbook(w.conf.Output, rep.Name, b.kind)
		if err := tabular.WriteWorkbook(dir, base, b.sheets...); err != nil {
			return err
		}
	}
	if err := w.verify(rep); err != nil {
		return err
	}
	if !w.conf.WriteText {
		return nil
	}
	for _, sub := range []string{DirEncoded, DirDecoded} {
		dir := filepath.Join(w.conf.Output, sub, filepath.FromSlash(path.Dir(rep.Name)))
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	for _, t := range rep.Texts {
		if err := os.WriteFile(TextPath(w.conf.Output, DirEncoded, rep.Name, t.Codec), []byte(t.Encoded), 0640); err != nil {
			return err
		}
		if err := os.WriteFile(TextPath(w.conf.Output, DirDecoded, rep.Name, t.Codec), []byte(t.Decoded), 0640); err != nil {
			return err
		}
	}
	return nil
}

// verify reloads the written sheets, rebuilds
// the Huffman table from the reloaded statistics
// and checks it and the reloaded LZ77 triples
// against rep.
func (w *writer) verify(rep *Report) error {
	load := func(kind, sheet string) (*tabular.Sheet, error) {
		dir, base := Workbook(w.conf.Output, rep.Name, kind)
		wb, err := tabular.ReadWorkbook(dir, base, sheet)
		if err != nil {
			return nil, err
		}
		return wb[sheet], nil
	}
	s, err := load(WorkbookStats, report.SheetSymbols)
	if err != nil {
		return err
	}
	st, err := report.LoadStats(s)
	if err != nil {
		return err
	}
	if !slices.Equal(st.Alphabet(), rep.Stats.Alphabet()) {
		return fmt.Errorf("%s: symbol order: %w", WorkbookStats, ErrReportMismatch)
	}
	for i := range st.Symbols {
		if r, ok := rep.Stats.Lookup(st.Symbols[i].Symbol); !ok || r != st.Symbols[i] {
			return fmt.Errorf("%s: symbol %q: %w", WorkbookStats, st.Symbols[i].Symbol, ErrReportMismatch)
		}
	}
	rebuilt, err := huffman.Encode(st)
	if err != nil {
		return err
	}
	s, err = load(CodecHuffman, report.SheetSymbols)
	if err != nil {
		return err
	}
	codes, err := report.LoadCodes(s)
	if err != nil {
		return err
	}
	if len(codes) != len(rebuilt.Codes) {
		return fmt.Errorf("%s: %w", CodecHuffman, ErrReportMismatch)
	}
	for sym, code := range rebuilt.Codes {
		if codes[sym] != code {
			return fmt.Errorf("%s: symbol %q: %w", CodecHuffman, sym, ErrReportMismatch)
		}
	}
	s, err = load(CodecLZ77, report.SheetCompressed)
	if err != nil {
		return err
	}
	triples, err := report.LoadTriples(s)
	if err != nil {
		return err
	}
	text, err := lz77.Decompress(triples)
	if err != nil {
		return err
	}
	if text != rep.Text(CodecLZ77).Decoded {
		return fmt.Errorf("%s: %w", CodecLZ77, ErrReportMismatch)
	}
	return nil
}

func (w *writer) averages(avg *average.Averages) error {
	return tabular.WriteWorkbook(w.sheets, AveragesBase, report.Averages(avg, &w.meta)...)
}
