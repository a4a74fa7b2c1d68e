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

// Package tabular stores flat records as
// named sheets of string cells.
//
// A workbook is one .xlsx file holding one
// worksheet per Sheet; the first row of each
// worksheet holds the column names.
package tabular

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// Ext is the file extension of a workbook.
const Ext = ".xlsx"

var (
	// ErrMissingColumn is returned when a sheet
	// lacks a column a reader requires.
	ErrMissingColumn = errors.New("missing column")
	// ErrNoHeader is returned when a stored
	// sheet has no header row.
	ErrNoHeader = errors.New("sheet has no header row")
)

// Sheet is a table of string cells.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Append adds a row. It panics if the
// row width does not match the columns.
func (s *Sheet) Append(cells ...string) {
	if len(cells) != len(s.Columns) {
		panic(fmt.Sprintf("tabular: sheet %q: %d cells for %d columns", s.Name, len(cells), len(s.Columns)))
	}
	s.Rows = append(s.Rows, cells)
}

// Index returns the position of column
// name, or an error wrapping ErrMissingColumn.
func (s *Sheet) Index(name string) (int, error) {
	for i := range s.Columns {
		if s.Columns[i] == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("sheet %q: %w %q", s.Name, ErrMissingColumn, name)
}

// Column returns the cells of column name.
func (s *Sheet) Column(name string) ([]string, error) {
	i, err := s.Index(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(s.Rows))
	for j := range s.Rows {
		out[j] = s.Rows[j][i]
	}
	return out, nil
}

// Path returns the file name of workbook
// base in dir.
func Path(dir, base string) string {
	return filepath.Join(dir, base+Ext)
}

// WriteWorkbook writes sheets to the workbook
// base in dir, replacing any existing file.
// Missing directories are created.
func WriteWorkbook(dir, base string, sheets ...*Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s: no sheets", base)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	// a new file starts with one default sheet
	if err := f.SetSheetName(f.GetSheetName(0), sheets[0].Name); err != nil {
		return fmt.Errorf("workbook %s: %w", base, err)
	}
	for _, s := range sheets[1:] {
		if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("workbook %s: %w", base, err)
		}
	}
	for _, s := range sheets {
		if err := writeSheet(f, s); err != nil {
			return fmt.Errorf("workbook %s: sheet %q: %w", base, s.Name, err)
		}
	}
	path := Path(dir, base)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, s *Sheet) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}
	row := make([]any, len(s.Columns))
	put := func(n int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		for i := range cells {
			row[i] = cells[i]
		}
		return sw.SetRow(cell, row[:len(cells)])
	}
	if err := put(1, s.Columns); err != nil {
		return err
	}
	for i := range s.Rows {
		if err := put(i+2, s.Rows[i]); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// ReadWorkbook reads the named sheets of
// workbook base in dir.
func ReadWorkbook(dir, base string, names ...string) (map[string]*Sheet, error) {
	path := Path(dir, base)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out := make(map[string]*Sheet, len(names))
	for _, name := range names {
		s, err := readSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out[name] = s
	}
	return out, nil
}

func readSheet(f *excelize.File, name string) (*Sheet, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", name, ErrNoHeader)
	}
	s := &Sheet{Name: name, Columns: rows[0], Rows: rows[1:]}
	// trailing empty cells are not stored
	for i, r := range s.Rows {
		if len(r) > len(s.Columns) {
			return nil, fmt.Errorf("sheet %q row %d: %d cells for %d columns", name, i, len(r), len(s.Columns))
		}
		for len(r) < len(s.Columns) {
			r = append(r, "")
		}
		s.Rows[i] = r
	}
	return s, nil
}

// Printable removes the runes of s that
// spreadsheet tools refuse to store,
// keeping tabs and line breaks.
func Printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// Int formats an integer cell.
func Int(n int) string { return strconv.Itoa(n) }

// Float formats a floating-point cell with
// the shortest exact representation.
func Float(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// Fixed formats a floating-point cell rounded
// to prec decimal places.
func Fixed(f float64, prec int) string { return strconv.FormatFloat(f, 'f', prec, 64) }
