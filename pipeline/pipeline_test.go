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
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/SnellerInc/entropy/report"
	"github.com/SnellerInc/entropy/tabular"
)

func testRunner(t *testing.T, edit func(c *Config)) *Runner {
	t.Helper()
	c := DefaultConfig()
	c.Output = t.TempDir()
	c.Parallel = 2
	c.Logf = t.Logf
	if edit != nil {
		edit(&c)
	}
	r, err := NewRunner(&c)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestProcess(t *testing.T) {
	r := testRunner(t, func(c *Config) { c.Window = 8 })
	rep, err := r.Process("a.txt", "AAAAABBBCCD")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Huffman.TotalBits != 20 || rep.ShannonFano.TotalBits != 20 {
		t.Fatalf("total bits: huffman %d shannon-fano %d", rep.Huffman.TotalBits, rep.ShannonFano.TotalBits)
	}
	if got := rep.Text(CodecHuffman).Encoded; got != "00000101010111111110" {
		t.Fatalf("huffman encoding %q", got)
	}
	for _, c := range []string{CodecHuffman, CodecShannon, CodecLZ77} {
		if rep.Text(c).Decoded != "AAAAABBBCCD" {
			t.Errorf("%s decoded %q", c, rep.Text(c).Decoded)
		}
	}
	if rep.References != nil {
		t.Fatal("baselines measured without being requested")
	}
	if rep.Cached {
		t.Fatal("first result marked cached")
	}
	again, err := r.Process("b.txt", "AAAAABBBCCD")
	if err != nil {
		t.Fatal(err)
	}
	if !again.Cached || again.Name != "b.txt" || again.Digest != rep.Digest {
		t.Fatalf("expected a cached copy, got %+v", again)
	}
	if rep.Name != "a.txt" {
		t.Fatal("cache hit renamed the original report")
	}
}

func TestProcessLZ77(t *testing.T) {
	r := testRunner(t, func(c *Config) { c.Window = 8 })
	rep, err := r.Process("ab", "ABABABAB")
	if err != nil {
		t.Fatal(err)
	}
	want := "(0, 0, 'A')\n(0, 0, 'B')\n(2, 2, 'A')\n(4, 3, '')\n"
	if got := rep.Text(CodecLZ77).Encoded; got != want {
		t.Fatalf("lz77 encoding %q, want %q", got, want)
	}
}

func TestProcessBaselines(t *testing.T) {
	r := testRunner(t, func(c *Config) {
		c.Baselines = true
		c.CacheSize = -1
	})
	rep, err := r.Process("x", "the quick brown fox jumps over the lazy dog")
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.References) == 0 {
		t.Fatal("no baselines")
	}
	again, err := r.Process("x", "the quick brown fox jumps over the lazy dog")
	if err != nil {
		t.Fatal(err)
	}
	if again.Cached {
		t.Fatal("cache hit with the cache disabled")
	}
}

func TestProcessConcurrent(t *testing.T) {
	r := testRunner(t, nil)
	texts := []string{"abc", "aaaa", "abracadabra", "", "abc"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, text := range texts {
				rep, err := r.Process("t", text)
				if err != nil {
					t.Error(err)
					return
				}
				if rep.Text(CodecLZ77).Decoded != text {
					t.Errorf("decoded %q, want %q", rep.Text(CodecLZ77).Decoded, text)
				}
			}
		}()
	}
	wg.Wait()
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"in/a.txt":     {Data: []byte("AAAAABBBCCD")},
		"in/dup.txt":   {Data: []byte("AAAAABBBCCD")},
		"in/sub/b.md":  {Data: []byte("ABABABAB")},
		"in/bad.txt":   {Data: []byte("\xff\xfe")},
		"in/skip.bin":  {Data: []byte{0, 1, 2}},
		"in/empty.txt": {Data: nil},
	}
}

func exists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}

func TestRunFS(t *testing.T) {
	r := testRunner(t, func(c *Config) { c.Window = 8 })
	sum, err := r.RunFS(context.Background(), testFS(), "in")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Run != r.ID() {
		t.Fatalf("run %q != %q", sum.Run, r.ID())
	}
	if len(sum.Reports) != 4 {
		t.Fatalf("got %d reports", len(sum.Reports))
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Name != "in/bad.txt" {
		t.Fatalf("failures %v", sum.Failures)
	}
	if err := sum.Err(); !errors.Is(err, ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	names := map[string]bool{}
	for _, rep := range sum.Reports {
		names[rep.Name] = true
	}
	for _, n := range []string{"a.txt", "dup.txt", "empty.txt", "sub/b.md"} {
		if !names[n] {
			t.Errorf("missing report for %s", n)
		}
	}
	if sum.Averages.General.Files != 4 {
		t.Fatalf("averaged %d files", sum.Averages.General.Files)
	}

	out := r.conf.Output
	for _, codec := range []string{CodecHuffman, CodecShannon, CodecLZ77} {
		exists(t, TextPath(out, DirEncoded, "sub/b.md", codec))
		buf, err := os.ReadFile(TextPath(out, DirDecoded, "a.txt", codec))
		if err != nil {
			t.Fatal(err)
		}
		if string(buf) != "AAAAABBBCCD" {
			t.Errorf("%s: decoded file %q", codec, buf)
		}
	}
	buf, err := os.ReadFile(TextPath(out, DirEncoded, "a.txt", CodecHuffman))
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "00000101010111111110" {
		t.Fatalf("encoded file %q", buf)
	}
	sheets := filepath.Join(out, DirSheets)
	avg, err := tabular.ReadWorkbook(sheets, AveragesBase, report.SheetGeneral, report.SheetSymbols)
	if err != nil {
		t.Fatal(err)
	}
	if files, _ := avg[report.SheetGeneral].Column("files"); len(files) != 1 || files[0] != "4" {
		t.Fatalf("averages files column %v", files)
	}
	dir, base := Workbook(out, "sub/b.md", WorkbookStats)
	wb, err := tabular.ReadWorkbook(dir, base, report.SheetSymbols, report.SheetTotals)
	if err != nil {
		t.Fatal(err)
	}
	st, err := report.LoadStats(wb[report.SheetSymbols])
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSymbols != 8 || len(st.Symbols) != 2 {
		t.Fatalf("reloaded stats %+v", st)
	}
	run, err := wb[report.SheetTotals].Column("run")
	if err != nil {
		t.Fatal(err)
	}
	if run[0] != r.ID() {
		t.Fatalf("run column %q", run[0])
	}
}

func TestRunFSPattern(t *testing.T) {
	r := testRunner(t, func(c *Config) {
		c.Pattern = "*.md"
		c.WriteText = false
	})
	sum, err := r.RunFS(context.Background(), testFS(), "in")
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Reports) != 1 || sum.Reports[0].Name != "sub/b.md" || sum.Err() != nil {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(r.conf.Output, DirEncoded)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("encoded texts written with write_text off: %v", err)
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, text := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(text), 0640); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunDir(t *testing.T) {
	files := map[string]string{
		"one.txt":       "hello, world",
		"two/three.txt": "mississippi",
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		// root and output given the root's
		// absolute path
		root, output func(abs string) string
	}{
		{"absolute", func(abs string) string { return abs }, func(abs string) string { return filepath.Join(abs, "out") }},
		{"relative-root", func(abs string) string {
			rel, err := filepath.Rel(cwd, abs)
			if err != nil {
				t.Fatal(err)
			}
			return rel
		}, func(abs string) string { return filepath.Join(abs, "out") }},
		{"output-is-root", func(abs string) string { return abs }, func(abs string) string { return abs }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			abs := t.TempDir()
			writeTree(t, abs, files)
			r := testRunner(t, func(c *Config) { c.Output = tc.output(abs) })
			for i := 0; i < 2; i++ {
				sum, err := r.Run(context.Background(), tc.root(abs))
				if err != nil {
					t.Fatal(err)
				}
				if len(sum.Reports) != len(files) || sum.Err() != nil {
					t.Fatalf("pass %d: %d reports, err %v", i, len(sum.Reports), sum.Err())
				}
			}
			exists(t, TextPath(tc.output(abs), DirDecoded, "two/three.txt", CodecShannon))
		})
	}
}

func TestOutputDirs(t *testing.T) {
	cases := []struct {
		root, output string
		want         []string
	}{
		{"/data", "/data/out", []string{"out/encoded", "out/decoded", "out/sheets"}},
		{"/data", "/data", []string{"encoded", "decoded", "sheets"}},
		{"/data", "/elsewhere", nil},
		{"/data", "/data/../database", nil},
		{"/data/in", "/data", nil},
		{"/data", "/data/..out/x", []string{"..out/x/encoded", "..out/x/decoded", "..out/x/sheets"}},
	}
	for _, tc := range cases {
		root, output := filepath.FromSlash(tc.root), filepath.FromSlash(tc.output)
		if got := outputDirs(root, output); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("outputDirs(%q, %q) = %v, want %v", tc.root, tc.output, got, tc.want)
		}
	}
}

func TestRunFSDistinctOutputs(t *testing.T) {
	// "a/b.txt" and "a_b.txt" must not share outputs
	fsys := fstest.MapFS{
		"in/a/b.txt": {Data: []byte("first text aaa")},
		"in/a_b.txt": {Data: []byte("zzzz second")},
	}
	r := testRunner(t, nil)
	sum, err := r.RunFS(context.Background(), fsys, "in")
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Reports) != 2 || sum.Err() != nil {
		t.Fatalf("%d reports, err %v", len(sum.Reports), sum.Err())
	}
	out := r.conf.Output
	for name, text := range map[string]string{"a/b.txt": "first text aaa", "a_b.txt": "zzzz second"} {
		for _, codec := range []string{CodecHuffman, CodecShannon, CodecLZ77} {
			buf, err := os.ReadFile(TextPath(out, DirDecoded, name, codec))
			if err != nil {
				t.Fatal(err)
			}
			if string(buf) != text {
				t.Errorf("%s %s: decoded file holds %q", name, codec, buf)
			}
		}
		dir, base := Workbook(out, name, WorkbookStats)
		wb, err := tabular.ReadWorkbook(dir, base, report.SheetTotals)
		if err != nil {
			t.Fatal(err)
		}
		src, err := wb[report.SheetTotals].Column("source")
		if err != nil {
			t.Fatal(err)
		}
		if src[0] != name {
			t.Errorf("workbook for %s records source %q", name, src[0])
		}
	}
}

func TestRunErrors(t *testing.T) {
	r := testRunner(t, nil)
	if _, err := r.RunFS(context.Background(), testFS(), "missing"); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if _, err := r.RunFS(context.Background(), testFS(), "in/a.txt"); err == nil {
		t.Fatal("expected an error for a file root")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RunFS(ctx, testFS(), "in"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRunnerInvalid(t *testing.T) {
	c := DefaultConfig()
	c.Window = 0
	if _, err := NewRunner(&c); err == nil {
		t.Fatal("expected an error for window 0")
	}
}
