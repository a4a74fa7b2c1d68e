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

// Package pipeline runs the statistics and
// codecs over every document in a directory
// and writes the encoded texts, decoded texts
// and result sheets.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/SnellerInc/entropy/average"
	"github.com/SnellerInc/entropy/compr"
	"github.com/SnellerInc/entropy/fsutil"
	"github.com/SnellerInc/entropy/huffman"
	"github.com/SnellerInc/entropy/ingest"
	"github.com/SnellerInc/entropy/lz77"
	"github.com/SnellerInc/entropy/prefix"
	"github.com/SnellerInc/entropy/shannon"
	"github.com/SnellerInc/entropy/symbols"

	"github.com/dchest/siphash"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"
)

// ErrRoundTrip is returned when a codec does
// not reproduce its input.
var ErrRoundTrip = errors.New("decoded text differs from input")

// ErrFailed is returned by Run when at least
// one input could not be processed.
var ErrFailed = errors.New("some inputs failed")

// Codec names used in output file names.
const (
	CodecHuffman = huffman.Algorithm
	CodecShannon = shannon.Algorithm
	CodecLZ77    = "lz77"
)

// Text is the output of one codec for one input.
type Text struct {
	Codec   string
	Encoded string
	Decoded string
}

// Report holds everything computed for one input.
// A Report returned by Process is shared with the
// result cache and must be treated as read-only.
type Report struct {
	Name string
	// Digest is the hex blake2b-256 of the text.
	Digest      string
	Stats       *symbols.Stats
	Huffman     *prefix.Result
	ShannonFano *prefix.Result
	LZ77        *lz77.Result
	References  []compr.Reference
	Texts       []Text
	// Cached is set when the results were
	// reused from an identical earlier input.
	Cached bool
}

// Text returns the output of the named codec,
// or the zero Text if it did not run.
func (r *Report) Text(codec string) Text {
	for i := range r.Texts {
		if r.Texts[i].Codec == codec {
			return r.Texts[i]
		}
	}
	return Text{}
}

// Failure records an input that could not be processed.
type Failure struct {
	Name string
	Err  error
}

func (f *Failure) Error() string { return f.Name + ": " + f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// Summary is the result of Run.
type Summary struct {
	// Run identifies the batch; it is stamped
	// on every sheet written.
	Run      string
	Reports  []*Report
	Failures []Failure
	Averages *average.Averages
	Elapsed  time.Duration
}

// Err returns nil if every input succeeded.
func (s *Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(s.Failures)+1)
	errs = append(errs, fmt.Errorf("%w: %d of %d", ErrFailed, len(s.Failures), len(s.Failures)+len(s.Reports)))
	for i := range s.Failures {
		errs = append(errs, &s.Failures[i])
	}
	return errors.Join(errs...)
}

type cacheKey struct {
	lo, hi uint64
}

const (
	k0 = 0x5c1e0f3a9d27b846
	k1 = 0xe3a4c09b71f26d15
)

func keyOf(text string) cacheKey {
	lo, hi := siphash.Hash128(k0, k1, []byte(text))
	return cacheKey{lo, hi}
}

// Runner processes inputs according to a Config.
// A Runner is safe for concurrent use.
type Runner struct {
	conf  Config
	run   string
	cache *lru.Cache[cacheKey, *Report]
}

// NewRunner returns a Runner for c.
func NewRunner(c *Config) (*Runner, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{conf: *c, run: uuid.New().String()}
	if r.conf.Parallel == 0 {
		r.conf.Parallel = DefaultConfig().Parallel
	}
	if r.conf.Output == "" {
		r.conf.Output = DefaultOutput
	}
	size := r.conf.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[cacheKey, *Report](size)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r, nil
}

// ID returns the run identifier.
func (r *Runner) ID() string { return r.run }

// Process analyzes text and runs every codec
// over it, checking that each one decodes back
// to text. Identical texts are served from the
// cache with Cached set.
func (r *Runner) Process(name, text string) (*Report, error) {
	var key cacheKey
	if r.cache != nil {
		key = keyOf(text)
		if rep, ok := r.cache.Get(key); ok {
			c := *rep
			c.Name = name
			c.Cached = true
			return &c, nil
		}
	}
	rep, err := r.process(name, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if r.cache != nil {
		r.cache.Add(key, rep)
	}
	return rep, nil
}

func (r *Runner) process(name, text string) (*Report, error) {
	sum := blake2b.Sum256([]byte(text))
	rep := &Report{Name: name, Digest: hex.EncodeToString(sum[:])}
	st, err := symbols.Analyze(text)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	rep.Stats = st
	coders := []struct {
		name   string
		encode func(*symbols.Stats) (*prefix.Result, error)
		dst    **prefix.Result
	}{
		{CodecHuffman, huffman.Encode, &rep.Huffman},
		{CodecShannon, shannon.Encode, &rep.ShannonFano},
	}
	for _, c := range coders {
		res, err := c.encode(st)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		if !res.Codes.Covers(text) {
			return nil, fmt.Errorf("%s: %w", c.name, prefix.ErrUnknownSymbol)
		}
		bits, err := res.EncodeText(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		dec, err := res.DecodeText(bits)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		if dec != text {
			return nil, fmt.Errorf("%s: %w", c.name, ErrRoundTrip)
		}
		*c.dst = res
		rep.Texts = append(rep.Texts, Text{Codec: c.name, Encoded: bits, Decoded: dec})
	}
	lz, err := lz77.Encode(text, r.conf.Window)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodecLZ77, err)
	}
	dec, err := lz.Decode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodecLZ77, err)
	}
	if dec != text {
		return nil, fmt.Errorf("%s: %w", CodecLZ77, ErrRoundTrip)
	}
	rep.LZ77 = lz
	rep.Texts = append(rep.Texts, Text{Codec: CodecLZ77, Encoded: formatTriples(lz.Triples), Decoded: dec})
	if r.conf.Baselines {
		refs, err := compr.Measure([]byte(text))
		if err != nil {
			return nil, err
		}
		rep.References = refs
	}
	return rep, nil
}

func formatTriples(triples []lz77.Triple) string {
	var b strings.Builder
	for i := range triples {
		b.WriteString(triples[i].String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Run processes every supported file below root
// in the operating system file system. Files are
// memory-mapped when large enough. Output
// subdirectories that lie inside root are
// skipped.
func (r *Runner) Run(ctx context.Context, root string) (*Summary, error) {
	read := func(name string) (string, error) {
		return ingest.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	}
	return r.batch(ctx, os.DirFS(root), ".", read, outputDirs(root, r.conf.Output))
}

// RunFS is like Run but reads the files below
// dir in fsys.
func (r *Runner) RunFS(ctx context.Context, fsys fs.FS, dir string) (*Summary, error) {
	read := func(name string) (string, error) {
		f, err := fsys.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		return ingest.Read(name, f)
	}
	return r.batch(ctx, fsys, dir, read, nil)
}

func (r *Runner) batch(ctx context.Context, fsys fs.FS, dir string, read func(string) (string, error), skip []string) (*Summary, error) {
	start := time.Now()
	names, err := fsutil.Inputs(fsys, dir, r.conf.Pattern, ingest.Supported, skip...)
	if err != nil {
		return nil, err
	}
	out, err := newWriter(&r.conf, r.run)
	if err != nil {
		return nil, err
	}
	r.conf.logf("run %s: %d inputs from %s", r.run, len(names), dir)

	reports := make([]*Report, len(names))
	errs := make([]error, len(names))
	work := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < r.conf.Parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range work {
				reports[j], errs[j] = r.file(names[j], dir, read, out)
			}
		}()
	}
feed:
	for i := range names {
		select {
		case work <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := &Summary{Run: r.run}
	var stats []*symbols.Stats
	for i := range names {
		if errs[i] != nil {
			r.conf.logf("%s", errs[i])
			sum.Failures = append(sum.Failures, Failure{Name: names[i], Err: errs[i]})
			continue
		}
		sum.Reports = append(sum.Reports, reports[i])
		stats = append(stats, reports[i].Stats)
	}
	sum.Averages = average.Compute(stats)
	if err := out.averages(sum.Averages); err != nil {
		return nil, err
	}
	sum.Elapsed = time.Since(start)
	r.conf.logf("run %s: %d ok, %d failed in %s", r.run, len(sum.Reports), len(sum.Failures), sum.Elapsed)
	return sum, nil
}

func (r *Runner) file(name, dir string, read func(string) (string, error), out *writer) (*Report, error) {
	text, err := read(name)
	if err != nil {
		return nil, err
	}
	rep, err := r.Process(displayName(dir, name), text)
	if err != nil {
		return nil, err
	}
	if err := out.report(rep); err != nil {
		return nil, fmt.Errorf("%s: %w", rep.Name, err)
	}
	if rep.Cached {
		r.conf.logf("%s: reused results (digest %.16s)", rep.Name, rep.Digest)
	} else {
		r.conf.logf("%s: %d symbols, entropy %.4f, huffman %.4f, shannon-fano %.4f, lz77 ratio %.3f",
			rep.Name, rep.Stats.TotalSymbols, rep.Stats.TotalEntropy,
			rep.Huffman.AverageLength, rep.ShannonFano.AverageLength, rep.LZ77.Ratio)
	}
	return rep, nil
}

// displayName returns name relative to dir.
func displayName(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	if rel := strings.TrimPrefix(name, dir+"/"); rel != name {
		return rel
	}
	return path.Base(name)
}
