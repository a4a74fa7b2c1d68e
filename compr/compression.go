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

// Package compr wraps third-party compression
// libraries for use as reference baselines and
// for reading compressed inputs.
package compr

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress"
	"github.com/klauspost/compress/huff0"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compressor is implemented by each
// baseline algorithm.
type Compressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Compress should append the compressed contents
	// of src to dst and return the result.
	Compress(src, dst []byte) ([]byte, error)
}

type zstdCompressor struct {
	enc *zstd.Encoder
}

func (z zstdCompressor) Compress(src, dst []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, dst), nil
}

func (z zstdCompressor) Name() string { return "zstd" }

type s2Compressor struct{}

func (s2Compressor) Compress(src, dst []byte) ([]byte, error) {
	return append(dst, s2.Encode(nil, src)...), nil
}

func (s2Compressor) Name() string { return "s2" }

// huff0Compressor is a single-stream
// byte-oriented Huffman coder.
type huff0Compressor struct{}

func (huff0Compressor) Compress(src, dst []byte) ([]byte, error) {
	var s huff0.Scratch
	s.Reuse = huff0.ReusePolicyNone
	for len(src) > 0 {
		block := src
		if len(block) > huff0.BlockSizeMax {
			block = block[:huff0.BlockSizeMax]
		}
		src = src[len(block):]
		out, _, err := huff0.Compress1X(block, &s)
		switch {
		case err == nil:
			dst = append(dst, out...)
		case errors.Is(err, huff0.ErrIncompressible):
			// stored uncompressed
			dst = append(dst, block...)
		case errors.Is(err, huff0.ErrUseRLE):
			// a single repeated byte
			dst = append(dst, block[0])
		default:
			return nil, err
		}
	}
	return dst, nil
}

func (huff0Compressor) Name() string { return "huff0" }

// Compression selects a compression algorithm by name.
// The returned Compressor will return the same value
// for Compressor.Name as the specified name.
// It returns nil for an unknown name.
func Compression(name string) Compressor {
	switch name {
	case "zstd":
		z, _ := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		return zstdCompressor{z}
	case "s2":
		return s2Compressor{}
	case "huff0":
		return huff0Compressor{}
	default:
		return nil
	}
}

// Baselines is the list of algorithms
// measured by Measure.
var Baselines = []string{"huff0", "s2", "zstd"}

// Reference is the size of a text compressed
// by a production compressor.
type Reference struct {
	Algorithm string
	// Original and Compressed are in bytes.
	Original   int
	Compressed int
	// BitsPerByte is 8*Compressed/Original.
	BitsPerByte float64
}

// Ratio returns Original/Compressed,
// or 0 when Compressed is 0.
func (r *Reference) Ratio() float64 {
	if r.Compressed == 0 {
		return 0
	}
	return float64(r.Original) / float64(r.Compressed)
}

// EntropyBound is the name of the
// pseudo-algorithm reporting the order-0
// byte entropy of the input.
const EntropyBound = "entropy-bound"

// Measure compresses src with every algorithm
// in Baselines and appends an EntropyBound
// entry holding the order-0 Shannon limit of
// the bytes of src.
func Measure(src []byte) ([]Reference, error) {
	out := make([]Reference, 0, len(Baselines)+1)
	for _, name := range Baselines {
		c := Compression(name)
		var size int
		if len(src) > 0 {
			buf, err := c.Compress(src, nil)
			if err != nil {
				return nil, fmt.Errorf("compr: %s: %w", name, err)
			}
			size = len(buf)
		}
		out = append(out, reference(name, len(src), size))
	}
	bound := (compress.ShannonEntropyBits(src) + 7) / 8
	out = append(out, reference(EntropyBound, len(src), bound))
	return out, nil
}

func reference(name string, orig, size int) Reference {
	r := Reference{Algorithm: name, Original: orig, Compressed: size}
	if orig > 0 {
		r.BitsPerByte = 8 * float64(size) / float64(orig)
	}
	return r
}

// NewReader returns a reader that decompresses
// the stream r compressed with the named
// algorithm ("zstd" or "s2").
func NewReader(name string, r io.Reader) (io.ReadCloser, error) {
	switch name {
	case "zstd":
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case "s2":
		return io.NopCloser(s2.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("compr: no stream decoder for %q", name)
	}
}
