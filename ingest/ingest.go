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

// Package ingest extracts plain text from
// input documents.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/SnellerInc/entropy/compr"
)

// ErrUnsupportedFormat is returned for a file
// whose extension names no known format.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// maxInputSize bounds the decompressed size
// of a single document.
const maxInputSize = 1 << 30

// inputs at least this large are mapped
// rather than read
const mmapThreshold = 1 << 20

type reader func(name string, buf []byte) (string, error)

var formats = map[string]reader{
	"":      plain,
	".txt":  plain,
	".text": plain,
	".md":   plain,
	".csv":  plain,
	".log":  plain,
	".docx": readDocx,
	".pdf":  readPdf,
}

// compressed container extensions and the
// compr stream decoder for each
var containers = map[string]string{
	".zst": "zstd",
	".s2":  "s2",
}

// Supported reports whether name has an
// extension that Read can handle.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := containers[ext]; ok {
		name = strings.TrimSuffix(name, filepath.Ext(name))
		ext = strings.ToLower(filepath.Ext(name))
	}
	_, ok := formats[ext]
	return ok
}

// Read extracts the text of the document
// called name from r. The format is chosen
// from the extension of name; a trailing
// .zst or .s2 extension is decompressed first.
func Read(name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if algo, ok := containers[ext]; ok {
		rc, err := compr.NewReader(algo, r)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		defer rc.Close()
		return Read(strings.TrimSuffix(name, filepath.Ext(name)), rc)
	}
	fn, ok := formats[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, ext, name)
	}
	buf, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if len(buf) > maxInputSize {
		return "", fmt.Errorf("%s: input larger than %d bytes", name, maxInputSize)
	}
	return fn(name, buf)
}

// ReadFile extracts the text of the file at path.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	ext := strings.ToLower(filepath.Ext(path))
	if fn, ok := formats[ext]; ok {
		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		if size := info.Size(); size >= mmapThreshold && size <= maxInputSize {
			if mem, ok := mmap(f, size); ok {
				defer unmap(mem)
				return fn(path, mem)
			}
		}
	}
	return Read(path, f)
}

// plain returns buf as a string; invalid
// UTF-8 is rejected rather than guessed at.
func plain(name string, buf []byte) (string, error) {
	buf = bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%s: text is not valid UTF-8", name)
	}
	return string(buf), nil
}
