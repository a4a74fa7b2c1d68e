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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/SnellerInc/entropy/lz77"

	"golang.org/x/crypto/blake2b"
	"sigs.k8s.io/yaml"
)

// just pick an upper limit; a config is a handful of fields
const maxConfigSize = 64 * 1024

// DefaultOutput is the output directory used
// when Config.Output is empty.
const DefaultOutput = "out"

// DefaultCacheSize is the number of distinct
// inputs whose results are kept for reuse.
const DefaultCacheSize = 64

// Config controls a batch run.
type Config struct {
	// Window is the LZ77 search window.
	Window int `json:"window,omitempty"`
	// Output is the directory that receives
	// the encoded/, decoded/ and sheets/ trees.
	Output string `json:"output,omitempty"`
	// Pattern, if set, restricts inputs to the
	// files whose base name matches (path.Match).
	Pattern string `json:"pattern,omitempty"`
	// Parallel is the number of files
	// processed concurrently.
	Parallel int `json:"parallel,omitempty"`
	// Baselines adds zstd, s2 and huff0
	// reference sizes to every report.
	Baselines bool `json:"baselines,omitempty"`
	// CacheSize bounds the result cache.
	// A negative value disables it.
	CacheSize int `json:"cache_size,omitempty"`
	// WriteText writes the encoded and decoded
	// texts next to the sheets.
	WriteText bool `json:"write_text"`

	// Logf, if non-nil, receives progress
	// and per-file failures.
	Logf func(f string, args ...any) `json:"-"`
}

// DefaultConfig returns the configuration
// used when no file is given.
func DefaultConfig() Config {
	return Config{
		Window:    lz77.DefaultWindow,
		Output:    DefaultOutput,
		Parallel:  runtime.GOMAXPROCS(0),
		CacheSize: DefaultCacheSize,
		WriteText: true,
	}
}

// DecodeConfig decodes a configuration from src
// on top of DefaultConfig. ext selects the
// format: ".yaml" and ".yml" are YAML and
// everything else is JSON.
func DecodeConfig(src io.Reader, ext string) (*Config, error) {
	buf, err := io.ReadAll(io.LimitReader(src, maxConfigSize+1))
	if err != nil {
		return nil, err
	}
	if len(buf) > maxConfigSize {
		return nil, fmt.Errorf("config beyond size limit %d", maxConfigSize)
	}
	c := DefaultConfig()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(buf, &c)
	default:
		err = json.Unmarshal(buf, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// OpenConfig reads the configuration file fname.
func OpenConfig(fname string) (*Config, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := DecodeConfig(f, filepath.Ext(fname))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return c, nil
}

// Validate checks the fields of c.
func (c *Config) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("window %d: %w", c.Window, lz77.ErrWindowSize)
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel %d must not be negative", c.Parallel)
	}
	if c.Pattern != "" {
		if _, err := path.Match(c.Pattern, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", c.Pattern, err)
		}
	}
	return nil
}

// Hash returns a hash of the settings that
// affect results; two configs with equal
// hashes produce the same reports.
func (c *Config) Hash() []byte {
	type hashed struct {
		Window    int  `json:"window"`
		Baselines bool `json:"baselines"`
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("pipeline: blake2b: " + err.Error())
	}
	err = json.NewEncoder(h).Encode(hashed{Window: c.Window, Baselines: c.Baselines})
	if err != nil {
		panic("pipeline: failed to hash config: " + err.Error())
	}
	return h.Sum(nil)
}

func (c *Config) hashString() string {
	return hex.EncodeToString(c.Hash()[:8])
}

func (c *Config) logf(f string, args ...any) {
	if c.Logf != nil {
		c.Logf(f, args...)
	}
}
