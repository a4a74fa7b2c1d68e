// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package fsutil lists the input files of a
// directory tree.
package fsutil

import (
	"errors"
	"io/fs"
	"path"
)

// ErrNotDir is returned by Inputs when the
// root is not a directory.
var ErrNotDir = errors.New("not a directory")

// VisitDirFn is called by VisitDir for each
// entry in a directory.
type VisitDirFn func(d fs.DirEntry) error

// VisitDir calls fn for each entry in the
// directory specified by name, visiting each
// entry in lexicographical order.
//
// If pattern is provided, only entries with
// names matching the pattern are visited.
// Directories are always visited.
//
// If fn returns fs.SkipDir or fs.SkipAll,
// VisitDir returns immediately with a nil
// error.
func VisitDir(f fs.FS, name, pattern string, fn VisitDirFn) error {
	if err := validpat(pattern); err != nil {
		return err
	}
	list, err := fs.ReadDir(f, name)
	if err != nil {
		return err
	}
	for i := range list {
		if !list[i].IsDir() && !match(pattern, list[i].Name()) {
			continue
		}
		err = fn(list[i])
		if err != nil {
			if err == fs.SkipDir || err == fs.SkipAll {
				return nil
			}
			return err
		}
	}
	return nil
}

// Inputs returns the paths of the regular files
// below root whose base name matches pattern and
// for which accept (if non-nil) returns true.
// Hidden entries (leading '.') are skipped, and
// so are the directories named in skip, which
// lets a caller exclude its own output tree.
// Paths are returned in lexicographical walk
// order.
func Inputs(f fs.FS, root, pattern string, accept func(name string) bool, skip ...string) ([]string, error) {
	info, err := fs.Stat(f, root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "inputs", Path: root, Err: ErrNotDir}
	}
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		return VisitDir(f, dir, pattern, func(d fs.DirEntry) error {
			name := d.Name()
			if name == "" || name[0] == '.' {
				return nil
			}
			full := path.Join(dir, name)
			if d.IsDir() {
				for _, s := range skip {
					if full == s {
						return nil
					}
				}
				return walk(full)
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if accept == nil || accept(name) {
				out = append(out, full)
			}
			return nil
		})
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// validpat checks if a pattern is valid. If
// pattern is "", this returns nil.
func validpat(pattern string) error {
	if pattern == "" {
		return nil
	}
	_, err := path.Match(pattern, "")
	return err
}

// match should only be used if pattern has
// already been validated.
func match(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, _ := path.Match(pattern, name)
	return ok
}
