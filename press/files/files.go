// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package files enumerates the files of a cloned repository.
package files

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// Walk returns a lazy sequence of the regular, non-hidden
// files below root as slash separated paths relative to root.
// Symbolic links to regular files are listed, symbolic links
// to directories are not followed. Hidden files and
// directories are skipped entirely. The
// sequence stops after yielding the first error. Each range
// over the sequence walks the tree again.
func Walk(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		fsys := os.DirFS(root)
		err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == "." {
				return nil
			}
			if isHidden(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !isFile(fsys, path, d) {
				return nil
			}
			if !yield(path, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", fmt.Errorf("cannot list files in %s: %w", root, err))
		}
	}
}

// List returns all files yielded by Walk.
func List(root string) ([]string, error) {
	var out []string
	for path, err := range Walk(root) {
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.ToSlash(path))
	}
	return out, nil
}

// isHidden returns true if the name starts with a dot that
// is not followed by another dot.
func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name[1] != '.'
}

// isFile returns true if the entry is a regular file or a
// symbolic link resolving to one. Broken links are skipped.
func isFile(fsys fs.FS, path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(fsys, path)
	return err == nil && info.Mode().IsRegular()
}
