// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workspace provides the scratch directory owned by a
// single job. Every on-disk artifact of the job, including
// the ssh key, lives below it.
package workspace

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// functions for mocking
var (
	mkdirAllFn  = os.MkdirAll
	removeAllFn = os.RemoveAll
)

// Workspace is the job scoped scratch directory.
type Workspace struct {
	dir string
}

// New returns the workspace for run below root without
// creating it. It fails if the workspace already exists,
// since a workspace is never shared between jobs.
func New(root, run string) (*Workspace, error) {
	if run == "" {
		return nil, fmt.Errorf("workspace requires a run identifier")
	}
	dir := filepath.Join(root, "imgpress-"+run)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("workspace %s already exists", dir)
	}
	return &Workspace{dir: dir}, nil
}

// Create creates the workspace directory. It is safe to call
// after a file was written below the workspace.
func (w *Workspace) Create() error {
	if err := mkdirAllFn(w.dir, 0700); err != nil {
		return fmt.Errorf("cannot create workspace: %w", err)
	}
	return nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// RepoDir returns the clone target. It does not exist until
// the repository is cloned.
func (w *Workspace) RepoDir() string {
	return filepath.Join(w.dir, "repo")
}

// KeyFile returns the ssh private key path.
func (w *Workspace) KeyFile() string {
	return filepath.Join(w.dir, ".ssh", "id_rsa")
}

// ArchivePath returns the output path of the archive for the
// named repository in the given format, e.g. repo.tar.gz.
func (w *Workspace) ArchivePath(name, format string) string {
	return filepath.Join(w.dir, name+"."+format)
}

// Remove deletes the workspace and everything in it.
func (w *Workspace) Remove() error {
	return removeAllFn(w.dir)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RepoName returns the repository name from the clone url,
// which is the last path element without its extension.
// For example, git@github.com:octocat/hello-world.git
// returns hello-world.
func RepoName(repoURL string) string {
	s := strings.TrimRight(repoURL, "/")
	if i := strings.IndexAny(s, "?#"); i != -1 {
		s = s[:i]
	}
	// scp-like urls separate the host and path with a colon.
	if i := strings.LastIndexAny(s, "/:"); i != -1 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, path.Ext(s))
	s = unsafeChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, ".-")
	if s == "" {
		return "repo"
	}
	return s
}
