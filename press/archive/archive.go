// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive packages a cloned repository with
// git archive.
package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/mholt/archives"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/execer"
	"github.com/drone/go-press/press/logger"
)

// Supported archive formats.
const (
	FormatTarGz = "tar.gz"
	FormatZip   = "zip"
)

// Formats lists the formats every job produces.
var Formats = []string{FormatTarGz, FormatZip}

// Builder creates archives of a cloned repository.
type Builder interface {
	// Build archives ref of the repository in dir to the
	// output path in the given format.
	Build(ctx context.Context, dir, ref, format, output string) error
}

// New returns a Builder that runs git archive through the
// given execer.
func New(e execer.Execer) Builder {
	return &builder{execer: e}
}

type builder struct {
	execer execer.Execer
}

func (b *builder) Build(ctx context.Context, dir, ref, format, output string) error {
	if format == "" {
		return press.Errorf(press.KindArchiveFailed, "format is required")
	}
	if ref == "" {
		return press.Errorf(press.KindArchiveFailed, "ref is required")
	}

	log := logger.FromContext(ctx).
		WithField("format", format).
		WithField("ref", ref).
		WithField("output", output)

	log.Info("creating archive")

	_, err := b.execer.Run(ctx, execer.Cmd{
		Name: "git",
		Args: []string{"archive", "--format=" + format, "--output=" + output, ref},
		Dir:  dir,
	})
	if err != nil {
		return press.Wrap(press.KindArchiveFailed, err)
	}

	if err := verify(ctx, output, format); err != nil {
		return press.Wrap(press.KindArchiveFailed, err)
	}

	log.Debug("created archive")
	return nil
}

// verify identifies the container format of the file from
// its contents and fails if it is not the requested format.
func verify(ctx context.Context, path, format string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// the file name is omitted so the format is identified
	// by content alone.
	got, _, err := archives.Identify(ctx, "", f)
	if err != nil {
		return fmt.Errorf("cannot identify archive %s: %w", path, err)
	}
	if ext := got.Extension(); ext != "."+format {
		return fmt.Errorf("archive %s has format %s, want .%s", path, ext, format)
	}
	return nil
}
