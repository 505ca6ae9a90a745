// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cloner

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/execer"
	"github.com/drone/go-press/press/logger"
)

type cloner struct {
	execer execer.Execer
}

// New returns a cloner which relies on the git binary
// installed on the host, run through the given execer.
func New(e execer.Execer) Cloner {
	return &cloner{execer: e}
}

// Default returns a cloner that uses os/exec.
func Default() Cloner {
	return New(execer.Default())
}

func (c *cloner) Clone(ctx context.Context, params Params) (string, error) {
	if params.Repo == "" || params.Dir == "" {
		return "", press.Wrap(press.KindCloneFailed, errors.New("repository and target directory are required"))
	}

	log := logger.FromContext(ctx).
		WithField("revision", params.Ref).
		WithField("target", params.Dir)

	args := []string{"clone", "--single-branch", "--no-tags"}
	if params.Depth > 0 {
		args = append(args, "--depth="+strconv.Itoa(params.Depth))
	}
	if params.Ref != "" {
		args = append(args, "--branch="+params.Ref)
	}
	args = append(args, "--", params.Repo, params.Dir)

	log.Info("cloning repository")

	if _, err := c.execer.Run(ctx, execer.Cmd{
		Name: "git",
		Args: args,
		Env:  params.Env,
	}); err != nil {
		return "", press.Wrap(press.KindCloneFailed, err)
	}

	if params.Ref != "" {
		return params.Ref, nil
	}

	// the default branch was cloned, detect its name.
	branch, err := c.detectBranch(ctx, params.Dir)
	if err != nil {
		return "", err
	}
	log.WithField("branch", branch).Info("detected default branch")
	return branch, nil
}

func (c *cloner) detectBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.execer.Run(ctx, execer.Cmd{
		Name: "git",
		Args: []string{"rev-parse", "--abbrev-ref", "HEAD"},
		Dir:  dir,
	})
	if err != nil {
		return "", press.Wrap(press.KindBranchDetectionFailed, err)
	}
	branch := strings.TrimSpace(string(out))
	// a detached or unborn head has no usable branch name.
	if branch == "" || branch == "HEAD" {
		return "", press.Errorf(press.KindBranchDetectionFailed, "cannot detect the checked out branch")
	}
	return branch, nil
}
