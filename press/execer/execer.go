// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package execer runs external commands with structured
// argument lists. Commands are never interpolated into a
// shell string.
package execer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/drone/go-press/press/logger"
)

// Cmd describes an external command.
type Cmd struct {
	Name string   // binary name or path
	Args []string // arguments, passed verbatim
	Dir  string   // optional working directory
	Env  []string // additional environment, appended to os.Environ
}

// String returns the command name and the first argument,
// which is safe to log. Remaining arguments may contain
// credentials.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + c.Args[0]
}

// Execer runs a command and returns the captured stdout.
type Execer interface {
	Run(ctx context.Context, cmd Cmd) ([]byte, error)
}

// ExitError is returned when a command fails. It carries the
// captured stderr.
type ExitError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %s", e.Cmd, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Cmd, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// New returns an Execer that uses os/exec. A positive timeout
// bounds every command.
func New(timeout time.Duration) Execer {
	return &execer{timeout: timeout}
}

// Default returns an Execer without a timeout.
func Default() Execer {
	return new(execer)
}

type execer struct {
	timeout time.Duration
}

func (e *execer) Run(ctx context.Context, c Cmd) ([]byte, error) {
	if c.Name == "" {
		return nil, errors.New("no command provided")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx).
		WithField("command", c.String()).
		WithField("dir", c.Dir)

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(c.Env) != 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	log.Debug("executing command")

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %s", ctxErr, err)
		}
		return stdout.Bytes(), &ExitError{
			Cmd:    c.String(),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	if stderr.Len() > 0 {
		log.Debugf("stderr: %s", stderr.String())
	}
	return stdout.Bytes(), nil
}
