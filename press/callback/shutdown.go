// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callback

import (
	"context"
	"errors"

	"github.com/drone/go-press/press/execer"
	"github.com/drone/go-press/press/logger"
)

// Halter tears down the host.
type Halter interface {
	Halt(ctx context.Context) error
}

// HalterFunc is an adapter to allow the use of ordinary
// functions as a Halter.
type HalterFunc func(context.Context) error

// Halt calls f.
func (f HalterFunc) Halt(ctx context.Context) error {
	return f(ctx)
}

// Command returns a Halter that runs the shutdown command,
// for example sudo shutdown -h now.
func Command(e execer.Execer, argv []string) Halter {
	return HalterFunc(func(ctx context.Context) error {
		if len(argv) == 0 {
			return errors.New("no shutdown command configured")
		}
		_, err := e.Run(ctx, execer.Cmd{Name: argv[0], Args: argv[1:]})
		return err
	})
}

// Noop returns a Halter that only logs, for local runs.
func Noop() Halter {
	return HalterFunc(func(ctx context.Context) error {
		logger.FromContext(ctx).Warn("host shutdown disabled")
		return nil
	})
}
