// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cloner provides support for cloning git repositories.
package cloner

import "context"

type (
	// Params provides clone params.
	Params struct {
		Repo  string // Clone url, may embed credentials.
		Ref   string // Branch to clone. Empty clones the default branch.
		Dir   string // Target clone directory.
		Depth int    // History depth. Zero fetches the full branch history.

		// Env provides transport specific environment,
		// such as the ssh command.
		Env []string
	}

	// Cloner clones a repository.
	Cloner interface {
		// Clone a single branch of the repository and
		// return the resolved branch name.
		Clone(context.Context, Params) (string, error)
	}
)
