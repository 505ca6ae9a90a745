// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package press defines the unit of work processed by the
// repository packaging worker and its terminal outcome.
package press

import "strings"

// Job provides the inputs for a single invocation. One
// process handles exactly one Job.
type Job struct {
	// RepoURL provides the repository clone url.
	RepoURL string `json:"url"`

	// RepoBranch provides the branch to clone. If empty
	// the remote default branch is cloned and detected.
	RepoBranch string `json:"branch,omitempty"`

	// Username provides the https username.
	Username string `json:"username,omitempty"`

	// Secret provides the https password or token, or the
	// base64 encoded ssh private key, depending on the
	// transport.
	Secret string `json:"-"`

	// AuthToken authorizes requests to the controlling
	// service.
	AuthToken string `json:"-"`

	// Region and ID are opaque identifiers passed through
	// to the upload and status requests.
	Region string `json:"region,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Validate returns an error if the Job cannot be processed.
// It performs no side effects.
func (j *Job) Validate() error {
	switch {
	case strings.TrimSpace(j.RepoURL) == "":
		return Errorf(KindInvalidJob, "repository url is required")
	case j.AuthToken == "":
		return Errorf(KindInvalidJob, "auth token is required")
	case strings.HasPrefix(j.RepoBranch, "-"):
		return Errorf(KindInvalidJob, "invalid branch name %q", j.RepoBranch)
	}
	return nil
}

// Transport identifies the clone protocol family.
type Transport string

const (
	TransportUnsupported = Transport("")
	TransportHTTPS       = Transport("https")
	TransportSSH         = Transport("ssh")
)

// Status provides the terminal status of a Job as known by
// the controlling service.
type Status string

const (
	StatusAvailable = Status("available")
	StatusFailed    = Status("failed")
)

// Outcome is the terminal result of a Job. Exactly one
// Outcome is produced and reported per Job.
type Outcome struct {
	Status Status
	Branch string
	Files  []string
	Err    error
}

// Success returns a successful outcome.
func Success(branch string, files []string) *Outcome {
	return &Outcome{
		Status: StatusAvailable,
		Branch: branch,
		Files:  files,
	}
}

// Failure returns a failed outcome. The branch is reported
// when it is already known.
func Failure(branch string, err error) *Outcome {
	return &Outcome{
		Status: StatusFailed,
		Branch: branch,
		Err:    err,
	}
}

// Failed returns true if the outcome is a failure.
func (o *Outcome) Failed() bool {
	return o.Status != StatusAvailable
}

// Message returns the failure message, or an empty string
// for a successful outcome.
func (o *Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
