// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package callback reports the job outcome to the controlling
// service and tears down the host.
package callback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/client"
	"github.com/drone/go-press/press/logger"
	"github.com/drone/go-press/press/masker"
)

// ErrAlreadyReported is returned when a second report is
// attempted for the same job.
var ErrAlreadyReported = errors.New("job outcome already reported")

// State is the reporting state of a job.
type State int

const (
	StatePending State = iota
	StateReporting
	StateReported
	StateReportFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReporting:
		return "reporting"
	case StateReported:
		return "reported"
	case StateReportFailed:
		return "report_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reporter sends the status request.
type Reporter interface {
	SendStatus(ctx context.Context, req *client.StatusRequest) error
}

// Controller reports the outcome of exactly one job, exactly
// once, and tears down the host exactly once. Teardown does
// not depend on the report succeeding.
type Controller struct {
	job      *press.Job
	reporter Reporter
	halter   Halter
	masker   *masker.Masker

	mu      sync.Mutex
	state   State
	halted  bool
	haltErr error
}

// New returns a controller for the job. The masker redacts
// secrets from the reported error message and may be nil.
func New(job *press.Job, reporter Reporter, halter Halter, m *masker.Masker) *Controller {
	return &Controller{
		job:      job,
		reporter: reporter,
		halter:   halter,
		masker:   m,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Report sends the outcome to the controlling service. Only
// the first call sends a request; later calls return
// ErrAlreadyReported. A failed report is not retried.
func (c *Controller) Report(ctx context.Context, outcome *press.Outcome) error {
	c.mu.Lock()
	if c.state != StatePending {
		c.mu.Unlock()
		return ErrAlreadyReported
	}
	c.state = StateReporting
	c.mu.Unlock()

	log := logger.FromContext(ctx).WithField("status", outcome.Status)
	log.Info("calling back to the controlling service")

	err := c.reporter.SendStatus(ctx, c.request(outcome))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateReportFailed
		// the controller can no longer learn the job outcome.
		log.WithError(err).
			WithField("kind", press.KindOf(err)).
			WithField("outcome.error", c.masker.Mask(outcome.Message())).
			Error("status report failed, job outcome is unknown to the controlling service")
		return err
	}
	c.state = StateReported
	log.Info("status reported")
	return nil
}

func (c *Controller) request(outcome *press.Outcome) *client.StatusRequest {
	req := &client.StatusRequest{
		Status: outcome.Status,
		URL:    c.job.RepoURL,
		Branch: outcome.Branch,
		Region: c.job.Region,
		ID:     c.job.ID,
	}
	if req.Branch == "" {
		req.Branch = c.job.RepoBranch
	}
	if outcome.Failed() {
		req.ErrorMsg = c.masker.Mask(outcome.Message())
	} else {
		req.FileList = outcome.Files
	}
	return req
}

// Teardown halts the host. Only the first call halts; later
// calls return the result of the first.
func (c *Controller) Teardown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halted {
		return c.haltErr
	}
	c.halted = true

	log := logger.FromContext(ctx).WithField("state", c.state)
	log.Info("tearing down host")
	if c.haltErr = c.halter.Halt(ctx); c.haltErr != nil {
		log.WithError(c.haltErr).Error("host shutdown failed")
	}
	return c.haltErr
}
