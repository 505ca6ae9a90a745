// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package worker runs a single repository packaging job from
// start to its one terminal report.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/archive"
	"github.com/drone/go-press/press/callback"
	"github.com/drone/go-press/press/client"
	"github.com/drone/go-press/press/cloner"
	"github.com/drone/go-press/press/config"
	"github.com/drone/go-press/press/execer"
	"github.com/drone/go-press/press/files"
	"github.com/drone/go-press/press/logger"
	"github.com/drone/go-press/press/masker"
	"github.com/drone/go-press/press/preflight"
	"github.com/drone/go-press/press/transport"
	"github.com/drone/go-press/press/workspace"
)

// Service is the controlling service.
type Service interface {
	callback.Reporter

	// UploadArchives uploads both archives with the
	// repository metadata.
	UploadArchives(ctx context.Context, tarPath, zipPath string, meta client.UploadRequest) error
}

// Worker runs one job. Stages are strictly sequential.
type Worker struct {
	// Root is the directory below which the job workspace
	// is created.
	Root string

	// Depth limits the cloned history, zero for all.
	Depth int

	Preflight func(ctx context.Context, endpoint string) ([]string, error)
	Resolve   func(ctx context.Context, job *press.Job, keyFile string) (*transport.Credentials, error)
	List      func(root string) ([]string, error)

	Cloner   cloner.Cloner
	Archiver archive.Builder
	Service  Service
	Halter   callback.Halter
	Masker   *masker.Masker

	// RunID identifies this run in logs and names the
	// workspace. A random id is used when empty.
	RunID string
}

// New returns a worker configured from c that authorizes to
// the controlling service with token.
func New(c *config.Config, token string, m *masker.Masker) *Worker {
	ex := execer.New(c.Timeouts.Command.Std())

	svc := client.New(c.UploadURL(), c.StatusURL(), token)
	svc.UploadTimeout = c.Timeouts.Upload.Std()
	svc.StatusTimeout = c.Timeouts.Status.Std()

	halter := callback.Command(ex, c.Shutdown.Command)
	if c.Shutdown.Disabled {
		halter = callback.Noop()
	}

	timeout := c.Timeouts.Preflight.Std()
	return &Worker{
		Root:  c.Workspace,
		Depth: c.CloneDepth,
		Preflight: func(ctx context.Context, endpoint string) ([]string, error) {
			return preflight.Check(ctx, endpoint, timeout)
		},
		Resolve:  transport.Resolve,
		List:     files.List,
		Cloner:   cloner.New(ex),
		Archiver: archive.New(ex),
		Service:  svc,
		Halter:   halter,
		Masker:   m,
	}
}

// Run processes the job. An invalid job is rejected before
// any side effect. Otherwise the outcome is reported exactly
// once and the host is torn down exactly once, whether or not
// the report succeeds. Run returns nil only if the job
// succeeded and its outcome was reported.
func (w *Worker) Run(ctx context.Context, job *press.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if w.Masker == nil {
		w.Masker = masker.New()
	}
	w.Masker.Add(job.Secret, job.AuthToken)
	w.Masker.Add(transport.Secrets(job.RepoURL)...)

	run := w.RunID
	if run == "" {
		run = uuid.NewString()
	}
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"job.run":  run,
		"repo.url": transport.Redact(job.RepoURL),
	})
	if job.ID != "" {
		log = log.WithField("job.id", job.ID)
	}
	ctx = logger.WithContext(ctx, log)

	// reporting and teardown must complete even if the
	// caller gives up on the job.
	final := context.WithoutCancel(ctx)

	ctrl := callback.New(job, w.Service, w.Halter, w.Masker)
	defer ctrl.Teardown(final)

	start := time.Now()
	outcome := w.execute(ctx, job, run)
	log = log.WithField("duration", time.Since(start).Round(time.Millisecond).String())
	if outcome.Failed() {
		log.WithField("kind", press.KindOf(outcome.Err)).
			Errorf("job failed: %s", w.Masker.Mask(outcome.Message()))
	} else {
		log.WithField("files", len(outcome.Files)).Info("job succeeded")
	}

	if err := ctrl.Report(final, outcome); err != nil {
		return err
	}
	return outcome.Err
}

// execute runs every stage and converts the first failure,
// including a panic, into a failed outcome.
func (w *Worker) execute(ctx context.Context, job *press.Job, run string) (outcome *press.Outcome) {
	var branch string
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).WithField("panic", fmt.Sprint(r)).Error("unexpected failure")
			outcome = press.Failure(branch, fmt.Errorf("internal error: %v", r))
		}
	}()

	// classify the transport before any network action.
	if _, err := transport.Kind(job.RepoURL); err != nil {
		return press.Failure(branch, err)
	}
	if _, err := w.Preflight(ctx, job.RepoURL); err != nil {
		return press.Failure(branch, err)
	}

	ws, err := workspace.New(w.Root, run)
	if err != nil {
		return press.Failure(branch, err)
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("cannot remove workspace")
		}
	}()

	creds, err := w.Resolve(ctx, job, ws.KeyFile())
	if err != nil {
		return press.Failure(branch, err)
	}
	w.Masker.Add(creds.Secrets...)

	if err := ws.Create(); err != nil {
		return press.Failure(branch, err)
	}

	branch, err = w.Cloner.Clone(ctx, cloner.Params{
		Repo:  creds.URL,
		Ref:   job.RepoBranch,
		Dir:   ws.RepoDir(),
		Depth: w.Depth,
		Env:   creds.Env,
	})
	if err != nil {
		return press.Failure(job.RepoBranch, err)
	}

	fileList, err := w.List(ws.RepoDir())
	if err != nil {
		return press.Failure(branch, press.Wrap(press.KindEnumerationFailed, err))
	}
	logger.FromContext(ctx).WithField("files", len(fileList)).Debug("listed repository files")

	name := workspace.RepoName(job.RepoURL)
	outputs := map[string]string{}
	for _, format := range archive.Formats {
		output := ws.ArchivePath(name, format)
		if err := w.Archiver.Build(ctx, ws.RepoDir(), branch, format, output); err != nil {
			return press.Failure(branch, errors.Wrapf(err, "cannot create %s archive", format))
		}
		outputs[format] = output
	}

	err = w.Service.UploadArchives(ctx, outputs[archive.FormatTarGz], outputs[archive.FormatZip], client.UploadRequest{
		RepoURL:    job.RepoURL,
		RepoBranch: branch,
		Region:     job.Region,
		ID:         job.ID,
	})
	if err != nil {
		return press.Failure(branch, err)
	}

	return press.Success(branch, fileList)
}
