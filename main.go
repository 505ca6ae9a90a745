// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/config"
	"github.com/drone/go-press/press/masker"
	"github.com/drone/go-press/press/worker"
)

var (
	// path to the optional job file
	path = flag.String("path", "", "")

	// path to the optional configuration file
	conf = flag.String("config", "", "")

	// job parameters, override the job file
	repoURL    = flag.String("url", "", "")
	repoBranch = flag.String("branch", "", "")
	username   = flag.String("username", "", "")
	region     = flag.String("region", "", "")
	id         = flag.String("id", "", "")

	// secrets, may also be provided by the environment
	secret = flag.String("secret", os.Getenv("IMGPRESS_SECRET"), "")
	token  = flag.String("token", os.Getenv("IMGPRESS_TOKEN"), "")

	// disables host shutdown if true
	noShutdown = flag.Bool("no-shutdown", false, "")

	// runs with verbose output if true
	verbose = flag.Bool("verbose", false, "")

	// displays the help / usage if true
	help = flag.Bool("help", false, "")
)

func main() {

	// parse the input parameters
	flag.BoolVar(help, "h", false, "")
	flag.BoolVar(verbose, "v", false, "")
	flag.Usage = usage
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	// register the secrets before anything is logged
	m := masker.New(*secret, *token)
	logrus.SetOutput(m.Writer(os.Stderr))
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		logrus.WithError(err).Fatalln("cannot load configuration")
	}
	if cfg.LogFormat == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}
	for _, warning := range cfg.Warnings {
		logrus.Warnln(warning)
	}
	if *noShutdown {
		cfg.Shutdown.Disabled = true
	}

	job, err := readJob()
	if err != nil {
		logrus.WithError(err).Fatalln("cannot read job")
	}

	err = worker.New(cfg, job.AuthToken, m).Run(context.Background(), job)
	switch {
	case err == nil:
		os.Exit(0)
	case press.KindOf(err) == press.KindInvalidJob:
		logrus.WithError(err).Errorln("job rejected")
		os.Exit(2)
	default:
		os.Exit(1)
	}
}

// readJob reads the job from the optional job file and
// applies the command line parameters on top.
func readJob() (*press.Job, error) {
	job := new(press.Job)

	// user may specify the path as a non-flag variable
	if flag.NArg() > 0 {
		path = &flag.Args()[0]
	}
	if *path != "" {
		data, err := os.ReadFile(*path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, job); err != nil {
			return nil, err
		}
	}

	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&job.RepoURL, *repoURL)
	set(&job.RepoBranch, *repoBranch)
	set(&job.Username, *username)
	set(&job.Region, *region)
	set(&job.ID, *id)
	job.Secret = *secret
	job.AuthToken = *token
	return job, nil
}

var usage = func() {
	println(`Usage: go-press [OPTION]... [PATH]

      --path           path to the job file
      --config         path to the configuration file
      --url            repository clone url
      --branch         branch to clone, defaults to the remote default branch
      --username       https username
      --secret         https password or token, or base64 ssh private key
                       (default $IMGPRESS_SECRET)
      --token          controlling service auth token (default $IMGPRESS_TOKEN)
      --region         region passed through to the controlling service
      --id             job id passed through to the controlling service
      --no-shutdown    do not shut down the host on exit
  -v, --verbose        execute the job with verbose output
  -h, --help           display this help and exit

Examples:
  go-press --url=https://github.com/octocat/hello-world.git --token=...
  go-press path/to/job.json
`)
}
