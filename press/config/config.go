// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the worker configuration from the
// environment and an optional yaml file. Every value has a
// default so the worker runs with no configuration at all.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ghodss/yaml"
)

// Environment names.
const (
	Development = "development"
	Production  = "production"
)

const (
	uploadPath = "/repo/upload"
	statusPath = "/repo/status"
)

// Config provides the worker configuration.
type Config struct {
	// Environment selects the base url used for the upload
	// and status endpoints.
	Environment string `json:"environment"`

	// Endpoints provides the base urls per environment.
	Endpoints Endpoints `json:"endpoints"`

	// Workspace is the root directory under which the job
	// workspace is created. Defaults to the os temp dir.
	Workspace string `json:"workspace"`

	Timeouts Timeouts `json:"timeouts"`

	// CloneDepth limits the fetched history. Zero fetches the
	// full history of the cloned branch.
	CloneDepth int `json:"clone_depth"`

	Shutdown Shutdown `json:"shutdown"`

	// LogFormat is either json or text.
	LogFormat string `json:"log_format"`

	// Warnings lists the settings Load had to correct. They
	// are returned for the caller to log once logging is
	// configured.
	Warnings []string `json:"-"`
}

// Endpoints provides the controlling service base urls.
type Endpoints struct {
	Development string `json:"development"`
	Production  string `json:"production"`
}

// Timeouts bounds the blocking operations of a job.
type Timeouts struct {
	Preflight Duration `json:"preflight"`
	Command   Duration `json:"command"`
	Upload    Duration `json:"upload"`
	Status    Duration `json:"status"`
}

// Shutdown configures host teardown.
type Shutdown struct {
	Disabled bool     `json:"disabled"`
	Command  []string `json:"command"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Endpoints: Endpoints{
			Development: "https://tow7iwnbqb.execute-api.us-east-1.amazonaws.com/dev",
			Production:  "https://api.imgpress.io",
		},
		Timeouts: Timeouts{
			Preflight: Duration(10 * time.Second),
			Command:   Duration(15 * time.Minute),
			Upload:    Duration(5 * time.Minute),
			Status:    Duration(30 * time.Second),
		},
		Shutdown: Shutdown{
			Command: []string{"sudo", "shutdown", "-h", "now"},
		},
		LogFormat: "json",
	}
}

// for mocking
var readFileFn = os.ReadFile

// Load returns the configuration from the environment, then
// overrides it with the yaml file at path, if provided.
func Load(path string) (*Config, error) {
	c := Default()
	c.Environment = getEnv("IMGPRESS_ENV", c.Environment)
	c.Workspace = getEnv("IMGPRESS_WORKSPACE", c.Workspace)
	c.LogFormat = getEnv("IMGPRESS_LOG_FORMAT", c.LogFormat)

	if path != "" {
		data, err := readFileFn(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}
	if c.Workspace == "" {
		c.Workspace = os.TempDir()
	}
	return c, c.validate()
}

func (c *Config) validate() error {
	if c.Environment != Production && c.Environment != Development {
		// anything other than production is development.
		c.Warnings = append(c.Warnings,
			fmt.Sprintf("unknown environment %q, using %s", c.Environment, Development))
		c.Environment = Development
	}
	if c.BaseURL() == "" {
		return fmt.Errorf("no base url configured for environment %s", c.Environment)
	}
	if !c.Shutdown.Disabled && len(c.Shutdown.Command) == 0 {
		return fmt.Errorf("shutdown command is required unless shutdown is disabled")
	}
	return nil
}

// BaseURL returns the controlling service base url for the
// selected environment.
func (c *Config) BaseURL() string {
	if c.Environment == Production {
		return strings.TrimSuffix(c.Endpoints.Production, "/")
	}
	return strings.TrimSuffix(c.Endpoints.Development, "/")
}

// UploadURL returns the archive upload endpoint.
func (c *Config) UploadURL() string {
	return c.BaseURL() + uploadPath
}

// StatusURL returns the status callback endpoint.
func (c *Config) StatusURL() string {
	return c.BaseURL() + statusPath
}

// getEnv retrieves the value of an environment variable by
// key, or fallback if unset or empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Duration is a time.Duration that decodes from a duration
// string, such as "30s", or from a number of nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*d = Duration(time.Duration(t))
	case string:
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
