// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport selects the clone transport for a
// repository url and materializes the credential it needs.
package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"golang.org/x/crypto/ssh"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/logger"
)

// defaultUsername is used for https token authentication when
// no username is provided (GitHub/GitLab convention).
const defaultUsername = "token"

// functions for mocking
var (
	mkdirAllFn  = os.MkdirAll
	writeFileFn = os.WriteFile
	removeFn    = os.Remove
	chmodFn     = os.Chmod
)

// Credentials provides everything the clone needs to
// authenticate. The URL may embed credentials and must never
// be logged.
type Credentials struct {
	Transport press.Transport

	// URL is the clone url.
	URL string

	// Env provides additional environment for git.
	Env []string

	// Secrets provides every form of the secret that may
	// appear in command output, for masking.
	Secrets []string
}

// Resolve determines the transport for the job and prepares
// its credential. For ssh the private key is written to
// keyFile with owner read-only permissions.
func Resolve(ctx context.Context, job *press.Job, keyFile string) (*Credentials, error) {
	kind, err := Kind(job.RepoURL)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).
		WithField("transport", kind).
		WithField("secret", job.Secret != "")

	switch kind {
	case press.TransportHTTPS:
		log.Info("https transport detected")
		return resolveHTTPS(job)
	default:
		log.Info("ssh transport detected")
		return resolveSSH(job, keyFile)
	}
}

func resolveHTTPS(job *press.Job) (*Credentials, error) {
	creds := &Credentials{
		Transport: press.TransportHTTPS,
		URL:       job.RepoURL,
		Env:       []string{"GIT_TERMINAL_PROMPT=0"},
	}

	u, err := url.Parse(job.RepoURL)
	if err != nil {
		return nil, press.Errorf(press.KindUnsupportedTransport, "invalid repository url %s", Redact(job.RepoURL))
	}
	creds.Secrets = append(creds.Secrets, Secrets(job.RepoURL)...)
	if job.Secret == "" {
		// public repository
		return creds, nil
	}

	username := job.Username
	if username == "" {
		username = defaultUsername
	}
	u.User = url.UserPassword(username, job.Secret)
	creds.URL = u.String()

	// the percent encoded form is what appears in git output.
	creds.Secrets = append(creds.Secrets, job.Secret, escapePassword(job.Secret))
	return creds, nil
}

func resolveSSH(job *press.Job, keyFile string) (*Credentials, error) {
	if job.Secret == "" {
		return nil, press.Errorf(press.KindMissingCredential,
			"a base64 encoded private key is required for ssh transport")
	}

	key, err := decodeKey(job.Secret)
	if err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := writeKey(keyFile, key); err != nil {
		return nil, err
	}

	return &Credentials{
		Transport: press.TransportSSH,
		URL:       job.RepoURL,
		Env: []string{
			"GIT_TERMINAL_PROMPT=0",
			"GIT_SSH_COMMAND=" + sshCommand(keyFile),
		},
		Secrets: []string{job.Secret, string(key)},
	}, nil
}

// decodeKey decodes the base64 private key. Padded and
// unpadded encodings are accepted.
func decodeKey(secret string) ([]byte, error) {
	secret = strings.Join(strings.Fields(secret), "")
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.RawStdEncoding.DecodeString(secret)
	}
	if err != nil {
		return nil, press.Errorf(press.KindInvalidKeyMaterial, "private key is not valid base64")
	}
	return key, nil
}

// validateKey checks the structural integrity of the private
// key. The parse error is not included since it may quote
// key material.
func validateKey(key []byte) error {
	_, err := ssh.ParseRawPrivateKey(key)
	if err == nil {
		return nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return press.Errorf(press.KindInvalidKeyMaterial, "passphrase protected private keys are not supported")
	}
	return press.Errorf(press.KindInvalidKeyMaterial, "private key failed format check")
}

func writeKey(keyFile string, key []byte) error {
	if err := mkdirAllFn(filepath.Dir(keyFile), 0700); err != nil {
		return press.Wrap(press.KindInvalidKeyMaterial, err)
	}
	// a read-only key from a previous attempt cannot be
	// overwritten in place.
	if err := removeFn(keyFile); err != nil && !os.IsNotExist(err) {
		return press.Wrap(press.KindInvalidKeyMaterial, err)
	}
	if err := writeFileFn(keyFile, key, 0400); err != nil {
		return press.Wrap(press.KindInvalidKeyMaterial, err)
	}
	// the umask cannot widen the mode, but an existing
	// directory acl could.
	if err := chmodFn(keyFile, 0400); err != nil {
		return press.Wrap(press.KindInvalidKeyMaterial, err)
	}
	return nil
}

// sshCommand returns the ssh command git uses to connect. Host
// keys are trusted on first use because the host is caller
// supplied and the instance is ephemeral.
func sshCommand(keyFile string) string {
	return strings.Join([]string{
		"ssh",
		"-i", shellescape.Quote(keyFile),
		"-o", "IdentitiesOnly=yes",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "BatchMode=yes",
	}, " ")
}
