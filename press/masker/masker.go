// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package masker redacts secrets from log output and from
// error messages reported to the controlling service.
package masker

import (
	"io"
	"strings"
	"sync"
)

const masked = "[redacted]"

// Masker finds and masks sensitive data. The zero value
// masks nothing. Secrets may be added at any time, for
// example once the ssh key material has been decoded.
type Masker struct {
	mu      sync.RWMutex
	secrets []string
	r       *strings.Replacer
}

// New returns a masker for the given secrets.
func New(secrets ...string) *Masker {
	m := new(Masker)
	m.Add(secrets...)
	return m
}

// Add registers additional secrets. Multi-line secrets are
// masked line by line.
func (m *Masker) Add(secrets ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, secret := range secrets {
		for _, part := range strings.Split(secret, "\n") {
			part = strings.TrimSpace(part)
			if len(part) == 0 {
				continue
			}
			m.secrets = append(m.secrets, part)
		}
	}
	var oldnew []string
	for _, secret := range m.secrets {
		oldnew = append(oldnew, secret, masked)
	}
	if len(oldnew) != 0 {
		m.r = strings.NewReplacer(oldnew...)
	}
}

// Mask returns s with every secret replaced.
func (m *Masker) Mask(s string) string {
	if m == nil {
		return s
	}
	m.mu.RLock()
	r := m.r
	m.mu.RUnlock()
	if r == nil {
		return s
	}
	return r.Replace(s)
}

// Writer returns an io.Writer that masks before writing to
// the base writer w.
func (m *Masker) Writer(w io.Writer) io.Writer {
	return &replacer{w: w, m: m}
}

// replacer is an io.Writer that finds and masks
// sensitive data.
type replacer struct {
	w io.Writer
	m *Masker
}

// Write writes p to the base writer. The method scans for any
// sensitive data in p and masks before writing.
func (r *replacer) Write(p []byte) (n int, err error) {
	_, err = r.w.Write([]byte(r.m.Mask(string(p))))
	return len(p), err
}
