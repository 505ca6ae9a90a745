// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/drone/go-press/press"
)

// Endpoint is a parsed repository url.
type Endpoint struct {
	// Scheme is the lower case url scheme, empty for scp-like
	// urls such as git@github.com:octocat/hello-world.git
	Scheme string

	// Host is the host name without port or user info.
	Host string
}

// Parse parses the repository url. Urls without a scheme are
// treated as scp-like ssh urls.
func Parse(raw string) (*Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "://"); i != -1 {
		u, err := url.Parse(raw)
		if err != nil {
			// url.Error quotes the url, which may carry a password.
			var uerr *url.Error
			if errors.As(err, &uerr) {
				err = uerr.Err
			}
			return nil, fmt.Errorf("invalid repository url %s: %w", Redact(raw), err)
		}
		return &Endpoint{
			Scheme: strings.ToLower(u.Scheme),
			Host:   u.Hostname(),
		}, nil
	}

	// [user@]host:path
	host, _, ok := strings.Cut(raw, ":")
	if !ok {
		return &Endpoint{}, nil
	}
	if i := strings.LastIndex(host, "@"); i != -1 {
		host = host[i+1:]
	}
	if strings.ContainsAny(host, "/ ") {
		host = ""
	}
	return &Endpoint{Host: host}, nil
}

// Kind returns the transport for the repository url. It is a
// pure function of the url scheme.
func Kind(raw string) (press.Transport, error) {
	e, err := Parse(raw)
	if err != nil {
		return press.TransportUnsupported, press.Wrap(press.KindUnsupportedTransport, err)
	}
	switch e.Scheme {
	case "https", "http":
		return press.TransportHTTPS, nil
	case "ssh", "":
		return press.TransportSSH, nil
	default:
		return press.TransportUnsupported, press.Errorf(press.KindUnsupportedTransport,
			"unsupported protocol %q", e.Scheme)
	}
}

// Redact returns the repository url with the password
// replaced, safe for logging. Scp-like urls carry no password
// and are returned unchanged.
func Redact(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		return raw
	}
	if u, err := url.Parse(raw); err == nil {
		return u.Redacted()
	}
	// unparseable, drop the user info entirely.
	scheme, rest, _ := strings.Cut(raw, "://")
	authority, path, slash := strings.Cut(rest, "/")
	if i := strings.LastIndex(authority, "@"); i != -1 {
		authority = authority[i+1:]
	}
	if slash {
		return scheme + "://" + authority + "/" + path
	}
	return scheme + "://" + authority
}

// Secrets returns every form of the password embedded in the
// repository url, for masking. It returns nil if the url has
// no password.
func Secrets(raw string) []string {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil
	}
	authority, _, _ := strings.Cut(rest, "/")
	i := strings.LastIndex(authority, "@")
	if i == -1 {
		return nil
	}
	_, literal, ok := strings.Cut(authority[:i], ":")
	if !ok || literal == "" {
		return nil
	}
	secrets := []string{literal}
	if u, err := url.Parse(raw); err == nil {
		if p, ok := u.User.Password(); ok && p != "" {
			secrets = append(secrets, p, escapePassword(p))
		}
	}
	return secrets
}

// escapePassword returns the percent encoded form of the
// password as it appears in a url.
func escapePassword(p string) string {
	return strings.TrimPrefix(url.UserPassword("", p).String(), ":")
}
