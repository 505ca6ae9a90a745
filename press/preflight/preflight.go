// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package preflight confirms the repository host resolves
// before any credential is written or clone attempted.
package preflight

import (
	"context"
	"net"
	"time"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/logger"
	"github.com/drone/go-press/press/transport"
)

// lookupHostFn as a function for mocking
var lookupHostFn = net.DefaultResolver.LookupHost

// Check resolves the host of the repository endpoint and
// returns the resolved addresses. A zero timeout uses the
// context deadline only.
func Check(ctx context.Context, endpoint string, timeout time.Duration) ([]string, error) {
	log := logger.FromContext(ctx).WithField("endpoint", transport.Redact(endpoint))
	log.Info("checking network access and resolution")

	e, err := transport.Parse(endpoint)
	if err != nil {
		return nil, press.Wrap(press.KindNetworkUnreachable, err)
	}
	if e.Host == "" {
		return nil, press.Errorf(press.KindNetworkUnreachable, "cannot determine host of %s", transport.Redact(endpoint))
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	addrs, err := lookupHostFn(ctx, e.Host)
	if err != nil {
		log.WithError(err).Error("unable to resolve host")
		return nil, press.Wrap(press.KindNetworkUnreachable, err)
	}
	if len(addrs) == 0 {
		return nil, press.Errorf(press.KindNetworkUnreachable, "no addresses found for host %s", e.Host)
	}

	log.WithField("addresses", addrs).Info("network connectivity successful")
	return addrs, nil
}
