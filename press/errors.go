// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package press

import (
	"errors"
	"fmt"
)

// Kind classifies a Job failure.
type Kind string

const (
	KindUnknown               = Kind("Unknown")
	KindInvalidJob            = Kind("InvalidJob")
	KindNetworkUnreachable    = Kind("NetworkUnreachable")
	KindUnsupportedTransport  = Kind("UnsupportedTransport")
	KindMissingCredential     = Kind("MissingCredential")
	KindInvalidKeyMaterial    = Kind("InvalidKeyMaterial")
	KindCloneFailed           = Kind("CloneFailed")
	KindBranchDetectionFailed = Kind("BranchDetectionFailed")
	KindEnumerationFailed     = Kind("EnumerationFailed")
	KindArchiveFailed         = Kind("ArchiveFailed")
	KindUploadFailed          = Kind("UploadFailed")
	KindStatusReportFailed    = Kind("StatusReportFailed")
)

// Error is a failure of a single Job stage.
type Error struct {
	Kind Kind
	Err  error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err with the given kind. It returns nil
// if err is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf creates a classified error.
func Errorf(kind Kind, format string, a ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, a...)}
}

// KindOf returns the kind of the first classified error in
// the chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind returns true if err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
