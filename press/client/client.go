// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/json"

	"github.com/drone/go-press/press"
)

type (
	// UploadRequest carries both archives and the repository
	// metadata to the ingestion service.
	UploadRequest struct {
		ZipArchive string `json:"zipArchive"` // base64
		TarArchive string `json:"tarArchive"` // base64
		RepoURL    string `json:"repoUrl"`
		RepoBranch string `json:"repoBranch"`
		Region     string `json:"region,omitempty"`
		ID         string `json:"id,omitempty"`
	}

	// StatusRequest reports the job outcome to the
	// controlling service. The file list is sent, possibly
	// empty, only for an available status.
	StatusRequest struct {
		FileList []string     `json:"fileList,omitempty"`
		Status   press.Status `json:"status"`
		URL      string       `json:"url"`
		Branch   string       `json:"branch"`
		ErrorMsg string       `json:"errorMsg,omitempty"`
		Region   string       `json:"region,omitempty"`
		ID       string       `json:"id,omitempty"`
	}
)

// MarshalJSON encodes the request. An available status always
// carries a file list, even if the repository has no listable
// files.
func (r StatusRequest) MarshalJSON() ([]byte, error) {
	type alias StatusRequest
	out := struct {
		FileList *[]string `json:"fileList,omitempty"`
		alias
	}{alias: alias(r)}
	if r.Status == press.StatusAvailable {
		files := r.FileList
		if files == nil {
			files = []string{}
		}
		out.FileList = &files
	}
	return json.Marshal(out)
}

// Client defines methods for interacting with the controlling
// service.
type Client interface {
	// Upload uploads the repository archives.
	Upload(ctx context.Context, req *UploadRequest) error

	// SendStatus sends the job status.
	SendStatus(ctx context.Context, req *StatusRequest) error
}
