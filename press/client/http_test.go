// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drone/go-press/press"
)

// fakeService records the requests sent to the ingestion and
// status endpoints.
type fakeService struct {
	sync.Mutex
	uploadCode int
	statusCode int
	uploads    []UploadRequest
	statuses   []StatusRequest
	auth       []string
}

func (f *fakeService) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/repo/upload", func(w http.ResponseWriter, r *http.Request) {
		f.Lock()
		defer f.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		var in UploadRequest
		json.NewDecoder(r.Body).Decode(&in)
		f.uploads = append(f.uploads, in)
		w.WriteHeader(f.uploadCode)
		w.Write([]byte(`{"message":"ok"}`))
	})
	r.Post("/repo/status", func(w http.ResponseWriter, r *http.Request) {
		f.Lock()
		defer f.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		var in StatusRequest
		json.NewDecoder(r.Body).Decode(&in)
		f.statuses = append(f.statuses, in)
		w.WriteHeader(f.statusCode)
	})
	return r
}

func newTestClient(t *testing.T, f *fakeService) *HTTPClient {
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL+"/repo/upload", srv.URL+"/repo/status", "s3cr3t-token")
}

func TestUploadArchives(t *testing.T) {
	f := &fakeService{uploadCode: http.StatusOK}
	c := newTestClient(t, f)

	dir := t.TempDir()
	tarPath := dir + "/hello.tar.gz"
	zipPath := dir + "/hello.zip"
	require.NoError(t, os.WriteFile(tarPath, []byte("tar bytes"), 0644))
	require.NoError(t, os.WriteFile(zipPath, []byte("zip bytes"), 0644))

	err := c.UploadArchives(context.Background(), tarPath, zipPath, UploadRequest{
		RepoURL:    "https://github.com/octocat/hello-world.git",
		RepoBranch: "main",
		ID:         "42",
	})
	require.NoError(t, err)

	want := []UploadRequest{{
		ZipArchive: base64.StdEncoding.EncodeToString([]byte("zip bytes")),
		TarArchive: base64.StdEncoding.EncodeToString([]byte("tar bytes")),
		RepoURL:    "https://github.com/octocat/hello-world.git",
		RepoBranch: "main",
		ID:         "42",
	}}
	f.Lock()
	defer f.Unlock()
	if diff := cmp.Diff(want, f.uploads); diff != "" {
		t.Errorf("unexpected upload (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"s3cr3t-token"}, f.auth)
}

func TestUploadArchives_MissingFile(t *testing.T) {
	original := readFileFn
	defer func() { readFileFn = original }()
	readFileFn = func(string) ([]byte, error) {
		return nil, errors.New("no such file")
	}

	f := &fakeService{uploadCode: http.StatusOK}
	err := newTestClient(t, f).UploadArchives(context.Background(), "a.tar.gz", "a.zip", UploadRequest{})
	require.Error(t, err)
	assert.Equal(t, press.KindUploadFailed, press.KindOf(err))
	f.Lock()
	defer f.Unlock()
	assert.Empty(t, f.uploads)
}

func TestUpload_StatusCodes(t *testing.T) {
	tests := []struct {
		code    int
		wantErr bool
	}{
		{code: http.StatusOK},
		{code: http.StatusCreated},
		{code: http.StatusNoContent},
		{code: http.StatusFound, wantErr: true},
		{code: http.StatusBadRequest, wantErr: true},
		{code: http.StatusInternalServerError, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			f := &fakeService{uploadCode: tt.code}
			err := newTestClient(t, f).Upload(context.Background(), &UploadRequest{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, press.KindUploadFailed, press.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
			f.Lock()
			defer f.Unlock()
			// never retried
			assert.Len(t, f.uploads, 1)
		})
	}
}

func TestUpload_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	err := New(srv.URL, srv.URL, "t").Upload(context.Background(), &UploadRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code 500")
	assert.Contains(t, err.Error(), `{"success":true}`)
}

func TestSendStatus(t *testing.T) {
	f := &fakeService{statusCode: http.StatusOK}
	c := newTestClient(t, f)

	err := c.SendStatus(context.Background(), &StatusRequest{
		FileList: []string{"README.md"},
		Status:   press.StatusAvailable,
		URL:      "https://github.com/octocat/hello-world.git",
		Branch:   "main",
	})
	require.NoError(t, err)
	f.Lock()
	defer f.Unlock()
	require.Len(t, f.statuses, 1)
	assert.Equal(t, press.StatusAvailable, f.statuses[0].Status)
	assert.Equal(t, []string{"README.md"}, f.statuses[0].FileList)
}

func TestSendStatus_Failure(t *testing.T) {
	f := &fakeService{statusCode: http.StatusInternalServerError}
	err := newTestClient(t, f).SendStatus(context.Background(), &StatusRequest{Status: press.StatusFailed})
	require.Error(t, err)
	assert.Equal(t, press.KindStatusReportFailed, press.KindOf(err))
	f.Lock()
	defer f.Unlock()
	assert.Len(t, f.statuses, 1)
}

func TestSendStatus_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := New(srv.URL, srv.URL, "t").SendStatus(context.Background(), &StatusRequest{})
	assert.Equal(t, press.KindStatusReportFailed, press.KindOf(err))
}

func TestSendStatus_Timeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}))
	defer srv.Close()
	defer close(done)

	c := New(srv.URL, srv.URL, "t")
	c.StatusTimeout = 50 * time.Millisecond
	err := c.SendStatus(context.Background(), &StatusRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusRequest_JSON(t *testing.T) {
	b, err := json.Marshal(&StatusRequest{
		Status: press.StatusFailed,
		URL:    "https://github.com/octocat/hello-world.git",
		Branch: "",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"failed","url":"https://github.com/octocat/hello-world.git","branch":""}`, string(b))
}

func TestStatusRequest_JSONEmptyFileList(t *testing.T) {
	b, err := json.Marshal(&StatusRequest{
		Status: press.StatusAvailable,
		URL:    "https://github.com/octocat/hello-world.git",
		Branch: "main",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fileList":[],"status":"available","url":"https://github.com/octocat/hello-world.git","branch":"main"}`, string(b))

	// a failed status never carries a file list.
	b, err = json.Marshal(StatusRequest{
		FileList: []string{"README.md"},
		Status:   press.StatusFailed,
		URL:      "https://github.com/octocat/hello-world.git",
		Branch:   "main",
		ErrorMsg: "CloneFailed: exit status 128",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"failed","url":"https://github.com/octocat/hello-world.git","branch":"main","errorMsg":"CloneFailed: exit status 128"}`, string(b))
}
