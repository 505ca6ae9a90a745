// Copyright 2024 Harness Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/drone/go-press/press"
	"github.com/drone/go-press/press/logger"
)

// for mocking
var readFileFn = os.ReadFile

// maximum number of response body bytes read into an error.
const maxErrorBody = 4096

// defaultClient is the default http.Client.
var defaultClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// New returns a new client.
func New(uploadURL, statusURL, token string) *HTTPClient {
	return &HTTPClient{
		Client:    defaultClient,
		UploadURL: uploadURL,
		StatusURL: statusURL,
		Token:     token,
	}
}

// An HTTPClient manages communication with the ingestion and
// status endpoints. Requests are never retried.
type HTTPClient struct {
	Client    *http.Client
	UploadURL string
	StatusURL string
	Token     string

	// UploadTimeout and StatusTimeout bound each request
	// when positive.
	UploadTimeout time.Duration
	StatusTimeout time.Duration
}

// Upload uploads the repository archives.
func (p *HTTPClient) Upload(ctx context.Context, req *UploadRequest) error {
	if err := p.post(ctx, p.UploadURL, req, p.UploadTimeout); err != nil {
		return press.Wrap(press.KindUploadFailed, err)
	}
	return nil
}

// SendStatus sends the job status.
func (p *HTTPClient) SendStatus(ctx context.Context, req *StatusRequest) error {
	if err := p.post(ctx, p.StatusURL, req, p.StatusTimeout); err != nil {
		return press.Wrap(press.KindStatusReportFailed, err)
	}
	return nil
}

// UploadArchives reads and encodes both archive files and
// uploads them with the repository metadata.
func (p *HTTPClient) UploadArchives(ctx context.Context, tarPath, zipPath string, meta UploadRequest) error {
	tarArchive, err := encodeFile(tarPath)
	if err != nil {
		return press.Wrap(press.KindUploadFailed, err)
	}
	zipArchive, err := encodeFile(zipPath)
	if err != nil {
		return press.Wrap(press.KindUploadFailed, err)
	}
	meta.TarArchive = tarArchive
	meta.ZipArchive = zipArchive

	logger.FromContext(ctx).
		WithField("tar.size", len(tarArchive)).
		WithField("zip.size", len(zipArchive)).
		Info("uploading archives")

	return p.Upload(ctx, &meta)
}

func encodeFile(path string) (string, error) {
	data, err := readFileFn(path)
	if err != nil {
		return "", fmt.Errorf("cannot read archive: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (p *HTTPClient) post(ctx context.Context, endpoint string, in any, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("could not encode input payload: %w", err)
	}
	return p.do(ctx, endpoint, http.MethodPost, buf)
}

// do is a helper function that sends an authorized json
// request. Any status outside the 2xx range is an error; the
// response body is never trusted to signal success.
func (p *HTTPClient) do(ctx context.Context, endpoint, method string, in io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, in)
	if err != nil {
		return err
	}

	// the request should include the token shared between
	// the worker and the service for authorization.
	req.Header.Set("Authorization", p.Token)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		// drain the response body so we can reuse
		// this connection.
		io.Copy(io.Discard, io.LimitReader(res.Body, maxErrorBody))
		res.Body.Close()
	}()

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}

	// if the response body includes an error message
	// we should return the error string.
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if len(bytes.TrimSpace(body)) != 0 {
		return fmt.Errorf("%s: status code %d: %s", endpoint, res.StatusCode, bytes.TrimSpace(body))
	}
	// if the response body is empty we should return
	// the default status code text.
	return fmt.Errorf("%s: status code %d: %s", endpoint, res.StatusCode,
		http.StatusText(res.StatusCode))
}

func (p *HTTPClient) client() *http.Client {
	if p.Client == nil {
		return defaultClient
	}
	return p.Client
}
