/*
Copyright 2025 The KServe Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/kserve/servingctl/pkg/types"
	"github.com/kserve/servingctl/pkg/utils"
)

// Client talks to the REST API of the serving platform. It is safe for
// concurrent use.
type Client struct {
	cfg        *types.ServingConfig
	httpClient *http.Client
	logger     *zap.SugaredLogger
	// Backoff used when retrying idempotent requests.
	Backoff wait.Backoff
}

// New creates a client from the serving configuration.
func New(cfg *types.ServingConfig, logger *zap.SugaredLogger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}
	return NewWithHTTPClient(cfg, &http.Client{Transport: transport, Timeout: cfg.RequestTimeout}, logger)
}

// NewWithHTTPClient creates a client that sends requests through httpClient.
func NewWithHTTPClient(cfg *types.ServingConfig, httpClient *http.Client, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		Backoff:    retry.DefaultBackoff,
	}
}

// Config returns the serving configuration of the client.
func (c *Client) Config() *types.ServingConfig {
	return c.cfg
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type request struct {
	method  string
	url     string
	query   url.Values
	headers map[string]string
	body    []byte
}

func (c *Client) defaultHeaders() map[string]string {
	headers := map[string]string{"Accept": "application/json"}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "ApiKey " + c.cfg.APIKey
	}
	return headers
}

// do sends the request and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	resp, err := c.open(ctx, r)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Errorw("failed to close body", "url", r.url, "error", closeErr)
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response of %s %s", r.method, r.url)
	}
	return body, nil
}

// open sends the request and hands over the response of a 2xx response; the
// caller closes the body.
func (c *Client) open(ctx context.Context, r request) (*http.Response, error) {
	target := r.url
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request %s %s", r.method, target)
	}
	for key, value := range utils.Union(c.defaultHeaders(), r.headers) {
		if http.CanonicalHeaderKey(key) == "Host" {
			req.Host = value
			continue
		}
		req.Header.Set(key, value)
	}
	if r.body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugw("sending request", "method", r.method, "url", target)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to make a request to %s", target)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	errBody, _ := io.ReadAll(resp.Body)
	return nil, newRestAPIError(r.url, resp.StatusCode, errBody)
}

// doWithRetry retries idempotent requests on transport errors and 5xx responses.
func (c *Client) doWithRetry(ctx context.Context, r request) ([]byte, error) {
	var body []byte
	err := retry.OnError(c.Backoff, IsRetriable, func() error {
		var err error
		body, err = c.do(ctx, r)
		if err != nil && IsRetriable(err) {
			c.logger.Infow("retrying request", "method", r.method, "url", r.url, "error", err)
		}
		return err
	})
	return body, err
}
