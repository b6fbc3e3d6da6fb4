/*
Copyright 2021 The KServe Authors.

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

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	HEADER_SUFFIX = "-headers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type HTTPSProvider struct {
	Client *http.Client
	Logger *zap.SugaredLogger
}

var _ Provider = (*HTTPSProvider)(nil)

func (m *HTTPSProvider) Download(ctx context.Context, destDir string, storageUri string) error {
	uri, err := url.Parse(storageUri)
	if err != nil {
		return fmt.Errorf("unable to parse storage uri: %w", err)
	}
	HTTPSDownloader := &HTTPSDownloader{
		StorageUri: storageUri,
		DestDir:    destDir,
		Uri:        uri,
		Logger:     loggerOrNop(m.Logger),
	}
	return HTTPSDownloader.Download(ctx, m.Client)
}

type HTTPSDownloader struct {
	StorageUri string
	DestDir    string
	Uri        *url.URL
	Logger     *zap.SugaredLogger
}

func (h *HTTPSDownloader) Download(ctx context.Context, client *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.StorageUri, nil)
	if err != nil {
		return err
	}

	headers, err := h.extractHeaders()
	if err != nil {
		return err
	}
	for key, element := range headers {
		req.Header.Add(key, element)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make a request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			h.Logger.Errorw("failed to close body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("URI: %s returned a %d response code", h.StorageUri, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-type")
	switch {
	case strings.Contains(contentType, "application/x-tar") || strings.Contains(contentType, "application/x-gtar") ||
		strings.Contains(contentType, "application/x-gzip") || strings.Contains(contentType, "application/gzip"):
		return extractTarFiles(resp.Body, h.DestDir)
	default:
		// Archives such as artifact zips are stored as-is and extracted by the caller.
		fileName := filepath.Base(h.Uri.Path)
		if fileName == "/" || fileName == "." {
			return fmt.Errorf("URI: %s does not name a file", h.StorageUri)
		}
		file, err := createNewFile(filepath.Join(h.DestDir, fileName))
		if err != nil {
			return err
		}
		defer file.Close()
		if _, err = io.Copy(file, resp.Body); err != nil {
			return fmt.Errorf("unable to copy file content: %w", err)
		}
	}
	return nil
}

// extractHeaders reads extra request headers from the <hostname>-headers
// environment variable holding a JSON object.
func (h *HTTPSDownloader) extractHeaders() (headers map[string]string, err error) {
	hostname := h.Uri.Hostname()
	headerJSON := os.Getenv(hostname + HEADER_SUFFIX)
	if headerJSON != "" {
		if err = json.Unmarshal([]byte(headerJSON), &headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers for %s: %w", hostname, err)
		}
	}
	return headers, nil
}
