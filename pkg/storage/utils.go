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
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/googleapis/google-cloud-go-testing/storage/stiface"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

func Create(fileName string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return nil, err
	}
	return os.Create(fileName)
}

func createNewFile(fileFullName string) (*os.File, error) {
	if FileExists(fileFullName) {
		if err := os.Remove(fileFullName); err != nil {
			return nil, fmt.Errorf("file is unable to be deleted: %w", err)
		}
	}

	file, err := Create(fileFullName)
	if err != nil {
		return nil, fmt.Errorf("file is already created: %w", err)
	}
	return file, nil
}

// localPath maps an object key listed under prefix to a file in destDir. An
// object whose key equals the prefix keeps its base name.
func localPath(destDir string, prefix string, key string) (string, error) {
	rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
	if rel == "" {
		rel = path.Base(key)
	}
	fileName := filepath.Join(destDir, filepath.FromSlash(rel))
	if !strings.HasPrefix(fileName, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: illegal file path", fileName)
	}
	return fileName, nil
}

func loggerOrNop(logger *zap.SugaredLogger) *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}

// splitBucket splits "bucket/some/prefix" after the protocol has been trimmed.
func splitBucket(uri string) (bucket string, prefix string) {
	tokens := strings.SplitN(uri, "/", 2)
	if len(tokens) == 2 {
		prefix = tokens[1]
	}
	return tokens[0], prefix
}

// GetProvider returns the cached provider for protocol, creating it from cfg on
// first use.
func GetProvider(ctx context.Context, cfg *Config, providers map[Protocol]Provider, protocol Protocol, logger *zap.SugaredLogger) (Provider, error) {
	if provider, ok := providers[protocol]; ok {
		return provider, nil
	}

	switch protocol {
	case GCS:
		var gcsClient *gstorage.Client
		var err error
		if cfg.GCSCredentials != "" {
			// GOOGLE_APPLICATION_CREDENTIALS is picked up by the client.
			gcsClient, err = gstorage.NewClient(ctx)
		} else {
			gcsClient, err = gstorage.NewClient(ctx, option.WithoutAuthentication())
		}
		if err != nil {
			return nil, err
		}
		providers[GCS] = &GCSProvider{
			Client: stiface.AdaptClient(gcsClient),
			Logger: logger,
		}
	case S3:
		awsConfig := aws.Config{
			Region:           aws.String(cfg.AWSRegion),
			S3ForcePathStyle: aws.Bool(!cfg.S3UseVirtualBucket),
			S3UseAccelerate:  aws.Bool(cfg.S3UseAccelerate),
		}
		if cfg.AWSEndpointURL != "" {
			awsConfig.Endpoint = aws.String(cfg.AWSEndpointURL)
		}
		if cfg.AWSAnonymousCredential {
			awsConfig.Credentials = credentials.AnonymousCredentials
		}
		sess, err := session.NewSession(&awsConfig)
		if err != nil {
			return nil, err
		}
		sessionClient := s3.New(sess)
		providers[S3] = &S3Provider{
			Client:     sessionClient,
			Downloader: s3manager.NewDownloaderWithClient(sessionClient, func(d *s3manager.Downloader) {}),
			Logger:     logger,
		}
	case Azure:
		providers[Azure] = &AzureProvider{
			NewClient: azureClientFactory(cfg),
			Logger:    logger,
		}
	case HTTPS:
		providers[HTTPS] = &HTTPSProvider{
			Client: &http.Client{},
			Logger: logger,
		}
	case HTTP:
		providers[HTTP] = &HTTPSProvider{
			Client: &http.Client{},
			Logger: logger,
		}
	default:
		return nil, fmt.Errorf("unsupported storage protocol %q, supported protocols are %v", protocol, GetAllProtocol())
	}

	return providers[protocol], nil
}
