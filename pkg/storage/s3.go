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
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"go.uber.org/zap"
)

type S3Provider struct {
	Client     s3iface.S3API
	Downloader s3manageriface.DownloadWithIterator
	Logger     *zap.SugaredLogger
}

var _ Provider = (*S3Provider)(nil)

func (m *S3Provider) Download(ctx context.Context, destDir string, storageUri string) error {
	bucket, prefix := splitBucket(strings.TrimPrefix(storageUri, string(S3)))
	s3ObjectDownloader := &S3ObjectDownloader{
		DestDir: destDir,
		Bucket:  bucket,
		Prefix:  prefix,
		Logger:  loggerOrNop(m.Logger),
	}
	objects, err := s3ObjectDownloader.GetAllObjects(ctx, m.Client)
	if err != nil {
		return fmt.Errorf("unable to get batch objects %w", err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("no objects found under %s", storageUri)
	}
	if err := s3ObjectDownloader.Download(ctx, m.Downloader, objects); err != nil {
		return fmt.Errorf("unable to get download objects %w", err)
	}
	return nil
}

type S3ObjectDownloader struct {
	DestDir string
	Bucket  string
	Prefix  string
	Logger  *zap.SugaredLogger
}

func (s *S3ObjectDownloader) GetAllObjects(ctx context.Context, s3Svc s3iface.S3API) ([]s3manager.BatchDownloadObject, error) {
	resp, err := s3Svc.ListObjectsWithContext(ctx, &s3.ListObjectsInput{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix),
	})
	if err != nil {
		return nil, err
	}
	results := make([]s3manager.BatchDownloadObject, 0, len(resp.Contents))

	for _, object := range resp.Contents {
		key := aws.StringValue(object.Key)
		if strings.HasSuffix(key, "/") {
			continue
		}
		fileName, err := localPath(s.DestDir, s.Prefix, key)
		if err != nil {
			return nil, err
		}
		if FileExists(fileName) {
			s.Logger.Infow("Deleting stale file", "file", fileName)
			if err := os.Remove(fileName); err != nil {
				return nil, fmt.Errorf("file is unable to be deleted: %w", err)
			}
		}
		file, err := Create(fileName)
		if err != nil {
			return nil, fmt.Errorf("file is already created: %w", err)
		}
		results = append(results, s3manager.BatchDownloadObject{
			Object: &s3.GetObjectInput{
				Key:    aws.String(key),
				Bucket: aws.String(s.Bucket),
			},
			Writer: file,
			After: func() error {
				return file.Close()
			},
		})
	}
	return results, nil
}

func (s *S3ObjectDownloader) Download(ctx context.Context, downloader s3manageriface.DownloadWithIterator, objects []s3manager.BatchDownloadObject) error {
	iter := &s3manager.DownloadObjectsIterator{Objects: objects}
	return downloader.DownloadWithIterator(ctx, iter)
}
