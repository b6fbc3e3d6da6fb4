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
	"os"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/googleapis/google-cloud-go-testing/storage/stiface"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

type GCSProvider struct {
	Client stiface.Client
	Logger *zap.SugaredLogger
}

var _ Provider = (*GCSProvider)(nil)

func (p *GCSProvider) Download(ctx context.Context, destDir string, storageUri string) error {
	bucket, prefix := splitBucket(strings.TrimPrefix(storageUri, string(GCS)))
	gcsObjectDownloader := &GCSObjectDownloader{
		DestDir: destDir,
		Bucket:  bucket,
		Item:    prefix,
		Logger:  loggerOrNop(p.Logger),
	}
	it := gcsObjectDownloader.GetObjectIterator(ctx, p.Client)
	if err := gcsObjectDownloader.Download(ctx, p.Client, it); err != nil {
		return fmt.Errorf("unable to download object/s because: %w", err)
	}
	return nil
}

type GCSObjectDownloader struct {
	DestDir string
	Bucket  string
	Item    string
	Logger  *zap.SugaredLogger
}

func (g *GCSObjectDownloader) GetObjectIterator(ctx context.Context, client stiface.Client) stiface.ObjectIterator {
	query := &gstorage.Query{Prefix: g.Item}
	return client.Bucket(g.Bucket).Objects(ctx, query)
}

func (g *GCSObjectDownloader) Download(ctx context.Context, client stiface.Client, it stiface.ObjectIterator) error {
	var result *multierror.Error
	found := false
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("an error occurred while iterating: %w", err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		found = true
		fileName, err := localPath(g.DestDir, g.Item, attrs.Name)
		if err != nil {
			return err
		}
		file, err := createNewFile(fileName)
		if err != nil {
			return err
		}
		if err := g.DownloadFile(ctx, client, attrs, file); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if !found {
		return gstorage.ErrObjectNotExist
	}
	return result.ErrorOrNil()
}

func (g *GCSObjectDownloader) DownloadFile(ctx context.Context, client stiface.Client, attrs *gstorage.ObjectAttrs, file *os.File) error {
	defer file.Close()
	reader, err := client.Bucket(attrs.Bucket).Object(attrs.Name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader for object(%s) in bucket(%s): %w",
			attrs.Name,
			attrs.Bucket,
			err,
		)
	}
	defer reader.Close()
	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write data to file(%s): from object(%s) in bucket(%s): %w",
			file.Name(),
			attrs.Name,
			attrs.Bucket,
			err,
		)
	}
	g.Logger.Infow("Wrote object to file", "object", attrs.Name, "file", file.Name())
	return nil
}
